// Package badger archives finalized sessions in an embedded BadgerDB, for
// local deployments that want persistence without a cloud database.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/PabloGalante/farum-insights/internal/domain"
)

const (
	summaryPrefix = "summary/"
	journeyPrefix = "journey/"
)

// Config holds configuration for the archive database.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory disables disk persistence. Used by tests.
	InMemory bool

	SyncWrites bool

	// Logger receives BadgerDB's internal logs. Nil disables them.
	Logger *slog.Logger
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Archive implements domain.SessionArchive on top of BadgerDB. Values are
// JSON documents keyed by "summary/<id>" and "journey/<id>".
type Archive struct {
	db *badger.DB
}

// Open opens (or creates) the archive database described by cfg.
func Open(cfg Config) (*Archive, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent archive")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create archive directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger archive: %w", err)
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) SaveAnonymizedAnalytics(_ context.Context, summary domain.AnonymizedSessionSummary) error {
	return a.put(summaryPrefix+string(summary.SessionID), summary)
}

func (a *Archive) SaveJourney(_ context.Context, session *domain.Session) error {
	return a.put(journeyPrefix+string(session.ID), session)
}

func (a *Archive) put(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	err = a.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), raw)
	})
	if err != nil {
		return fmt.Errorf("badger put %s: %w", key, err)
	}
	return nil
}

// GetJourney loads an archived journey. It returns domain.ErrSessionNotFound
// when nothing was stored under id.
func (a *Archive) GetJourney(_ context.Context, id domain.SessionID) (*domain.Session, error) {
	var session domain.Session

	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(journeyPrefix + string(id)))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &session)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger GetJourney: %w", err)
	}
	return &session, nil
}

// ListSummaries returns every stored summary in key order.
func (a *Archive) ListSummaries(ctx context.Context) ([]domain.AnonymizedSessionSummary, error) {
	var out []domain.AnonymizedSessionSummary

	err := a.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(summaryPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var s domain.AnonymizedSessionSummary
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &s)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, s)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger ListSummaries: %w", err)
	}
	return out, nil
}
