// Package sink holds the destinations the event emitter delivers batches to.
package sink

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/PabloGalante/farum-insights/internal/domain"
	"github.com/PabloGalante/farum-insights/internal/observability"
)

// LogSink writes every event as one structured log line.
type LogSink struct {
	level slog.Level
}

func NewLogSink(level slog.Level) *LogSink {
	return &LogSink{level: level}
}

func (s *LogSink) Deliver(ctx context.Context, events []domain.Event) error {
	log := observability.LoggerFromContext(ctx)
	for _, evt := range events {
		log.Log(ctx, s.level, "analytics event",
			"type", evt.Type,
			"session_id", evt.SessionID,
			"privacy_level", evt.PrivacyLevel,
			"timestamp", evt.Timestamp,
			"payload", evt.Payload,
		)
	}
	return nil
}

// Fanout delivers each batch to every sink concurrently. It fails if any
// sink fails, after all of them have finished.
type Fanout struct {
	sinks []domain.EventSink
}

func NewFanout(sinks ...domain.EventSink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Deliver(ctx context.Context, events []domain.Event) error {
	var g errgroup.Group

	errs := make([]error, len(f.sinks))
	for i, s := range f.sinks {
		g.Go(func() error {
			errs[i] = s.Deliver(ctx, events)
			return errs[i]
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// LogResponder is a domain.CrisisResponder that only records the response.
// Real deployments put a notification channel behind the same port.
type LogResponder struct{}

func (LogResponder) TriggerCrisisResponse(ctx context.Context, sessionID domain.SessionID, result domain.CrisisDetectionResult) error {
	observability.LoggerFromContext(ctx).Warn("automatic crisis response triggered",
		"session_id", sessionID,
		"severity", result.Severity,
		"response_type", result.RecommendedResponse.Type,
		"follow_up_required", result.RecommendedResponse.FollowUpRequired,
	)
	return nil
}
