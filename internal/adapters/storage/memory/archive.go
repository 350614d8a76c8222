package memory

import (
	"context"
	"sync"

	"github.com/PabloGalante/farum-insights/internal/domain"
)

// Archive is a simple in-memory implementation of domain.SessionArchive.
// It is NOT persistent and is only suitable for development / local mode.
type Archive struct {
	mu        sync.RWMutex
	summaries []domain.AnonymizedSessionSummary
	journeys  map[domain.SessionID]*domain.Session
	byUserID  map[domain.UserID][]domain.SessionID
}

// NewArchive creates a new in-memory archive.
func NewArchive() *Archive {
	return &Archive{
		journeys: make(map[domain.SessionID]*domain.Session),
		byUserID: make(map[domain.UserID][]domain.SessionID),
	}
}

func (a *Archive) SaveAnonymizedAnalytics(_ context.Context, summary domain.AnonymizedSessionSummary) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.summaries = append(a.summaries, summary)
	return nil
}

// SaveJourney stores a copy of the finalized session. Saving the same
// session twice replaces the earlier copy.
func (a *Archive) SaveJourney(_ context.Context, session *domain.Session) error {
	if session == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.journeys[session.ID]; !exists && session.UserID != "" {
		a.byUserID[session.UserID] = append(a.byUserID[session.UserID], session.ID)
	}
	a.journeys[session.ID] = session.Clone()
	return nil
}

// Summaries returns every stored summary, oldest first.
func (a *Archive) Summaries() []domain.AnonymizedSessionSummary {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]domain.AnonymizedSessionSummary(nil), a.summaries...)
}

func (a *Archive) Journey(id domain.SessionID) (*domain.Session, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.journeys[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// ListJourneysByUser returns the last `limit` journeys for a user.
// If limit <= 0, returns all.
func (a *Archive) ListJourneysByUser(userID domain.UserID, limit int) []*domain.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ids := a.byUserID[userID]
	if len(ids) == 0 {
		return []*domain.Session{}
	}

	if limit <= 0 || limit > len(ids) {
		limit = len(ids)
	}
	selected := ids[len(ids)-limit:]

	out := make([]*domain.Session, 0, len(selected))
	for _, id := range selected {
		if s, ok := a.journeys[id]; ok {
			out = append(out, s.Clone())
		}
	}
	return out
}
