package badger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/farum-insights/internal/adapters/storage/badger"
	"github.com/PabloGalante/farum-insights/internal/domain"
)

func openInMemory(t *testing.T) *badger.Archive {
	t.Helper()

	a, err := badger.Open(badger.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := badger.Open(badger.Config{})
	require.Error(t, err)
}

func TestJourneyRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := openInMemory(t)

	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	session := &domain.Session{
		ID:           "s1",
		UserID:       "u1",
		StartedAt:    start,
		LastActivity: start.Add(5 * time.Minute),
		EmotionalJourney: []domain.JourneyPoint{{
			Timestamp:      start,
			Stage:          domain.JourneyStage{Stage: domain.StageValidation, Progress: 10},
			EmotionalState: domain.EmotionalState{StressLevel: domain.StressHigh},
			HopeLevel:      3,
			StressLevel:    7,
		}},
		Outcome: &domain.SessionOutcome{Type: domain.SessionNeutral},
	}

	require.NoError(t, a.SaveJourney(ctx, session))

	got, err := a.GetJourney(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("u1"), got.UserID)
	require.Len(t, got.EmotionalJourney, 1)
	assert.Equal(t, 7, got.EmotionalJourney[0].StressLevel)
	assert.True(t, got.StartedAt.Equal(start))
	require.NotNil(t, got.Outcome)
	assert.Equal(t, domain.SessionNeutral, got.Outcome.Type)
}

func TestGetJourneyMissing(t *testing.T) {
	_, err := openInMemory(t).GetJourney(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestListSummaries(t *testing.T) {
	ctx := context.Background()
	a := openInMemory(t)

	require.NoError(t, a.SaveAnonymizedAnalytics(ctx, domain.AnonymizedSessionSummary{SessionID: "a", HopeProgression: 3}))
	require.NoError(t, a.SaveAnonymizedAnalytics(ctx, domain.AnonymizedSessionSummary{SessionID: "b", CrisisIndicators: 1}))
	// Journeys share the keyspace but not the prefix.
	require.NoError(t, a.SaveJourney(ctx, &domain.Session{ID: "a"}))

	got, err := a.ListSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.SessionID("a"), got[0].SessionID)
	assert.Equal(t, 3, got[0].HopeProgression)
	assert.Equal(t, 1, got[1].CrisisIndicators)
}
