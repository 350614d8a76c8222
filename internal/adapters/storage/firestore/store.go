package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/farum-insights/internal/domain"
)

// Archive persists finalized sessions to Firestore. Summaries land in
// "session_summaries", full journeys in "journeys/{id}" with one document
// per journey point under "points".
type Archive struct {
	client *firestore.Client
}

// NewArchive creates a Firestore archive.
// Uses the project passed (FARUM_GCP_PROJECT).
func NewArchive(ctx context.Context, projectID string) (*Archive, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore archive")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Archive{client: client}, nil
}

func (a *Archive) Close() error {
	return a.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (a *Archive) summariesCol() *firestore.CollectionRef {
	return a.client.Collection("session_summaries")
}

func (a *Archive) journeysCol() *firestore.CollectionRef {
	return a.client.Collection("journeys")
}

func (a *Archive) journeyDoc(id domain.SessionID) *firestore.DocumentRef {
	return a.journeysCol().Doc(string(id))
}

func (a *Archive) pointsCol(id domain.SessionID) *firestore.CollectionRef {
	return a.journeyDoc(id).Collection("points")
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type summaryDoc struct {
	StartedAt           time.Time `firestore:"started_at"`
	FinalizedAt         time.Time `firestore:"finalized_at"`
	JourneyPoints       int       `firestore:"journey_points"`
	FinalStage          string    `firestore:"final_stage"`
	HopeProgression     int       `firestore:"hope_progression"`
	StressReduction     int       `firestore:"stress_reduction"`
	SupportInteractions int       `firestore:"support_interactions"`
	CrisisIndicators    int       `firestore:"crisis_indicators"`
	OutcomeType         string    `firestore:"outcome_type"`
}

// journeyDoc holds everything but the journey points. The nested slices are
// stored as arrays of maps using the Go field names.
type journeyDoc struct {
	UserID              string                      `firestore:"user_id"`
	StartedAt           time.Time                   `firestore:"started_at"`
	LastActivity        time.Time                   `firestore:"last_activity"`
	FinalizedAt         *time.Time                  `firestore:"finalized_at"`
	PointCount          int                         `firestore:"point_count"`
	StressIndicators    []domain.StressIndicator    `firestore:"stress_indicators"`
	SupportInteractions []domain.SupportInteraction `firestore:"support_interactions"`
	PainPoints          []domain.PainPoint          `firestore:"pain_points"`
	HopeIndicators      []domain.HopeIndicator      `firestore:"hope_indicators"`
	Consent             domain.PrivacyConsent       `firestore:"privacy_consent"`
	Outcome             *domain.SessionOutcome      `firestore:"outcome"`
}

type pointDoc struct {
	Seq               int       `firestore:"seq"`
	Timestamp         time.Time `firestore:"timestamp"`
	Stage             string    `firestore:"stage"`
	Progress          float64   `firestore:"progress"`
	StressLevel       string    `firestore:"stress_level"`
	PrimaryConcerns   []string  `firestore:"primary_concerns"`
	SupportNeeds      []string  `firestore:"support_needs"`
	ContentID         string    `firestore:"content_id"`
	ContentType       string    `firestore:"content_type"`
	TimeSpent         float64   `firestore:"time_spent"`
	InteractionDepth  string    `firestore:"interaction_depth"`
	EmotionalResponse string    `firestore:"emotional_response"`
	Relevance         int       `firestore:"relevance"`
	HopeScore         int       `firestore:"hope_score"`
	StressScore       int       `firestore:"stress_score"`
	EngagementQuality string    `firestore:"engagement_quality"`
}

func toPointDoc(seq int, p domain.JourneyPoint) pointDoc {
	return pointDoc{
		Seq:               seq,
		Timestamp:         p.Timestamp,
		Stage:             string(p.Stage.Stage),
		Progress:          p.Stage.Progress,
		StressLevel:       string(p.EmotionalState.StressLevel),
		PrimaryConcerns:   p.EmotionalState.PrimaryConcerns,
		SupportNeeds:      p.EmotionalState.SupportNeeds,
		ContentID:         p.Engagement.ContentID,
		ContentType:       string(p.Engagement.ContentType),
		TimeSpent:         p.Engagement.TimeSpent,
		InteractionDepth:  string(p.Engagement.InteractionDepth),
		EmotionalResponse: string(p.Engagement.EmotionalResponse),
		Relevance:         p.Engagement.Relevance,
		HopeScore:         p.HopeLevel,
		StressScore:       p.StressLevel,
		EngagementQuality: string(p.EngagementQuality),
	}
}

func (d pointDoc) toDomain() domain.JourneyPoint {
	return domain.JourneyPoint{
		Timestamp: d.Timestamp,
		Stage:     domain.JourneyStage{Stage: domain.JourneyStageName(d.Stage), Progress: d.Progress},
		EmotionalState: domain.EmotionalState{
			StressLevel:     domain.StressLevel(d.StressLevel),
			PrimaryConcerns: d.PrimaryConcerns,
			SupportNeeds:    d.SupportNeeds,
		},
		Engagement: domain.ContentEngagement{
			ContentID:         d.ContentID,
			ContentType:       domain.ContentType(d.ContentType),
			TimeSpent:         d.TimeSpent,
			InteractionDepth:  domain.InteractionDepth(d.InteractionDepth),
			EmotionalResponse: domain.EmotionalResponse(d.EmotionalResponse),
			Relevance:         d.Relevance,
		},
		HopeLevel:         d.HopeScore,
		StressLevel:       d.StressScore,
		EngagementQuality: domain.EngagementQuality(d.EngagementQuality),
	}
}

// ─────────────────────────────────────────
// SessionArchive implementation
// ─────────────────────────────────────────

func (a *Archive) SaveAnonymizedAnalytics(ctx context.Context, summary domain.AnonymizedSessionSummary) error {
	doc := summaryDoc{
		StartedAt:           summary.StartedAt,
		FinalizedAt:         summary.FinalizedAt,
		JourneyPoints:       summary.JourneyPoints,
		FinalStage:          string(summary.FinalStage),
		HopeProgression:     summary.HopeProgression,
		StressReduction:     summary.StressReduction,
		SupportInteractions: summary.SupportInteractions,
		CrisisIndicators:    summary.CrisisIndicators,
		OutcomeType:         string(summary.OutcomeType),
	}

	_, err := a.summariesCol().Doc(string(summary.SessionID)).Set(ctx, doc)
	if err != nil {
		return fmt.Errorf("firestore SaveAnonymizedAnalytics: %w", err)
	}
	return nil
}

// SaveJourney writes the session document and its points in one bulk batch.
func (a *Archive) SaveJourney(ctx context.Context, session *domain.Session) error {
	doc := journeyDoc{
		UserID:              string(session.UserID),
		StartedAt:           session.StartedAt,
		LastActivity:        session.LastActivity,
		FinalizedAt:         session.FinalizedAt,
		PointCount:          len(session.EmotionalJourney),
		StressIndicators:    session.StressIndicators,
		SupportInteractions: session.SupportInteractions,
		PainPoints:          session.PainPointsExplored,
		HopeIndicators:      session.HopeIndicators,
		Consent:             session.PrivacyConsent,
		Outcome:             session.Outcome,
	}

	bw := a.client.BulkWriter(ctx)

	jobs := make([]*firestore.BulkWriterJob, 0, len(session.EmotionalJourney)+1)
	job, err := bw.Set(a.journeyDoc(session.ID), doc)
	if err != nil {
		bw.End()
		return fmt.Errorf("firestore SaveJourney: %w", err)
	}
	jobs = append(jobs, job)

	for i, p := range session.EmotionalJourney {
		ref := a.pointsCol(session.ID).Doc(fmt.Sprintf("%06d", i))
		job, err := bw.Set(ref, toPointDoc(i, p))
		if err != nil {
			bw.End()
			return fmt.Errorf("firestore SaveJourney point %d: %w", i, err)
		}
		jobs = append(jobs, job)
	}

	bw.End()

	var errs []error
	for _, j := range jobs {
		if _, err := j.Results(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("firestore SaveJourney: %w", errors.Join(errs...))
	}
	return nil
}

// ─────────────────────────────────────────
// Reads
// ─────────────────────────────────────────

// GetJourney loads an archived journey. It returns domain.ErrSessionNotFound
// when nothing was stored under id.
func (a *Archive) GetJourney(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	snap, err := a.journeyDoc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("firestore GetJourney: %w", err)
	}

	var doc journeyDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetJourney decode: %w", err)
	}

	session := &domain.Session{
		ID:                  id,
		UserID:              domain.UserID(doc.UserID),
		StartedAt:           doc.StartedAt,
		LastActivity:        doc.LastActivity,
		FinalizedAt:         doc.FinalizedAt,
		EmotionalJourney:    make([]domain.JourneyPoint, 0, doc.PointCount),
		StressIndicators:    doc.StressIndicators,
		SupportInteractions: doc.SupportInteractions,
		PainPointsExplored:  doc.PainPoints,
		HopeIndicators:      doc.HopeIndicators,
		PrivacyConsent:      doc.Consent,
		Outcome:             doc.Outcome,
	}

	iter := a.pointsCol(id).OrderBy("seq", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore GetJourney points: %w", err)
		}

		var p pointDoc
		if err := snap.DataTo(&p); err != nil {
			return nil, fmt.Errorf("decode pointDoc: %w", err)
		}
		session.EmotionalJourney = append(session.EmotionalJourney, p.toDomain())
	}
	return session, nil
}

// ListSummaries returns the most recently finalized summaries first.
func (a *Archive) ListSummaries(ctx context.Context, limit int) ([]domain.AnonymizedSessionSummary, error) {
	q := a.summariesCol().OrderBy("finalized_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []domain.AnonymizedSessionSummary
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListSummaries: %w", err)
		}

		var doc summaryDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode summaryDoc: %w", err)
		}

		out = append(out, domain.AnonymizedSessionSummary{
			SessionID:           domain.SessionID(snap.Ref.ID),
			StartedAt:           doc.StartedAt,
			FinalizedAt:         doc.FinalizedAt,
			JourneyPoints:       doc.JourneyPoints,
			FinalStage:          domain.JourneyStageName(doc.FinalStage),
			HopeProgression:     doc.HopeProgression,
			StressReduction:     doc.StressReduction,
			SupportInteractions: doc.SupportInteractions,
			CrisisIndicators:    doc.CrisisIndicators,
			OutcomeType:         domain.SessionOutcomeType(doc.OutcomeType),
		})
	}
	return out, nil
}
