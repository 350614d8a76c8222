package analytics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/farum-insights/internal/domain"
	"github.com/PabloGalante/farum-insights/internal/observability"
)

const crisisDetectionResource = "crisis-detection-system"

// Service owns live therapeutic sessions: it records journey, hope, support
// and pain-point signals, runs the crisis detector on every journey point and
// finalizes sessions into the archive.
type Service struct {
	detector  *Detector
	publisher domain.EventPublisher
	archive   domain.SessionArchive
	responder domain.CrisisResponder
	metrics   *observability.Metrics
	now       func() time.Time
	newID     func() string

	mu       sync.RWMutex
	sessions map[domain.SessionID]*liveSession
}

type liveSession struct {
	mu      sync.Mutex
	session *domain.Session
	ended   bool
}

type Option func(*Service)

func WithArchive(a domain.SessionArchive) Option    { return func(s *Service) { s.archive = a } }
func WithResponder(r domain.CrisisResponder) Option { return func(s *Service) { s.responder = r } }
func WithMetrics(m *observability.Metrics) Option   { return func(s *Service) { s.metrics = m } }
func WithClock(now func() time.Time) Option         { return func(s *Service) { s.now = now } }
func WithIDGenerator(newID func() string) Option    { return func(s *Service) { s.newID = newID } }

func NewService(detector *Detector, publisher domain.EventPublisher, opts ...Option) *Service {
	s := &Service{
		detector:  detector,
		publisher: publisher,
		now:       time.Now,
		newID:     uuid.NewString,
		sessions:  make(map[domain.SessionID]*liveSession),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartSession opens a session. A nil consent means nothing was granted.
func (s *Service) StartSession(ctx context.Context, userID domain.UserID, consent *domain.PrivacyConsent) domain.SessionID {
	now := s.now()

	pc := domain.PrivacyConsent{ConsentVersion: domain.DefaultConsentVersion}
	if consent != nil {
		pc = *consent
		if pc.ConsentVersion == "" {
			pc.ConsentVersion = domain.DefaultConsentVersion
		}
	}
	pc.ConsentTimestamp = now

	session := &domain.Session{
		ID:             domain.SessionID(s.newID()),
		UserID:         userID,
		StartedAt:      now,
		LastActivity:   now,
		PrivacyConsent: pc,
	}

	s.mu.Lock()
	s.sessions[session.ID] = &liveSession{session: session}
	s.mu.Unlock()
	s.metrics.SessionStarted()

	s.publish(session, now, domain.SessionStartPayload{Consent: pc})

	observability.LoggerFromContext(ctx).Info("session started",
		"session_id", session.ID,
		"analytics_consent", pc.AnalyticsConsent,
		"emotional_tracking_consent", pc.EmotionalTrackingConsent,
	)
	return session.ID
}

// TrackJourneyPoint appends a journey point and runs the crisis detector.
// It returns the crisis verdicts acted upon, which is empty unless the
// session granted crisis-intervention consent. Unknown sessions and sessions
// without emotional-tracking consent are ignored.
func (s *Service) TrackJourneyPoint(
	ctx context.Context,
	id domain.SessionID,
	stage domain.JourneyStage,
	state domain.EmotionalState,
	engagement *domain.ContentEngagement,
) []domain.CrisisDetectionResult {
	var (
		intervened []domain.CrisisDetectionResult
		triggers   []domain.CrisisDetectionResult
		tracked    bool
	)

	s.withSession(id, func(sess *domain.Session) {
		if !sess.PrivacyConsent.EmotionalTrackingConsent {
			observability.LoggerFromContext(ctx).Debug("journey point skipped without tracking consent", "session_id", id)
			return
		}
		tracked = true

		now := s.now()
		prevActivity := sess.LastActivity
		prev, hadPrev := sess.CurrentPoint()

		point := domain.NewJourneyPoint(now, stage, state, engagement)
		sess.EmotionalJourney = append(sess.EmotionalJourney, point)
		sess.LastActivity = now

		if hadPrev && prev.Stage.Stage != stage.Stage {
			s.publish(sess, now, domain.JourneyStageChangePayload{
				From:      prev.Stage.Stage,
				To:        stage.Stage,
				Progress:  stage.Progress,
				HopeLevel: point.HopeLevel,
			})
		}
		s.publish(sess, now, domain.EmotionalStateChangePayload{
			StressLevel:     state.StressLevel,
			StressSeverity:  s.detector.StressSeverity(point.StressLevel),
			PrimaryConcerns: state.PrimaryConcerns,
			SupportNeeds:    state.SupportNeeds,
			HopeLevel:       point.HopeLevel,
		})
		if engagement != nil {
			s.publish(sess, now, domain.ContentEngagementPayload{
				Engagement: point.Engagement,
				Quality:    point.EngagementQuality,
			})
		}

		intervened, triggers = s.runDetector(ctx, sess, point, now, prevActivity)
	})

	if !tracked {
		return nil
	}

	// Responders run outside the session lock.
	for _, result := range triggers {
		if s.responder == nil {
			break
		}
		if err := s.responder.TriggerCrisisResponse(ctx, id, result); err != nil {
			observability.LoggerFromContext(ctx).Error("crisis responder failed",
				"session_id", id,
				"severity", result.Severity,
				"error", err,
			)
		}
	}
	return intervened
}

// runDetector must be called with the session lock held. It returns the
// verdicts that were acted upon and the subset that asks for an automatic
// response.
func (s *Service) runDetector(
	ctx context.Context,
	sess *domain.Session,
	point domain.JourneyPoint,
	now, prevActivity time.Time,
) (intervened, triggers []domain.CrisisDetectionResult) {
	indicators := s.detector.Detect(sess, point, now)
	if len(indicators) == 0 {
		return nil, nil
	}

	first := len(sess.StressIndicators)
	sess.StressIndicators = append(sess.StressIndicators, indicators...)

	log := observability.LoggerFromContext(ctx).With("session_id", sess.ID)

	for i := range indicators {
		ind := &sess.StressIndicators[first+i]

		s.metrics.StressIndicator(string(ind.Type), string(ind.Severity))
		s.publish(sess, now, domain.StressIndicatorPayload{
			Type:     ind.Type,
			Severity: ind.Severity,
			Context:  ind.Context,
		})

		result := s.detector.Assess(sess, *ind, now, prevActivity)
		if !result.Detected {
			continue
		}

		consented := sess.PrivacyConsent.CrisisInterventionConsent
		s.metrics.CrisisDetected(string(result.Severity), consented)
		s.publish(sess, now, domain.CrisisDetectedPayload{
			Severity:   result.Severity,
			Triggers:   result.Triggers,
			Confidence: result.Confidence,
			Response:   result.RecommendedResponse,
			Intervened: consented,
		})

		log.Warn("crisis detected",
			"severity", result.Severity,
			"confidence", result.Confidence,
			"triggers", result.Triggers,
			"intervened", consented,
		)

		if !consented {
			continue
		}

		sess.SupportInteractions = append(sess.SupportInteractions, domain.SupportInteraction{
			Type:              domain.SupportCrisisHelpViewed,
			Timestamp:         now,
			Outcome:           domain.OutcomeEscalationNeeded,
			SupportResourceID: crisisDetectionResource,
			FollowUpNeeded:    true,
		})
		intervened = append(intervened, result)

		if result.RecommendedResponse.AutomaticTrigger {
			if ind.AutomaticResponse != nil {
				ind.AutomaticResponse.Triggered = true
			}
			triggers = append(triggers, result)
		}
	}
	return intervened, triggers
}

// TrackHopeIndicator records a hope signal and reports a breakthrough when
// the recent run is strong enough. Gated by emotional-tracking consent.
func (s *Service) TrackHopeIndicator(ctx context.Context, id domain.SessionID, indicator domain.HopeIndicator) bool {
	tracked := false
	s.withSession(id, func(sess *domain.Session) {
		if !sess.PrivacyConsent.EmotionalTrackingConsent {
			observability.LoggerFromContext(ctx).Debug("hope indicator skipped without tracking consent", "session_id", id)
			return
		}
		tracked = true

		now := s.now()
		indicator.Timestamp = now
		sess.HopeIndicators = append(sess.HopeIndicators, indicator)
		sess.LastActivity = now

		s.publish(sess, now, domain.HopeIndicatorPayload{
			Type:           indicator.Type,
			Intensity:      indicator.Intensity,
			Context:        indicator.Context,
			CumulativeHope: cumulativeHope(sess),
		})

		if indicator.Intensity < breakthroughIntensity {
			return
		}
		if n, avg, ok := hopeBreakthrough(sess, now); ok {
			s.publish(sess, now, domain.HopeBreakthroughPayload{
				Indicators:       n,
				AverageIntensity: avg,
				Context:          indicator.Context,
			})
			observability.LoggerFromContext(ctx).Info("hope breakthrough",
				"session_id", sess.ID,
				"indicators", n,
			)
		}
	})
	return tracked
}

// TrackSupportInteraction records a support resource access. A crisis help
// view that helped counts as a resolved crisis.
func (s *Service) TrackSupportInteraction(ctx context.Context, id domain.SessionID, interaction domain.SupportInteraction) bool {
	return s.withSession(id, func(sess *domain.Session) {
		now := s.now()
		interaction.Timestamp = now
		sess.SupportInteractions = append(sess.SupportInteractions, interaction)
		sess.LastActivity = now

		s.publish(sess, now, domain.SupportAccessedPayload{
			Type:          interaction.Type,
			Duration:      interaction.Duration,
			Outcome:       interaction.Outcome,
			Effectiveness: interaction.EffectivenessRating,
		})

		if interaction.Type == domain.SupportCrisisHelpViewed && interaction.Outcome == domain.OutcomeHelped {
			s.publish(sess, now, domain.CrisisResolvedPayload{
				ResolutionMethod: interaction.Type,
				Effectiveness:    interaction.EffectivenessRating,
			})
			observability.LoggerFromContext(ctx).Info("crisis resolved", "session_id", sess.ID)
		}
	})
}

// TrackPainPointExploration records a pain point once per type, keeping the
// highest severity seen.
func (s *Service) TrackPainPointExploration(_ context.Context, id domain.SessionID, pp domain.PainPoint) bool {
	return s.withSession(id, func(sess *domain.Session) {
		now := s.now()

		found := false
		for i := range sess.PainPointsExplored {
			existing := &sess.PainPointsExplored[i]
			if existing.Type != pp.Type {
				continue
			}
			found = true
			if pp.Severity > existing.Severity {
				existing.Severity = pp.Severity
			}
			break
		}
		if !found {
			sess.PainPointsExplored = append(sess.PainPointsExplored, pp)
		}
		sess.LastActivity = now

		s.publish(sess, now, domain.PainPointExploredPayload{
			Type:             pp.Type,
			Severity:         pp.Severity,
			Description:      pp.Description,
			RelatedSolutions: pp.RelatedSolutions,
		})
	})
}

// UpdatePrivacyConsent merges the provided flags into the session's consent
// and restamps it.
func (s *Service) UpdatePrivacyConsent(ctx context.Context, id domain.SessionID, update domain.ConsentUpdate) bool {
	return s.withSession(id, func(sess *domain.Session) {
		pc := &sess.PrivacyConsent
		if update.AnalyticsConsent != nil {
			pc.AnalyticsConsent = *update.AnalyticsConsent
		}
		if update.EmotionalTrackingConsent != nil {
			pc.EmotionalTrackingConsent = *update.EmotionalTrackingConsent
		}
		if update.CrisisInterventionConsent != nil {
			pc.CrisisInterventionConsent = *update.CrisisInterventionConsent
		}
		if update.PeerSupportConsent != nil {
			pc.PeerSupportConsent = *update.PeerSupportConsent
		}
		if update.ConsentVersion != nil && *update.ConsentVersion != "" {
			pc.ConsentVersion = *update.ConsentVersion
		}
		pc.ConsentTimestamp = s.now()

		observability.LoggerFromContext(ctx).Info("privacy consent updated",
			"session_id", sess.ID,
			"consent_version", pc.ConsentVersion,
		)
	})
}

func (s *Service) GetSessionAnalytics(id domain.SessionID) (*domain.SessionAnalytics, bool) {
	var out *domain.SessionAnalytics
	ok := s.withSession(id, func(sess *domain.Session) {
		out = analyticsFor(sess, s.now())
	})
	return out, ok
}

// Snapshot returns a deep copy of a live session.
func (s *Service) Snapshot(id domain.SessionID) (*domain.Session, bool) {
	var out *domain.Session
	ok := s.withSession(id, func(sess *domain.Session) {
		out = sess.Clone()
	})
	return out, ok
}

func (s *Service) LiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// EndSession finalizes and evicts a session. A nil outcome is computed from
// the session's signals. Ending an unknown or already ended session returns
// ErrSessionNotFound. Archive failures are returned, but the session is
// evicted regardless.
func (s *Service) EndSession(ctx context.Context, id domain.SessionID, outcome *domain.SessionOutcome) (*domain.SessionOutcome, error) {
	s.mu.Lock()
	ls, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	ls.mu.Lock()
	if ls.ended {
		ls.mu.Unlock()
		return nil, domain.ErrSessionNotFound
	}
	ls.ended = true

	sess := ls.session
	now := s.now()

	final := computeOutcome(sess)
	if outcome != nil {
		final = *outcome
	}
	sess.Outcome = &final
	sess.FinalizedAt = &now
	sess.LastActivity = now

	s.publish(sess, now, domain.SessionEndPayload{
		DurationMillis:     now.Sub(sess.StartedAt).Milliseconds(),
		Outcome:            final,
		JourneyProgression: journeyProgression(sess),
		HopeProgression:    domain.HopeProgression(sess.EmotionalJourney),
		StressReduction:    domain.StressReduction(sess.EmotionalJourney),
	})

	snapshot := sess.Clone()
	ls.mu.Unlock()

	s.metrics.SessionEnded()

	log := observability.LoggerFromContext(ctx).With("session_id", id, "outcome", final.Type)
	err := s.persist(ctx, snapshot)
	if err != nil {
		log.Error("failed to archive session", "error", err)
	} else {
		log.Info("session ended")
	}

	result := final
	return &result, err
}

// persist writes what the consent flags allow and nothing else.
func (s *Service) persist(ctx context.Context, sess *domain.Session) error {
	if s.archive == nil {
		return nil
	}
	var errs []error
	if sess.PrivacyConsent.AnalyticsConsent {
		if err := s.archive.SaveAnonymizedAnalytics(ctx, anonymize(sess)); err != nil {
			errs = append(errs, err)
		}
	}
	if sess.PrivacyConsent.EmotionalTrackingConsent {
		if err := s.archive.SaveJourney(ctx, sess); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EndIdleSessions ends every session whose last activity is older than idle.
// It returns how many were ended.
func (s *Service) EndIdleSessions(ctx context.Context, idle time.Duration) int {
	cutoff := s.now().Add(-idle)

	s.mu.RLock()
	var stale []domain.SessionID
	for id, ls := range s.sessions {
		ls.mu.Lock()
		if ls.session.LastActivity.Before(cutoff) {
			stale = append(stale, id)
		}
		ls.mu.Unlock()
	}
	s.mu.RUnlock()

	return s.endAll(ctx, stale)
}

// EndAllSessions finalizes everything still live, used on shutdown.
func (s *Service) EndAllSessions(ctx context.Context) int {
	s.mu.RLock()
	ids := make([]domain.SessionID, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	return s.endAll(ctx, ids)
}

func (s *Service) endAll(ctx context.Context, ids []domain.SessionID) int {
	ended := 0
	for _, id := range ids {
		_, err := s.EndSession(ctx, id, nil)
		if errors.Is(err, domain.ErrSessionNotFound) {
			continue
		}
		// Archive errors are already logged; the session is gone either way.
		ended++
	}
	return ended
}

// withSession runs fn under the session lock. It reports false when the
// session is unknown or has just been ended.
func (s *Service) withSession(id domain.SessionID, fn func(*domain.Session)) bool {
	s.mu.RLock()
	ls, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return false
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.ended {
		return false
	}
	fn(ls.session)
	return true
}

func (s *Service) publish(sess *domain.Session, at time.Time, payload domain.EventPayload) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(domain.NewEvent(at, sess.ID, sess.UserID, payload))
}
