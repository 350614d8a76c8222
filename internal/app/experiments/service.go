package experiments

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/farum-insights/internal/domain"
	"github.com/PabloGalante/farum-insights/internal/observability"
)

// Service is the therapeutic experiment engine: registry, assignment and
// outcome scoring. One mutex guards all experiment state; none of the
// guarded work does I/O.
type Service struct {
	publisher domain.EventPublisher
	metrics   *observability.Metrics
	now       func() time.Time
	newID     func() string
	draw      func() float64

	mu          sync.Mutex
	tests       map[domain.ExperimentID]*domain.Experiment
	assignments map[assignmentKey]domain.VariantID
	results     map[domain.ExperimentID][]domain.TestResult
	violations  map[domain.ExperimentID][]domain.Violation
}

type assignmentKey struct {
	user domain.UserID
	test domain.ExperimentID
}

type Option func(*Service)

func WithPublisher(p domain.EventPublisher) Option { return func(s *Service) { s.publisher = p } }
func WithMetrics(m *observability.Metrics) Option  { return func(s *Service) { s.metrics = m } }
func WithClock(now func() time.Time) Option        { return func(s *Service) { s.now = now } }
func WithIDGenerator(newID func() string) Option   { return func(s *Service) { s.newID = newID } }

// WithRand makes variant draws reproducible.
func WithRand(r *rand.Rand) Option { return func(s *Service) { s.draw = r.Float64 } }

func NewService(opts ...Option) *Service {
	s := &Service{
		now:         time.Now,
		newID:       uuid.NewString,
		draw:        rand.Float64,
		tests:       make(map[domain.ExperimentID]*domain.Experiment),
		assignments: make(map[assignmentKey]domain.VariantID),
		results:     make(map[domain.ExperimentID][]domain.TestResult),
		violations:  make(map[domain.ExperimentID][]domain.Violation),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTest validates cfg and stores it as a draft. Nothing is stored when
// validation fails.
func (s *Service) CreateTest(ctx context.Context, cfg domain.ExperimentConfig) (*domain.Experiment, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	now := s.now()
	exp := (&domain.Experiment{
		ID:               domain.ExperimentID("therapeutic-test-" + s.newID()),
		ExperimentConfig: cfg,
		Status:           domain.StatusDraft,
		CreatedAt:        now,
		UpdatedAt:        now,
	}).Clone()

	s.mu.Lock()
	s.tests[exp.ID] = exp
	s.mu.Unlock()

	observability.LoggerFromContext(ctx).Info("experiment created",
		"test_id", exp.ID,
		"name", exp.Name,
		"variants", len(exp.Variants),
	)
	return exp.Clone(), nil
}

// StartTest re-validates the stored config and activates the experiment.
// Paused experiments resume through StartTest as well.
func (s *Service) StartTest(ctx context.Context, id domain.ExperimentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.tests[id]
	if !ok {
		return domain.ErrExperimentNotFound
	}
	if exp.Status != domain.StatusDraft && exp.Status != domain.StatusPaused {
		return fmt.Errorf("%w: cannot start %s experiment", domain.ErrInvalidTransition, exp.Status)
	}
	if err := ValidateConfig(exp.ExperimentConfig); err != nil {
		return err
	}

	exp.Status = domain.StatusActive
	exp.UpdatedAt = s.now()

	observability.LoggerFromContext(ctx).Info("experiment started", "test_id", id)
	return nil
}

func (s *Service) PauseTest(ctx context.Context, id domain.ExperimentID) error {
	return s.transition(ctx, id, domain.StatusActive, domain.StatusPaused)
}

func (s *Service) CompleteTest(ctx context.Context, id domain.ExperimentID) error {
	return s.transition(ctx, id, domain.StatusActive, domain.StatusCompleted)
}

func (s *Service) transition(ctx context.Context, id domain.ExperimentID, from, to domain.ExperimentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.tests[id]
	if !ok {
		return domain.ErrExperimentNotFound
	}
	if exp.Status != from {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, exp.Status, to)
	}
	exp.Status = to
	exp.UpdatedAt = s.now()

	observability.LoggerFromContext(ctx).Info("experiment status changed",
		"test_id", id,
		"status", to,
	)
	return nil
}

// StopTest cancels an experiment. Reasons mentioning ethics or wellbeing
// are also written to the experiment's violation log. A completed
// experiment keeps its status but still logs the violation.
func (s *Service) StopTest(ctx context.Context, id domain.ExperimentID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tests[id]; !ok {
		return domain.ErrExperimentNotFound
	}
	s.stopLocked(ctx, id, reason)
	return nil
}

func (s *Service) stopLocked(ctx context.Context, id domain.ExperimentID, reason string) {
	exp := s.tests[id]
	now := s.now()

	if exp.Status != domain.StatusCompleted {
		exp.Status = domain.StatusCancelled
		exp.UpdatedAt = now
	}

	kind := "manual"
	if isEthicalReason(reason) {
		kind = "ethical"
		s.violations[id] = append(s.violations[id], domain.Violation{Timestamp: now, Reason: reason})
	}
	s.metrics.ExperimentStopped(kind)

	log := observability.LoggerFromContext(ctx).With("test_id", id, "reason", reason)
	if kind == "ethical" {
		log.Warn("experiment stopped for ethical violation")
	} else {
		log.Info("experiment stopped")
	}
}

func isEthicalReason(reason string) bool {
	r := strings.ToLower(reason)
	return strings.Contains(r, "ethical") || strings.Contains(r, "wellbeing")
}

// GetActiveTests returns copies of all active experiments, oldest first.
func (s *Service) GetActiveTests() []*domain.Experiment {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Experiment, 0, len(s.tests))
	for _, exp := range s.tests {
		if exp.Status == domain.StatusActive {
			out = append(out, exp.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *domain.Experiment) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return out
}

func (s *Service) GetTest(id domain.ExperimentID) (*domain.Experiment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.tests[id]
	if !ok {
		return nil, domain.ErrExperimentNotFound
	}
	return exp.Clone(), nil
}

func (s *Service) publish(at time.Time, sessionID domain.SessionID, userID domain.UserID, payload domain.EventPayload) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(domain.NewEvent(at, sessionID, userID, payload))
}
