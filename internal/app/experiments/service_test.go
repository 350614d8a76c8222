package experiments_test

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/farum-insights/internal/app/experiments"
	"github.com/PabloGalante/farum-insights/internal/domain"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(evt domain.Event) {
	p.mu.Lock()
	p.events = append(p.events, evt)
	p.mu.Unlock()
}

func newService(pub domain.EventPublisher) *experiments.Service {
	return experiments.NewService(
		experiments.WithPublisher(pub),
		experiments.WithClock(func() time.Time { return testNow }),
		experiments.WithRand(rand.New(rand.NewPCG(7, 11))),
	)
}

func threshold(v float64) *float64 { return &v }

func validConfig() domain.ExperimentConfig {
	return domain.ExperimentConfig{
		Name:       "hope-first onboarding",
		Hypothesis: "Leading with success stories raises hope without raising stress",
		Variants: []domain.Variant{
			{ID: "control", Name: "Control", Weight: 50, TherapeuticApproach: domain.ApproachValidationFocused},
			{ID: "hope", Name: "Hope first", Weight: 50, TherapeuticApproach: domain.ApproachHopeBuilding},
		},
		TrafficAllocation: 100,
		WellbeingMetrics: []domain.WellbeingMetric{
			{Name: "hope", Type: domain.MetricHopeProgression, Priority: domain.PriorityPrimary, EthicalThreshold: threshold(-1)},
			{Name: "engagement", Type: domain.MetricEngagementQuality, Priority: domain.PrioritySecondary},
		},
		DurationDays: 14,
		TargetAudience: domain.Audience{
			JourneyStages:      []domain.JourneyStageName{domain.StageValidation, domain.StageHopeBuilding},
			StressLevels:       []domain.StressLevel{domain.StressLow, domain.StressModerate},
			PainPoints:         []string{"career"},
			ExcludeCrisisUsers: true,
		},
		EthicalGuidelines: []domain.EthicalGuideline{
			{Principle: "do no harm", MonitoringMethod: "wellbeing thresholds", ViolationResponse: "stop test"},
		},
	}
}

// improvingSession goes from validation under moderate stress (hope 4,
// stress 5) to hope-building under low stress (hope 10, stress 2).
func improvingSession() *domain.Session {
	return &domain.Session{
		ID:     "s-improving",
		UserID: "u1",
		EmotionalJourney: []domain.JourneyPoint{
			domain.NewJourneyPoint(testNow, domain.JourneyStage{Stage: domain.StageValidation, Progress: 10},
				domain.EmotionalState{StressLevel: domain.StressModerate}, nil),
			domain.NewJourneyPoint(testNow.Add(time.Minute), domain.JourneyStage{Stage: domain.StageHopeBuilding, Progress: 60},
				domain.EmotionalState{StressLevel: domain.StressLow}, nil),
		},
		PainPointsExplored: []domain.PainPoint{{Type: "career", Severity: 5}},
	}
}

// worseningSession goes from hope 10 / stress 2 to hope 1 / stress 10.
func worseningSession() *domain.Session {
	return &domain.Session{
		ID: "s-worsening",
		EmotionalJourney: []domain.JourneyPoint{
			domain.NewJourneyPoint(testNow, domain.JourneyStage{Stage: domain.StageAction},
				domain.EmotionalState{StressLevel: domain.StressLow}, nil),
			domain.NewJourneyPoint(testNow.Add(time.Minute), domain.JourneyStage{Stage: domain.StageValidation},
				domain.EmotionalState{StressLevel: domain.StressCrisis}, nil),
		},
	}
}

func startedTest(t *testing.T, svc *experiments.Service, cfg domain.ExperimentConfig) domain.ExperimentID {
	t.Helper()
	exp, err := svc.CreateTest(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, svc.StartTest(context.Background(), exp.ID))
	return exp.ID
}

func TestCreateTestRejectsEthicalBreaches(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.ExperimentConfig)
		target error
	}{
		{"duration over 30 days", func(c *domain.ExperimentConfig) { c.DurationDays = 31 }, domain.ErrEthicalGuideline},
		{"crisis users included", func(c *domain.ExperimentConfig) { c.TargetAudience.ExcludeCrisisUsers = false }, domain.ErrEthicalGuideline},
		{"primary metric without threshold", func(c *domain.ExperimentConfig) { c.WellbeingMetrics[0].EthicalThreshold = nil }, domain.ErrEthicalGuideline},
		{"no variants", func(c *domain.ExperimentConfig) { c.Variants = nil }, domain.ErrInvalidExperiment},
		{"zero total weight", func(c *domain.ExperimentConfig) {
			c.Variants[0].Weight = 0
			c.Variants[1].Weight = 0
		}, domain.ErrInvalidExperiment},
		{"duplicate variant ids", func(c *domain.ExperimentConfig) { c.Variants[1].ID = "control" }, domain.ErrInvalidExperiment},
		{"no traffic", func(c *domain.ExperimentConfig) { c.TrafficAllocation = 0 }, domain.ErrInvalidExperiment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(nil)
			cfg := validConfig()
			tt.mutate(&cfg)

			exp, err := svc.CreateTest(context.Background(), cfg)
			require.ErrorIs(t, err, tt.target)
			assert.Nil(t, exp)
			assert.Empty(t, svc.GetActiveTests())
		})
	}
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)

	exp, err := svc.CreateTest(ctx, validConfig())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, exp.Status)
	assert.Empty(t, svc.GetActiveTests())

	require.ErrorIs(t, svc.PauseTest(ctx, exp.ID), domain.ErrInvalidTransition)
	require.NoError(t, svc.StartTest(ctx, exp.ID))
	require.Len(t, svc.GetActiveTests(), 1)

	require.NoError(t, svc.PauseTest(ctx, exp.ID))
	assert.Empty(t, svc.GetActiveTests())
	require.NoError(t, svc.StartTest(ctx, exp.ID))

	require.NoError(t, svc.CompleteTest(ctx, exp.ID))
	require.ErrorIs(t, svc.StartTest(ctx, exp.ID), domain.ErrInvalidTransition)

	got, err := svc.GetTest(exp.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)

	require.ErrorIs(t, svc.StartTest(ctx, "missing"), domain.ErrExperimentNotFound)
	_, err = svc.GetTestResults("missing")
	require.ErrorIs(t, err, domain.ErrExperimentNotFound)
}

func TestStopTestRecordsEthicalReasons(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)
	id := startedTest(t, svc, validConfig())

	require.NoError(t, svc.StopTest(ctx, id, "budget review"))
	report, err := svc.GetTestResults(id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, report.Experiment.Status)
	assert.Empty(t, report.Violations)

	require.NoError(t, svc.StopTest(ctx, id, "participant wellbeing concern"))
	report, err = svc.GetTestResults(id)
	require.NoError(t, err)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, testNow, report.Violations[0].Timestamp)
	assert.Equal(t, 1, report.EthicalCompliance.EthicalViolations)
	assert.InDelta(t, 80.0, report.EthicalCompliance.ComplianceScore, 1e-9)
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := newService(pub)
	id := startedTest(t, svc, validConfig())

	session := improvingSession()
	variant, ok := svc.AssignUserToVariant(ctx, "u1", id, session)
	require.True(t, ok)
	assert.Contains(t, []domain.VariantID{"control", "hope"}, variant)

	result, ok := svc.RecordTestResult(ctx, id, variant, "u1", session.ID, session)
	require.True(t, ok)
	assert.Equal(t, domain.WellbeingImpact{
		HopeProgression:  6,
		StressReduction:  3,
		OverallWellbeing: 2.25,
	}, result.WellbeingImpact)

	report, err := svc.GetTestResults(id)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, variant, report.Results[0].VariantID)
	assert.Equal(t, domain.StatusActive, report.Experiment.Status)

	require.Len(t, report.Results[0].Metrics, 2)
	assert.Equal(t, 6.0, report.Results[0].Metrics[0].Value)
	assert.Equal(t, 1.0, report.Results[0].Metrics[1].Value)

	a := report.WellbeingAnalysis
	assert.Equal(t, domain.TrendPositive, a.OverallWellbeingTrend)
	assert.Equal(t, 1.0, a.CrisisPreventionRate)
	assert.Equal(t, []string{"Significant hope progression observed", "Significant stress reduction achieved"}, a.SignificantFindings)
	assert.Equal(t, []string{"Positive hope progression - consider implementing winning variant"}, report.Recommendations)
	assert.InDelta(t, 100.0, report.EthicalCompliance.ComplianceScore, 1e-9)

	require.Len(t, report.Variants, 2)
	total := report.Variants[0].Results + report.Variants[1].Results
	assert.Equal(t, 1, total)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.events, 1)
	assert.Equal(t, domain.EventTestVariantAssigned, pub.events[0].Type)
	assert.Equal(t, session.ID, pub.events[0].SessionID)
}

func TestAssignmentIsSticky(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := newService(pub)
	id := startedTest(t, svc, validConfig())

	first, ok := svc.AssignUserToVariant(ctx, "u1", id, improvingSession())
	require.True(t, ok)
	for range 50 {
		again, ok := svc.AssignUserToVariant(ctx, "u1", id, improvingSession())
		require.True(t, ok)
		assert.Equal(t, first, again)
	}

	pub.mu.Lock()
	assert.Len(t, pub.events, 1)
	pub.mu.Unlock()
}

func TestAssignmentEligibility(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)
	id := startedTest(t, svc, validConfig())

	t.Run("unknown test", func(t *testing.T) {
		_, ok := svc.AssignUserToVariant(ctx, "u1", "missing", improvingSession())
		assert.False(t, ok)
	})

	t.Run("no journey", func(t *testing.T) {
		_, ok := svc.AssignUserToVariant(ctx, "u1", id, &domain.Session{})
		assert.False(t, ok)
	})

	t.Run("stage outside audience", func(t *testing.T) {
		s := improvingSession()
		s.EmotionalJourney[1].Stage.Stage = domain.StageAction
		_, ok := svc.AssignUserToVariant(ctx, "u2", id, s)
		assert.False(t, ok)
	})

	t.Run("no matching pain point", func(t *testing.T) {
		s := improvingSession()
		s.PainPointsExplored = []domain.PainPoint{{Type: "sleep", Severity: 3}}
		_, ok := svc.AssignUserToVariant(ctx, "u3", id, s)
		assert.False(t, ok)
	})

	t.Run("high stress indicator", func(t *testing.T) {
		s := improvingSession()
		s.StressIndicators = []domain.StressIndicator{{Type: domain.IndicatorSupportResource, Severity: domain.SeverityHigh}}
		_, ok := svc.AssignUserToVariant(ctx, "u4", id, s)
		assert.False(t, ok)
	})

	t.Run("paused test", func(t *testing.T) {
		require.NoError(t, svc.PauseTest(ctx, id))
		defer func() { require.NoError(t, svc.StartTest(ctx, id)) }()
		_, ok := svc.AssignUserToVariant(ctx, "u5", id, improvingSession())
		assert.False(t, ok)
	})
}

func TestMetricBelowThresholdCancelsTest(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)

	cfg := validConfig()
	cfg.WellbeingMetrics = append(cfg.WellbeingMetrics, domain.WellbeingMetric{
		Name:             "stress",
		Type:             domain.MetricStressReduction,
		Priority:         domain.PriorityPrimary,
		EthicalThreshold: threshold(5),
	})
	id := startedTest(t, svc, cfg)

	session := improvingSession()
	_, ok := svc.RecordTestResult(ctx, id, "control", "u1", session.ID, session)
	require.True(t, ok)

	report, err := svc.GetTestResults(id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, report.Experiment.Status)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, "Ethical violation: stress below threshold", report.Violations[0].Reason)
	assert.Len(t, report.Results, 1)
	assert.Empty(t, svc.GetActiveTests())
}

func TestHarmfulSessionsCancelTestAndLowerCompliance(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)

	cfg := validConfig()
	cfg.WellbeingMetrics = []domain.WellbeingMetric{
		{Name: "support", Type: domain.MetricSupportUtilization, Priority: domain.PriorityMonitoring},
	}
	id := startedTest(t, svc, cfg)

	for range 2 {
		s := worseningSession()
		_, ok := svc.RecordTestResult(ctx, id, "hope", "u9", s.ID, s)
		require.True(t, ok)
	}

	report, err := svc.GetTestResults(id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, report.Experiment.Status)
	require.Len(t, report.Violations, 2)
	assert.Equal(t, "Ethical violation: Negative wellbeing impact detected", report.Violations[0].Reason)

	assert.InDelta(t, -4.25, report.Results[0].WellbeingImpact.OverallWellbeing, 1e-9)
	assert.Equal(t, domain.TrendNegative, report.WellbeingAnalysis.OverallWellbeingTrend)

	c := report.EthicalCompliance
	assert.Equal(t, 2, c.NegativeWellbeingImpacts)
	assert.InDelta(t, 50.0, c.ComplianceScore, 1e-9)
	assert.Equal(t, []string{
		"Review and address ethical guideline violations",
		"Implement additional wellbeing safeguards",
	}, c.Recommendations)
	assert.Equal(t, []string{
		"Consider stopping test due to negative wellbeing impact",
		"Address ethical compliance issues before continuing",
	}, report.Recommendations)

	require.Len(t, report.Variants, 2)
	assert.Equal(t, 2, report.Variants[1].Results)
	assert.InDelta(t, -4.25, report.Variants[1].AverageOverallWellbeing, 1e-9)
}

func TestConcurrentResultsAreAllStored(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)
	id := startedTest(t, svc, validConfig())

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				s := improvingSession()
				svc.RecordTestResult(ctx, id, "control", "u1", s.ID, s)
			}
		}()
	}
	wg.Wait()

	report, err := svc.GetTestResults(id)
	require.NoError(t, err)
	assert.Len(t, report.Results, 100)
}
