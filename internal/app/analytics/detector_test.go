package analytics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/PabloGalante/farum-insights/internal/app/analytics"
	"github.com/PabloGalante/farum-insights/internal/config"
	"github.com/PabloGalante/farum-insights/internal/domain"
)

func TestAssess(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := analytics.NewDetector(config.DefaultCrisisConfig())

	high := func(ago time.Duration) domain.StressIndicator {
		return domain.StressIndicator{Type: domain.IndicatorSupportResource, Severity: domain.SeverityHigh, Timestamp: now.Add(-ago)}
	}

	tests := []struct {
		name         string
		history      []domain.StressIndicator
		indicator    domain.StressIndicator
		lastActivity time.Time
		detected     bool
		severity     domain.Severity
		triggers     []string
	}{
		{
			name:         "single moderate indicator",
			indicator:    domain.StressIndicator{Type: domain.IndicatorRapidNavigation, Severity: domain.SeverityModerate},
			lastActivity: now,
			severity:     domain.SeverityLow,
		},
		{
			name:         "crisis severity alone is enough",
			indicator:    domain.StressIndicator{Type: domain.IndicatorSupportResource, Severity: domain.SeverityCrisis},
			lastActivity: now,
			detected:     true,
			severity:     domain.SeverityCrisis,
			triggers:     []string{domain.TriggerCrisisLevelStress},
		},
		{
			name:         "old high indicators do not count",
			history:      []domain.StressIndicator{high(6 * time.Minute), high(7 * time.Minute), high(8 * time.Minute)},
			indicator:    domain.StressIndicator{Type: domain.IndicatorCrisisContentSeeking, Severity: domain.SeverityHigh},
			lastActivity: now,
			severity:     domain.SeverityHigh,
			triggers:     []string{domain.TriggerCrisisContentSeeking},
		},
		{
			name:         "content seeking after a long silence",
			indicator:    domain.StressIndicator{Type: domain.IndicatorCrisisContentSeeking, Severity: domain.SeverityHigh},
			lastActivity: now.Add(-11 * time.Minute),
			severity:     domain.SeverityHigh,
			triggers:     []string{domain.TriggerCrisisContentSeeking, domain.TriggerAbandonmentPattern},
		},
		{
			name:         "recent highs with crisis stress",
			history:      []domain.StressIndicator{high(time.Minute), high(2 * time.Minute), high(3 * time.Minute)},
			indicator:    domain.StressIndicator{Type: domain.IndicatorSupportResource, Severity: domain.SeverityCrisis},
			lastActivity: now.Add(-30 * time.Minute),
			detected:     true,
			severity:     domain.SeverityCrisis,
			triggers:     []string{domain.TriggerCrisisLevelStress, domain.TriggerMultipleIndicators, domain.TriggerAbandonmentPattern},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &domain.Session{StressIndicators: tt.history}
			got := d.Assess(session, tt.indicator, now, tt.lastActivity)

			assert.Equal(t, tt.detected, got.Detected)
			assert.Equal(t, tt.severity, got.Severity)
			assert.Equal(t, tt.triggers, got.Triggers)
			assert.Equal(t, now, got.Timestamp)
		})
	}
}

func TestEscalationRuleNeedsMatchingSeverity(t *testing.T) {
	cfg := config.DefaultCrisisConfig()
	cfg.EscalationRules = append(cfg.EscalationRules, domain.EscalationRule{
		Condition: domain.TriggerCrisisContentSeeking,
		Severity:  domain.SeverityCrisis,
		Response:  domain.CrisisResponse{Type: domain.ResponseImmediateSupport},
	})
	d := analytics.NewDetector(cfg)
	now := time.Now()

	// Content seeking at high severity does not match a crisis-only rule.
	got := d.Assess(&domain.Session{}, domain.StressIndicator{Type: domain.IndicatorCrisisContentSeeking, Severity: domain.SeverityHigh}, now, now)
	assert.Equal(t, domain.DefaultCrisisResponse(), got.RecommendedResponse)
}

func TestDetectRapidNavigation(t *testing.T) {
	cfg := config.DefaultCrisisConfig()
	cfg.RapidNavigationThreshold = 3
	d := analytics.NewDetector(cfg)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	session := &domain.Session{}
	for i := range 3 {
		session.EmotionalJourney = append(session.EmotionalJourney, domain.JourneyPoint{
			Timestamp: now.Add(-time.Duration(i*10) * time.Second),
		})
	}
	point := domain.NewJourneyPoint(now, domain.JourneyStage{Stage: domain.StageValidation}, domain.EmotionalState{StressLevel: domain.StressLow}, nil)

	got := d.Detect(session, point, now)
	if assert.Len(t, got, 1) {
		assert.Equal(t, domain.IndicatorRapidNavigation, got[0].Type)
		assert.Equal(t, domain.SeverityModerate, got[0].Severity)
	}
}

func TestStressSeverityLadder(t *testing.T) {
	d := analytics.NewDetector(config.DefaultCrisisConfig())

	tests := map[int]domain.Severity{
		1:  domain.SeverityLow,
		4:  domain.SeverityLow,
		5:  domain.SeverityModerate,
		7:  domain.SeverityModerate,
		8:  domain.SeverityHigh,
		9:  domain.SeverityCrisis,
		10: domain.SeverityCrisis,
	}
	for score, want := range tests {
		assert.Equal(t, want, d.StressSeverity(score), "score %d", score)
	}

	cfg := config.DefaultCrisisConfig()
	cfg.StressThresholds.Moderate = 3
	assert.Equal(t, domain.SeverityModerate, analytics.NewDetector(cfg).StressSeverity(3))
}
