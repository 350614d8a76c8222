package analytics

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/PabloGalante/farum-insights/internal/config"
	"github.com/PabloGalante/farum-insights/internal/domain"
)

const (
	rapidNavigationWindow  = time.Minute
	recentIndicatorsWindow = 5 * time.Minute
	recentHighIndicators   = 3

	crisisConfidenceThreshold = 0.6
	// confidence is a sum of tenths; compare with a little slack.
	confidenceEpsilon = 1e-9
)

// Detector derives stress indicators from journey points and scores crisis
// confidence. It holds no session state.
type Detector struct {
	cfg      config.CrisisConfig
	keywords []string
}

func NewDetector(cfg config.CrisisConfig) *Detector {
	keywords := make([]string, 0, len(cfg.CrisisKeywords))
	for _, k := range cfg.CrisisKeywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			keywords = append(keywords, k)
		}
	}
	return &Detector{cfg: cfg, keywords: keywords}
}

// StressSeverity grades a 1-10 stress score against the configured
// thresholds. High needs a score above the high threshold; moderate and
// crisis start at theirs.
func (d *Detector) StressSeverity(score int) domain.Severity {
	t := d.cfg.StressThresholds
	switch {
	case score >= t.Crisis:
		return domain.SeverityCrisis
	case score > t.High:
		return domain.SeverityHigh
	case score >= t.Moderate:
		return domain.SeverityModerate
	default:
		return domain.SeverityLow
	}
}

// Detect returns the indicators raised by the session's newest journey
// point. The point must already be appended to the session's journey.
func (d *Detector) Detect(session *domain.Session, point domain.JourneyPoint, now time.Time) []domain.StressIndicator {
	var out []domain.StressIndicator

	if d.rapidNavigation(session, now) {
		out = append(out, domain.StressIndicator{
			Type:      domain.IndicatorRapidNavigation,
			Timestamp: now,
			Severity:  domain.SeverityModerate,
			Context:   "User navigating quickly between pages",
			AutomaticResponse: &domain.AutomaticResponse{
				Type: domain.AutoCalmingContentSuggested,
			},
		})
	}

	if d.crisisContentSeeking(point) {
		out = append(out, domain.StressIndicator{
			Type:           domain.IndicatorCrisisContentSeeking,
			Timestamp:      now,
			Severity:       domain.SeverityHigh,
			TriggerContent: point.Engagement.ContentID,
			Context:        "User actively seeking crisis support content",
			AutomaticResponse: &domain.AutomaticResponse{
				Type: domain.AutoCrisisSupportOffered,
			},
		})
	}

	if sev := d.StressSeverity(point.StressLevel); sev.AtLeastHigh() {
		out = append(out, domain.StressIndicator{
			Type:      domain.IndicatorSupportResource,
			Timestamp: now,
			Severity:  sev,
			Context:   fmt.Sprintf("High stress level detected: %d/10", point.StressLevel),
			AutomaticResponse: &domain.AutomaticResponse{
				Type: domain.AutoPeerSupportRecommended,
			},
		})
	}

	return out
}

// Assess runs the crisis-confidence algorithm for one indicator against the
// session's indicator history. lastActivity is the session's activity time
// before the triggering call and drives the abandonment signal.
func (d *Detector) Assess(session *domain.Session, indicator domain.StressIndicator, now, lastActivity time.Time) domain.CrisisDetectionResult {
	var (
		triggers   []string
		severity   = domain.SeverityLow
		confidence float64
	)

	if indicator.Severity == domain.SeverityCrisis {
		triggers = append(triggers, domain.TriggerCrisisLevelStress)
		severity = domain.SeverityCrisis
		confidence += 0.4
	}

	if d.recentHighSeverity(session, now) >= recentHighIndicators {
		triggers = append(triggers, domain.TriggerMultipleIndicators)
		if severity != domain.SeverityCrisis {
			severity = domain.SeverityHigh
		}
		confidence += 0.3
	}

	if indicator.Type == domain.IndicatorCrisisContentSeeking {
		triggers = append(triggers, domain.TriggerCrisisContentSeeking)
		if severity != domain.SeverityCrisis {
			severity = domain.SeverityHigh
		}
		confidence += 0.3
	}

	if !lastActivity.IsZero() && now.Sub(lastActivity) > d.cfg.InactivityPeriod {
		triggers = append(triggers, domain.TriggerAbandonmentPattern)
		confidence += 0.2
	}

	detected := confidence >= crisisConfidenceThreshold-confidenceEpsilon || severity == domain.SeverityCrisis

	return domain.CrisisDetectionResult{
		Detected:            detected,
		Severity:            severity,
		Triggers:            triggers,
		Confidence:          confidence,
		RecommendedResponse: d.recommendedResponse(severity, triggers),
		Timestamp:           now,
	}
}

func (d *Detector) rapidNavigation(session *domain.Session, now time.Time) bool {
	recent := 0
	for _, jp := range session.EmotionalJourney {
		if now.Sub(jp.Timestamp) < rapidNavigationWindow {
			recent++
		}
	}
	return recent >= d.cfg.RapidNavigationThreshold
}

func (d *Detector) crisisContentSeeking(point domain.JourneyPoint) bool {
	if point.Engagement.ContentType == domain.ContentCrisisSupport {
		return true
	}
	id := strings.ToLower(point.Engagement.ContentID)
	for _, k := range d.keywords {
		if strings.Contains(id, k) {
			return true
		}
	}
	return false
}

func (d *Detector) recentHighSeverity(session *domain.Session, now time.Time) int {
	n := 0
	for _, si := range session.StressIndicators {
		if si.Severity.AtLeastHigh() && now.Sub(si.Timestamp) < recentIndicatorsWindow {
			n++
		}
	}
	return n
}

// recommendedResponse picks the first escalation rule whose condition fired
// at the verdict severity.
func (d *Detector) recommendedResponse(severity domain.Severity, triggers []string) domain.CrisisResponse {
	for _, rule := range d.cfg.EscalationRules {
		if rule.Severity == severity && slices.Contains(triggers, rule.Condition) {
			return rule.Response
		}
	}
	return domain.DefaultCrisisResponse()
}
