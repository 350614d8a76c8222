package analytics

import (
	"fmt"
	"time"

	"github.com/PabloGalante/farum-insights/internal/domain"
)

const (
	hopeIncreaseThreshold = 2
	breakthroughWindow    = 10 * time.Minute
	breakthroughMinCount  = 3
	breakthroughIntensity = 7
	actionIntensity       = 7
)

var stageNextStep = map[domain.JourneyStageName]string{
	domain.StageValidation:          "Explore hope-building content",
	domain.StageHopeBuilding:        "Discover AI-powered solutions",
	domain.StageSolutionExploration: "Connect with success stories",
	domain.StageEmpowerment:         "Consider premium development options",
	domain.StageAction:              "Join the community for ongoing support",
}

// computeOutcome derives the session outcome. Later rules win: a crisis
// indicator always means follow-up.
func computeOutcome(s *domain.Session) domain.SessionOutcome {
	hope := domain.HopeProgression(s.EmotionalJourney)
	stress := domain.StressReduction(s.EmotionalJourney)

	kind := domain.SessionNeutral
	if hope > hopeIncreaseThreshold {
		kind = domain.SessionHopeIncreased
	}
	for _, si := range s.SupportInteractions {
		if si.Outcome == domain.OutcomeHelped {
			kind = domain.SessionSupportFound
			break
		}
	}
	if s.CountSeverity(domain.SeverityCrisis) > 0 {
		kind = domain.SessionNeedsFollowUp
	}

	return domain.SessionOutcome{
		Type:                 kind,
		HopeProgression:      hope,
		StressReduction:      stress,
		ActionsTaken:         actionsTaken(s),
		NextRecommendedSteps: nextSteps(s),
	}
}

func actionsTaken(s *domain.Session) []string {
	actions := []string{}
	for _, si := range s.SupportInteractions {
		if si.Outcome == domain.OutcomeHelped {
			actions = append(actions, fmt.Sprintf("Accessed %s", si.Type))
		}
	}
	for _, hi := range s.HopeIndicators {
		if hi.Intensity >= actionIntensity {
			actions = append(actions, fmt.Sprintf("Engaged with %s", hi.Type))
		}
	}
	return actions
}

func nextSteps(s *domain.Session) []string {
	steps := []string{}
	if s.HasHighSeverityIndicator() {
		steps = append(steps, "Access immediate support resources")
	}
	if jp, ok := s.CurrentPoint(); ok {
		if step, ok := stageNextStep[jp.Stage.Stage]; ok {
			steps = append(steps, step)
		}
	}
	return steps
}

func journeyProgression(s *domain.Session) float64 {
	if len(s.EmotionalJourney) == 0 {
		return 0
	}
	first := s.EmotionalJourney[0].Stage.Progress
	last := s.EmotionalJourney[len(s.EmotionalJourney)-1].Stage.Progress
	return last - first
}

func cumulativeHope(s *domain.Session) int {
	sum := 0
	for _, hi := range s.HopeIndicators {
		sum += hi.Intensity
	}
	return sum
}

// hopeBreakthrough reports the recent high-intensity run, if any. Every
// indicator in the window has to be strong, not just most of them.
func hopeBreakthrough(s *domain.Session, now time.Time) (count int, avg float64, ok bool) {
	sum := 0
	for _, hi := range s.HopeIndicators {
		if now.Sub(hi.Timestamp) >= breakthroughWindow {
			continue
		}
		if hi.Intensity < breakthroughIntensity {
			return 0, 0, false
		}
		count++
		sum += hi.Intensity
	}
	if count < breakthroughMinCount {
		return 0, 0, false
	}
	return count, float64(sum) / float64(count), true
}

func analyticsFor(s *domain.Session, now time.Time) *domain.SessionAnalytics {
	return &domain.SessionAnalytics{
		SessionID:           s.ID,
		DurationMillis:      now.Sub(s.StartedAt).Milliseconds(),
		JourneyProgression:  journeyProgression(s),
		HopeProgression:     domain.HopeProgression(s.EmotionalJourney),
		StressReduction:     domain.StressReduction(s.EmotionalJourney),
		SupportInteractions: len(s.SupportInteractions),
		CrisisIndicators:    s.CountSeverity(domain.SeverityCrisis),
	}
}

// anonymize strips everything tied to identity or free text.
func anonymize(s *domain.Session) domain.AnonymizedSessionSummary {
	sum := domain.AnonymizedSessionSummary{
		SessionID:           s.ID,
		StartedAt:           s.StartedAt,
		JourneyPoints:       len(s.EmotionalJourney),
		HopeProgression:     domain.HopeProgression(s.EmotionalJourney),
		StressReduction:     domain.StressReduction(s.EmotionalJourney),
		SupportInteractions: len(s.SupportInteractions),
		CrisisIndicators:    s.CountSeverity(domain.SeverityCrisis),
	}
	if s.FinalizedAt != nil {
		sum.FinalizedAt = *s.FinalizedAt
	}
	if jp, ok := s.CurrentPoint(); ok {
		sum.FinalStage = jp.Stage.Stage
	}
	if s.Outcome != nil {
		sum.OutcomeType = s.Outcome.Type
	}
	return sum
}
