package experiments

import (
	"context"
	"hash/fnv"
	"slices"

	"github.com/PabloGalante/farum-insights/internal/domain"
	"github.com/PabloGalante/farum-insights/internal/observability"
)

const allocationBuckets = 10000

// Assignment outcomes, also used as metric labels.
const (
	outcomeAssigned       = "assigned"
	outcomeSticky         = "sticky"
	outcomeInactive       = "inactive"
	outcomeIneligible     = "ineligible"
	outcomeCrisisExcluded = "crisis_excluded"
	outcomeNotAllocated   = "not_allocated"
)

// AssignUserToVariant returns the user's variant for an active experiment,
// or false when the user is not eligible. Users showing any high or crisis
// stress indicator are never assigned, whatever the audience says. Once made,
// an assignment is returned unchanged on every later eligible call.
func (s *Service) AssignUserToVariant(
	ctx context.Context,
	userID domain.UserID,
	testID domain.ExperimentID,
	session *domain.Session,
) (domain.VariantID, bool) {
	variant, outcome := s.assign(userID, testID, session)
	s.metrics.Assignment(outcome)

	log := observability.LoggerFromContext(ctx).With("test_id", testID, "outcome", outcome)
	switch outcome {
	case outcomeAssigned:
		s.publish(s.now(), session.ID, userID, domain.TestVariantAssignedPayload{
			ExperimentID: testID,
			VariantID:    variant,
		})
		log.Info("user assigned to variant", "variant_id", variant)
	case outcomeSticky:
		log.Debug("existing assignment returned", "variant_id", variant)
	default:
		log.Debug("user not assigned")
	}

	return variant, outcome == outcomeAssigned || outcome == outcomeSticky
}

func (s *Service) assign(userID domain.UserID, testID domain.ExperimentID, session *domain.Session) (domain.VariantID, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.tests[testID]
	if !ok || exp.Status != domain.StatusActive {
		return "", outcomeInactive
	}
	if session == nil || !meetsAudience(session, exp.TargetAudience) {
		return "", outcomeIneligible
	}
	if session.HasHighSeverityIndicator() {
		return "", outcomeCrisisExcluded
	}

	key := assignmentKey{user: userID, test: testID}
	if v, ok := s.assignments[key]; ok {
		return v, outcomeSticky
	}

	if !allocated(userID, testID, exp.TrafficAllocation) {
		return "", outcomeNotAllocated
	}

	v := selectVariant(exp.Variants, s.draw())
	s.assignments[key] = v
	return v, outcomeAssigned
}

func meetsAudience(session *domain.Session, audience domain.Audience) bool {
	current, ok := session.CurrentPoint()
	if !ok {
		return false
	}
	if !slices.Contains(audience.JourneyStages, current.Stage.Stage) {
		return false
	}
	if !slices.Contains(audience.StressLevels, current.EmotionalState.StressLevel) {
		return false
	}
	for _, pp := range session.PainPointsExplored {
		if slices.Contains(audience.PainPoints, pp.Type) {
			return true
		}
	}
	return false
}

// allocated places each (user, test) pair in a fixed bucket so a user left
// out of the traffic share stays out on every check.
func allocated(userID domain.UserID, testID domain.ExperimentID, percent float64) bool {
	if percent >= 100 {
		return true
	}
	h := fnv.New32a()
	h.Write([]byte(userID))
	h.Write([]byte{0})
	h.Write([]byte(testID))
	bucket := h.Sum32() % allocationBuckets
	return float64(bucket) < percent/100*allocationBuckets
}

// selectVariant maps r in [0,1) onto the cumulative weights. The first
// variant whose running total strictly exceeds the draw wins.
func selectVariant(variants []domain.Variant, r float64) domain.VariantID {
	total := 0.0
	for _, v := range variants {
		total += v.Weight
	}
	target := r * total

	cumulative := 0.0
	for _, v := range variants {
		cumulative += v.Weight
		if cumulative > target {
			return v.ID
		}
	}
	return variants[0].ID
}
