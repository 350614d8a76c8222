package domain

import "math"

var stageBaseHope = map[JourneyStageName]float64{
	StageValidation:          3,
	StageHopeBuilding:        5,
	StageSolutionExploration: 6,
	StageEmpowerment:         7,
	StageAction:              8,
}

// NumericStress maps a categorical stress level onto the 1-10 scale.
func NumericStress(level StressLevel) int {
	switch level {
	case StressLow:
		return 2
	case StressModerate:
		return 5
	case StressHigh:
		return 8
	case StressCrisis:
		return 10
	default:
		return 5
	}
}

// HopeLevel derives the 1-10 hope estimate for a stage/state snapshot.
func HopeLevel(stage JourneyStage, state EmotionalState) int {
	base, ok := stageBaseHope[stage.Stage]
	if !ok {
		base = 5
	}

	// The stress adjustment never takes hope below 1 before progress is added.
	hope := math.Max(1, base-float64(NumericStress(state.StressLevel)-5))
	hope += clampFloat(stage.Progress, 0, 100) / 20

	return int(clampFloat(math.Round(hope), 1, 10))
}

// AssessEngagementQuality classifies an engagement record. A nil record is
// surface engagement.
func AssessEngagementQuality(e *ContentEngagement) EngagementQuality {
	if e == nil {
		return EngagementSurface
	}

	score := 0
	switch e.InteractionDepth {
	case DepthEngaged:
		score++
	case DepthShared, DepthSaved:
		score += 2
	case DepthActedUpon:
		score += 3
	}

	switch {
	case e.TimeSpent >= 300:
		score += 2
	case e.TimeSpent >= 60:
		score++
	}

	if e.EmotionalResponse == ResponseHopeful || e.EmotionalResponse == ResponseEmpowered {
		score++
	}
	if e.Relevance >= 8 {
		score++
	}

	switch {
	case score >= 6:
		return EngagementTransformative
	case score >= 4:
		return EngagementDeep
	case score >= 2:
		return EngagementModerate
	default:
		return EngagementSurface
	}
}

// DepthScore rates interaction depth from 1 (viewed) to 5 (acted-upon).
func DepthScore(d InteractionDepth) int {
	switch d {
	case DepthEngaged:
		return 2
	case DepthShared:
		return 3
	case DepthSaved:
		return 4
	case DepthActedUpon:
		return 5
	case DepthViewed:
		return 1
	default:
		return 0
	}
}

// NewJourneyPoint builds a journey point with its derived levels.
func NewJourneyPoint(at Timestamp, stage JourneyStage, state EmotionalState, engagement *ContentEngagement) JourneyPoint {
	eng := DefaultContentEngagement()
	if engagement != nil {
		eng = *engagement
	}
	return JourneyPoint{
		Timestamp:         at,
		Stage:             stage,
		EmotionalState:    state,
		Engagement:        eng,
		HopeLevel:         HopeLevel(stage, state),
		StressLevel:       NumericStress(state.StressLevel),
		EngagementQuality: AssessEngagementQuality(engagement),
	}
}

// HopeProgression is last minus first hope level; zero below two points.
func HopeProgression(journey []JourneyPoint) int {
	if len(journey) < 2 {
		return 0
	}
	return journey[len(journey)-1].HopeLevel - journey[0].HopeLevel
}

// StressReduction is first minus last stress level; positive means stress fell.
func StressReduction(journey []JourneyPoint) int {
	if len(journey) < 2 {
		return 0
	}
	return journey[0].StressLevel - journey[len(journey)-1].StressLevel
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
