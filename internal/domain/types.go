package domain

import "time"

type SessionID string
type UserID string
type ExperimentID string
type VariantID string

type Timestamp = time.Time

// JourneyStageName is one of the ordered therapeutic progress phases.
type JourneyStageName string

const (
	StageValidation          JourneyStageName = "validation"
	StageHopeBuilding        JourneyStageName = "hope-building"
	StageSolutionExploration JourneyStageName = "solution-exploration"
	StageEmpowerment         JourneyStageName = "empowerment"
	StageAction              JourneyStageName = "action"
)

// StressLevel is the categorical stress reported in an emotional state.
type StressLevel string

const (
	StressLow      StressLevel = "low"
	StressModerate StressLevel = "moderate"
	StressHigh     StressLevel = "high"
	StressCrisis   StressLevel = "crisis"
)

// Severity grades a stress indicator or a crisis verdict.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCrisis   Severity = "crisis"
)

// Rank orders severities so they can be compared.
func (s Severity) Rank() int {
	switch s {
	case SeverityModerate:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCrisis:
		return 3
	default:
		return 0
	}
}

// AtLeastHigh reports whether s is high or crisis.
func (s Severity) AtLeastHigh() bool {
	return s.Rank() >= SeverityHigh.Rank()
}

type IndicatorType string

const (
	IndicatorRapidNavigation      IndicatorType = "rapid-navigation"
	IndicatorCrisisContentSeeking IndicatorType = "crisis-content-seeking"
	IndicatorSupportResource      IndicatorType = "support-resource-access"
	IndicatorSessionAbandonment   IndicatorType = "session-abandonment"
	IndicatorErrorFrustration     IndicatorType = "error-frustration"
	IndicatorTimePressure         IndicatorType = "time-pressure-signals"
)

type ContentType string

const (
	ContentValidation    ContentType = "validation"
	ContentSolution      ContentType = "solution"
	ContentStory         ContentType = "story"
	ContentCommunity     ContentType = "community"
	ContentCrisisSupport ContentType = "crisis-support"
)

type InteractionDepth string

const (
	DepthViewed    InteractionDepth = "viewed"
	DepthEngaged   InteractionDepth = "engaged"
	DepthShared    InteractionDepth = "shared"
	DepthSaved     InteractionDepth = "saved"
	DepthActedUpon InteractionDepth = "acted-upon"
)

type EmotionalResponse string

const (
	ResponseNegative  EmotionalResponse = "negative"
	ResponseNeutral   EmotionalResponse = "neutral"
	ResponsePositive  EmotionalResponse = "positive"
	ResponseHopeful   EmotionalResponse = "hopeful"
	ResponseEmpowered EmotionalResponse = "empowered"
)

// EngagementQuality is an ordinal scale from surface to transformative.
type EngagementQuality string

const (
	EngagementSurface        EngagementQuality = "surface"
	EngagementModerate       EngagementQuality = "moderate"
	EngagementDeep           EngagementQuality = "deep"
	EngagementTransformative EngagementQuality = "transformative"
)

type SupportType string

const (
	SupportCrisisHelpViewed   SupportType = "crisis-help-viewed"
	SupportPeerAccessed       SupportType = "peer-support-accessed"
	SupportSuccessStoryRead   SupportType = "success-story-read"
	SupportCommunityJoined    SupportType = "community-joined"
	SupportProfessionalSought SupportType = "professional-help-sought"
)

type SupportOutcome string

const (
	OutcomeHelped           SupportOutcome = "helped"
	OutcomeNeutral          SupportOutcome = "neutral"
	OutcomeEscalationNeeded SupportOutcome = "escalated-support-needed"
	OutcomeCrisisAverted    SupportOutcome = "crisis-averted"
)

type HopeIndicatorType string

const (
	HopeSuccessStory           HopeIndicatorType = "success-story-engagement"
	HopeSolutionExploration    HopeIndicatorType = "solution-exploration"
	HopePremiumConsideration   HopeIndicatorType = "premium-consideration"
	HopeCommunityParticipation HopeIndicatorType = "community-participation"
	HopeGoalSetting            HopeIndicatorType = "goal-setting"
	HopePositiveFeedback       HopeIndicatorType = "positive-feedback"
)

type AutomaticResponseType string

const (
	AutoCrisisSupportOffered    AutomaticResponseType = "crisis-support-offered"
	AutoCalmingContentSuggested AutomaticResponseType = "calming-content-suggested"
	AutoPeerSupportRecommended  AutomaticResponseType = "peer-support-recommended"
	AutoProfessionalEscalated   AutomaticResponseType = "professional-help-escalated"
)

type CrisisResponseType string

const (
	ResponseImmediateSupport     CrisisResponseType = "immediate-support"
	ResponsePeerConnection       CrisisResponseType = "peer-connection"
	ResponseProfessionalReferral CrisisResponseType = "professional-referral"
	ResponseEmergencyContact     CrisisResponseType = "emergency-contact"
)

type PrivacyLevel string

const (
	PrivacyAnonymous    PrivacyLevel = "anonymous"
	PrivacyPseudonymous PrivacyLevel = "pseudonymous"
	PrivacyIdentified   PrivacyLevel = "identified"
)
