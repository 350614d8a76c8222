package domain

// JourneyStage is the user's position in the therapeutic journey.
type JourneyStage struct {
	Stage    JourneyStageName `json:"stage" validate:"required"`
	Progress float64          `json:"progress" validate:"gte=0,lte=100"`
}

// EmotionalState is the self-reported or inferred state at one point in time.
type EmotionalState struct {
	StressLevel     StressLevel `json:"stress_level" validate:"required,oneof=low moderate high crisis"`
	PrimaryConcerns []string    `json:"primary_concerns,omitempty"`
	SupportNeeds    []string    `json:"support_needs,omitempty"`
}

// ContentEngagement records how the user engaged with one piece of content.
type ContentEngagement struct {
	ContentID         string            `json:"content_id"`
	ContentType       ContentType       `json:"content_type"`
	TimeSpent         float64           `json:"time_spent"` // seconds
	InteractionDepth  InteractionDepth  `json:"interaction_depth"`
	EmotionalResponse EmotionalResponse `json:"emotional_response"`
	Relevance         int               `json:"relevance" validate:"omitempty,gte=1,lte=10"`
}

// DefaultContentEngagement is recorded when a journey point carries no engagement.
func DefaultContentEngagement() ContentEngagement {
	return ContentEngagement{
		ContentID:         "unknown",
		ContentType:       ContentValidation,
		InteractionDepth:  DepthViewed,
		EmotionalResponse: ResponseNeutral,
		Relevance:         5,
	}
}

// JourneyPoint is a single observation in the emotional journey.
// HopeLevel and StressLevel are derived once, when the point is appended.
type JourneyPoint struct {
	Timestamp         Timestamp         `json:"timestamp"`
	Stage             JourneyStage      `json:"stage"`
	EmotionalState    EmotionalState    `json:"emotional_state"`
	Engagement        ContentEngagement `json:"engagement"`
	HopeLevel         int               `json:"hope_level"`
	StressLevel       int               `json:"stress_level"`
	EngagementQuality EngagementQuality `json:"engagement_quality"`
}

type AutomaticResponse struct {
	Type          AutomaticResponseType `json:"type"`
	Triggered     bool                  `json:"triggered"`
	UserResponse  string                `json:"user_response,omitempty"` // accepted, declined, ignored
	Effectiveness int                   `json:"effectiveness,omitempty"` // 1-10, 0 when unrated
}

// StressIndicator is a behavioral signal derived by the crisis detector.
type StressIndicator struct {
	Type              IndicatorType      `json:"type"`
	Timestamp         Timestamp          `json:"timestamp"`
	Severity          Severity           `json:"severity"`
	TriggerContent    string             `json:"trigger_content,omitempty"`
	Context           string             `json:"context"`
	AutomaticResponse *AutomaticResponse `json:"automatic_response,omitempty"`
}

type SupportInteraction struct {
	Type                SupportType    `json:"type" validate:"required"`
	Timestamp           Timestamp      `json:"timestamp"`
	Duration            float64        `json:"duration"` // seconds
	Outcome             SupportOutcome `json:"outcome" validate:"required"`
	SupportResourceID   string         `json:"support_resource_id"`
	FollowUpNeeded      bool           `json:"follow_up_needed"`
	EffectivenessRating int            `json:"effectiveness_rating,omitempty" validate:"omitempty,gte=1,lte=10"`
}

// PainPoint is a professional pain point the user explored. Severity is 1-10.
type PainPoint struct {
	Type             string   `json:"type" validate:"required"`
	Severity         int      `json:"severity" validate:"gte=1,lte=10"`
	Description      string   `json:"description,omitempty"`
	RelatedSolutions []string `json:"related_solutions,omitempty"`
}

type HopeIndicator struct {
	Type      HopeIndicatorType `json:"type" validate:"required"`
	Timestamp Timestamp         `json:"timestamp"`
	Intensity int               `json:"intensity" validate:"gte=1,lte=10"`
	Context   string            `json:"context,omitempty"`
	Content   string            `json:"content,omitempty"`
}

// PrivacyConsent holds the four independent consent flags.
type PrivacyConsent struct {
	AnalyticsConsent          bool      `json:"analytics_consent"`
	EmotionalTrackingConsent  bool      `json:"emotional_tracking_consent"`
	CrisisInterventionConsent bool      `json:"crisis_intervention_consent"`
	PeerSupportConsent        bool      `json:"peer_support_consent"`
	ConsentTimestamp          Timestamp `json:"consent_timestamp"`
	ConsentVersion            string    `json:"consent_version"`
}

// ConsentUpdate is a partial consent change; nil fields are left untouched.
type ConsentUpdate struct {
	AnalyticsConsent          *bool   `json:"analytics_consent,omitempty"`
	EmotionalTrackingConsent  *bool   `json:"emotional_tracking_consent,omitempty"`
	CrisisInterventionConsent *bool   `json:"crisis_intervention_consent,omitempty"`
	PeerSupportConsent        *bool   `json:"peer_support_consent,omitempty"`
	ConsentVersion            *string `json:"consent_version,omitempty"`
}

const DefaultConsentVersion = "1.0"

type SessionOutcomeType string

const (
	SessionHopeIncreased  SessionOutcomeType = "hope-increased"
	SessionSupportFound   SessionOutcomeType = "support-found"
	SessionCrisisResolved SessionOutcomeType = "crisis-resolved"
	SessionNeutral        SessionOutcomeType = "neutral"
	SessionNeedsFollowUp  SessionOutcomeType = "needs-follow-up"
)

type SessionOutcome struct {
	Type                 SessionOutcomeType `json:"type"`
	HopeProgression      int                `json:"hope_progression"`
	StressReduction      int                `json:"stress_reduction"`
	ActionsTaken         []string           `json:"actions_taken"`
	NextRecommendedSteps []string           `json:"next_recommended_steps"`
	FollowUpScheduled    *Timestamp         `json:"follow_up_scheduled,omitempty"`
}

// Session is one user's continuous interaction period.
type Session struct {
	ID           SessionID  `json:"id"`
	UserID       UserID     `json:"user_id,omitempty"`
	StartedAt    Timestamp  `json:"started_at"`
	LastActivity Timestamp  `json:"last_activity"`
	FinalizedAt  *Timestamp `json:"finalized_at,omitempty"`

	EmotionalJourney    []JourneyPoint       `json:"emotional_journey"`
	StressIndicators    []StressIndicator    `json:"stress_indicators"`
	SupportInteractions []SupportInteraction `json:"support_interactions"`
	PainPointsExplored  []PainPoint          `json:"pain_points_explored"`
	HopeIndicators      []HopeIndicator      `json:"hope_indicators"`

	PrivacyConsent PrivacyConsent  `json:"privacy_consent"`
	Outcome        *SessionOutcome `json:"outcome,omitempty"`
}

// CurrentPoint returns the newest journey point, if any.
func (s *Session) CurrentPoint() (JourneyPoint, bool) {
	if len(s.EmotionalJourney) == 0 {
		return JourneyPoint{}, false
	}
	return s.EmotionalJourney[len(s.EmotionalJourney)-1], true
}

// HasHighSeverityIndicator reports whether any indicator is high or crisis.
func (s *Session) HasHighSeverityIndicator() bool {
	for _, si := range s.StressIndicators {
		if si.Severity.AtLeastHigh() {
			return true
		}
	}
	return false
}

// CountSeverity counts indicators with exactly the given severity.
func (s *Session) CountSeverity(sev Severity) int {
	n := 0
	for _, si := range s.StressIndicators {
		if si.Severity == sev {
			n++
		}
	}
	return n
}

// Clone returns a deep copy safe to read while the original keeps mutating.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.EmotionalJourney = append([]JourneyPoint(nil), s.EmotionalJourney...)
	out.SupportInteractions = append([]SupportInteraction(nil), s.SupportInteractions...)
	out.PainPointsExplored = append([]PainPoint(nil), s.PainPointsExplored...)
	out.HopeIndicators = append([]HopeIndicator(nil), s.HopeIndicators...)

	out.StressIndicators = make([]StressIndicator, len(s.StressIndicators))
	for i, si := range s.StressIndicators {
		if si.AutomaticResponse != nil {
			ar := *si.AutomaticResponse
			si.AutomaticResponse = &ar
		}
		out.StressIndicators[i] = si
	}

	if s.FinalizedAt != nil {
		t := *s.FinalizedAt
		out.FinalizedAt = &t
	}
	if s.Outcome != nil {
		o := *s.Outcome
		o.ActionsTaken = append([]string(nil), s.Outcome.ActionsTaken...)
		o.NextRecommendedSteps = append([]string(nil), s.Outcome.NextRecommendedSteps...)
		out.Outcome = &o
	}
	return &out
}

// SessionAnalytics is the read-only summary returned by getSessionAnalytics.
type SessionAnalytics struct {
	SessionID           SessionID `json:"session_id"`
	DurationMillis      int64     `json:"duration_ms"`
	JourneyProgression  float64   `json:"journey_progression"`
	HopeProgression     int       `json:"hope_progression"`
	StressReduction     int       `json:"stress_reduction"`
	SupportInteractions int       `json:"support_interactions"`
	CrisisIndicators    int       `json:"crisis_indicators"`
}

// AnonymizedSessionSummary is what gets archived under analytics consent only.
// It carries no user id and no free text.
type AnonymizedSessionSummary struct {
	SessionID           SessionID          `json:"session_id"`
	StartedAt           Timestamp          `json:"started_at"`
	FinalizedAt         Timestamp          `json:"finalized_at"`
	JourneyPoints       int                `json:"journey_points"`
	FinalStage          JourneyStageName   `json:"final_stage,omitempty"`
	HopeProgression     int                `json:"hope_progression"`
	StressReduction     int                `json:"stress_reduction"`
	SupportInteractions int                `json:"support_interactions"`
	CrisisIndicators    int                `json:"crisis_indicators"`
	OutcomeType         SessionOutcomeType `json:"outcome_type"`
}
