package domain

type EventType string

const (
	EventSessionStart         EventType = "session-start"
	EventSessionEnd           EventType = "session-end"
	EventJourneyStageChange   EventType = "journey-stage-change"
	EventEmotionalStateChange EventType = "emotional-state-change"
	EventContentEngagement    EventType = "content-engagement"
	EventHopeIndicator        EventType = "hope-indicator"
	EventHopeBreakthrough     EventType = "hope-breakthrough"
	EventStressIndicator      EventType = "stress-indicator"
	EventCrisisDetected       EventType = "crisis-detected"
	EventCrisisResolved       EventType = "crisis-resolved"
	EventSupportAccessed      EventType = "support-accessed"
	EventPainPointExplored    EventType = "pain-point-explored"
	EventTestVariantAssigned  EventType = "test-variant-assigned"
)

// EventPayload is the closed set of analytics payloads, one per EventType.
// Consumers switch on the concrete type.
type EventPayload interface {
	EventType() EventType
	sealed()
}

// Event is one buffered analytics record.
type Event struct {
	Type         EventType    `json:"type"`
	SessionID    SessionID    `json:"session_id"`
	UserID       UserID       `json:"user_id,omitempty"`
	Timestamp    Timestamp    `json:"timestamp"`
	PrivacyLevel PrivacyLevel `json:"privacy_level"`
	Payload      EventPayload `json:"payload"`
}

// NewEvent stamps a payload with its type and privacy level. Events carrying
// a user id are identified, all others anonymous.
func NewEvent(at Timestamp, sessionID SessionID, userID UserID, payload EventPayload) Event {
	level := PrivacyAnonymous
	if userID != "" {
		level = PrivacyIdentified
	}
	return Event{
		Type:         payload.EventType(),
		SessionID:    sessionID,
		UserID:       userID,
		Timestamp:    at,
		PrivacyLevel: level,
		Payload:      payload,
	}
}

type SessionStartPayload struct {
	Consent PrivacyConsent `json:"privacy_consent"`
}

type SessionEndPayload struct {
	DurationMillis     int64          `json:"duration_ms"`
	Outcome            SessionOutcome `json:"outcome"`
	JourneyProgression float64        `json:"journey_progression"`
	HopeProgression    int            `json:"hope_progression"`
	StressReduction    int            `json:"stress_reduction"`
}

type JourneyStageChangePayload struct {
	From      JourneyStageName `json:"from"`
	To        JourneyStageName `json:"to"`
	Progress  float64          `json:"progress"`
	HopeLevel int              `json:"hope_level"`
}

type EmotionalStateChangePayload struct {
	StressLevel     StressLevel `json:"stress_level"`
	StressSeverity  Severity    `json:"stress_severity"`
	PrimaryConcerns []string    `json:"primary_concerns,omitempty"`
	SupportNeeds    []string    `json:"support_needs,omitempty"`
	HopeLevel       int         `json:"hope_level"`
}

type ContentEngagementPayload struct {
	Engagement ContentEngagement `json:"engagement"`
	Quality    EngagementQuality `json:"quality"`
}

type HopeIndicatorPayload struct {
	Type           HopeIndicatorType `json:"type"`
	Intensity      int               `json:"intensity"`
	Context        string            `json:"context,omitempty"`
	CumulativeHope int               `json:"cumulative_hope"`
}

type HopeBreakthroughPayload struct {
	Indicators       int     `json:"indicators"`
	AverageIntensity float64 `json:"average_intensity"`
	Context          string  `json:"context,omitempty"`
}

type StressIndicatorPayload struct {
	Type     IndicatorType `json:"type"`
	Severity Severity      `json:"severity"`
	Context  string        `json:"context"`
}

type CrisisDetectedPayload struct {
	Severity   Severity       `json:"severity"`
	Triggers   []string       `json:"triggers"`
	Confidence float64        `json:"confidence"`
	Response   CrisisResponse `json:"response"`
	// Intervened is false when the session lacked crisis-intervention consent.
	Intervened bool `json:"intervened"`
}

type CrisisResolvedPayload struct {
	ResolutionMethod SupportType `json:"resolution_method"`
	Effectiveness    int         `json:"effectiveness,omitempty"`
}

type SupportAccessedPayload struct {
	Type          SupportType    `json:"type"`
	Duration      float64        `json:"duration"`
	Outcome       SupportOutcome `json:"outcome"`
	Effectiveness int            `json:"effectiveness,omitempty"`
}

type PainPointExploredPayload struct {
	Type             string   `json:"type"`
	Severity         int      `json:"severity"`
	Description      string   `json:"description,omitempty"`
	RelatedSolutions []string `json:"related_solutions,omitempty"`
}

type TestVariantAssignedPayload struct {
	ExperimentID ExperimentID `json:"experiment_id"`
	VariantID    VariantID    `json:"variant_id"`
}

func (SessionStartPayload) EventType() EventType         { return EventSessionStart }
func (SessionEndPayload) EventType() EventType           { return EventSessionEnd }
func (JourneyStageChangePayload) EventType() EventType   { return EventJourneyStageChange }
func (EmotionalStateChangePayload) EventType() EventType { return EventEmotionalStateChange }
func (ContentEngagementPayload) EventType() EventType    { return EventContentEngagement }
func (HopeIndicatorPayload) EventType() EventType        { return EventHopeIndicator }
func (HopeBreakthroughPayload) EventType() EventType     { return EventHopeBreakthrough }
func (StressIndicatorPayload) EventType() EventType      { return EventStressIndicator }
func (CrisisDetectedPayload) EventType() EventType       { return EventCrisisDetected }
func (CrisisResolvedPayload) EventType() EventType       { return EventCrisisResolved }
func (SupportAccessedPayload) EventType() EventType      { return EventSupportAccessed }
func (PainPointExploredPayload) EventType() EventType    { return EventPainPointExplored }
func (TestVariantAssignedPayload) EventType() EventType  { return EventTestVariantAssigned }

func (SessionStartPayload) sealed()         {}
func (SessionEndPayload) sealed()           {}
func (JourneyStageChangePayload) sealed()   {}
func (EmotionalStateChangePayload) sealed() {}
func (ContentEngagementPayload) sealed()    {}
func (HopeIndicatorPayload) sealed()        {}
func (HopeBreakthroughPayload) sealed()     {}
func (StressIndicatorPayload) sealed()      {}
func (CrisisDetectedPayload) sealed()       {}
func (CrisisResolvedPayload) sealed()       {}
func (SupportAccessedPayload) sealed()      {}
func (PainPointExploredPayload) sealed()    {}
func (TestVariantAssignedPayload) sealed()  {}
