package domain

// CrisisResponse describes what should be offered when a crisis is detected.
// Rendering and delivery are left to the caller.
type CrisisResponse struct {
	Type             CrisisResponseType `json:"type" mapstructure:"type" yaml:"type"`
	Message          string             `json:"message" mapstructure:"message" yaml:"message"`
	Resources        []string           `json:"resources,omitempty" mapstructure:"resources" yaml:"resources"`
	AutomaticTrigger bool               `json:"automatic_trigger" mapstructure:"automatic_trigger" yaml:"automatic_trigger"`
	FollowUpRequired bool               `json:"follow_up_required" mapstructure:"follow_up_required" yaml:"follow_up_required"`
}

// EscalationRule maps a trigger condition and severity to a response.
type EscalationRule struct {
	Condition string         `json:"condition" mapstructure:"condition" yaml:"condition" validate:"required"`
	Severity  Severity       `json:"severity" mapstructure:"severity" yaml:"severity" validate:"required,oneof=low moderate high crisis"`
	Response  CrisisResponse `json:"response" mapstructure:"response" yaml:"response"`
	Priority  string         `json:"priority" mapstructure:"priority" yaml:"priority" validate:"omitempty,oneof=low medium high critical"`
}

// Crisis trigger names reported in CrisisDetectionResult.Triggers.
const (
	TriggerCrisisLevelStress    = "crisis-level-stress"
	TriggerMultipleIndicators   = "multiple-stress-indicators"
	TriggerCrisisContentSeeking = "crisis-content-seeking"
	TriggerAbandonmentPattern   = "abandonment-pattern"
)

// CrisisDetectionResult is a point-in-time verdict. It is never persisted.
type CrisisDetectionResult struct {
	Detected            bool           `json:"crisis_detected"`
	Severity            Severity       `json:"severity"`
	Triggers            []string       `json:"triggers"`
	Confidence          float64        `json:"confidence"`
	RecommendedResponse CrisisResponse `json:"recommended_response"`
	Timestamp           Timestamp      `json:"timestamp"`
}

// DefaultCrisisResponse is offered when no escalation rule matches.
func DefaultCrisisResponse() CrisisResponse {
	return CrisisResponse{
		Type:    ResponsePeerConnection,
		Message: "We notice you might benefit from some support. Would you like to connect with our community?",
	}
}
