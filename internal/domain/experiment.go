package domain

// MaxExperimentDays caps how long any experiment may run.
const MaxExperimentDays = 30

type ExperimentStatus string

const (
	StatusDraft     ExperimentStatus = "draft"
	StatusActive    ExperimentStatus = "active"
	StatusPaused    ExperimentStatus = "paused"
	StatusCompleted ExperimentStatus = "completed"
	StatusCancelled ExperimentStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s ExperimentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type TherapeuticApproach string

const (
	ApproachValidationFocused TherapeuticApproach = "validation-focused"
	ApproachHopeBuilding      TherapeuticApproach = "hope-building"
	ApproachSolutionOriented  TherapeuticApproach = "solution-oriented"
	ApproachCommunityCentered TherapeuticApproach = "community-centered"
)

type Variant struct {
	ID                      VariantID           `json:"id" yaml:"id" validate:"required"`
	Name                    string              `json:"name" yaml:"name"`
	Description             string              `json:"description,omitempty" yaml:"description"`
	Component               string              `json:"component,omitempty" yaml:"component"`
	Weight                  float64             `json:"weight" yaml:"weight" validate:"gte=0"`
	TherapeuticApproach     TherapeuticApproach `json:"therapeutic_approach" yaml:"therapeutic_approach" validate:"omitempty,oneof=validation-focused hope-building solution-oriented community-centered"`
	ExpectedWellbeingImpact string              `json:"expected_wellbeing_impact,omitempty" yaml:"expected_wellbeing_impact"`
}

type MetricType string

const (
	MetricHopeProgression    MetricType = "hope-progression"
	MetricStressReduction    MetricType = "stress-reduction"
	MetricEngagementQuality  MetricType = "engagement-quality"
	MetricSupportUtilization MetricType = "support-utilization"
	MetricCrisisPrevention   MetricType = "crisis-prevention"
)

type MetricPriority string

const (
	PriorityPrimary    MetricPriority = "primary"
	PrioritySecondary  MetricPriority = "secondary"
	PriorityMonitoring MetricPriority = "monitoring"
)

type WellbeingMetric struct {
	Name        string         `json:"name" yaml:"name" validate:"required"`
	Type        MetricType     `json:"type" yaml:"type" validate:"required,oneof=hope-progression stress-reduction engagement-quality support-utilization crisis-prevention"`
	Measurement string         `json:"measurement" yaml:"measurement" validate:"omitempty,oneof=increase decrease maintain"`
	Target      float64        `json:"target" yaml:"target"`
	Priority    MetricPriority `json:"priority" yaml:"priority" validate:"required,oneof=primary secondary monitoring"`
	// EthicalThreshold is the minimum acceptable value. Required for primary metrics.
	EthicalThreshold *float64 `json:"ethical_threshold,omitempty" yaml:"ethical_threshold"`
}

type Audience struct {
	JourneyStages      []JourneyStageName `json:"journey_stages" yaml:"journey_stages" validate:"required,min=1"`
	StressLevels       []StressLevel      `json:"stress_levels" yaml:"stress_levels" validate:"required,min=1"`
	PainPoints         []string           `json:"pain_points" yaml:"pain_points" validate:"required,min=1"`
	ExcludeCrisisUsers bool               `json:"exclude_crisis_users" yaml:"exclude_crisis_users"`
	MinSessionCount    int                `json:"min_session_count,omitempty" yaml:"min_session_count" validate:"gte=0"`
}

type EthicalGuideline struct {
	Principle         string `json:"principle" yaml:"principle" validate:"required"`
	Description       string `json:"description" yaml:"description"`
	Implementation    string `json:"implementation" yaml:"implementation"`
	MonitoringMethod  string `json:"monitoring_method" yaml:"monitoring_method"`
	ViolationResponse string `json:"violation_response" yaml:"violation_response"`
}

// ExperimentConfig is everything a caller supplies to create an experiment.
type ExperimentConfig struct {
	Name              string             `json:"name" yaml:"name" validate:"required"`
	Description       string             `json:"description" yaml:"description"`
	Hypothesis        string             `json:"hypothesis" yaml:"hypothesis"`
	Variants          []Variant          `json:"variants" yaml:"variants" validate:"required,min=1,dive"`
	TrafficAllocation float64            `json:"traffic_allocation" yaml:"traffic_allocation" validate:"gt=0,lte=100"`
	WellbeingMetrics  []WellbeingMetric  `json:"wellbeing_metrics" yaml:"wellbeing_metrics" validate:"dive"`
	DurationDays      int                `json:"duration_days" yaml:"duration_days" validate:"gt=0"`
	TargetAudience    Audience           `json:"target_audience" yaml:"target_audience"`
	EthicalGuidelines []EthicalGuideline `json:"ethical_guidelines" yaml:"ethical_guidelines" validate:"dive"`
}

// Experiment is a configured therapeutic A/B test plus its mutable status.
type Experiment struct {
	ID ExperimentID `json:"id"`
	ExperimentConfig
	Status    ExperimentStatus `json:"status"`
	CreatedAt Timestamp        `json:"created_at"`
	UpdatedAt Timestamp        `json:"updated_at"`
}

// Clone copies the experiment including its slices.
func (e *Experiment) Clone() *Experiment {
	out := *e
	out.Variants = append([]Variant(nil), e.Variants...)
	out.WellbeingMetrics = append([]WellbeingMetric(nil), e.WellbeingMetrics...)
	out.EthicalGuidelines = append([]EthicalGuideline(nil), e.EthicalGuidelines...)
	out.TargetAudience.JourneyStages = append([]JourneyStageName(nil), e.TargetAudience.JourneyStages...)
	out.TargetAudience.StressLevels = append([]StressLevel(nil), e.TargetAudience.StressLevels...)
	out.TargetAudience.PainPoints = append([]string(nil), e.TargetAudience.PainPoints...)
	return &out
}

type MetricResult struct {
	MetricName   string   `json:"metric_name"`
	Value        float64  `json:"value"`
	Baseline     *float64 `json:"baseline,omitempty"`
	Improvement  float64  `json:"improvement"`
	Significance float64  `json:"significance"`
}

// WellbeingImpact summarizes one session's trajectory for an experiment.
type WellbeingImpact struct {
	HopeProgression    int     `json:"hope_progression"`
	StressReduction    int     `json:"stress_reduction"`
	SupportUtilization int     `json:"support_utilization"`
	CrisisRisk         int     `json:"crisis_risk"`
	OverallWellbeing   float64 `json:"overall_wellbeing"`
}

type TestResult struct {
	ExperimentID    ExperimentID    `json:"experiment_id"`
	VariantID       VariantID       `json:"variant_id"`
	UserID          UserID          `json:"user_id"`
	SessionID       SessionID       `json:"session_id"`
	Metrics         []MetricResult  `json:"metrics"`
	WellbeingImpact WellbeingImpact `json:"wellbeing_impact"`
	Timestamp       Timestamp       `json:"timestamp"`
}

type WellbeingTrend string

const (
	TrendPositive WellbeingTrend = "positive"
	TrendNegative WellbeingTrend = "negative"
	TrendNeutral  WellbeingTrend = "neutral"
)

type WellbeingAnalysis struct {
	AverageHopeProgression float64        `json:"average_hope_progression"`
	AverageStressReduction float64        `json:"average_stress_reduction"`
	SupportUtilizationRate float64        `json:"support_utilization_rate"`
	AverageCrisisRisk      float64        `json:"average_crisis_risk"`
	CrisisPreventionRate   float64        `json:"crisis_prevention_rate"`
	OverallWellbeingTrend  WellbeingTrend `json:"overall_wellbeing_trend"`
	SignificantFindings    []string       `json:"significant_findings"`
}

type EthicalCompliance struct {
	EthicalViolations        int      `json:"ethical_violations"`
	NegativeWellbeingImpacts int      `json:"negative_wellbeing_impacts"`
	CrisisRisksElevated      int      `json:"crisis_risks_elevated"`
	ComplianceScore          float64  `json:"compliance_score"`
	Recommendations          []string `json:"recommendations"`
}

type VariantSummary struct {
	VariantID               VariantID `json:"variant_id"`
	Results                 int       `json:"results"`
	AverageOverallWellbeing float64   `json:"average_overall_wellbeing"`
}

// Violation is one entry of an experiment's ethics log.
type Violation struct {
	Timestamp Timestamp `json:"timestamp"`
	Reason    string    `json:"reason"`
}

// TestReport is the aggregate returned by getTestResults.
type TestReport struct {
	Experiment        *Experiment       `json:"experiment"`
	Results           []TestResult      `json:"results"`
	WellbeingAnalysis WellbeingAnalysis `json:"wellbeing_analysis"`
	EthicalCompliance EthicalCompliance `json:"ethical_compliance"`
	Variants          []VariantSummary  `json:"variants"`
	Violations        []Violation       `json:"violations"`
	Recommendations   []string          `json:"recommendations"`
}
