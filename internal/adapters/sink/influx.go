package sink

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/PabloGalante/farum-insights/internal/domain"
)

const measurement = "wellbeing_event"

// InfluxSink writes each event as one point of the "wellbeing_event"
// measurement. The event type and privacy level are tags; payload numbers
// become fields. User ids are never written.
type InfluxSink struct {
	writer api.WriteAPIBlocking
	client influxdb2.Client
}

// NewInfluxSink connects to InfluxDB v2 and writes into org/bucket.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	client := influxdb2.NewClient(url, token)
	return &InfluxSink{
		writer: client.WriteAPIBlocking(org, bucket),
		client: client,
	}
}

// NewInfluxSinkWithWriter wraps an existing blocking write API.
func NewInfluxSinkWithWriter(w api.WriteAPIBlocking) *InfluxSink {
	return &InfluxSink{writer: w}
}

func (s *InfluxSink) Deliver(ctx context.Context, events []domain.Event) error {
	points := make([]*write.Point, 0, len(events))
	for _, evt := range events {
		points = append(points, ToPoint(evt))
	}
	if err := s.writer.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("influx write %d points: %w", len(points), err)
	}
	return nil
}

func (s *InfluxSink) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// ToPoint maps one event onto a line-protocol point.
func ToPoint(evt domain.Event) *write.Point {
	tags := map[string]string{
		"type":          string(evt.Type),
		"privacy_level": string(evt.PrivacyLevel),
	}
	fields := map[string]interface{}{
		"session_id": string(evt.SessionID),
	}

	switch p := evt.Payload.(type) {
	case domain.SessionStartPayload:
		fields["analytics_consent"] = p.Consent.AnalyticsConsent
		fields["emotional_tracking_consent"] = p.Consent.EmotionalTrackingConsent
		fields["crisis_intervention_consent"] = p.Consent.CrisisInterventionConsent
	case domain.SessionEndPayload:
		tags["outcome"] = string(p.Outcome.Type)
		fields["duration_ms"] = p.DurationMillis
		fields["journey_progression"] = p.JourneyProgression
		fields["hope_progression"] = p.HopeProgression
		fields["stress_reduction"] = p.StressReduction
	case domain.JourneyStageChangePayload:
		tags["stage"] = string(p.To)
		fields["from"] = string(p.From)
		fields["progress"] = p.Progress
		fields["hope_level"] = p.HopeLevel
	case domain.EmotionalStateChangePayload:
		tags["stress_level"] = string(p.StressLevel)
		tags["stress_severity"] = string(p.StressSeverity)
		fields["hope_level"] = p.HopeLevel
	case domain.ContentEngagementPayload:
		tags["content_type"] = string(p.Engagement.ContentType)
		tags["quality"] = string(p.Quality)
		fields["time_spent"] = p.Engagement.TimeSpent
		fields["relevance"] = p.Engagement.Relevance
	case domain.HopeIndicatorPayload:
		tags["hope_type"] = string(p.Type)
		fields["intensity"] = p.Intensity
		fields["cumulative_hope"] = p.CumulativeHope
	case domain.HopeBreakthroughPayload:
		fields["indicators"] = p.Indicators
		fields["average_intensity"] = p.AverageIntensity
	case domain.StressIndicatorPayload:
		tags["indicator"] = string(p.Type)
		tags["severity"] = string(p.Severity)
		fields["count"] = 1
	case domain.CrisisDetectedPayload:
		tags["severity"] = string(p.Severity)
		tags["response"] = string(p.Response.Type)
		fields["confidence"] = p.Confidence
		fields["intervened"] = p.Intervened
		fields["triggers"] = len(p.Triggers)
	case domain.CrisisResolvedPayload:
		tags["resolution_method"] = string(p.ResolutionMethod)
		fields["effectiveness"] = p.Effectiveness
	case domain.SupportAccessedPayload:
		tags["support_type"] = string(p.Type)
		tags["outcome"] = string(p.Outcome)
		fields["duration"] = p.Duration
		fields["effectiveness"] = p.Effectiveness
	case domain.PainPointExploredPayload:
		tags["pain_point"] = p.Type
		fields["severity"] = p.Severity
	case domain.TestVariantAssignedPayload:
		tags["experiment_id"] = string(p.ExperimentID)
		tags["variant_id"] = string(p.VariantID)
		fields["count"] = 1
	}

	return influxdb2.NewPoint(measurement, tags, fields, evt.Timestamp)
}
