package domain

import "context"

// SessionArchive persists finalized sessions. Which method is called is
// decided by the session's consent flags.
type SessionArchive interface {
	// SaveAnonymizedAnalytics is called under analytics consent.
	SaveAnonymizedAnalytics(ctx context.Context, summary AnonymizedSessionSummary) error
	// SaveJourney is called under emotional-tracking consent.
	SaveJourney(ctx context.Context, session *Session) error
}

// EventSink receives drained event batches in enqueue order.
type EventSink interface {
	Deliver(ctx context.Context, events []Event) error
}

// EventPublisher buffers an analytics event for later delivery.
type EventPublisher interface {
	Publish(evt Event)
}

// CrisisResponder is invoked when a detected crisis matches an escalation
// rule that asks for an automatic response. Only the descriptor is passed;
// displaying it is the responder's job.
type CrisisResponder interface {
	TriggerCrisisResponse(ctx context.Context, sessionID SessionID, result CrisisDetectionResult) error
}
