// Package events publishes marketplace lifecycle events to downstream
// consumers (notifications, search indexing, analytics).
//
// Publishing happens after the owning database transaction commits and is
// best-effort: a failed publish is logged and never rolls back or fails the
// operation that produced the event.
package events

import (
	"context"
	"time"
)

// Event types.
const (
	RequestCreated   = "request.created"
	RequestMatched   = "request.matched"
	RequestCompleted = "request.completed"
	RequestCancelled = "request.cancelled"
	OfferSubmitted   = "offer.submitted"
	OfferAccepted    = "offer.accepted"
	OfferRejected    = "offer.rejected"
	UnlockInitiated  = "unlock.initiated"
	UnlockConfirmed  = "unlock.confirmed"
	UnlockFailed     = "unlock.failed"
	RatingSubmitted  = "rating.submitted"
)

// Event is one lifecycle fact. Key groups related events (the request id)
// so a partitioned consumer sees them in order.
type Event struct {
	Type       string            `json:"type"`
	Key        string            `json:"key"`
	SubjectID  string            `json:"subject_id"`
	ActorID    string            `json:"actor_id,omitempty"`
	ActorRole  string            `json:"actor_role,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, evs ...Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, ...Event) error { return nil }

// Close implements Publisher.
func (Nop) Close() error { return nil }
