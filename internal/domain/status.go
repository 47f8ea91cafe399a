package domain

// RequestStatus is the lifecycle state of a PartRequest.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestMatched   RequestStatus = "matched"
	RequestCompleted RequestStatus = "completed"
	RequestCancelled RequestStatus = "cancelled"
)

// CanTransition reports whether a request may move from s to next.
// Status only moves forward: pending → matched → completed, or
// pending/matched → cancelled.
func (s RequestStatus) CanTransition(next RequestStatus) bool {
	switch s {
	case RequestPending:
		return next == RequestMatched || next == RequestCancelled
	case RequestMatched:
		return next == RequestCompleted || next == RequestCancelled
	}
	return false
}

// OfferStatus is the lifecycle state of an Offer.
type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
)

// CanTransition reports whether an offer may move from s to next. A pending
// offer is accepted or rejected; an accepted offer can only be rejected,
// when its request is cancelled. Rejected is final.
func (s OfferStatus) CanTransition(next OfferStatus) bool {
	switch s {
	case OfferPending:
		return next == OfferAccepted || next == OfferRejected
	case OfferAccepted:
		return next == OfferRejected
	}
	return false
}

// UnlockStatus is the state of an UnlockTransaction.
type UnlockStatus string

const (
	UnlockInitiated UnlockStatus = "initiated"
	UnlockConfirmed UnlockStatus = "confirmed"
	UnlockFailed    UnlockStatus = "failed"
)

// Rating bounds.
const (
	MinScore = 1
	MaxScore = 5
)
