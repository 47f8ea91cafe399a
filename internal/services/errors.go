// Package services defines the business logic for part requests, offers,
// contact unlocks, ratings, admin overrides, and chat threads. This file
// centralizes service-level error values so that they can be consistently
// returned by service methods and checked by callers with errors.Is.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer. Infrastructure failures are returned unchanged and are
// never disguised as one of these values.
package services

import "errors"

// Conflict errors. These are expected under concurrency and are normal
// outcomes, not failures to retry.
var (
	// ErrAlreadyMatched is returned to every acceptance that loses the race
	// for a request, and for acceptances on requests already matched or
	// completed.
	ErrAlreadyMatched = errors.New("request already matched")

	// ErrAlreadyConfirmed is returned when an unlock transaction was confirmed
	// under a different provider reference, or when a confirmed transaction
	// is asked to fail.
	ErrAlreadyConfirmed = errors.New("unlock already confirmed")

	// ErrAlreadyRated is returned for a second rating on the same offer.
	ErrAlreadyRated = errors.New("offer already rated")

	// ErrAlreadyUnlocked is returned when initiating an unlock for an offer
	// whose contact details are already unlocked.
	ErrAlreadyUnlocked = errors.New("contact already unlocked")
)

// State errors: the transition is not valid from the current state.
var (
	ErrRequestNotOpen      = errors.New("request is not open for offers")
	ErrNotMatched          = errors.New("request is not matched")
	ErrRequestNotCompleted = errors.New("request is not completed")
	ErrInvalidState        = errors.New("invalid state transition")
	ErrOfferNotPending     = errors.New("offer is not pending")
)

// Authorization errors.
var (
	// ErrNotAuthorized indicates the actor is not the buyer, seller, or admin
	// entitled to perform the action.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrOfferNotForThisRequest is returned by admin force-match when the
	// offer belongs to a different request.
	ErrOfferNotForThisRequest = errors.New("offer does not belong to this request")
)

// Not-found errors.
var (
	ErrRequestNotFound = errors.New("request not found")
	ErrOfferNotFound   = errors.New("offer not found")
	ErrUnlockNotFound  = errors.New("unlock transaction not found")
)

// Validation errors.
var (
	ErrInvalidRequest = errors.New("invalid request details")
	ErrInvalidOffer   = errors.New("invalid offer")
	ErrInvalidAmount  = errors.New("invalid unlock amount")
	ErrInvalidScore   = errors.New("score must be between 1 and 5")
	ErrInvalidThread  = errors.New("invalid chat thread participants")
)

// ErrProviderUnavailable is returned when the payment provider cannot start
// a checkout. The unlock stays locked and the caller may retry.
var ErrProviderUnavailable = errors.New("payment provider unavailable")
