// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants and the single table
// that maps service errors onto (HTTP status, code). Every handler reports
// service failures through failErr, so a given service error always produces
// the same response no matter which endpoint surfaced it.
//
// Conventions:
//   - Codes are lowercase, snake_case.
//   - Generic codes (bad_request, forbidden, not_found) mirror HTTP status
//     semantics. Lifecycle codes (already_matched, request_not_open, ...) name
//     the exact rule that rejected the call so clients can branch on them.
//   - Conflicts are normal outcomes under concurrency and are never retried
//     by the server.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "already_matched",
//	  "message": "request already matched"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-parts-market/internal/services"
)

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Lifecycle conflicts and state errors.
	ErrCodeAlreadyMatched      = "already_matched"
	ErrCodeAlreadyConfirmed    = "already_confirmed"
	ErrCodeAlreadyRated        = "already_rated"
	ErrCodeAlreadyUnlocked     = "already_unlocked"
	ErrCodeRequestNotOpen      = "request_not_open"
	ErrCodeNotMatched          = "not_matched"
	ErrCodeRequestNotCompleted = "request_not_completed"
	ErrCodeInvalidState        = "invalid_state"
	ErrCodeOfferNotPending     = "offer_not_pending"
	ErrCodeOfferNotForRequest  = "offer_not_for_request"

	// Validation and dependencies.
	ErrCodeValidation          = "validation_failed"
	ErrCodeProviderUnavailable = "provider_unavailable"
	ErrCodeBadSignature        = "bad_signature"
	ErrCodeIdempotencyInFlight = "idempotency_in_flight"
)

// providerRetryAfter is the Retry-After hint, in seconds, sent with 503s
// caused by the payment provider.
const providerRetryAfter = "5"

var errorTable = []struct {
	err    error
	status int
	code   string
}{
	{services.ErrAlreadyMatched, http.StatusConflict, ErrCodeAlreadyMatched},
	{services.ErrAlreadyConfirmed, http.StatusConflict, ErrCodeAlreadyConfirmed},
	{services.ErrAlreadyRated, http.StatusConflict, ErrCodeAlreadyRated},
	{services.ErrAlreadyUnlocked, http.StatusConflict, ErrCodeAlreadyUnlocked},

	{services.ErrRequestNotOpen, http.StatusConflict, ErrCodeRequestNotOpen},
	{services.ErrNotMatched, http.StatusConflict, ErrCodeNotMatched},
	{services.ErrRequestNotCompleted, http.StatusConflict, ErrCodeRequestNotCompleted},
	{services.ErrInvalidState, http.StatusConflict, ErrCodeInvalidState},
	{services.ErrOfferNotPending, http.StatusConflict, ErrCodeOfferNotPending},

	{services.ErrNotAuthorized, http.StatusForbidden, ErrCodeForbidden},
	{services.ErrOfferNotForThisRequest, http.StatusUnprocessableEntity, ErrCodeOfferNotForRequest},

	{services.ErrRequestNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrOfferNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrUnlockNotFound, http.StatusNotFound, ErrCodeNotFound},

	{services.ErrInvalidRequest, http.StatusBadRequest, ErrCodeValidation},
	{services.ErrInvalidOffer, http.StatusBadRequest, ErrCodeValidation},
	{services.ErrInvalidAmount, http.StatusBadRequest, ErrCodeValidation},
	{services.ErrInvalidScore, http.StatusBadRequest, ErrCodeValidation},
	{services.ErrInvalidThread, http.StatusBadRequest, ErrCodeValidation},

	{services.ErrProviderUnavailable, http.StatusServiceUnavailable, ErrCodeProviderUnavailable},
}

// statusFor returns the HTTP status and code for a service error. Unknown
// errors are infrastructure failures and map to 500.
func statusFor(err error) (int, string, error) {
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			return e.status, e.code, e.err
		}
	}
	return http.StatusInternalServerError, ErrCodeInternal, err
}

// failErr writes the response for a service error. Domain errors use the
// sentinel's message so wrapped provider details stay server-side.
func failErr(c *gin.Context, err error) {
	status, code, matched := statusFor(err)
	msg := matched.Error()
	switch status {
	case http.StatusInternalServerError:
		msg = err.Error()
	case http.StatusServiceUnavailable:
		c.Header("Retry-After", providerRetryAfter)
	}
	fail(c, status, code, msg)
}
