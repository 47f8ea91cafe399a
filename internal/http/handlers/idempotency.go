package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-parts-market/internal/http/middleware"
	"github.com/tbourn/go-parts-market/internal/services"
)

// HeaderIdempotencyReplayed marks responses served from a recorded result.
const HeaderIdempotencyReplayed = middleware.HeaderIdempotencyReplayed

// ctxKeyIdemClaimed marks requests that hold their Idempotency-Key.
const ctxKeyIdemClaimed = "idempotencyClaimed"

// inFlightRetryAfter is the Retry-After (seconds) sent while another request
// holds the same key.
const inFlightRetryAfter = "1"

// claim takes this request's Idempotency-Key before any work runs. It
// reports false when a response was already written: the recorded resource
// (rendered by load) for a completed key, or 409 while a concurrent request
// holds it. Requests without a key, or when the store fails, proceed
// unguarded.
func (h *Handlers) claim(c *gin.Context, uid string, load func(resourceID string) (any, error)) bool {
	key, has := middleware.GetIdempotencyKey(c)
	if !has || h.svc.Idempotency == nil {
		return true
	}
	state, id, err := h.svc.Idempotency.Claim(c.Request.Context(), uid, middleware.IdempotencyScope(c), key)
	if err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency claim failed, processing request")
		return true
	}

	switch state {
	case services.ClaimCompleted:
		body, err := load(id)
		if err != nil {
			middleware.LoggerFrom(c).Error().Err(err).Str("resource_id", id).Msg("idempotent replay failed")
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "recorded result unavailable")
			return false
		}
		c.Header(HeaderIdempotencyReplayed, "true")
		ok(c, http.StatusCreated, body)
		return false
	case services.ClaimInFlight:
		c.Header("Retry-After", inFlightRetryAfter)
		fail(c, http.StatusConflict, ErrCodeIdempotencyInFlight, "a request with this Idempotency-Key is in progress")
		return false
	}
	c.Set(ctxKeyIdemClaimed, true)
	return true
}

// remember records resourceID under this request's claimed key. Failures
// only cost a future replay and are logged.
func (h *Handlers) remember(c *gin.Context, uid, resourceID string) {
	key, has := middleware.GetIdempotencyKey(c)
	if !has || !c.GetBool(ctxKeyIdemClaimed) {
		return
	}
	if err := h.svc.Idempotency.Remember(c.Request.Context(), uid, middleware.IdempotencyScope(c), key, resourceID, http.StatusCreated); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Str("resource_id", resourceID).Msg("idempotency record not stored")
	}
}

// release gives the claimed key back after the work failed, so the client
// can retry with it.
func (h *Handlers) release(c *gin.Context, uid string) {
	key, has := middleware.GetIdempotencyKey(c)
	if !has || !c.GetBool(ctxKeyIdemClaimed) {
		return
	}
	if err := h.svc.Idempotency.Release(c.Request.Context(), uid, middleware.IdempotencyScope(c), key); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency claim not released")
	}
}
