// Contact unlock HTTP handlers.
//
//   - POST /offers/{id}/unlock         (buyer pays to reveal seller contact)
//   - GET  /unlocks/{id}               (payer reads transaction status)
//   - POST /payments/webhook           (provider callback; the only way an
//     unlock becomes confirmed)
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-parts-market/internal/http/middleware"
	"github.com/tbourn/go-parts-market/internal/payments"
)

// maxWebhookBody caps provider callback payloads.
const maxWebhookBody = 1 << 20

// InitiateUnlockRequest is the optional JSON payload for starting an unlock.
// When Amount is omitted the configured unlock fee is charged.
type InitiateUnlockRequest struct {
	Amount *float64 `json:"amount,omitempty" example:"5"`
}

// WebhookAck acknowledges a provider callback.
type WebhookAck struct {
	Status string `json:"status" example:"ok"`
}

// InitiateUnlock godoc
// @ID          initiateUnlock
// @Summary     Pay to unlock a seller's contact
// @Description Creates an unlock transaction and returns the provider handoff reference and checkout URL.
// @Description Contact details become visible only after the provider confirms payment via webhook.
// @Tags        Unlocks
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  true  "Buyer"
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       id               path    string  true  "Offer ID (UUID)"  format(uuid)
// @Param       body             body    handlers.InitiateUnlockRequest  false  "Amount override"
//
// @Success     201  {object} handlers.UnlockView
// @Failure     400  {object} handlers.ErrorResponse "Invalid amount"
// @Failure     403  {object} handlers.ErrorResponse "Not the buyer"
// @Failure     404  {object} handlers.ErrorResponse "Offer not found"
// @Failure     409  {object} handlers.ErrorResponse "Already unlocked"
// @Failure     503  {object} handlers.ErrorResponse "Payment provider unavailable"
// @Header      503  {string} Retry-After "Seconds before retrying"
// @Router      /offers/{id}/unlock [post]
func (h *Handlers) InitiateUnlock(c *gin.Context) {
	uid, okUser := currentUser(c)
	if !okUser {
		return
	}
	var req InitiateUnlockRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
	}
	amount := h.opts.UnlockFee
	if req.Amount != nil {
		amount = *req.Amount
	}

	ctx := c.Request.Context()
	if !h.claim(c, uid, func(id string) (any, error) {
		u, err := h.svc.Unlocks.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return unlockView(u), nil
	}) {
		return
	}

	u, err := h.svc.Unlocks.Initiate(ctx, c.Param("id"), uid, amount)
	if err != nil {
		h.release(c, uid)
		failErr(c, err)
		return
	}
	h.remember(c, uid, u.ID)
	ok(c, http.StatusCreated, unlockView(u))
}

// GetUnlock godoc
// @ID          getUnlock
// @Summary     Read an unlock transaction
// @Tags        Unlocks
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Payer"
// @Param       id         path    string  true  "Transaction ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.UnlockView
// @Failure     403  {object} handlers.ErrorResponse "Not the payer"
// @Failure     404  {object} handlers.ErrorResponse "Transaction not found"
// @Router      /unlocks/{id} [get]
func (h *Handlers) GetUnlock(c *gin.Context) {
	uid, okUser := currentUser(c)
	if !okUser {
		return
	}
	u, err := h.svc.Unlocks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	if u.PayerID != uid {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "not the payer of this transaction")
		return
	}
	ok(c, http.StatusOK, unlockView(u))
}

// PaymentWebhook godoc
// @ID          paymentWebhook
// @Summary     Payment provider callback
// @Description Verifies the HMAC signature over the raw body, then confirms or fails the unlock
// @Description identified by data.reference. Redelivered confirmations are acknowledged without change.
// @Tags        Unlocks
// @Accept      json
// @Produce     json
//
// @Param       X-Provider-Signature  header  string  true  "Hex HMAC-SHA512 of the raw body"
//
// @Success     200  {object} handlers.WebhookAck
// @Failure     400  {object} handlers.ErrorResponse "Malformed event"
// @Failure     401  {object} handlers.ErrorResponse "Bad signature"
// @Failure     404  {object} handlers.ErrorResponse "Unknown reference"
// @Failure     409  {object} handlers.ErrorResponse "Conflicting confirmation"
// @Router      /payments/webhook [post]
func (h *Handlers) PaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable body")
		return
	}
	ev, err := payments.ParseWebhook(h.opts.WebhookSecret, body, c.GetHeader(payments.SignatureHeader))
	switch {
	case errors.Is(err, payments.ErrBadSignature):
		middleware.LoggerFrom(c).Warn().Msg("webhook signature rejected")
		fail(c, http.StatusUnauthorized, ErrCodeBadSignature, "invalid signature")
		return
	case err != nil:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "malformed event")
		return
	}

	lg := middleware.LoggerFrom(c).With().
		Str("event", ev.Event).
		Str("reference", ev.Data.Reference).
		Logger()
	ctx := c.Request.Context()
	switch ev.Event {
	case payments.EventChargeSuccess:
		err = h.svc.Unlocks.ConfirmByReference(ctx, ev.Data.Reference, ev.ProviderRef())
	case payments.EventChargeFailed:
		err = h.svc.Unlocks.FailByReference(ctx, ev.Data.Reference, ev.Data.GatewayResponse)
	default:
		lg.Info().Msg("webhook event ignored")
		ok(c, http.StatusOK, WebhookAck{Status: "ignored"})
		return
	}
	if err != nil {
		lg.Warn().Err(err).Msg("webhook not applied")
		failErr(c, err)
		return
	}
	lg.Info().Msg("webhook applied")
	ok(c, http.StatusOK, WebhookAck{Status: "ok"})
}
