// Offer HTTP handlers.
//
//   - POST /requests/{id}/offers   (seller submits; Idempotency-Key aware)
//   - GET  /requests/{id}/offers   (buyer sees all, sellers see their own)
//   - POST /offers/{id}/accept     (buyer; exactly one wins per request)
//   - POST /offers/{id}/reject     (buyer or offering seller)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-parts-market/internal/services"
)

// SubmitOfferRequest is the JSON payload for offering on a request.
// Currency defaults to the service currency when omitted.
type SubmitOfferRequest struct {
	Price           float64 `json:"price"            binding:"required" example:"90"`
	Currency        string  `json:"currency"         example:"GHS"`
	Message         string  `json:"message"          example:"Used, tested, 3 months warranty"`
	ContactPhone    string  `json:"contact_phone"    example:"+233240000000"`
	ContactLocation string  `json:"contact_location" example:"Kumasi, Suame Magazine"`
}

// ListOffersResponse lists the offers on a request visible to the caller.
type ListOffersResponse struct {
	RequestID string      `json:"request_id"`
	Offers    []OfferView `json:"offers"`
}

// SubmitOffer godoc
// @ID          submitOffer
// @Summary     Offer on a pending request
// @Description Sellers cannot offer on their own requests. Supports Idempotency-Key.
// @Tags        Offers
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  true  "Seller"
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       id               path    string  true  "Request ID (UUID)"  format(uuid)
// @Param       body             body    handlers.SubmitOfferRequest  true  "Offer"
//
// @Success     201  {object} handlers.OfferView
// @Failure     400  {object} handlers.ErrorResponse "Validation failed"
// @Failure     403  {object} handlers.ErrorResponse "Own request"
// @Failure     404  {object} handlers.ErrorResponse "Request not found"
// @Failure     409  {object} handlers.ErrorResponse "Request not open"
// @Router      /requests/{id}/offers [post]
func (h *Handlers) SubmitOffer(c *gin.Context) {
	uid, okUser := currentUser(c)
	if !okUser {
		return
	}
	var req SubmitOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "price is required")
		return
	}

	ctx := c.Request.Context()
	requestID := c.Param("id")
	if !h.claim(c, uid, func(id string) (any, error) {
		o, err := h.svc.Offers.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return offerView(o, "", uid), nil
	}) {
		return
	}

	o, err := h.svc.Offers.Submit(ctx, requestID, uid, services.OfferInput{
		Price:           req.Price,
		Currency:        req.Currency,
		Message:         req.Message,
		ContactPhone:    req.ContactPhone,
		ContactLocation: req.ContactLocation,
	})
	if err != nil {
		h.release(c, uid)
		failErr(c, err)
		return
	}
	h.remember(c, uid, o.ID)
	ok(c, http.StatusCreated, offerView(o, "", uid))
}

// ListOffers godoc
// @ID          listOffers
// @Summary     List offers on a request
// @Description The buyer sees every offer; any other caller sees only offers they submitted.
// @Description Contact fields appear only after the buyer unlocked them. Supports weak ETag.
// @Tags        Offers
// @Produce     json
//
// @Param       X-User-ID      header  string  true  "Acting user"
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       id             path    string  true  "Request ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.ListOffersResponse
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Missing identity"
// @Failure     404  {object} handlers.ErrorResponse "Request not found"
// @Router      /requests/{id}/offers [get]
func (h *Handlers) ListOffers(c *gin.Context) {
	uid, okUser := currentUser(c)
	if !okUser {
		return
	}
	ctx := c.Request.Context()
	requestID := c.Param("id")

	if count, maxTS, err := h.svc.Offers.Stats(ctx, requestID); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		// Views differ per caller, so the viewer is part of the tag.
		if notModified(c, weakETag("offers", requestID, uid, count, ts)) {
			return
		}
	}

	offers, r, err := h.svc.Offers.ListForRequest(ctx, requestID, uid)
	if err != nil {
		failErr(c, err)
		return
	}
	views := make([]OfferView, 0, len(offers))
	for i := range offers {
		views = append(views, offerView(&offers[i], r.BuyerID, uid))
	}
	ok(c, http.StatusOK, ListOffersResponse{RequestID: r.ID, Offers: views})
}

// AcceptOffer godoc
// @ID          acceptOffer
// @Summary     Accept an offer
// @Description Matches the request to this offer and rejects every other pending offer.
// @Description Under concurrent accepts exactly one succeeds; the rest get 409 already_matched.
// @Tags        Offers
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Buyer"
// @Param       id         path    string  true  "Offer ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.StatusResponse
// @Failure     403  {object} handlers.ErrorResponse "Not the buyer"
// @Failure     404  {object} handlers.ErrorResponse "Offer not found"
// @Failure     409  {object} handlers.ErrorResponse "Already matched or offer not pending"
// @Router      /offers/{id}/accept [post]
func (h *Handlers) AcceptOffer(c *gin.Context) {
	uid, okUser := currentUser(c)
	if !okUser {
		return
	}
	id := c.Param("id")
	if err := h.svc.Offers.Accept(c.Request.Context(), id, uid); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, StatusResponse{ID: id, Status: "accepted"})
}

// RejectOffer godoc
// @ID          rejectOffer
// @Summary     Reject or withdraw a pending offer
// @Tags        Offers
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Buyer or offering seller"
// @Param       id         path    string  true  "Offer ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.StatusResponse
// @Failure     403  {object} handlers.ErrorResponse "Not a participant"
// @Failure     404  {object} handlers.ErrorResponse "Offer not found"
// @Failure     409  {object} handlers.ErrorResponse "Offer already accepted"
// @Router      /offers/{id}/reject [post]
func (h *Handlers) RejectOffer(c *gin.Context) {
	uid, okUser := currentUser(c)
	if !okUser {
		return
	}
	id := c.Param("id")
	if err := h.svc.Offers.Reject(c.Request.Context(), id, uid); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, StatusResponse{ID: id, Status: "rejected"})
}
