package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-parts-market/internal/services"
)

// SubmitRatingRequest is the JSON payload for rating a completed deal.
type SubmitRatingRequest struct {
	Score   int    `json:"score"   binding:"required" example:"5"`
	Comment string `json:"comment" example:"Part arrived as described"`
}

// RatingView is the public shape of a rating.
type RatingView struct {
	ID        string    `json:"id"`
	OfferID   string    `json:"offer_id"`
	RequestID string    `json:"request_id"`
	SellerID  string    `json:"seller_id"`
	Score     int       `json:"score"   example:"5"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// PendingRatingsResponse lists completed deals the caller has not rated.
type PendingRatingsResponse struct {
	Pending []services.PendingRating `json:"pending"`
}

// SubmitRating godoc
// @ID          submitRating
// @Summary     Rate the seller of a completed deal
// @Description Only the buyer may rate, only after completion, and only once per offer.
// @Tags        Ratings
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Buyer"
// @Param       id         path    string  true  "Offer ID (UUID)"  format(uuid)
// @Param       body       body    handlers.SubmitRatingRequest  true  "Score 1..5"
//
// @Success     201  {object} handlers.RatingView
// @Failure     400  {object} handlers.ErrorResponse "Invalid score"
// @Failure     403  {object} handlers.ErrorResponse "Not the buyer"
// @Failure     404  {object} handlers.ErrorResponse "Offer not found"
// @Failure     409  {object} handlers.ErrorResponse "Not completed or already rated"
// @Router      /offers/{id}/rating [post]
func (h *Handlers) SubmitRating(c *gin.Context) {
	uid, okUser := currentUser(c)
	if !okUser {
		return
	}
	var req SubmitRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "score is required")
		return
	}
	rt, err := h.svc.Ratings.Submit(c.Request.Context(), c.Param("id"), uid, req.Score, req.Comment)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, RatingView{
		ID:        rt.ID,
		OfferID:   rt.OfferID,
		RequestID: rt.RequestID,
		SellerID:  rt.SellerID,
		Score:     rt.Score,
		Comment:   rt.Comment,
		CreatedAt: rt.CreatedAt,
	})
}

// PendingRatings godoc
// @ID          pendingRatings
// @Summary     Completed deals awaiting the caller's rating
// @Tags        Ratings
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Buyer"
//
// @Success     200  {object} handlers.PendingRatingsResponse
// @Failure     401  {object} handlers.ErrorResponse "Missing identity"
// @Router      /ratings/pending [get]
func (h *Handlers) PendingRatings(c *gin.Context) {
	uid, okUser := currentUser(c)
	if !okUser {
		return
	}
	items, err := h.svc.Ratings.Pending(c.Request.Context(), uid)
	if err != nil {
		failErr(c, err)
		return
	}
	if items == nil {
		items = []services.PendingRating{}
	}
	ok(c, http.StatusOK, PendingRatingsResponse{Pending: items})
}

// SellerRatings godoc
// @ID          sellerRatings
// @Summary     A seller's rating count and average
// @Tags        Ratings
// @Produce     json
//
// @Param       id  path  string  true  "Seller ID"
//
// @Success     200  {object} services.SellerSummary
// @Router      /sellers/{id}/ratings [get]
func (h *Handlers) SellerRatings(c *gin.Context) {
	sum, err := h.svc.Ratings.SellerSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, sum)
}
