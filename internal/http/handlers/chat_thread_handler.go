package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// EnsureChatThreadRequest names the two parties and, optionally, the part.
type EnsureChatThreadRequest struct {
	BuyerID  string  `json:"buyer_id"  binding:"required" example:"buyer-42"`
	SellerID string  `json:"seller_id" binding:"required" example:"seller-7"`
	PartID   *string `json:"part_id,omitempty"            example:"alternator-2012-corolla"`
}

// EnsureChatThread godoc
// @ID          ensureChatThread
// @Summary     Find or create a buyer/seller chat thread
// @Description Returns the single thread for (buyer, seller, part); concurrent calls resolve to the same thread.
// @Tags        ChatThreads
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Buyer or seller"
// @Param       body       body    handlers.EnsureChatThreadRequest  true  "Thread key"
//
// @Success     200  {object} domain.ChatThread
// @Failure     400  {object} handlers.ErrorResponse "Invalid thread key"
// @Failure     403  {object} handlers.ErrorResponse "Caller is not a party"
// @Router      /chat-threads [post]
func (h *Handlers) EnsureChatThread(c *gin.Context) {
	uid, okUser := currentUser(c)
	if !okUser {
		return
	}
	var req EnsureChatThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "buyer_id and seller_id are required")
		return
	}
	if uid != req.BuyerID && uid != req.SellerID {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "caller must be the buyer or the seller")
		return
	}
	th, err := h.svc.Threads.Ensure(c.Request.Context(), req.BuyerID, req.SellerID, req.PartID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, th)
}
