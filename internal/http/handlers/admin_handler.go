// Operator override handlers. Routes are mounted under /admin behind
// middleware.RequireAdmin; each override is audited with the admin's id.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-parts-market/internal/domain"
	"github.com/tbourn/go-parts-market/internal/utils"
)

// ForceMatchRequest selects the offer an admin matches a request to.
type ForceMatchRequest struct {
	OfferID string `json:"offer_id" binding:"required"`
}

// FailUnlockRequest carries an optional failure reason.
type FailUnlockRequest struct {
	Reason string `json:"reason" example:"chargeback"`
}

// AuditResponse lists audit entries, oldest first.
type AuditResponse struct {
	Entries []domain.AuditEntry `json:"entries"`
}

// ForceMatch godoc
// @ID          forceMatch
// @Summary     Match a request to an offer as an operator
// @Description Follows the same rules as a buyer accept: exactly one offer ends accepted.
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Admin"
// @Param       id         path    string  true  "Request ID (UUID)"  format(uuid)
// @Param       body       body    handlers.ForceMatchRequest  true  "Offer to match"
//
// @Success     200  {object} handlers.StatusResponse
// @Failure     403  {object} handlers.ErrorResponse "Not an admin"
// @Failure     404  {object} handlers.ErrorResponse "Request or offer not found"
// @Failure     409  {object} handlers.ErrorResponse "Already matched"
// @Failure     422  {object} handlers.ErrorResponse "Offer belongs to another request"
// @Router      /admin/requests/{id}/force-match [post]
func (h *Handlers) ForceMatch(c *gin.Context) {
	uid, okUser := currentUser(c)
	if !okUser {
		return
	}
	var req ForceMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "offer_id is required")
		return
	}
	id := c.Param("id")
	if err := h.svc.Admin.ForceMatch(c.Request.Context(), id, req.OfferID, uid); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, StatusResponse{ID: id, Status: "matched"})
}

// ForceComplete godoc
// @ID          forceComplete
// @Summary     Complete a matched request as an operator
// @Tags        Admin
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Admin"
// @Param       id         path    string  true  "Request ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.StatusResponse
// @Failure     404  {object} handlers.ErrorResponse "Request not found"
// @Failure     409  {object} handlers.ErrorResponse "Request not matched"
// @Router      /admin/requests/{id}/force-complete [post]
func (h *Handlers) ForceComplete(c *gin.Context) {
	uid, okUser := currentUser(c)
	if !okUser {
		return
	}
	id := c.Param("id")
	if err := h.svc.Admin.ForceComplete(c.Request.Context(), id, uid); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, StatusResponse{ID: id, Status: "completed"})
}

// AdminFailUnlock godoc
// @ID          adminFailUnlock
// @Summary     Fail an initiated unlock as an operator
// @Description Confirmed unlocks cannot be failed.
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Admin"
// @Param       id         path    string  true  "Transaction ID (UUID)"  format(uuid)
// @Param       body       body    handlers.FailUnlockRequest  false  "Reason"
//
// @Success     200  {object} handlers.StatusResponse
// @Failure     404  {object} handlers.ErrorResponse "Transaction not found"
// @Failure     409  {object} handlers.ErrorResponse "Already confirmed"
// @Router      /admin/unlocks/{id}/fail [post]
func (h *Handlers) AdminFailUnlock(c *gin.Context) {
	uid, okUser := currentUser(c)
	if !okUser {
		return
	}
	var req FailUnlockRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
	}
	id := c.Param("id")
	if err := h.svc.Admin.FailUnlock(c.Request.Context(), id, uid, req.Reason); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, StatusResponse{ID: id, Status: "failed"})
}

// ListAudit godoc
// @ID          listAudit
// @Summary     Audit trail for a subject
// @Tags        Admin
// @Produce     json
//
// @Param       X-User-ID     header  string  true  "Admin"
// @Param       subject_type  query   string  true  "request, offer, unlock or rating"
// @Param       subject_id    query   string  true  "Subject ID"
// @Param       limit         query   int     false "Max entries" minimum(1) maximum(500) default(100)
//
// @Success     200  {object} handlers.AuditResponse
// @Failure     400  {object} handlers.ErrorResponse "Missing subject"
// @Router      /admin/audit [get]
func (h *Handlers) ListAudit(c *gin.Context) {
	subjectType, subjectID := c.Query("subject_type"), c.Query("subject_id")
	if subjectType == "" || subjectID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "subject_type and subject_id are required")
		return
	}
	entries, err := h.svc.Admin.Audit(c.Request.Context(), subjectType, subjectID, utils.AtoiDefault(c.Query("limit"), 0))
	if err != nil {
		failErr(c, err)
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	ok(c, http.StatusOK, AuditResponse{Entries: entries})
}
