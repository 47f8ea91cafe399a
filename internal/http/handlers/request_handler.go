// Part request HTTP handlers.
//
// This file exposes REST endpoints for part requests:
//   - POST /requests                (create; Idempotency-Key aware)
//   - GET  /requests                (list mine or open, paginated, ETag support)
//   - GET  /requests/{id}           (read; phone only for participants)
//   - POST /requests/{id}/complete  (buyer or accepted seller)
//   - POST /requests/{id}/cancel    (buyer)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-parts-market/internal/http/middleware"
	"github.com/tbourn/go-parts-market/internal/services"
)

//
// DTOs
//

// CreateRequestRequest is the JSON payload for posting a part request.
type CreateRequestRequest struct {
	VehicleMake  string `json:"vehicle_make"  binding:"required" example:"Toyota"`
	VehicleModel string `json:"vehicle_model" binding:"required" example:"Corolla"`
	VehicleYear  int    `json:"vehicle_year"  binding:"required" example:"2012"`
	PartNeeded   string `json:"part_needed"   binding:"required" example:"alternator"`
	Location     string `json:"location"      example:"Accra"`
	Phone        string `json:"phone"         example:"+233200000000"`
}

// ListRequestsResponse wraps a page of requests and pagination information.
type ListRequestsResponse struct {
	Requests   []RequestView `json:"requests"`
	Pagination Pagination    `json:"pagination"`
}

// StatusResponse acknowledges a state transition.
type StatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status" example:"ok"`
}

//
// Handlers
//

// CreateRequest godoc
// @ID          createRequest
// @Summary     Post a part request
// @Description Creates a pending request owned by the caller. Supports Idempotency-Key.
// @Tags        Requests
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  true  "Acting user"  example(buyer-42)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       body             body    handlers.CreateRequestRequest  true  "Request details"
//
// @Success     201  {object}  handlers.RequestView
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /requests [post]
func (h *Handlers) CreateRequest(c *gin.Context) {
	uid, okUser := currentUser(c)
	if !okUser {
		return
	}
	var req CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "vehicle_make, vehicle_model, vehicle_year and part_needed are required")
		return
	}

	ctx := c.Request.Context()
	if !h.claim(c, uid, func(id string) (any, error) {
		r, err := h.svc.Requests.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return requestView(r, true), nil
	}) {
		return
	}

	r, err := h.svc.Requests.Create(ctx, uid, services.RequestDetails{
		VehicleMake:  req.VehicleMake,
		VehicleModel: req.VehicleModel,
		VehicleYear:  req.VehicleYear,
		PartNeeded:   req.PartNeeded,
		Location:     req.Location,
		Phone:        req.Phone,
	})
	if err != nil {
		h.release(c, uid)
		failErr(c, err)
		return
	}
	h.remember(c, uid, r.ID)
	ok(c, http.StatusCreated, requestView(r, true))
}

// ListRequests godoc
// @ID          listRequests
// @Summary     List requests (paginated)
// @Description With mine=true lists the caller's own requests; otherwise lists open (pending) requests.
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        Requests
// @Produce     json
//
// @Param       X-User-ID      header  string  true  "Acting user"
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       mine           query   bool    false "Only the caller's requests"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListRequestsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Missing identity"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /requests [get]
func (h *Handlers) ListRequests(c *gin.Context) {
	uid, okUser := currentUser(c)
	if !okUser {
		return
	}
	ctx := c.Request.Context()
	f := services.RequestFilter{ViewerID: uid, Mine: c.Query("mine") == "true"}
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if count, maxTS, err := h.svc.Requests.Stats(ctx, f); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		scope := "open"
		if f.Mine {
			scope = "mine:" + uid
		}
		if notModified(c, weakETag("requests", scope, count, ts, page, pageSize)) {
			return
		}
	}

	items, total, err := h.svc.Requests.ListPage(ctx, f, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	views := make([]RequestView, 0, len(items))
	for i := range items {
		views = append(views, requestView(&items[i], items[i].BuyerID == uid))
	}
	ok(c, http.StatusOK, ListRequestsResponse{Requests: views, Pagination: newPagination(page, pageSize, total)})
}

// GetRequest godoc
// @ID          getRequest
// @Summary     Read a request
// @Description The buyer's phone is included only for the buyer and the seller of the accepted offer.
// @Tags        Requests
// @Produce     json
//
// @Param       X-User-ID  header  string  false "Acting user"
// @Param       id         path    string  true  "Request ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.RequestView
// @Failure     404  {object} handlers.ErrorResponse "Request not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /requests/{id} [get]
func (h *Handlers) GetRequest(c *gin.Context) {
	ctx := c.Request.Context()
	r, err := h.svc.Requests.Get(ctx, c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	show, err := h.svc.Requests.IsParticipant(ctx, r, middleware.UserID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, requestView(r, show))
}

// CompleteRequest godoc
// @ID          completeRequest
// @Summary     Complete a matched request
// @Tags        Requests
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Buyer or accepted seller"
// @Param       id         path    string  true  "Request ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.StatusResponse
// @Failure     403  {object} handlers.ErrorResponse "Not a participant"
// @Failure     404  {object} handlers.ErrorResponse "Request not found"
// @Failure     409  {object} handlers.ErrorResponse "Request not matched"
// @Router      /requests/{id}/complete [post]
func (h *Handlers) CompleteRequest(c *gin.Context) {
	uid, okUser := currentUser(c)
	if !okUser {
		return
	}
	id := c.Param("id")
	if err := h.svc.Requests.Complete(c.Request.Context(), id, uid); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, StatusResponse{ID: id, Status: "completed"})
}

// CancelRequest godoc
// @ID          cancelRequest
// @Summary     Cancel a request
// @Description Cancelling an already cancelled request succeeds without change; completed requests cannot be cancelled.
// @Tags        Requests
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Buyer"
// @Param       id         path    string  true  "Request ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.StatusResponse
// @Failure     403  {object} handlers.ErrorResponse "Not the buyer"
// @Failure     404  {object} handlers.ErrorResponse "Request not found"
// @Failure     409  {object} handlers.ErrorResponse "Request completed"
// @Router      /requests/{id}/cancel [post]
func (h *Handlers) CancelRequest(c *gin.Context) {
	uid, okUser := currentUser(c)
	if !okUser {
		return
	}
	id := c.Param("id")
	if err := h.svc.Requests.Cancel(c.Request.Context(), id, uid); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, StatusResponse{ID: id, Status: "cancelled"})
}
