// Package handlers exposes the marketplace lifecycle over REST.
//
// Handlers are transport-thin: they bind and validate input, resolve the
// acting user from the request, call application services with that actor
// passed explicitly, and translate results into HTTP responses. Contact
// details (buyer phone, seller phone and location) only leave this package
// through the view builders in views.go, which apply the visibility rules.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-parts-market/internal/domain"
	"github.com/tbourn/go-parts-market/internal/http/middleware"
	"github.com/tbourn/go-parts-market/internal/services"
	"github.com/tbourn/go-parts-market/internal/utils"
)

//
// Service contracts (context-aware)
//

// RequestService defines part request operations consumed by HTTP handlers.
type RequestService interface {
	Create(ctx context.Context, buyerID string, d services.RequestDetails) (*domain.PartRequest, error)
	Get(ctx context.Context, requestID string) (*domain.PartRequest, error)
	ListPage(ctx context.Context, f services.RequestFilter, page, pageSize int) ([]domain.PartRequest, int64, error)
	Stats(ctx context.Context, f services.RequestFilter) (int64, *time.Time, error)
	IsParticipant(ctx context.Context, r *domain.PartRequest, viewerID string) (bool, error)
	Complete(ctx context.Context, requestID, actorID string) error
	Cancel(ctx context.Context, requestID, actorID string) error
}

// OfferService defines offer operations consumed by HTTP handlers.
type OfferService interface {
	Submit(ctx context.Context, requestID, sellerID string, in services.OfferInput) (*domain.Offer, error)
	Get(ctx context.Context, offerID string) (*domain.Offer, error)
	ListForRequest(ctx context.Context, requestID, viewerID string) ([]domain.Offer, *domain.PartRequest, error)
	Stats(ctx context.Context, requestID string) (int64, *time.Time, error)
	Accept(ctx context.Context, offerID, actorID string) error
	Reject(ctx context.Context, offerID, actorID string) error
}

// UnlockService defines contact-unlock operations consumed by HTTP handlers.
type UnlockService interface {
	Initiate(ctx context.Context, offerID, payerID string, amount float64) (*domain.UnlockTransaction, error)
	Get(ctx context.Context, transactionID string) (*domain.UnlockTransaction, error)
	ConfirmByReference(ctx context.Context, handoffRef, providerRef string) error
	FailByReference(ctx context.Context, handoffRef, reason string) error
}

// RatingService defines rating operations consumed by HTTP handlers.
type RatingService interface {
	Pending(ctx context.Context, buyerID string) ([]services.PendingRating, error)
	Submit(ctx context.Context, offerID, raterID string, score int, comment string) (*domain.Rating, error)
	SellerSummary(ctx context.Context, sellerID string) (services.SellerSummary, error)
}

// AdminService defines operator overrides consumed by HTTP handlers.
type AdminService interface {
	ForceMatch(ctx context.Context, requestID, offerID, adminID string) error
	ForceComplete(ctx context.Context, requestID, adminID string) error
	FailUnlock(ctx context.Context, transactionID, adminID, reason string) error
	Audit(ctx context.Context, subjectType, subjectID string, limit int) ([]domain.AuditEntry, error)
}

// ChatThreadService resolves buyer/seller chat threads.
type ChatThreadService interface {
	Ensure(ctx context.Context, buyerID, sellerID string, partID *string) (*domain.ChatThread, error)
}

// IdempotencyStore claims Idempotency-Keys and records the resources they
// created.
type IdempotencyStore interface {
	Claim(ctx context.Context, userID, scope, key string) (services.ClaimState, string, error)
	Remember(ctx context.Context, userID, scope, key, resourceID string, status int) error
	Release(ctx context.Context, userID, scope, key string) error
}

//
// Handler wiring
//

// Services bundles the dependencies of Handlers. Idempotency may be nil, in
// which case Idempotency-Key headers are validated but not replayed.
type Services struct {
	Requests    RequestService
	Offers      OfferService
	Unlocks     UnlockService
	Ratings     RatingService
	Admin       AdminService
	Threads     ChatThreadService
	Idempotency IdempotencyStore
}

// Options carries transport-level settings.
type Options struct {
	// UnlockFee is charged when an unlock request omits the amount.
	UnlockFee float64
	// WebhookSecret verifies payment provider callbacks.
	WebhookSecret string
}

// Handlers groups HTTP endpoints for the marketplace.
type Handlers struct {
	svc  Services
	opts Options
}

// New constructs and returns a Handlers instance bound to the given services.
func New(svc Services, opts Options) *Handlers {
	return &Handlers{svc: svc, opts: opts}
}

// currentUser returns the acting user set by middleware.Identity, or aborts
// with 401 when the request carries no identity.
func currentUser(c *gin.Context) (string, bool) {
	uid := middleware.UserID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "X-User-ID required")
		return "", false
	}
	return uid, true
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	return utils.ClampPage(c.Query("page"), c.Query("page_size"), 20, 100)
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}
