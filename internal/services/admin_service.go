package services

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-parts-market/internal/domain"
	"github.com/tbourn/go-parts-market/internal/repo"
)

// AdminService performs operator overrides. It goes through the same
// primitives as the user-facing services, so the lifecycle rules hold for
// admins too; only the participant checks are skipped. Callers are
// responsible for establishing that the actor is an admin.
type AdminService struct {
	DB       *gorm.DB
	Requests *RequestService
	Offers   *OfferService
	Unlocks  *UnlockService
}

// NewAdminService wires an AdminService over the given services.
func NewAdminService(db *gorm.DB, requests *RequestService, offers *OfferService, unlocks *UnlockService) *AdminService {
	return &AdminService{DB: db, Requests: requests, Offers: offers, Unlocks: unlocks}
}

// ForceMatch matches offerID to requestID as if the buyer had accepted it.
func (s *AdminService) ForceMatch(ctx context.Context, requestID, offerID, adminID string) (err error) {
	ctx, span := otel.Tracer("services/AdminService").Start(ctx, "ForceMatch",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.String("offer.id", offerID),
			attribute.String("admin.id", adminID),
		))
	defer span.End()
	defer func() { err = spanErr(span, err) }()

	if _, err := repo.GetRequest(ctx, s.DB, requestID); err != nil {
		return notFound(err, ErrRequestNotFound)
	}
	o, err := s.Offers.Get(ctx, offerID)
	if err != nil {
		return err
	}
	if o.RequestID != requestID {
		return ErrOfferNotForThisRequest
	}
	return s.Offers.matchOffer(ctx, requestID, offerID, actor{adminID, RoleAdmin})
}

// ForceComplete completes a matched request without a participant check.
func (s *AdminService) ForceComplete(ctx context.Context, requestID, adminID string) (err error) {
	ctx, span := otel.Tracer("services/AdminService").Start(ctx, "ForceComplete",
		trace.WithAttributes(attribute.String("request.id", requestID), attribute.String("admin.id", adminID)))
	defer span.End()
	defer func() { err = spanErr(span, err) }()

	return s.Requests.complete(ctx, requestID, actor{adminID, RoleAdmin})
}

// FailUnlock fails an initiated unlock transaction on behalf of an admin.
func (s *AdminService) FailUnlock(ctx context.Context, transactionID, adminID, reason string) (err error) {
	ctx, span := otel.Tracer("services/AdminService").Start(ctx, "FailUnlock",
		trace.WithAttributes(attribute.String("unlock.id", transactionID), attribute.String("admin.id", adminID)))
	defer span.End()
	defer func() { err = spanErr(span, err) }()

	if reason == "" {
		reason = "failed by admin"
	}
	return s.Unlocks.fail(ctx, transactionID, reason, actor{adminID, RoleAdmin})
}

// Audit lists audit entries for a subject, oldest first.
func (s *AdminService) Audit(ctx context.Context, subjectType, subjectID string, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return repo.ListAuditEntries(ctx, s.DB, subjectType, subjectID, limit)
}
