// Package services – RequestService
//
// This file implements the RequestService, which owns the PartRequest
// lifecycle: creation, completion, cancellation, and reads. Status only moves
// forward (pending → matched → completed, or pending/matched → cancelled).
//
// Every mutation is a guarded UPDATE issued as the first statement of its
// transaction. The guard carries the expected current status, so the row
// count alone decides whether the caller won; a follow-up read inside the
// same transaction only classifies the losing case into the right error.
// Immutable fields (buyer, matched offer of a matched request) are read
// before the transaction for authorization.
package services

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-parts-market/internal/domain"
	"github.com/tbourn/go-parts-market/internal/events"
	"github.com/tbourn/go-parts-market/internal/repo"
)

// RequestDetails is the buyer-supplied description of a needed part.
type RequestDetails struct {
	VehicleMake  string
	VehicleModel string
	VehicleYear  int
	PartNeeded   string
	Location     string
	Phone        string
}

// RequestFilter selects requests for listing. Mine lists the viewer's own
// requests; otherwise open (pending) requests from every buyer are listed.
type RequestFilter struct {
	ViewerID string
	Mine     bool
}

func (f RequestFilter) repoFilter() repo.RequestFilter {
	if f.Mine {
		return repo.RequestFilter{BuyerID: f.ViewerID}
	}
	return repo.RequestFilter{Status: domain.RequestPending}
}

// RequestService manages part requests.
type RequestService struct {
	DB     *gorm.DB
	Events events.Publisher

	// MaxTextRunes caps free-text fields. Zero disables the cap.
	MaxTextRunes int
	// Now is the clock used for year validation and timestamps.
	Now func() time.Time
}

// NewRequestService constructs a RequestService with default limits.
func NewRequestService(db *gorm.DB, pub events.Publisher) *RequestService {
	return &RequestService{DB: db, Events: pub, MaxTextRunes: 255, Now: time.Now}
}

func (s *RequestService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Create validates d and stores a new pending request owned by buyerID.
func (s *RequestService) Create(ctx context.Context, buyerID string, d RequestDetails) (_ *domain.PartRequest, err error) {
	ctx, span := otel.Tracer("services/RequestService").Start(ctx, "Create",
		trace.WithAttributes(attribute.String("buyer.id", buyerID)))
	defer span.End()
	defer func() { err = spanErr(span, err) }()

	d, err = s.normalize(d)
	if err != nil {
		return nil, err
	}
	buyerID = strings.TrimSpace(buyerID)
	if buyerID == "" {
		return nil, ErrInvalidRequest
	}

	now := s.now()
	r := &domain.PartRequest{
		ID:           uuid.NewString(),
		BuyerID:      buyerID,
		VehicleMake:  d.VehicleMake,
		VehicleModel: d.VehicleModel,
		VehicleYear:  d.VehicleYear,
		PartNeeded:   d.PartNeeded,
		Location:     d.Location,
		Phone:        d.Phone,
		Status:       domain.RequestPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	t := transition{
		Actor: actor{buyerID, RoleBuyer}, Action: "request.create",
		SubjectType: SubjectRequest, SubjectID: r.ID, To: string(domain.RequestPending),
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.CreateRequest(ctx, tx, r); err != nil {
			return err
		}
		return record(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}

	logCommitted(t)
	publish(ctx, s.Events, newEvent(events.RequestCreated, r.ID, r.ID, t.Actor, map[string]string{
		"vehicle_make": r.VehicleMake, "vehicle_model": r.VehicleModel, "part_needed": r.PartNeeded,
	}))
	return r, nil
}

// Get returns a request by id.
func (s *RequestService) Get(ctx context.Context, requestID string) (*domain.PartRequest, error) {
	r, err := repo.GetRequest(ctx, s.DB, requestID)
	if err != nil {
		return nil, notFound(err, ErrRequestNotFound)
	}
	return r, nil
}

// ListPage returns a page of requests for f with the total count. Invalid
// page arguments fall back to page 1 of 20.
func (s *RequestService) ListPage(ctx context.Context, f RequestFilter, page, pageSize int) ([]domain.PartRequest, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	rf := f.repoFilter()

	total, err := repo.CountRequests(ctx, s.DB, rf)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.PartRequest{}, 0, nil
	}
	items, err := repo.ListRequestsPage(ctx, s.DB, rf, (page-1)*pageSize, pageSize)
	return items, total, err
}

// Stats returns the row count and latest update time for f, for ETags.
func (s *RequestService) Stats(ctx context.Context, f RequestFilter) (int64, *time.Time, error) {
	return repo.RequestsStats(ctx, s.DB, f.repoFilter())
}

// IsParticipant reports whether viewerID is the buyer of r or the seller of
// its matched offer. Only participants may see the buyer's phone.
func (s *RequestService) IsParticipant(ctx context.Context, r *domain.PartRequest, viewerID string) (bool, error) {
	if viewerID == "" {
		return false, nil
	}
	if r.BuyerID == viewerID {
		return true, nil
	}
	if r.MatchedOfferID == nil {
		return false, nil
	}
	o, err := repo.GetOffer(ctx, s.DB, *r.MatchedOfferID)
	if err != nil {
		return false, notFound(err, nil)
	}
	return o.SellerID == viewerID, nil
}

// Complete moves a matched request to completed. The actor must be the
// buyer or the seller of the accepted offer.
func (s *RequestService) Complete(ctx context.Context, requestID, actorID string) (err error) {
	ctx, span := otel.Tracer("services/RequestService").Start(ctx, "Complete",
		trace.WithAttributes(attribute.String("request.id", requestID), attribute.String("actor.id", actorID)))
	defer span.End()
	defer func() { err = spanErr(span, err) }()

	r, err := s.Get(ctx, requestID)
	if err != nil {
		return err
	}
	a := actor{ID: actorID}
	switch {
	case actorID != "" && actorID == r.BuyerID:
		a.Role = RoleBuyer
	default:
		if ok, err := s.IsParticipant(ctx, r, actorID); err != nil {
			return err
		} else if !ok {
			return ErrNotAuthorized
		}
		a.Role = RoleSeller
	}
	return s.complete(ctx, requestID, a)
}

// complete is shared by Complete and AdminService.ForceComplete.
func (s *RequestService) complete(ctx context.Context, requestID string, a actor) error {
	now := s.now()
	t := transition{
		Actor: a, Action: "request.complete", SubjectType: SubjectRequest, SubjectID: requestID,
		From: string(domain.RequestMatched), To: string(domain.RequestCompleted),
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := repo.TransitionRequest(ctx, tx, requestID,
			[]domain.RequestStatus{domain.RequestMatched}, domain.RequestCompleted,
			map[string]any{"completed_by": a.ID, "completed_at": now})
		if err != nil {
			return err
		}
		if !ok {
			if _, err := repo.GetRequest(ctx, tx, requestID); err != nil {
				return notFound(err, ErrRequestNotFound)
			}
			return ErrNotMatched
		}
		return record(ctx, tx, t)
	})
	if err != nil {
		return err
	}
	logCommitted(t)
	publish(ctx, s.Events, newEvent(events.RequestCompleted, requestID, requestID, a, nil))
	return nil
}

// Cancel moves a pending or matched request to cancelled. Only the buyer may
// cancel. Cancelling from matched reverts the accepted offer to rejected, and
// any still-pending offers are rejected as the request is closed. Cancelling
// an already-cancelled request is a no-op; a completed request cannot be
// cancelled.
func (s *RequestService) Cancel(ctx context.Context, requestID, actorID string) (err error) {
	ctx, span := otel.Tracer("services/RequestService").Start(ctx, "Cancel",
		trace.WithAttributes(attribute.String("request.id", requestID), attribute.String("actor.id", actorID)))
	defer span.End()
	defer func() { err = spanErr(span, err) }()

	r, err := s.Get(ctx, requestID)
	if err != nil {
		return err
	}
	if actorID == "" || actorID != r.BuyerID {
		return ErrNotAuthorized
	}
	a := actor{actorID, RoleBuyer}

	var committed []transition
	noop := false
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		committed = committed[:0]

		from := domain.RequestMatched
		ok, err := repo.TransitionRequest(ctx, tx, requestID, []domain.RequestStatus{domain.RequestMatched}, domain.RequestCancelled, nil)
		if err != nil {
			return err
		}
		if !ok {
			from = domain.RequestPending
			ok, err = repo.TransitionRequest(ctx, tx, requestID, []domain.RequestStatus{domain.RequestPending}, domain.RequestCancelled, nil)
			if err != nil {
				return err
			}
		}
		cur, err := repo.GetRequest(ctx, tx, requestID)
		if err != nil {
			return notFound(err, ErrRequestNotFound)
		}
		if !ok {
			if cur.Status == domain.RequestCancelled {
				noop = true
				return nil
			}
			return ErrInvalidState
		}

		rt := transition{
			Actor: a, Action: "request.cancel", SubjectType: SubjectRequest, SubjectID: requestID,
			From: string(from), To: string(domain.RequestCancelled),
		}
		if err := record(ctx, tx, rt); err != nil {
			return err
		}
		committed = append(committed, rt)

		if from == domain.RequestMatched && cur.MatchedOfferID != nil {
			offerID := *cur.MatchedOfferID
			if err := repo.ClearMatchedOffer(ctx, tx, requestID); err != nil {
				return err
			}
			ok, err := repo.TransitionOffer(ctx, tx, offerID, domain.OfferAccepted, domain.OfferRejected)
			if err != nil {
				return err
			}
			if ok {
				ot := transition{
					Actor: a, Action: "offer.revert", SubjectType: SubjectOffer, SubjectID: offerID,
					From: string(domain.OfferAccepted), To: string(domain.OfferRejected), Detail: "request cancelled",
				}
				if err := record(ctx, tx, ot); err != nil {
					return err
				}
				committed = append(committed, ot)
			}
		}
		_, err = repo.RejectOffers(ctx, tx, requestID, "", domain.OfferPending)
		return err
	})
	if err != nil || noop {
		return err
	}

	logCommitted(committed...)
	evs := []events.Event{newEvent(events.RequestCancelled, requestID, requestID, a, map[string]string{"from": committed[0].From})}
	if len(committed) > 1 {
		evs = append(evs, newEvent(events.OfferRejected, requestID, committed[1].SubjectID, a, map[string]string{"reason": "request cancelled"}))
	}
	publish(ctx, s.Events, evs...)
	return nil
}

// normalize trims and validates d. Vehicle make and model are title-cased
// without lowering existing capitals ("bmw x5" → "Bmw X5", "BMW" stays).
func (s *RequestService) normalize(d RequestDetails) (RequestDetails, error) {
	d.VehicleMake = titleCase(collapse(d.VehicleMake))
	d.VehicleModel = titleCase(collapse(d.VehicleModel))
	d.PartNeeded = collapse(d.PartNeeded)
	d.Location = collapse(d.Location)
	d.Phone = strings.TrimSpace(d.Phone)

	if d.VehicleMake == "" || d.VehicleModel == "" || d.PartNeeded == "" {
		return d, ErrInvalidRequest
	}
	maxYear := s.now().Year() + 1
	if d.VehicleYear < 1900 || d.VehicleYear > maxYear {
		return d, ErrInvalidRequest
	}
	if s.MaxTextRunes > 0 {
		for _, f := range []string{d.VehicleMake, d.VehicleModel, d.PartNeeded, d.Location} {
			if utf8.RuneCountInString(f) > s.MaxTextRunes {
				return d, ErrInvalidRequest
			}
		}
	}
	if d.Phone != "" && !phoneRE.MatchString(d.Phone) {
		return d, ErrInvalidRequest
	}
	return d, nil
}

func titleCase(s string) string {
	return cases.Title(language.Und, cases.NoLower).String(s)
}

// collapse trims whitespace and collapses runs of it to one space.
func collapse(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

var (
	whitespaceRE = regexp.MustCompile(`\s+`)
	phoneRE      = regexp.MustCompile(`^\+?[0-9][0-9 \-]{5,20}$`)
)
