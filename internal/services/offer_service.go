package services

import (
	"context"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-parts-market/internal/domain"
	"github.com/tbourn/go-parts-market/internal/events"
	"github.com/tbourn/go-parts-market/internal/repo"
)

// OfferInput is a seller's priced response to a request.
type OfferInput struct {
	Price           float64
	Currency        string
	Message         string
	ContactPhone    string
	ContactLocation string
}

// OfferService manages offers and their arbitration. Accepting an offer and
// an admin force-match share one primitive, matchOffer, so there is exactly
// one code path that can move a request to matched.
type OfferService struct {
	DB     *gorm.DB
	Events events.Publisher

	// DefaultCurrency is used when an offer omits its currency.
	DefaultCurrency string
	// MaxMessageRunes caps the offer message. Zero disables the cap.
	MaxMessageRunes int
}

// NewOfferService constructs an OfferService.
func NewOfferService(db *gorm.DB, pub events.Publisher, defaultCurrency string) *OfferService {
	return &OfferService{DB: db, Events: pub, DefaultCurrency: defaultCurrency, MaxMessageRunes: 2000}
}

// Submit records a pending offer from sellerID on a pending request.
//
// The transaction opens with a guarded write to the parent request, so an
// offer can never be inserted after a concurrent acceptance or cancellation
// has moved the request out of pending.
func (s *OfferService) Submit(ctx context.Context, requestID, sellerID string, in OfferInput) (_ *domain.Offer, err error) {
	ctx, span := otel.Tracer("services/OfferService").Start(ctx, "Submit",
		trace.WithAttributes(attribute.String("request.id", requestID), attribute.String("seller.id", sellerID)))
	defer span.End()
	defer func() { err = spanErr(span, err) }()

	in, err = s.normalize(in)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(sellerID) == "" {
		return nil, ErrNotAuthorized
	}

	r, err := repo.GetRequest(ctx, s.DB, requestID)
	if err != nil {
		return nil, notFound(err, ErrRequestNotFound)
	}
	if r.BuyerID == sellerID {
		return nil, ErrNotAuthorized
	}

	now := time.Now().UTC()
	o := &domain.Offer{
		ID:              uuid.NewString(),
		RequestID:       requestID,
		SellerID:        sellerID,
		Price:           in.Price,
		Currency:        in.Currency,
		Message:         in.Message,
		ContactPhone:    in.ContactPhone,
		ContactLocation: in.ContactLocation,
		Status:          domain.OfferPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	t := transition{
		Actor: actor{sellerID, RoleSeller}, Action: "offer.submit",
		SubjectType: SubjectOffer, SubjectID: o.ID, To: string(domain.OfferPending),
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := repo.LockPendingRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrRequestNotOpen
		}
		if err := repo.CreateOffer(ctx, tx, o); err != nil {
			return err
		}
		return record(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}

	logCommitted(t)
	publish(ctx, s.Events, newEvent(events.OfferSubmitted, requestID, o.ID, t.Actor, map[string]string{
		"request_id": requestID,
	}))
	return o, nil
}

// Get returns an offer by id.
func (s *OfferService) Get(ctx context.Context, offerID string) (*domain.Offer, error) {
	o, err := repo.GetOffer(ctx, s.DB, offerID)
	if err != nil {
		return nil, notFound(err, ErrOfferNotFound)
	}
	return o, nil
}

// ListForRequest returns the offers on a request visible to viewerID. The
// buyer sees every offer; anyone else sees only the offers they submitted.
func (s *OfferService) ListForRequest(ctx context.Context, requestID, viewerID string) ([]domain.Offer, *domain.PartRequest, error) {
	r, err := repo.GetRequest(ctx, s.DB, requestID)
	if err != nil {
		return nil, nil, notFound(err, ErrRequestNotFound)
	}
	if viewerID == "" {
		return nil, nil, ErrNotAuthorized
	}
	seller := viewerID
	if r.BuyerID == viewerID {
		seller = ""
	}
	offers, err := repo.ListOffersByRequest(ctx, s.DB, requestID, seller)
	if err != nil {
		return nil, nil, err
	}
	return offers, r, nil
}

// Stats returns the offer count and latest update time of a request, for
// ETags.
func (s *OfferService) Stats(ctx context.Context, requestID string) (int64, *time.Time, error) {
	return repo.OffersStats(ctx, s.DB, requestID)
}

// Accept accepts offerID on behalf of the request's buyer. Exactly one of any
// number of concurrent acceptances on the same request succeeds; every other
// caller receives ErrAlreadyMatched.
func (s *OfferService) Accept(ctx context.Context, offerID, actorID string) (err error) {
	ctx, span := otel.Tracer("services/OfferService").Start(ctx, "Accept",
		trace.WithAttributes(attribute.String("offer.id", offerID), attribute.String("actor.id", actorID)))
	defer span.End()
	defer func() { err = spanErr(span, err) }()

	o, err := s.Get(ctx, offerID)
	if err != nil {
		return err
	}
	r, err := repo.GetRequest(ctx, s.DB, o.RequestID)
	if err != nil {
		return notFound(err, ErrRequestNotFound)
	}
	if actorID == "" || r.BuyerID != actorID {
		return ErrNotAuthorized
	}
	return s.matchOffer(ctx, o.RequestID, offerID, actor{actorID, RoleBuyer})
}

// matchOffer atomically moves the request to matched with offerID as its
// accepted offer and rejects every other pending offer on it.
//
// The first statement is the guarded pending → matched UPDATE on the
// request. Whoever changes that row wins; the offer update and sibling
// rejection only run for the winner. The unique index on accepted offers
// backs this up at the schema level.
func (s *OfferService) matchOffer(ctx context.Context, requestID, offerID string, a actor) error {
	var committed []transition
	var rejected int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		committed = committed[:0]
		ok, err := repo.TransitionRequest(ctx, tx, requestID,
			[]domain.RequestStatus{domain.RequestPending}, domain.RequestMatched,
			map[string]any{"matched_offer_id": offerID})
		if err != nil {
			return err
		}
		if !ok {
			cur, err := repo.GetRequest(ctx, tx, requestID)
			if err != nil {
				return notFound(err, ErrRequestNotFound)
			}
			switch cur.Status {
			case domain.RequestMatched, domain.RequestCompleted:
				return ErrAlreadyMatched
			default:
				return ErrRequestNotOpen
			}
		}

		ok, err = repo.TransitionOffer(ctx, tx, offerID, domain.OfferPending, domain.OfferAccepted)
		if err != nil {
			return err
		}
		if !ok {
			return ErrOfferNotPending
		}

		rejected, err = repo.RejectOffers(ctx, tx, requestID, offerID, domain.OfferPending)
		if err != nil {
			return err
		}

		detail := ""
		if a.Role == RoleAdmin {
			detail = "force-match"
		}
		committed = append(committed,
			transition{Actor: a, Action: "request.match", SubjectType: SubjectRequest, SubjectID: requestID,
				From: string(domain.RequestPending), To: string(domain.RequestMatched), Detail: detail},
			transition{Actor: a, Action: "offer.accept", SubjectType: SubjectOffer, SubjectID: offerID,
				From: string(domain.OfferPending), To: string(domain.OfferAccepted), Detail: detail},
		)
		for _, t := range committed {
			if err := record(ctx, tx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if repo.IsDuplicate(err) {
		err = ErrAlreadyMatched
	}
	if err != nil {
		if errors.Is(err, ErrAlreadyMatched) {
			acceptConflictsTotal.Inc()
		}
		return err
	}

	logCommitted(committed...)
	attrs := map[string]string{"offer_id": offerID, "rejected_siblings": strconv.FormatInt(rejected, 10)}
	publish(ctx, s.Events,
		newEvent(events.OfferAccepted, requestID, offerID, a, attrs),
		newEvent(events.RequestMatched, requestID, requestID, a, attrs),
	)
	return nil
}

// Reject moves a pending offer to rejected. The request's buyer or the
// offer's seller may reject; the request stays open.
func (s *OfferService) Reject(ctx context.Context, offerID, actorID string) (err error) {
	ctx, span := otel.Tracer("services/OfferService").Start(ctx, "Reject",
		trace.WithAttributes(attribute.String("offer.id", offerID), attribute.String("actor.id", actorID)))
	defer span.End()
	defer func() { err = spanErr(span, err) }()

	o, err := s.Get(ctx, offerID)
	if err != nil {
		return err
	}
	r, err := repo.GetRequest(ctx, s.DB, o.RequestID)
	if err != nil {
		return notFound(err, ErrRequestNotFound)
	}
	var a actor
	switch {
	case actorID == "":
		return ErrNotAuthorized
	case actorID == r.BuyerID:
		a = actor{actorID, RoleBuyer}
	case actorID == o.SellerID:
		a = actor{actorID, RoleSeller}
	default:
		return ErrNotAuthorized
	}

	t := transition{
		Actor: a, Action: "offer.reject", SubjectType: SubjectOffer, SubjectID: offerID,
		From: string(domain.OfferPending), To: string(domain.OfferRejected),
	}
	noop := false
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := repo.TransitionOffer(ctx, tx, offerID, domain.OfferPending, domain.OfferRejected)
		if err != nil {
			return err
		}
		if !ok {
			cur, err := repo.GetOffer(ctx, tx, offerID)
			if err != nil {
				return notFound(err, ErrOfferNotFound)
			}
			if cur.Status == domain.OfferRejected {
				noop = true
				return nil
			}
			return ErrInvalidState
		}
		return record(ctx, tx, t)
	})
	if err != nil || noop {
		return err
	}

	logCommitted(t)
	publish(ctx, s.Events, newEvent(events.OfferRejected, o.RequestID, offerID, a, nil))
	return nil
}

func (s *OfferService) normalize(in OfferInput) (OfferInput, error) {
	if math.IsNaN(in.Price) || math.IsInf(in.Price, 0) || in.Price <= 0 {
		return in, ErrInvalidOffer
	}
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = strings.ToUpper(s.DefaultCurrency)
	}
	if !currencyRE.MatchString(in.Currency) {
		return in, ErrInvalidOffer
	}
	in.Message = strings.TrimSpace(in.Message)
	if s.MaxMessageRunes > 0 && utf8.RuneCountInString(in.Message) > s.MaxMessageRunes {
		return in, ErrInvalidOffer
	}
	in.ContactPhone = strings.TrimSpace(in.ContactPhone)
	if in.ContactPhone != "" && !phoneRE.MatchString(in.ContactPhone) {
		return in, ErrInvalidOffer
	}
	in.ContactLocation = collapse(in.ContactLocation)
	return in, nil
}

var currencyRE = regexp.MustCompile(`^[A-Z]{3}$`)
