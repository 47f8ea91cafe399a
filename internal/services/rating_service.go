package services

import (
	"context"
	"errors"
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

// maxCommentRunes caps rating comments.
const maxCommentRunes = 1000

// PendingRating is a rating the buyer still owes.
type PendingRating struct {
	OfferID   string `json:"offer_id"`
	RequestID string `json:"request_id"`
	SellerID  string `json:"seller_id"`
}

// SellerSummary aggregates a seller's ratings.
type SellerSummary struct {
	SellerID string  `json:"seller_id"`
	Count    int64   `json:"count"`
	Average  float64 `json:"average"`
}

// RatingService tracks the rating obligation created by completed requests
// and records ratings.
type RatingService struct {
	DB     *gorm.DB
	Events events.Publisher
}

// NewRatingService constructs a RatingService.
func NewRatingService(db *gorm.DB, pub events.Publisher) *RatingService {
	return &RatingService{DB: db, Events: pub}
}

// Pending lists the accepted offers on buyerID's completed requests that
// have no rating yet.
func (s *RatingService) Pending(ctx context.Context, buyerID string) ([]PendingRating, error) {
	rows, err := repo.ListPendingRatings(ctx, s.DB, buyerID)
	if err != nil {
		return nil, err
	}
	out := make([]PendingRating, 0, len(rows))
	for _, r := range rows {
		out = append(out, PendingRating{OfferID: r.OfferID, RequestID: r.RequestID, SellerID: r.SellerID})
	}
	return out, nil
}

// Submit records raterID's score for the seller of offerID. The rater must
// be the request's buyer, the request must be completed with offerID as its
// accepted offer, and an offer can be rated once.
func (s *RatingService) Submit(ctx context.Context, offerID, raterID string, score int, comment string) (_ *domain.Rating, err error) {
	ctx, span := otel.Tracer("services/RatingService").Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.String("offer.id", offerID),
			attribute.String("rater.id", raterID),
			attribute.Int("score", score),
		))
	defer span.End()
	defer func() { err = spanErr(span, err) }()

	if score < domain.MinScore || score > domain.MaxScore {
		return nil, ErrInvalidScore
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > maxCommentRunes {
		comment = string([]rune(comment)[:maxCommentRunes])
	}

	o, err := repo.GetOffer(ctx, s.DB, offerID)
	if err != nil {
		return nil, notFound(err, ErrOfferNotFound)
	}
	r, err := repo.GetRequest(ctx, s.DB, o.RequestID)
	if err != nil {
		return nil, notFound(err, ErrRequestNotFound)
	}
	if raterID == "" || raterID != r.BuyerID {
		return nil, ErrNotAuthorized
	}
	// completed and accepted are both terminal, so this check cannot go stale.
	if r.Status != domain.RequestCompleted || o.Status != domain.OfferAccepted {
		return nil, ErrRequestNotCompleted
	}

	rt := &domain.Rating{
		ID:        uuid.NewString(),
		OfferID:   offerID,
		RequestID: r.ID,
		RaterID:   raterID,
		SellerID:  o.SellerID,
		Score:     score,
		Comment:   comment,
		CreatedAt: time.Now().UTC(),
	}
	t := transition{
		Actor: actor{raterID, RoleBuyer}, Action: "rating.submit", SubjectType: SubjectRating, SubjectID: rt.ID,
		Detail: "offer " + offerID,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.CreateRating(ctx, tx, rt); err != nil {
			return err
		}
		return record(ctx, tx, t)
	})
	if errors.Is(err, repo.ErrDuplicate) {
		return nil, ErrAlreadyRated
	}
	if err != nil {
		return nil, err
	}

	logCommitted(t)
	publish(ctx, s.Events, newEvent(events.RatingSubmitted, r.ID, rt.ID, t.Actor, map[string]string{
		"offer_id": offerID, "seller_id": o.SellerID,
	}))
	return rt, nil
}

// SellerSummary returns the count and average score of sellerID's ratings.
func (s *RatingService) SellerSummary(ctx context.Context, sellerID string) (SellerSummary, error) {
	sum, err := repo.SellerRatingSummary(ctx, s.DB, sellerID)
	if err != nil {
		return SellerSummary{}, err
	}
	return SellerSummary{SellerID: sellerID, Count: sum.Count, Average: sum.Average}, nil
}
