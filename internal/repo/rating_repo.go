// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for ratings and
// the derived "ratings owed" query.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-parts-market/internal/domain"
)

// PendingRatingRow is an accepted offer on a completed request that the
// buyer has not rated yet.
type PendingRatingRow struct {
	OfferID   string
	RequestID string
	SellerID  string
}

// RatingSummary aggregates a seller's ratings.
type RatingSummary struct {
	Count   int64
	Average float64
}

// CreateRating inserts r and returns ErrDuplicate if the offer is already
// rated.
func CreateRating(ctx context.Context, db *gorm.DB, r *domain.Rating) error {
	if err := db.WithContext(ctx).Omit(clause.Associations).Create(r).Error; err != nil {
		if IsDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetRatingByOffer fetches the rating for offerID, or ErrNotFound.
func GetRatingByOffer(ctx context.Context, db *gorm.DB, offerID string) (*domain.Rating, error) {
	var r domain.Rating
	if err := db.WithContext(ctx).Where("offer_id = ?", offerID).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// ListPendingRatings derives the ratings buyerID still owes: accepted offers
// on the buyer's completed requests with no rating row. Nothing is stored;
// the set shrinks as ratings are written.
func ListPendingRatings(ctx context.Context, db *gorm.DB, buyerID string) ([]PendingRatingRow, error) {
	var out []PendingRatingRow
	err := db.WithContext(ctx).
		Table("offers AS o").
		Select("o.id AS offer_id, o.request_id AS request_id, o.seller_id AS seller_id").
		Joins("JOIN part_requests r ON r.id = o.request_id").
		Joins("LEFT JOIN ratings rt ON rt.offer_id = o.id").
		Where("r.buyer_id = ? AND r.status = ? AND o.status = ? AND rt.id IS NULL",
			buyerID, domain.RequestCompleted, domain.OfferAccepted).
		Order("r.updated_at desc, o.id asc").
		Scan(&out).Error
	return out, err
}

// SellerRatingSummary returns the count and mean score of sellerID's ratings.
func SellerRatingSummary(ctx context.Context, db *gorm.DB, sellerID string) (RatingSummary, error) {
	var s RatingSummary
	err := db.WithContext(ctx).
		Model(&domain.Rating{}).
		Select("COUNT(*) AS count, COALESCE(AVG(score), 0) AS average").
		Where("seller_id = ?", sellerID).
		Scan(&s).Error
	return s, err
}
