// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Offer model.
package repo

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-parts-market/internal/domain"
)

// CreateOffer inserts o. ID and timestamps must already be set.
func CreateOffer(ctx context.Context, db *gorm.DB, o *domain.Offer) error {
	return db.WithContext(ctx).Omit(clause.Associations).Create(o).Error
}

// GetOffer fetches an offer by id, or ErrNotFound.
func GetOffer(ctx context.Context, db *gorm.DB, id string) (*domain.Offer, error) {
	var o domain.Offer
	if err := db.WithContext(ctx).Where("id = ?", id).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOffersByRequest returns the offers on a request in submission order.
// A non-empty sellerID limits the result to that seller's offers.
func ListOffersByRequest(ctx context.Context, db *gorm.DB, requestID, sellerID string) ([]domain.Offer, error) {
	var out []domain.Offer
	q := db.WithContext(ctx).Where("request_id = ?", requestID)
	if sellerID != "" {
		q = q.Where("seller_id = ?", sellerID)
	}
	err := q.Order("created_at asc, id asc").Find(&out).Error
	return out, err
}

// TransitionOffer moves offer id from status `from` to `to` and reports
// whether a row changed. Pairs OfferStatus.CanTransition refuses return
// ErrInvalidTransition.
func TransitionOffer(ctx context.Context, db *gorm.DB, id string, from, to domain.OfferStatus) (bool, error) {
	if !from.CanTransition(to) {
		return false, fmt.Errorf("%w: offer %s -> %s", ErrInvalidTransition, from, to)
	}
	res := db.WithContext(ctx).
		Model(&domain.Offer{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RejectOffers marks every offer on requestID whose status is in `from` as
// rejected, skipping exceptID when set. It returns the number of rows changed.
func RejectOffers(ctx context.Context, db *gorm.DB, requestID, exceptID string, from ...domain.OfferStatus) (int64, error) {
	for _, f := range from {
		if !f.CanTransition(domain.OfferRejected) {
			return 0, fmt.Errorf("%w: offer %s -> %s", ErrInvalidTransition, f, domain.OfferRejected)
		}
	}
	q := db.WithContext(ctx).
		Model(&domain.Offer{}).
		Where("request_id = ? AND status IN ?", requestID, from)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	res := q.Updates(map[string]any{"status": domain.OfferRejected, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

// MarkContactUnlocked sets contact_unlocked on offer id. The flag is never
// cleared.
func MarkContactUnlocked(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.Offer{}).
		Where("id = ?", id).
		Updates(map[string]any{"contact_unlocked": true, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
