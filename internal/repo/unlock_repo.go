// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for contact-unlock
// payment transactions.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-parts-market/internal/domain"
)

// CreateUnlock inserts u.
func CreateUnlock(ctx context.Context, db *gorm.DB, u *domain.UnlockTransaction) error {
	return db.WithContext(ctx).Omit(clause.Associations).Create(u).Error
}

// GetUnlock fetches a transaction by id, or ErrNotFound.
func GetUnlock(ctx context.Context, db *gorm.DB, id string) (*domain.UnlockTransaction, error) {
	var u domain.UnlockTransaction
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUnlockByHandoffRef fetches a transaction by the reference handed to the
// payment provider, or ErrNotFound.
func GetUnlockByHandoffRef(ctx context.Context, db *gorm.DB, ref string) (*domain.UnlockTransaction, error) {
	var u domain.UnlockTransaction
	if err := db.WithContext(ctx).Where("handoff_ref = ?", ref).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// SetCheckoutURL records the provider's checkout URL on an initiated
// transaction.
func SetCheckoutURL(ctx context.Context, db *gorm.DB, id, url string) error {
	return db.WithContext(ctx).
		Model(&domain.UnlockTransaction{}).
		Where("id = ? AND status = ?", id, domain.UnlockInitiated).
		Updates(map[string]any{"checkout_url": url, "updated_at": time.Now().UTC()}).Error
}

// ConfirmUnlock moves an initiated transaction to confirmed and reports
// whether a row changed. A nil providerRef leaves the column untouched.
func ConfirmUnlock(ctx context.Context, db *gorm.DB, id string, providerRef *string, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":       domain.UnlockConfirmed,
		"confirmed_at": at,
		"updated_at":   at,
	}
	if providerRef != nil {
		updates["provider_ref"] = *providerRef
	}
	res := db.WithContext(ctx).
		Model(&domain.UnlockTransaction{}).
		Where("id = ? AND status = ?", id, domain.UnlockInitiated).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FailUnlock moves an initiated transaction to failed with reason and
// reports whether a row changed.
func FailUnlock(ctx context.Context, db *gorm.DB, id, reason string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.UnlockTransaction{}).
		Where("id = ? AND status = ?", id, domain.UnlockInitiated).
		Updates(map[string]any{
			"status":         domain.UnlockFailed,
			"failure_reason": reason,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
