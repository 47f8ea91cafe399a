// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the Idempotency
// model used to implement safe-retry semantics for POST endpoints.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-parts-market/internal/domain"
)

// GetIdempotency returns a non-expired record or ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, userID, scope, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(scope) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where("user_id = ? AND scope = ? AND key = ? AND expires_at > ?", userID, scope, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &rec, err
}

// CreateIdempotency inserts a record and returns ErrDuplicate on unique violation.
func CreateIdempotency(ctx context.Context, db *gorm.DB, userID, scope, key, resourceID string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	rec := &domain.Idempotency{
		ID:         uuid.NewString(),
		UserID:     userID,
		Scope:      scope,
		Key:        key,
		ResourceID: resourceID,
		Status:     status,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if IsDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// FindIdempotency returns the record for the key whether or not it has
// expired, or ErrNotFound.
func FindIdempotency(ctx context.Context, db *gorm.DB, userID, scope, key string) (*domain.Idempotency, error) {
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where("user_id = ? AND scope = ? AND key = ?", userID, scope, key).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &rec, err
}

// CompleteIdempotency fills in the resource of a pending record (empty
// resource_id) and moves its expiry to expiresAt. It reports whether a row
// changed.
func CompleteIdempotency(ctx context.Context, db *gorm.DB, userID, scope, key, resourceID string, status int, expiresAt time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Idempotency{}).
		Where("user_id = ? AND scope = ? AND key = ? AND resource_id = ''", userID, scope, key).
		Updates(map[string]any{"resource_id": resourceID, "status": status, "expires_at": expiresAt})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeletePendingIdempotency removes the key's record only while it is still
// pending.
func DeletePendingIdempotency(ctx context.Context, db *gorm.DB, userID, scope, key string) error {
	return db.WithContext(ctx).
		Where("user_id = ? AND scope = ? AND key = ? AND resource_id = ''", userID, scope, key).
		Delete(&domain.Idempotency{}).Error
}

// DeleteIdempotencyIfExpired removes record id when it expired at or before
// now and reports whether it did.
func DeleteIdempotencyIfExpired(ctx context.Context, db *gorm.DB, id string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Where("id = ? AND expires_at <= ?", id, now).Delete(&domain.Idempotency{})
	return res.RowsAffected == 1, res.Error
}

// DeleteExpiredIdempotency removes records that expired before now and
// returns how many were deleted.
func DeleteExpiredIdempotency(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.Idempotency{})
	return res.RowsAffected, res.Error
}
