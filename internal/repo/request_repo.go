// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// PartRequest model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business rules, only persistence and query composition.
//
// Status changes go through TransitionRequest, a guarded UPDATE whose WHERE
// clause carries the expected current status. Callers learn whether they won
// the transition from the returned boolean rather than from a prior read, so
// two concurrent writers can never both observe success.
//
// Error semantics:
//   - Missing rows surface as ErrNotFound (gorm.ErrRecordNotFound).
//   - Other DB errors are returned unchanged.
package repo

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-parts-market/internal/domain"
)

// RequestFilter narrows request listings. Empty fields do not filter.
type RequestFilter struct {
	BuyerID string
	Status  domain.RequestStatus
}

func (f RequestFilter) apply(q *gorm.DB) *gorm.DB {
	if f.BuyerID != "" {
		q = q.Where("buyer_id = ?", f.BuyerID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	return q
}

// CreateRequest inserts r. ID and timestamps must already be set.
func CreateRequest(ctx context.Context, db *gorm.DB, r *domain.PartRequest) error {
	return db.WithContext(ctx).Omit(clause.Associations).Create(r).Error
}

// GetRequest fetches a request by id, or ErrNotFound.
func GetRequest(ctx context.Context, db *gorm.DB, id string) (*domain.PartRequest, error) {
	var r domain.PartRequest
	if err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// TransitionRequest moves request id to status `to` only when its current
// status is one of `from`. Extra columns in set are written in the same
// statement. It reports whether a row changed. Every from→to pair must be
// allowed by RequestStatus.CanTransition, otherwise ErrInvalidTransition is
// returned without touching the row.
func TransitionRequest(ctx context.Context, db *gorm.DB, id string, from []domain.RequestStatus, to domain.RequestStatus, set map[string]any) (bool, error) {
	if len(from) == 0 {
		return false, fmt.Errorf("%w: no source status for %s", ErrInvalidTransition, to)
	}
	for _, f := range from {
		if !f.CanTransition(to) {
			return false, fmt.Errorf("%w: request %s -> %s", ErrInvalidTransition, f, to)
		}
	}
	updates := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range set {
		updates[k] = v
	}
	res := db.WithContext(ctx).
		Model(&domain.PartRequest{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ClearMatchedOffer drops the matched offer reference of request id without
// changing its status.
func ClearMatchedOffer(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Model(&domain.PartRequest{}).
		Where("id = ?", id).
		Updates(map[string]any{"matched_offer_id": nil, "updated_at": time.Now().UTC()}).Error
}

// LockPendingRequest writes to request id only while it is pending. Inside a
// transaction this takes the row's write lock before any read, serializing
// offer submission against a concurrent acceptance or cancellation.
func LockPendingRequest(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.PartRequest{}).
		Where("id = ? AND status = ?", id, domain.RequestPending).
		Update("updated_at", time.Now().UTC())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CountRequests returns the number of requests matching f.
func CountRequests(ctx context.Context, db *gorm.DB, f RequestFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.PartRequest{})).Count(&total).Error
	return total, err
}

// ListRequestsPage returns requests matching f, newest first.
func ListRequestsPage(ctx context.Context, db *gorm.DB, f RequestFilter, offset, limit int) ([]domain.PartRequest, error) {
	var out []domain.PartRequest
	err := f.apply(db.WithContext(ctx)).
		Order("created_at desc, id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
