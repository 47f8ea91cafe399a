// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-parts-market/internal/domain"
)

// RequestsStats returns aggregate metadata for the requests matching f: the
// total number of rows and the maximum UpdatedAt timestamp among those rows.
//
// When nothing matches, the returned count is 0 and maxUpdatedAt is nil.
func RequestsStats(ctx context.Context, db *gorm.DB, f RequestFilter) (count int64, maxUpdatedAt *time.Time, err error) {
	q := f.apply(db.WithContext(ctx).Model(&domain.PartRequest{}))
	return statsOf(q)
}

// OffersStats returns the row count and latest UpdatedAt for the offers on a
// request.
func OffersStats(ctx context.Context, db *gorm.DB, requestID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Offer{}).Where("request_id = ?", requestID)
	return statsOf(q)
}

func statsOf(q *gorm.DB) (int64, *time.Time, error) {
	var count int64
	if err := q.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err := q.Session(&gorm.Session{}).Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
