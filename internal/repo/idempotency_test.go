package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-parts-market/internal/domain"
)

// newTestDB opens an isolated in-memory database, migrating only the given
// models. Passing none leaves the schema empty for error-path tests.
func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestGetIdempotency_EmptyScope_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	rec, err := GetIdempotency(context.Background(), db, "u1", "   ", "k1", time.Now().UTC())
	if rec != nil || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected (nil, ErrNotFound) for empty scope, got (%v, %v)", rec, err)
	}
}

func TestGetIdempotency_ExpiredOrMissing_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()

	exp := &domain.Idempotency{
		ID: "expired", UserID: "u1", Scope: "/requests:", Key: "k1", ResourceID: "r1",
		Status: 201, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}
	if err := db.Create(exp).Error; err != nil {
		t.Fatalf("seed expired: %v", err)
	}

	if rec, err := GetIdempotency(context.Background(), db, "u1", "/requests:", "k1", now); rec != nil || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected (nil, ErrNotFound) for expired, got (%v, %v)", rec, err)
	}
	if rec, err := GetIdempotency(context.Background(), db, "u1", "/requests:", "missing", now); rec != nil || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected (nil, ErrNotFound) for missing, got (%v, %v)", rec, err)
	}
}

func TestCreateIdempotency_SuccessDuplicateAndScopeIsolation(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()
	ttl := 90 * time.Minute
	start := time.Now().UTC()

	rec, err := CreateIdempotency(ctx, db, "u9", "/requests/:id/offers:r1", "k9", "o9", 201, ttl)
	if err != nil {
		t.Fatalf("CreateIdempotency error: %v", err)
	}
	if rec.ID == "" || rec.ResourceID != "o9" || rec.Status != 201 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.ExpiresAt.Sub(start) < ttl-time.Second {
		t.Fatalf("ExpiresAt too early: %v", rec.ExpiresAt)
	}

	got, err := GetIdempotency(ctx, db, "u9", "/requests/:id/offers:r1", "k9", time.Now().UTC())
	if err != nil || got.ResourceID != "o9" {
		t.Fatalf("readback: got=%+v err=%v", got, err)
	}

	if _, err := CreateIdempotency(ctx, db, "u9", "/requests/:id/offers:r1", "k9", "o10", 201, ttl); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// Same key under another scope is independent.
	if _, err := CreateIdempotency(ctx, db, "u9", "/requests/:id/offers:r2", "k9", "o11", 201, ttl); err != nil {
		t.Fatalf("different scope should be allowed: %v", err)
	}
}

func TestCreateIdempotency_NoTable_ReturnsRawError(t *testing.T) {
	db := newTestDB(t)
	_, err := CreateIdempotency(context.Background(), db, "u", "s", "k", "r", 201, time.Hour)
	if err == nil || errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected raw DB error, got %v", err)
	}
}

func TestDeleteExpiredIdempotency(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()
	now := time.Now().UTC()
	rows := []domain.Idempotency{
		{ID: "a", UserID: "u", Scope: "s", Key: "1", ResourceID: "r", Status: 201, CreatedAt: now, ExpiresAt: now.Add(-time.Minute)},
		{ID: "b", UserID: "u", Scope: "s", Key: "2", ResourceID: "r", Status: 201, CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	n, err := DeleteExpiredIdempotency(ctx, db, now)
	if err != nil || n != 1 {
		t.Fatalf("DeleteExpiredIdempotency = (%d, %v); want (1, nil)", n, err)
	}
	var left int64
	db.Model(&domain.Idempotency{}).Count(&left)
	if left != 1 {
		t.Fatalf("expected 1 row left, got %d", left)
	}
}
