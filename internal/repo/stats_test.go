package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-parts-market/internal/domain"
)

func TestRequestsStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	if _, _, err := RequestsStats(context.Background(), db, RequestFilter{BuyerID: "b1"}); err == nil {
		t.Fatalf("expected error due to missing part_requests table")
	}
}

func TestRequestsStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, &domain.PartRequest{})
	count, maxAt, err := RequestsStats(context.Background(), db, RequestFilter{BuyerID: "b1"})
	if err != nil {
		t.Fatalf("RequestsStats error: %v", err)
	}
	if count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxAt)
	}
}

func TestRequestsStats_FilterAndMax(t *testing.T) {
	db := newTestDB(t, &domain.PartRequest{})

	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC) // max for b1
	t3 := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)   // other buyer
	for _, r := range []domain.PartRequest{
		{ID: "r1", BuyerID: "b1", VehicleMake: "Kia", VehicleModel: "Rio", VehicleYear: 2015, PartNeeded: "mirror", Status: domain.RequestPending, CreatedAt: t1, UpdatedAt: t1},
		{ID: "r2", BuyerID: "b1", VehicleMake: "Kia", VehicleModel: "Rio", VehicleYear: 2015, PartNeeded: "bumper", Status: domain.RequestCancelled, CreatedAt: t1, UpdatedAt: t2},
		{ID: "r3", BuyerID: "b2", VehicleMake: "Kia", VehicleModel: "Rio", VehicleYear: 2015, PartNeeded: "wheel", Status: domain.RequestPending, CreatedAt: t3, UpdatedAt: t3},
	} {
		r := r
		if err := db.Create(&r).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	count, maxAt, err := RequestsStats(context.Background(), db, RequestFilter{BuyerID: "b1"})
	if err != nil {
		t.Fatalf("RequestsStats: %v", err)
	}
	if count != 2 || maxAt == nil || !maxAt.Equal(t2) {
		t.Fatalf("got (%d, %v); want (2, %v)", count, maxAt, t2)
	}

	count, maxAt, err = RequestsStats(context.Background(), db, RequestFilter{Status: domain.RequestPending})
	if err != nil || count != 2 || !maxAt.Equal(t3) {
		t.Fatalf("status filter: (%d, %v, %v)", count, maxAt, err)
	}
}

func TestOffersStats(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	seedRepoRequest(t, db, "r1", "b1")

	count, maxAt, err := OffersStats(ctx, db, "r1")
	if err != nil || count != 0 || maxAt != nil {
		t.Fatalf("empty: (%d, %v, %v)", count, maxAt, err)
	}
	seedRepoOffer(t, db, "o1", "r1", "s1")
	seedRepoOffer(t, db, "o2", "r1", "s2")
	count, maxAt, err = OffersStats(ctx, db, "r1")
	if err != nil || count != 2 || maxAt == nil {
		t.Fatalf("two offers: (%d, %v, %v)", count, maxAt, err)
	}
}
