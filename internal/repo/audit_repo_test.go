package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-parts-market/internal/domain"
)

func TestAuditEntries_FilterOrderLimit(t *testing.T) {
	db := newTestDB(t, &domain.AuditEntry{})
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	entries := []domain.AuditEntry{
		{ID: "a1", ActorID: "b1", ActorRole: "buyer", Action: "request.create", SubjectType: "request", SubjectID: "r1", ToStatus: "pending", CreatedAt: base},
		{ID: "a2", ActorID: "root", ActorRole: "admin", Action: "request.force_match", SubjectType: "request", SubjectID: "r1", FromStatus: "pending", ToStatus: "matched", CreatedAt: base.Add(time.Minute)},
		{ID: "a3", ActorID: "s1", ActorRole: "seller", Action: "offer.submit", SubjectType: "offer", SubjectID: "o1", ToStatus: "pending", CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range entries {
		if err := CreateAuditEntry(ctx, db, &entries[i]); err != nil {
			t.Fatalf("CreateAuditEntry: %v", err)
		}
	}

	got, err := ListAuditEntries(ctx, db, "request", "r1", 0)
	if err != nil || len(got) != 2 || got[0].ID != "a1" || got[1].ID != "a2" {
		t.Fatalf("subject listing: %+v err=%v", got, err)
	}
	all, err := ListAuditEntries(ctx, db, "", "", 2)
	if err != nil || len(all) != 2 {
		t.Fatalf("limited listing: n=%d err=%v", len(all), err)
	}
	offers, _ := ListAuditEntries(ctx, db, "offer", "", 0)
	if len(offers) != 1 || offers[0].ActorRole != "seller" {
		t.Fatalf("type listing: %+v", offers)
	}
}
