package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/tbourn/go-parts-market/internal/domain"
	"github.com/tbourn/go-parts-market/internal/events"
	"github.com/tbourn/go-parts-market/internal/payments"
	"github.com/tbourn/go-parts-market/internal/repo"
)

// ----- Fakes -----

type capturePublisher struct {
	mu   sync.Mutex
	evs  []events.Event
	fail bool
}

func (p *capturePublisher) Publish(_ context.Context, evs ...events.Event) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evs = append(p.evs, evs...)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.evs))
	for _, e := range p.evs {
		out = append(out, e.Type)
	}
	return out
}

func (p *capturePublisher) count(typ string) int {
	n := 0
	for _, t := range p.types() {
		if t == typ {
			n++
		}
	}
	return n
}

type stubProvider struct {
	mu   sync.Mutex
	err  error
	reqs []payments.CheckoutRequest
}

func (p *stubProvider) InitiateCheckout(_ context.Context, req payments.CheckoutRequest) (*payments.Checkout, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reqs = append(p.reqs, req)
	if p.err != nil {
		return nil, p.err
	}
	return &payments.Checkout{URL: "https://pay.test/checkout/" + req.Reference, AccessCode: "ac"}, nil
}

// ----- Fixture -----

type stack struct {
	db       *gorm.DB
	pub      *capturePublisher
	provider *stubProvider
	requests *RequestService
	offers   *OfferService
	unlocks  *UnlockService
	ratings  *RatingService
	admin    *AdminService
	threads  *ChatThreadService
}

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "svc.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return db
}

func newStack(t *testing.T) *stack {
	t.Helper()
	db := newServiceDB(t)
	pub := &capturePublisher{}
	prov := &stubProvider{}

	s := &stack{db: db, pub: pub, provider: prov}
	s.requests = NewRequestService(db, pub)
	s.offers = NewOfferService(db, pub, "GHS")
	u, err := NewUnlockService(db, pub, prov, 5, "ghs")
	if err != nil {
		t.Fatalf("NewUnlockService: %v", err)
	}
	s.unlocks = u
	s.ratings = NewRatingService(db, pub)
	s.admin = NewAdminService(db, s.requests, s.offers, s.unlocks)
	s.threads = NewChatThreadService(db)
	return s
}

func details() RequestDetails {
	return RequestDetails{
		VehicleMake: "toyota", VehicleModel: "corolla", VehicleYear: 2012,
		PartNeeded: "alternator", Location: "Accra", Phone: "+233 20 000 0000",
	}
}

func (s *stack) request(t *testing.T, buyerID string) *domain.PartRequest {
	t.Helper()
	r, err := s.requests.Create(context.Background(), buyerID, details())
	if err != nil {
		t.Fatalf("Create request: %v", err)
	}
	return r
}

func (s *stack) offer(t *testing.T, requestID, sellerID string, price float64) *domain.Offer {
	t.Helper()
	o, err := s.offers.Submit(context.Background(), requestID, sellerID, OfferInput{
		Price: price, ContactPhone: "+233240000000", ContactLocation: "Kumasi",
	})
	if err != nil {
		t.Fatalf("Submit offer: %v", err)
	}
	return o
}

func (s *stack) mustRequest(t *testing.T, id string) *domain.PartRequest {
	t.Helper()
	r, err := repo.GetRequest(context.Background(), s.db, id)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	return r
}

func (s *stack) mustOffer(t *testing.T, id string) *domain.Offer {
	t.Helper()
	o, err := repo.GetOffer(context.Background(), s.db, id)
	if err != nil {
		t.Fatalf("GetOffer: %v", err)
	}
	return o
}

func (s *stack) acceptedCount(t *testing.T, requestID string) int64 {
	t.Helper()
	var n int64
	if err := s.db.Model(&domain.Offer{}).
		Where("request_id = ? AND status = ?", requestID, domain.OfferAccepted).
		Count(&n).Error; err != nil {
		t.Fatalf("count accepted: %v", err)
	}
	return n
}

func TestIsDomainErr(t *testing.T) {
	if !isDomainErr(ErrAlreadyMatched) || !isDomainErr(ErrInvalidScore) {
		t.Fatalf("sentinels must be domain errors")
	}
	if isDomainErr(errors.New("disk full")) {
		t.Fatalf("infrastructure errors are not domain errors")
	}
	if notFound(repo.ErrNotFound, ErrOfferNotFound) != ErrOfferNotFound {
		t.Fatalf("notFound must map ErrNotFound")
	}
	other := errors.New("boom")
	if notFound(other, ErrOfferNotFound) != other {
		t.Fatalf("notFound must pass other errors through")
	}
}

func TestPublishFailureDoesNotFailCall(t *testing.T) {
	s := newStack(t)
	s.pub.fail = true
	if _, err := s.requests.Create(context.Background(), "b1", details()); err != nil {
		t.Fatalf("publish failure must not fail Create: %v", err)
	}
}
