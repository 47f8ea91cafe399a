package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-parts-market/internal/events"
	"github.com/tbourn/go-parts-market/internal/http/middleware"
	"github.com/tbourn/go-parts-market/internal/payments"
	"github.com/tbourn/go-parts-market/internal/repo"
	"github.com/tbourn/go-parts-market/internal/services"
)

const testWebhookSecret = "whsec_test"

// ---------- fixture: real services over a temp SQLite file ----------

type fixture struct {
	db       *gorm.DB
	r        *gin.Engine
	provider *payments.SandboxProvider
	idem     *services.IdempotencyService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "handlers.db"))
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

	pub := events.Nop{}
	prov := &payments.SandboxProvider{BaseURL: "https://pay.test"}
	reqSvc := services.NewRequestService(db, pub)
	offSvc := services.NewOfferService(db, pub, "GHS")
	unlSvc, err := services.NewUnlockService(db, pub, prov, 5, "GHS")
	if err != nil {
		t.Fatalf("NewUnlockService: %v", err)
	}
	idem := services.NewIdempotencyService(db, time.Hour)

	h := New(Services{
		Requests:    reqSvc,
		Offers:      offSvc,
		Unlocks:     unlSvc,
		Ratings:     services.NewRatingService(db, pub),
		Admin:       services.NewAdminService(db, reqSvc, offSvc, unlSvc),
		Threads:     services.NewChatThreadService(db),
		Idempotency: idem,
	}, Options{UnlockFee: 5, WebhookSecret: testWebhookSecret})

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Identity())
	r.POST("/payments/webhook", h.PaymentWebhook)

	api := r.Group("/", middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, idem.Exists))
	api.POST("/requests", h.CreateRequest)
	api.GET("/requests", h.ListRequests)
	api.GET("/requests/:id", h.GetRequest)
	api.POST("/requests/:id/complete", h.CompleteRequest)
	api.POST("/requests/:id/cancel", h.CancelRequest)
	api.POST("/requests/:id/offers", h.SubmitOffer)
	api.GET("/requests/:id/offers", h.ListOffers)
	api.POST("/offers/:id/accept", h.AcceptOffer)
	api.POST("/offers/:id/reject", h.RejectOffer)
	api.POST("/offers/:id/unlock", h.InitiateUnlock)
	api.POST("/offers/:id/rating", h.SubmitRating)
	api.GET("/unlocks/:id", h.GetUnlock)
	api.GET("/ratings/pending", h.PendingRatings)
	api.GET("/sellers/:id/ratings", h.SellerRatings)
	api.POST("/chat-threads", h.EnsureChatThread)

	admin := api.Group("/admin", middleware.RequireAdmin(func(uid string) bool { return uid == "ops-1" }))
	admin.POST("/requests/:id/force-match", h.ForceMatch)
	admin.POST("/requests/:id/force-complete", h.ForceComplete)
	admin.POST("/unlocks/:id/fail", h.AdminFailUnlock)
	admin.GET("/audit", h.ListAudit)

	return &fixture{db: db, r: r, provider: prov, idem: idem}
}

// do sends a JSON request as user ("" for anonymous). Extra headers are
// given as key/value pairs.
func (f *fixture) do(t *testing.T, method, path, user string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(middleware.HeaderUserID, user)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("json: %v (body=%s)", err, w.Body.String())
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status=%d want %d body=%s", w.Code, want, w.Body.String())
	}
}

func expectCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, w, status)
	if got := decode[ErrorResponse](t, w); got.Code != code {
		t.Fatalf("code=%q want %q", got.Code, code)
	}
}

func validRequest() CreateRequestRequest {
	return CreateRequestRequest{
		VehicleMake: "toyota", VehicleModel: "corolla", VehicleYear: 2012,
		PartNeeded: "alternator", Location: "Accra", Phone: "+233200000000",
	}
}

func validOffer() SubmitOfferRequest {
	return SubmitOfferRequest{
		Price: 90, Message: "tested", ContactPhone: "+233240000000", ContactLocation: "Suame",
	}
}

func (f *fixture) createRequest(t *testing.T, buyer string) RequestView {
	t.Helper()
	w := f.do(t, http.MethodPost, "/requests", buyer, validRequest())
	expectStatus(t, w, http.StatusCreated)
	return decode[RequestView](t, w)
}

func (f *fixture) submitOffer(t *testing.T, requestID, seller string) OfferView {
	t.Helper()
	w := f.do(t, http.MethodPost, "/requests/"+requestID+"/offers", seller, validOffer())
	expectStatus(t, w, http.StatusCreated)
	return decode[OfferView](t, w)
}

// matched returns a request matched to one seller's offer.
func (f *fixture) matched(t *testing.T, buyer, seller string) (RequestView, OfferView) {
	t.Helper()
	r := f.createRequest(t, buyer)
	o := f.submitOffer(t, r.ID, seller)
	expectStatus(t, f.do(t, http.MethodPost, "/offers/"+o.ID+"/accept", buyer, nil), http.StatusOK)
	return r, o
}

// webhook posts a signed provider callback.
func (f *fixture) webhook(t *testing.T, secret string, ev map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(payments.SignatureHeader, payments.Sign(secret, body))
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func chargeEvent(event, reference string, id any) map[string]any {
	return map[string]any{
		"event": event,
		"data": map[string]any{
			"id":               id,
			"reference":        reference,
			"status":           "success",
			"gateway_response": "Declined",
		},
	}
}
