package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestIdempotencyScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var got string
	capture := func(c *gin.Context) { got = IdempotencyScope(c) }
	r.POST("/requests/:id/offers", capture)
	r.POST("/requests", capture)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/requests/r1/offers", nil))
	if got != "/requests/:id/offers:r1" {
		t.Fatalf("scope = %q", got)
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/requests", nil))
	if got != "/requests:" {
		t.Fatalf("scope = %q", got)
	}
}

type lookupCall struct {
	userID, scope, key string
}

// idemRouter mounts Identity and the validator in front of POST and GET
// /requests/:id/offers. The handler echoes what the middleware stashed.
func idemRouter(opts IdempotencyOptions, lookup IdempotencyLookup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Identity(), IdempotencyValidator(opts, lookup))
	echo := func(c *gin.Context) {
		key, has := GetIdempotencyKey(c)
		c.JSON(http.StatusOK, gin.H{"key": key, "has": has, "replay": IsReplay(c), "bypass": IsRateBypass(c)})
	}
	r.POST("/requests/:id/offers", echo)
	r.GET("/requests/:id/offers", echo)
	return r
}

func sendIdem(r *gin.Engine, method, user, key string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, "/requests/r1/offers", nil)
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestIdempotencyValidator_Validation(t *testing.T) {
	r := idemRouter(IdempotencyOptions{MaxLen: 16, Pattern: regexp.MustCompile(`^[a-z0-9-]+$`)}, nil)

	cases := []struct {
		name, key string
		status    int
	}{
		{"absent", "", http.StatusOK},
		{"valid", "offer-retry-1", http.StatusOK},
		{"too long", strings.Repeat("a", 17), http.StatusBadRequest},
		{"bad charset", "Offer_1", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, body := sendIdem(r, http.MethodPost, "seller-1", tc.key)
			if w.Code != tc.status {
				t.Fatalf("status = %d; want %d", w.Code, tc.status)
			}
			if tc.status == http.StatusBadRequest && (body["code"] != "bad_idempotency_key" || body["request_id"] == "") {
				t.Fatalf("error body = %v", body)
			}
			if tc.status == http.StatusOK && body["has"] != (tc.key != "") {
				t.Fatalf("stashed key = %v", body)
			}
		})
	}
}

func TestIdempotencyValidator_DefaultsAndSafeMethods(t *testing.T) {
	r := idemRouter(IdempotencyOptions{}, nil)

	if w, _ := sendIdem(r, http.MethodPost, "seller-1", strings.Repeat("k", defaultIdemKeyMaxLen)); w.Code != http.StatusOK {
		t.Fatalf("max-length key rejected: %d", w.Code)
	}
	if w, _ := sendIdem(r, http.MethodPost, "seller-1", "has space"); w.Code != http.StatusBadRequest {
		t.Fatalf("bad key accepted: %d", w.Code)
	}
	// GET ignores the header, even a malformed one.
	w, body := sendIdem(r, http.MethodGet, "seller-1", "has space")
	if w.Code != http.StatusOK || body["has"] != false {
		t.Fatalf("GET with key: %d %v", w.Code, body)
	}
}

func TestIdempotencyValidator_Lookup(t *testing.T) {
	var calls []lookupCall
	recorded := map[lookupCall]bool{{"seller-1", "/requests/:id/offers:r1", "k-hit"}: true}
	lookup := func(_ context.Context, userID, scope, key string, now time.Time) (bool, error) {
		if now.Location() != time.UTC {
			t.Errorf("lookup time not UTC: %v", now)
		}
		call := lookupCall{userID, scope, key}
		calls = append(calls, call)
		if key == "k-broken" {
			return false, errors.New("db locked")
		}
		return recorded[call], nil
	}
	r := idemRouter(IdempotencyOptions{}, lookup)

	t.Run("anonymous skips lookup", func(t *testing.T) {
		calls = nil
		_, body := sendIdem(r, http.MethodPost, "", "k-hit")
		if len(calls) != 0 || body["replay"] != false {
			t.Fatalf("calls=%v body=%v", calls, body)
		}
	})

	t.Run("miss", func(t *testing.T) {
		calls = nil
		_, body := sendIdem(r, http.MethodPost, "seller-1", "k-new")
		if len(calls) != 1 || body["replay"] != false || body["bypass"] != false {
			t.Fatalf("calls=%v body=%v", calls, body)
		}
	})

	t.Run("hit flags replay and bypass", func(t *testing.T) {
		calls = nil
		_, body := sendIdem(r, http.MethodPost, "seller-1", "k-hit")
		if len(calls) != 1 || calls[0].scope != "/requests/:id/offers:r1" {
			t.Fatalf("calls = %v", calls)
		}
		if body["replay"] != true || body["bypass"] != true {
			t.Fatalf("body = %v", body)
		}
	})

	t.Run("other user with same key is not a replay", func(t *testing.T) {
		_, body := sendIdem(r, http.MethodPost, "seller-2", "k-hit")
		if body["replay"] != false {
			t.Fatalf("body = %v", body)
		}
	})

	t.Run("lookup error proceeds", func(t *testing.T) {
		w, body := sendIdem(r, http.MethodPost, "seller-1", "k-broken")
		if w.Code != http.StatusOK || body["replay"] != false {
			t.Fatalf("%d %v", w.Code, body)
		}
	})
}
