package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

// HTTPProvider talks to a Paystack-compatible REST API.
type HTTPProvider struct {
	BaseURL     string
	SecretKey   string
	CallbackURL string
	Client      *http.Client
}

// NewHTTPProvider returns a provider with a bounded HTTP client.
func NewHTTPProvider(baseURL, secretKey, callbackURL string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		SecretKey:   secretKey,
		CallbackURL: callbackURL,
		Client:      &http.Client{Timeout: timeout},
	}
}

type initializeBody struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// InitiateCheckout calls POST /transaction/initialize. Transport failures,
// non-2xx answers, and responses without a checkout URL all map to
// ErrUnavailable.
func (p *HTTPProvider) InitiateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	email := req.Email
	if email == "" {
		email = req.PayerID + "@customers.invalid"
	}
	body, err := json.Marshal(initializeBody{
		Email:       email,
		Amount:      MinorUnits(req.Amount),
		Currency:    req.Currency,
		Reference:   req.Reference,
		CallbackURL: p.CallbackURL,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out initializeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if !out.Status || out.Data.AuthorizationURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, out.Message)
	}
	return &Checkout{URL: out.Data.AuthorizationURL, AccessCode: out.Data.AccessCode}, nil
}

// MinorUnits converts a major-unit amount (e.g. cedis) to the integer minor
// units (pesewas) providers expect.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
