package payments

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SignatureHeader carries the hex HMAC-SHA512 of the raw webhook body.
const SignatureHeader = "X-Provider-Signature"

// Webhook event names.
const (
	EventChargeSuccess = "charge.success"
	EventChargeFailed  = "charge.failed"
)

var (
	// ErrBadSignature is returned when a webhook signature is missing or
	// does not match the body.
	ErrBadSignature = errors.New("invalid webhook signature")
	// ErrMalformedEvent is returned for bodies that are not a usable event.
	ErrMalformedEvent = errors.New("malformed webhook event")
)

// WebhookEvent is the subset of a provider callback this service acts on.
type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		ID              any    `json:"id"`
		Reference       string `json:"reference"`
		Status          string `json:"status"`
		GatewayResponse string `json:"gateway_response"`
	} `json:"data"`
}

// ProviderRef returns the provider's own identifier for the charge, which
// arrives as either a JSON number or a string.
func (e *WebhookEvent) ProviderRef() string {
	switch v := e.Data.ID.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// Sign computes the hex HMAC-SHA512 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks signature against body in constant time.
func VerifySignature(secret string, body []byte, signature string) error {
	if secret == "" || signature == "" {
		return ErrBadSignature
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return ErrBadSignature
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrBadSignature
	}
	return nil
}

// ParseWebhook verifies and decodes a provider callback.
func ParseWebhook(secret string, body []byte, signature string) (*WebhookEvent, error) {
	if err := VerifySignature(secret, body, signature); err != nil {
		return nil, err
	}
	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if ev.Event == "" || strings.TrimSpace(ev.Data.Reference) == "" {
		return nil, ErrMalformedEvent
	}
	return &ev, nil
}
