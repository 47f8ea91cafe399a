package payments

import (
	"context"
	"net/url"
	"strings"
)

// SandboxProvider fabricates checkout URLs without any network call. It is
// the default for local runs; payments are then settled by posting a signed
// webhook by hand.
type SandboxProvider struct {
	BaseURL string
	// Unavailable makes every call fail with ErrUnavailable.
	Unavailable bool
}

// InitiateCheckout returns BaseURL/checkout/<reference>.
func (p *SandboxProvider) InitiateCheckout(_ context.Context, req CheckoutRequest) (*Checkout, error) {
	if p.Unavailable {
		return nil, ErrUnavailable
	}
	base := strings.TrimRight(p.BaseURL, "/")
	if base == "" {
		base = "https://sandbox.invalid"
	}
	return &Checkout{
		URL:        base + "/checkout/" + url.PathEscape(req.Reference),
		AccessCode: "sandbox_" + req.Reference,
	}, nil
}
