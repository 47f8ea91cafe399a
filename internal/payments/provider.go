// Package payments is the boundary to the external payment provider that
// collects contact-unlock fees.
//
// The provider is only ever trusted through two channels: the server-side
// checkout initiation call made by this service, and the provider's signed
// server-to-server webhook. A browser redirect back from the checkout page
// carries no authority and is never used to confirm a payment.
package payments

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the provider cannot be reached or refuses
// to initiate a checkout. Callers may retry.
var ErrUnavailable = errors.New("payment provider unavailable")

// CheckoutRequest describes a single unlock payment.
type CheckoutRequest struct {
	// Reference is the opaque handoff reference the provider echoes back in
	// its webhook.
	Reference string
	Amount    float64
	Currency  string
	PayerID   string
	Email     string
	Metadata  map[string]string
}

// Checkout is the provider's answer to a CheckoutRequest.
type Checkout struct {
	URL        string
	AccessCode string
}

// Provider initiates hosted checkouts.
type Provider interface {
	InitiateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
}
