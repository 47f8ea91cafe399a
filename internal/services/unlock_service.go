package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jaevor/go-nanoid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-parts-market/internal/domain"
	"github.com/tbourn/go-parts-market/internal/events"
	"github.com/tbourn/go-parts-market/internal/payments"
	"github.com/tbourn/go-parts-market/internal/repo"
)

// providerActor is the actor recorded for provider callbacks.
var providerActor = actor{ID: "payment-provider", Role: RoleSystem}

// maxFailureReasonRunes matches the failure_reason column width.
const maxFailureReasonRunes = 255

// handoffAlphabet keeps references URL and log safe.
const handoffAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// UnlockService handles the paid contact unlock for an accepted (or any)
// offer. Initiation records a transaction and hands a reference to the
// payment provider; only the provider's confirmation flips the offer's
// contact_unlocked flag, and nothing ever clears it.
type UnlockService struct {
	DB       *gorm.DB
	Events   events.Publisher
	Provider payments.Provider

	// Fee is the minimum amount accepted for an unlock.
	Fee      float64
	Currency string

	newRef func() string
}

// NewUnlockService constructs an UnlockService charging fee in currency.
func NewUnlockService(db *gorm.DB, pub events.Publisher, provider payments.Provider, fee float64, currency string) (*UnlockService, error) {
	gen, err := nanoid.CustomASCII(handoffAlphabet, 20)
	if err != nil {
		return nil, fmt.Errorf("handoff reference generator: %w", err)
	}
	return &UnlockService{
		DB:       db,
		Events:   pub,
		Provider: provider,
		Fee:      fee,
		Currency: strings.ToUpper(currency),
		newRef:   func() string { return "unl-" + gen() },
	}, nil
}

// Initiate starts an unlock of offerID's seller contact, paid by payerID.
// The payer must be the buyer of the offer's request. The request's status
// does not matter.
//
// The transaction row is committed before the provider is called so the
// provider's callback can always find it. If the provider cannot start a
// checkout, the row is failed and ErrProviderUnavailable is returned.
func (s *UnlockService) Initiate(ctx context.Context, offerID, payerID string, amount float64) (_ *domain.UnlockTransaction, err error) {
	ctx, span := otel.Tracer("services/UnlockService").Start(ctx, "Initiate",
		trace.WithAttributes(
			attribute.String("offer.id", offerID),
			attribute.String("payer.id", payerID),
			attribute.Float64("amount", amount),
		))
	defer span.End()
	defer func() { err = spanErr(span, err) }()

	o, err := repo.GetOffer(ctx, s.DB, offerID)
	if err != nil {
		return nil, notFound(err, ErrOfferNotFound)
	}
	r, err := repo.GetRequest(ctx, s.DB, o.RequestID)
	if err != nil {
		return nil, notFound(err, ErrRequestNotFound)
	}
	if payerID == "" || payerID != r.BuyerID {
		return nil, ErrNotAuthorized
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 || amount < s.Fee {
		return nil, ErrInvalidAmount
	}
	if o.ContactUnlocked {
		return nil, ErrAlreadyUnlocked
	}

	now := time.Now().UTC()
	u := &domain.UnlockTransaction{
		ID:         uuid.NewString(),
		OfferID:    offerID,
		PayerID:    payerID,
		Amount:     amount,
		Currency:   s.Currency,
		HandoffRef: s.newRef(),
		Status:     domain.UnlockInitiated,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	a := actor{payerID, RoleBuyer}
	t := transition{
		Actor: a, Action: "unlock.initiate", SubjectType: SubjectUnlock, SubjectID: u.ID,
		To: string(domain.UnlockInitiated), Detail: "offer " + offerID,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.CreateUnlock(ctx, tx, u); err != nil {
			return err
		}
		return record(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}
	logCommitted(t)
	unlockOutcomesTotal.WithLabelValues("initiated").Inc()

	co, perr := s.Provider.InitiateCheckout(ctx, payments.CheckoutRequest{
		Reference: u.HandoffRef,
		Amount:    amount,
		Currency:  s.Currency,
		PayerID:   payerID,
		Metadata:  map[string]string{"offer_id": offerID, "transaction_id": u.ID},
	})
	if perr != nil {
		unlockOutcomesTotal.WithLabelValues("provider_error").Inc()
		log.Error().Err(perr).Str("transaction_id", u.ID).Str("offer_id", offerID).Msg("checkout initiation failed")
		// The caller's context may already be gone; the row must not stay
		// initiated forever.
		if ferr := s.fail(context.WithoutCancel(ctx), u.ID, "provider unavailable", providerActor); ferr != nil {
			log.Error().Err(ferr).Str("transaction_id", u.ID).Msg("failed to mark unlock as failed")
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, perr)
	}

	if err := repo.SetCheckoutURL(ctx, s.DB, u.ID, co.URL); err != nil {
		return nil, err
	}
	u.CheckoutURL = co.URL

	publish(ctx, s.Events, newEvent(events.UnlockInitiated, offerID, u.ID, a, map[string]string{
		"offer_id": offerID, "handoff_ref": u.HandoffRef,
	}))
	return u, nil
}

// Get returns an unlock transaction by id.
func (s *UnlockService) Get(ctx context.Context, transactionID string) (*domain.UnlockTransaction, error) {
	u, err := repo.GetUnlock(ctx, s.DB, transactionID)
	if err != nil {
		return nil, notFound(err, ErrUnlockNotFound)
	}
	return u, nil
}

// Confirm marks a transaction confirmed and unlocks the offer's contact in
// the same database transaction.
//
// Confirming twice with the same provider reference, or with none, is a
// no-op. A different reference on a confirmed transaction returns
// ErrAlreadyConfirmed; a failed transaction returns ErrInvalidState.
func (s *UnlockService) Confirm(ctx context.Context, transactionID, providerRef string) (err error) {
	ctx, span := otel.Tracer("services/UnlockService").Start(ctx, "Confirm",
		trace.WithAttributes(attribute.String("unlock.id", transactionID), attribute.String("provider.ref", providerRef)))
	defer span.End()
	defer func() { err = spanErr(span, err) }()

	u, err := s.Get(ctx, transactionID)
	if err != nil {
		return err
	}

	var ref *string
	if providerRef != "" {
		ref = &providerRef
	}
	ts := []transition{
		{Actor: providerActor, Action: "unlock.confirm", SubjectType: SubjectUnlock, SubjectID: transactionID,
			From: string(domain.UnlockInitiated), To: string(domain.UnlockConfirmed), Detail: providerRef},
		{Actor: providerActor, Action: "offer.unlock_contact", SubjectType: SubjectOffer, SubjectID: u.OfferID,
			Detail: "transaction " + transactionID},
	}
	noop := false
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := repo.ConfirmUnlock(ctx, tx, transactionID, ref, time.Now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			cur, err := repo.GetUnlock(ctx, tx, transactionID)
			if err != nil {
				return notFound(err, ErrUnlockNotFound)
			}
			switch cur.Status {
			case domain.UnlockConfirmed:
				if providerRef == "" || cur.ProviderRef == nil || *cur.ProviderRef == providerRef {
					noop = true
					return nil
				}
				return ErrAlreadyConfirmed
			default:
				return ErrInvalidState
			}
		}
		if err := repo.MarkContactUnlocked(ctx, tx, u.OfferID); err != nil {
			return notFound(err, ErrOfferNotFound)
		}
		for _, t := range ts {
			if err := record(ctx, tx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if noop {
		unlockOutcomesTotal.WithLabelValues("duplicate_confirm").Inc()
		return nil
	}
	if err != nil {
		return err
	}

	logCommitted(ts...)
	unlockOutcomesTotal.WithLabelValues("confirmed").Inc()
	publish(ctx, s.Events, newEvent(events.UnlockConfirmed, u.OfferID, transactionID, providerActor, map[string]string{
		"offer_id": u.OfferID, "payer_id": u.PayerID, "provider_ref": providerRef,
	}))
	return nil
}

// Fail marks an initiated transaction failed. Failing an already failed
// transaction is a no-op; a confirmed one returns ErrAlreadyConfirmed and
// its unlock stands.
func (s *UnlockService) Fail(ctx context.Context, transactionID, reason string) (err error) {
	ctx, span := otel.Tracer("services/UnlockService").Start(ctx, "Fail",
		trace.WithAttributes(attribute.String("unlock.id", transactionID)))
	defer span.End()
	defer func() { err = spanErr(span, err) }()

	return s.fail(ctx, transactionID, reason, providerActor)
}

// ConfirmByReference confirms the transaction identified by the handoff
// reference the provider echoes back.
func (s *UnlockService) ConfirmByReference(ctx context.Context, handoffRef, providerRef string) error {
	u, err := repo.GetUnlockByHandoffRef(ctx, s.DB, handoffRef)
	if err != nil {
		return notFound(err, ErrUnlockNotFound)
	}
	return s.Confirm(ctx, u.ID, providerRef)
}

// FailByReference fails the transaction identified by handoffRef.
func (s *UnlockService) FailByReference(ctx context.Context, handoffRef, reason string) error {
	u, err := repo.GetUnlockByHandoffRef(ctx, s.DB, handoffRef)
	if err != nil {
		return notFound(err, ErrUnlockNotFound)
	}
	return s.Fail(ctx, u.ID, reason)
}

func (s *UnlockService) fail(ctx context.Context, transactionID, reason string, a actor) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "failed"
	}
	if utf8.RuneCountInString(reason) > maxFailureReasonRunes {
		reason = string([]rune(reason)[:maxFailureReasonRunes])
	}
	t := transition{
		Actor: a, Action: "unlock.fail", SubjectType: SubjectUnlock, SubjectID: transactionID,
		From: string(domain.UnlockInitiated), To: string(domain.UnlockFailed), Detail: reason,
	}
	noop := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := repo.FailUnlock(ctx, tx, transactionID, reason)
		if err != nil {
			return err
		}
		if !ok {
			cur, err := repo.GetUnlock(ctx, tx, transactionID)
			if err != nil {
				return notFound(err, ErrUnlockNotFound)
			}
			if cur.Status == domain.UnlockConfirmed {
				return ErrAlreadyConfirmed
			}
			noop = true
			return nil
		}
		return record(ctx, tx, t)
	})
	if err != nil || noop {
		return err
	}

	logCommitted(t)
	unlockOutcomesTotal.WithLabelValues("failed").Inc()
	publish(ctx, s.Events, newEvent(events.UnlockFailed, transactionID, transactionID, a, map[string]string{"reason": reason}))
	return nil
}
