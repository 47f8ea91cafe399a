package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-parts-market/internal/domain"
	"github.com/tbourn/go-parts-market/internal/events"
	"github.com/tbourn/go-parts-market/internal/repo"
)

// Actor roles recorded on audit entries and events.
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
	RoleSystem = "system"
)

// Audit subject types.
const (
	SubjectRequest = "request"
	SubjectOffer   = "offer"
	SubjectUnlock  = "unlock"
	SubjectRating  = "rating"
)

type actor struct {
	ID   string
	Role string
}

// transition describes one state change for the audit trail.
type transition struct {
	Actor       actor
	Action      string
	SubjectType string
	SubjectID   string
	From        string
	To          string
	Detail      string
}

// record writes t to the audit table on tx so the entry commits or rolls back
// with the change it describes.
func record(ctx context.Context, tx *gorm.DB, t transition) error {
	return repo.CreateAuditEntry(ctx, tx, &domain.AuditEntry{
		ID:          uuid.NewString(),
		ActorID:     t.Actor.ID,
		ActorRole:   t.Actor.Role,
		Action:      t.Action,
		SubjectType: t.SubjectType,
		SubjectID:   t.SubjectID,
		FromStatus:  t.From,
		ToStatus:    t.To,
		Detail:      t.Detail,
		CreatedAt:   time.Now().UTC(),
	})
}

// logCommitted emits one log line per committed transition and bumps the
// transition counter. Admin transitions are flagged so they stand out.
func logCommitted(ts ...transition) {
	for _, t := range ts {
		ev := log.Info()
		if t.Actor.Role == RoleAdmin {
			ev = log.Warn()
		}
		ev.Str("action", t.Action).
			Str("subject_type", t.SubjectType).
			Str("subject_id", t.SubjectID).
			Str("from", t.From).
			Str("to", t.To).
			Str("actor_id", t.Actor.ID).
			Str("actor_role", t.Actor.Role).
			Bool("admin", t.Actor.Role == RoleAdmin).
			Msg("transition")
		transitionsTotal.WithLabelValues(t.SubjectType, t.Action, t.Actor.Role).Inc()
	}
}

// publish hands committed events to p. Failures are logged and dropped.
func publish(ctx context.Context, p events.Publisher, evs ...events.Event) {
	if p == nil || len(evs) == 0 {
		return
	}
	if err := p.Publish(ctx, evs...); err != nil {
		eventPublishFailures.Inc()
		log.Warn().Err(err).Int("count", len(evs)).Str("first", evs[0].Type).Msg("event publish failed")
	}
}

func newEvent(typ, key, subjectID string, a actor, attrs map[string]string) events.Event {
	return events.Event{
		Type:       typ,
		Key:        key,
		SubjectID:  subjectID,
		ActorID:    a.ID,
		ActorRole:  a.Role,
		Attributes: attrs,
		OccurredAt: time.Now().UTC(),
	}
}

// spanErr marks span as failed for unexpected errors. Domain sentinels are
// normal outcomes and leave the span status untouched.
func spanErr(span trace.Span, err error) error {
	if err == nil || isDomainErr(err) {
		return err
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

var domainErrs = []error{
	ErrAlreadyMatched, ErrAlreadyConfirmed, ErrAlreadyRated, ErrAlreadyUnlocked,
	ErrRequestNotOpen, ErrNotMatched, ErrRequestNotCompleted, ErrInvalidState, ErrOfferNotPending,
	ErrNotAuthorized, ErrOfferNotForThisRequest,
	ErrRequestNotFound, ErrOfferNotFound, ErrUnlockNotFound,
	ErrInvalidRequest, ErrInvalidOffer, ErrInvalidAmount, ErrInvalidScore, ErrInvalidThread,
}

func isDomainErr(err error) bool {
	for _, d := range domainErrs {
		if errors.Is(err, d) {
			return true
		}
	}
	return false
}

// notFound maps repo.ErrNotFound to sentinel and passes other errors through.
func notFound(err, sentinel error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return sentinel
	}
	return err
}
