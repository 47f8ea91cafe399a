package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-parts-market/internal/domain"
	"github.com/tbourn/go-parts-market/internal/repo"
)

// maxThreadKeyRunes matches the width of the thread key columns.
const maxThreadKeyRunes = 64

// ChatThreadService resolves the single conversation between a buyer and a
// seller about a part. Message exchange happens elsewhere.
type ChatThreadService struct {
	DB *gorm.DB
}

// NewChatThreadService constructs a ChatThreadService.
func NewChatThreadService(db *gorm.DB) *ChatThreadService {
	return &ChatThreadService{DB: db}
}

// Ensure returns the thread for (buyerID, sellerID, partID), creating it if
// needed. A nil or empty partID denotes a thread not tied to a part.
// Concurrent calls with the same key return the same thread. Ids longer than
// 64 characters are rejected with ErrInvalidThread.
func (s *ChatThreadService) Ensure(ctx context.Context, buyerID, sellerID string, partID *string) (_ *domain.ChatThread, err error) {
	ctx, span := otel.Tracer("services/ChatThreadService").Start(ctx, "Ensure",
		trace.WithAttributes(attribute.String("buyer.id", buyerID), attribute.String("seller.id", sellerID)))
	defer span.End()
	defer func() { err = spanErr(span, err) }()

	buyerID = strings.TrimSpace(buyerID)
	sellerID = strings.TrimSpace(sellerID)
	if buyerID == "" || sellerID == "" || buyerID == sellerID ||
		utf8.RuneCountInString(buyerID) > maxThreadKeyRunes || utf8.RuneCountInString(sellerID) > maxThreadKeyRunes {
		return nil, ErrInvalidThread
	}
	if partID != nil {
		p := strings.TrimSpace(*partID)
		switch {
		case p == "":
			partID = nil
		case utf8.RuneCountInString(p) > maxThreadKeyRunes:
			return nil, ErrInvalidThread
		default:
			partID = &p
			span.SetAttributes(attribute.String("part.id", p))
		}
	}
	return repo.EnsureChatThread(ctx, s.DB, buyerID, sellerID, partID)
}
