package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-parts-market/internal/domain"
)

// EnsureChatThread returns the thread for (buyerID, sellerID, partID),
// creating it if absent. The insert ignores conflicts on the unique key, so
// concurrent callers all read back the same row.
func EnsureChatThread(ctx context.Context, db *gorm.DB, buyerID, sellerID string, partID *string) (*domain.ChatThread, error) {
	key := ""
	if partID != nil {
		key = *partID
	}
	t := &domain.ChatThread{
		ID:        uuid.NewString(),
		BuyerID:   buyerID,
		SellerID:  sellerID,
		PartID:    partID,
		PartKey:   key,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(t).Error; err != nil {
		return nil, err
	}

	var got domain.ChatThread
	err := db.WithContext(ctx).
		Where("buyer_id = ? AND seller_id = ? AND part_key = ?", buyerID, sellerID, key).
		First(&got).Error
	if err != nil {
		return nil, err
	}
	return &got, nil
}
