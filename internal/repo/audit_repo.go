package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-parts-market/internal/domain"
)

// CreateAuditEntry appends e to the audit trail.
func CreateAuditEntry(ctx context.Context, db *gorm.DB, e *domain.AuditEntry) error {
	return db.WithContext(ctx).Create(e).Error
}

// ListAuditEntries returns audit entries oldest first. Empty subjectType or
// subjectID do not filter; limit <= 0 means no limit.
func ListAuditEntries(ctx context.Context, db *gorm.DB, subjectType, subjectID string, limit int) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	q := db.WithContext(ctx)
	if subjectType != "" {
		q = q.Where("subject_type = ?", subjectType)
	}
	if subjectID != "" {
		q = q.Where("subject_id = ?", subjectID)
	}
	q = q.Order("created_at asc, id asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}
