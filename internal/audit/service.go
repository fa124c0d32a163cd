package audit

import (
	"context"
	"fmt"

	"employee-directory/internal/models"

	"gorm.io/gorm"
)

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// Filter narrows a listing. Zero values match everything.
type Filter struct {
	EntityType string
	EntityID   uint
	UserID     uint
	Limit      int
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// List returns matching entries, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]models.AuditLog, error) {
	q := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != 0 {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}

	limit := f.Limit
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	var logs []models.AuditLog
	if err := q.Order("id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	return logs, nil
}
