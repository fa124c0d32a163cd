// Package audit keeps an append-only trail of changes to directory records.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"employee-directory/internal/models"

	"gorm.io/gorm"
)

type actorKey struct{}

// WithActor attaches the id of the user performing a change.
func WithActor(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

func ActorFrom(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(actorKey{}).(uint)
	return id, ok
}

type Entry struct {
	EntityType string
	EntityID   uint
	Action     models.AuditAction
	Before     any
	After      any
}

// Write appends entry through tx so it commits or rolls back with the change
// it describes.
func Write(ctx context.Context, tx *gorm.DB, entry Entry) error {
	before, err := snapshot(entry.Before)
	if err != nil {
		return err
	}
	after, err := snapshot(entry.After)
	if err != nil {
		return err
	}

	userID, _ := ActorFrom(ctx)
	log := models.AuditLog{
		UserID:     userID,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Action:     entry.Action,
		BeforeData: before,
		AfterData:  after,
	}
	if err := tx.WithContext(ctx).Create(&log).Error; err != nil {
		return fmt.Errorf("audit: write %s %s/%d: %w", entry.Action, entry.EntityType, entry.EntityID, err)
	}
	return nil
}

func snapshot(v any) (string, error) {
	if v == nil {
		return "null", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("audit: encode snapshot: %w", err)
	}
	return string(b), nil
}
