package models

import "time"

type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
)

// AuditLog is an append-only record of a change to a directory entity.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"index"`

	// acting user, 0 when the change did not come from a request
	UserID uint `gorm:"index"`

	EntityType string      `gorm:"size:50;index:idx_audit_entity"`
	EntityID   uint        `gorm:"index:idx_audit_entity"`
	Action     AuditAction `gorm:"size:20"`

	// JSON snapshots, "null" when absent
	BeforeData string `gorm:"type:text"`
	AfterData  string `gorm:"type:text"`
}
