package models

import "time"

type Employee struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:80;not null" json:"name"`
	Department string    `gorm:"size:80;not null" json:"department"`
	CreatedBy  uint      `gorm:"not null;index" json:"created_by"` // users.id of the creator
	CreatedAt  time.Time `json:"created_at"`
}
