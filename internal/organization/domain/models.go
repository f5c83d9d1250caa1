package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is the canonical organization access state. Lowercase values are the
// single vocabulary used across storage, API responses, and audit payloads.
type Status string

const (
	StatusTrial     Status = "trial"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusInactive  Status = "inactive"
	StatusDeleted   Status = "deleted"
)

// Valid reports whether s is a known organization status.
func (s Status) Valid() bool {
	switch s {
	case StatusTrial, StatusActive, StatusSuspended, StatusInactive, StatusDeleted:
		return true
	default:
		return false
	}
}

// Organization is the tenant record. Status is mutated only through the
// Service so every change goes through the same lock-and-audit path.
type Organization struct {
	ID                  snowflake.ID `gorm:"primaryKey"`
	Name                string       `gorm:"type:text;not null"`
	Status              Status       `gorm:"type:text;not null;default:'trial'"`
	StatusReason        *string      `gorm:"type:text"`
	BillingContactEmail string       `gorm:"type:text;not null;default:''"`
	TrialEndsAt         *time.Time
	CreatedAt           time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }
