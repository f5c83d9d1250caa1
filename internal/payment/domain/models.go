package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Outcome is the terminal disposition of a captured webhook event. pending
// rows are either mid-flight or awaiting replay; every other outcome is
// final.
type Outcome string

const (
	OutcomePending          Outcome = "pending"
	OutcomeApplied          Outcome = "applied"
	OutcomeDuplicate        Outcome = "duplicate"
	OutcomeSignatureInvalid Outcome = "signature_invalid"
	OutcomeInvalidPayload   Outcome = "invalid_payload"
	OutcomeUnknownType      Outcome = "unknown_type"
	OutcomeUnattributed     Outcome = "unattributed"
	OutcomeFailed           Outcome = "failed"
)

// RawEvent is the durable capture of an inbound webhook, written before the
// processor is acknowledged. Body holds the exact raw bytes; signature
// verification re-reads them untouched.
type RawEvent struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	EventID     string       `gorm:"type:text;not null;default:''"`
	Signature   string       `gorm:"type:text;not null;default:''"`
	Body        string       `gorm:"type:text;not null"`
	Outcome     Outcome      `gorm:"type:text;not null;default:'pending'"`
	LastError   *string      `gorm:"type:text"`
	Attempts    int          `gorm:"not null;default:0"`
	ReceivedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	ProcessedAt *time.Time
}

// TableName sets the database table name.
func (RawEvent) TableName() string { return "webhook_events" }

// ProcessedEvent is the idempotency ledger. A row's existence means the
// processor-issued event id has been applied and must never be applied again.
type ProcessedEvent struct {
	EventID     string    `gorm:"primaryKey;type:text"`
	ProcessedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ProcessedEvent) TableName() string { return "processed_events" }
