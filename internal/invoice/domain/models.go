package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is the invoice payment state. paid, void, and refunded are terminal.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusOpen          Status = "open"
	StatusProcessing    Status = "processing"
	StatusPaid          Status = "paid"
	StatusPastDue       Status = "past_due"
	StatusFailed        Status = "failed"
	StatusVoid          Status = "void"
	StatusUncollectible Status = "uncollectible"
	StatusRefunded      Status = "refunded"
)

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusPaid, StatusVoid, StatusRefunded:
		return true
	default:
		return false
	}
}

// Invoice is one billing document. PaidAt is written exactly once, on the
// first transition into paid.
type Invoice struct {
	ID                 snowflake.ID  `gorm:"primaryKey"`
	OrgID              snowflake.ID  `gorm:"not null;index"`
	SubscriptionID     *snowflake.ID `gorm:"index"`
	InvoiceNumber      string        `gorm:"type:text;not null;uniqueIndex"`
	Amount             int64         `gorm:"not null;default:0"`
	Currency           string        `gorm:"type:text;not null;default:'USD'"`
	Status             Status        `gorm:"type:text;not null;default:'draft'"`
	BillingPeriodStart *time.Time
	BillingPeriodEnd   *time.Time
	DueDate            *time.Time
	PaidAt             *time.Time
	CreatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }
