package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is the subscription lifecycle state. canceled is terminal.
type Status string

const (
	StatusIncomplete Status = "incomplete"
	StatusTrialing   Status = "trialing"
	StatusActive     Status = "active"
	StatusPastDue    Status = "past_due"
	StatusSuspended  Status = "suspended"
	StatusCanceled   Status = "canceled"
)

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool { return s == StatusCanceled }

// Subscription is the billing agreement for an organization. One
// non-canceled subscription per organization.
type Subscription struct {
	ID                 snowflake.ID `gorm:"primaryKey"`
	OrgID              snowflake.ID `gorm:"not null;index"`
	Status             Status       `gorm:"type:text;not null;default:'incomplete'"`
	PriceID            string       `gorm:"type:text;not null;default:''"`
	TotalAmount        int64        `gorm:"not null;default:0"`
	Currency           string       `gorm:"type:text;not null;default:'USD'"`
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool      `gorm:"not null;default:false"`
	CreatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }
