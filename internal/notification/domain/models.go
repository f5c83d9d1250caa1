package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Notification kinds sent to an organization's billing contact.
const (
	KindPaymentFailed    = "payment_failed"
	KindAccountSuspended = "account_suspended"
	KindPaymentRecovered = "payment_recovered"
	KindAccountInactive  = "account_inactive"
)

// Notification is the persisted record of a dispatched message. Delivery to
// an external channel happens elsewhere; this table is the observable log.
type Notification struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	OrgID     snowflake.ID `gorm:"not null;index"`
	Kind      string       `gorm:"type:text;not null"`
	Recipient string       `gorm:"type:text;not null;default:''"`
	Message   string       `gorm:"type:text;not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Notification) TableName() string { return "notifications" }

// Dispatcher delivers fire-and-forget notifications. Implementations swallow
// every failure: a lost notification must never roll back or block a billing
// state transition, so there is nothing for the caller to handle.
type Dispatcher interface {
	// Notify records a message for the organization's billing contact. When
	// tx is non-nil the record joins the caller's transaction behind a
	// savepoint; otherwise it is written on the base connection.
	Notify(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, kind, message string)
}
