package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Audit categories. Every inbound webhook produces exactly one entry in the
// billing_webhook category; state transitions add entries in their own
// categories.
const (
	CategoryBillingWebhook = "billing_webhook"
	CategoryOrganization   = "organization"
	CategorySubscription   = "subscription"
	CategoryInvoice        = "invoice"
	CategoryNotification   = "notification"
	CategoryAdmin          = "admin"
)

// AuditLog is an immutable record of a billing action or webhook outcome.
type AuditLog struct {
	ID        snowflake.ID      `gorm:"primaryKey"`
	OrgID     *snowflake.ID     `gorm:"index"`
	Category  string            `gorm:"type:text;not null"`
	Action    string            `gorm:"type:text;not null;index"`
	Payload   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }
