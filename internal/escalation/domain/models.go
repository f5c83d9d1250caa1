package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Threshold is the number of consecutive payment failures that suspends an
// organization.
const Threshold = 3

// FailureCount tracks consecutive payment failures per organization. The row
// is reset to zero by any successful payment event.
type FailureCount struct {
	OrgID       snowflake.ID `gorm:"primaryKey;column:org_id"`
	Count       int          `gorm:"not null;default:0"`
	LastEventAt *time.Time
}

// TableName sets the database table name.
func (FailureCount) TableName() string { return "failure_counts" }
