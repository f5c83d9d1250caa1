package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ListFilter narrows audit listing for the admin endpoint.
type ListFilter struct {
	OrgID    snowflake.ID
	Category string
	Action   string
	StartAt  *time.Time
	EndAt    *time.Time
	Limit    int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditLog, error)
}
