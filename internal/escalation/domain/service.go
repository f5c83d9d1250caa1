package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Counter is the durable consecutive-failure tracker. Increment must be
// atomic so two concurrent failure events for the same organization cannot
// under-count; the storage layer enforces this with a single upsert.
type Counter interface {
	Increment(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) (int, error)
	Reset(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) error
	Get(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int, error)
}
