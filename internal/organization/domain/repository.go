package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Find(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Organization, error)

	// LockForUpdate loads the organization row with FOR UPDATE. This is the
	// serialization point for all per-organization billing mutations.
	LockForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Organization, error)

	// UpdateStatus performs a guarded status write and reports whether a row
	// actually changed.
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status, reason string) (bool, error)

	SetTrialEnd(ctx context.Context, db *gorm.DB, id snowflake.ID, endsAt time.Time) (bool, error)
}
