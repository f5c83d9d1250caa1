package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Find(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)

	// TransitionStatus performs a guarded status write from any of the given
	// statuses and reports whether a row changed.
	TransitionStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from []Status, to Status) (bool, error)

	// MarkPaid sets status to paid and writes paid_at only if it is not set
	// yet, so replays never move the timestamp.
	MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time) (bool, error)
}
