package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertRaw(ctx context.Context, db *gorm.DB, raw *RawEvent) error

	// ClaimEvent atomically inserts eventID into the idempotency ledger and
	// reports whether this call owned the insert. false means the event was
	// already applied. The claim participates in the caller's transaction so
	// a rolled-back handler releases it.
	ClaimEvent(ctx context.Context, tx *gorm.DB, eventID string, at time.Time) (bool, error)

	// MarkOutcome finalizes the raw event's disposition and bumps its attempt
	// counter. processedAt is set only for outcomes that finish the event.
	MarkOutcome(ctx context.Context, db *gorm.DB, id snowflake.ID, outcome Outcome, lastError string, processedAt *time.Time) error

	// FetchPending locks up to limit pending rows older than olderThan for
	// replay, skipping rows another worker already holds.
	FetchPending(ctx context.Context, tx *gorm.DB, limit int, olderThan time.Time) ([]RawEvent, error)
}
