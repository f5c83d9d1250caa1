package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Recorder appends audit entries. Implementations must never return an error
// to the caller: an audit failure cannot be allowed to block billing
// correctness, so failures are logged and dropped.
type Recorder interface {
	// LogEvent appends one entry. tx may be nil, in which case the base
	// connection is used.
	LogEvent(ctx context.Context, tx *gorm.DB, orgID *snowflake.ID, category, action string, payload map[string]any)

	// LogError appends an error entry with the error message folded into the
	// payload.
	LogError(ctx context.Context, tx *gorm.DB, orgID *snowflake.ID, category, action string, err error, payload map[string]any)

	// LogPaymentEvent and LogSubscriptionEvent are category shorthands used by
	// the webhook handlers.
	LogPaymentEvent(ctx context.Context, tx *gorm.DB, orgID *snowflake.ID, action string, payload map[string]any)
	LogSubscriptionEvent(ctx context.Context, tx *gorm.DB, orgID *snowflake.ID, action string, payload map[string]any)
}
