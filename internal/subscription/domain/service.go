package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Transition is the result of a lifecycle operation. Status is the state the
// subscription holds afterwards; Changed reports whether this call actually
// moved it there. Callers feed the result to the access policy rather than the
// lifecycle mutating organizations itself.
type Transition struct {
	SubscriptionID snowflake.ID
	Status         Status
	Changed        bool
}

// CreateParams carries the fields a creation event provides.
type CreateParams struct {
	PriceID  string
	Amount   int64
	Currency string
	Trial    bool
}

// Lifecycle is the subscription state machine. All operations run inside the
// caller's transaction; per-organization serialization is the caller's
// responsibility (the webhook path locks the organization row first).
type Lifecycle interface {
	OnCreated(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, params CreateParams) (Transition, error)
	OnPaymentSuccess(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) (Transition, error)
	OnPaymentFailure(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, failureCount int) (Transition, error)
	OnSuspended(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) (Transition, error)
	OnCanceled(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) (Transition, error)
}

var (
	ErrNoSubscription = errors.New("subscription_not_found")
	ErrTerminalState  = errors.New("subscription_canceled")
)
