package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Outcome is the result of applying an event to an invoice. Inconsistent
// marks an event that was illegal for the invoice's current state and was
// dropped (logged, never raised).
type Outcome struct {
	Status       Status
	Changed      bool
	Inconsistent bool
}

// Ledger is the invoice state machine:
//
//	draft -> open/processing -> {paid, failed, past_due} -> {void, refunded, uncollectible}
//
// Terminal statuses are never overwritten; out-of-order events converge
// through the terminal checks rather than timestamps.
type Ledger interface {
	OnPaid(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) (Outcome, error)
	OnProcessing(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) (Outcome, error)
	OnPastDue(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) (Outcome, error)
	OnFinished(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID, succeeded bool) (Outcome, error)
	OnRefunded(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) (Outcome, error)
}

var ErrInvoiceNotFound = errors.New("invoice_not_found")
