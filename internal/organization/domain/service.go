package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// BulkResult reports the per-organization outcome of a batch operation.
type BulkResult struct {
	Updated []snowflake.ID `json:"updated"`
	Skipped []snowflake.ID `json:"skipped"`
}

type Service interface {
	Get(ctx context.Context, id snowflake.ID) (*Organization, error)

	// UpdateStatus transitions the organization's access state. The update is
	// guarded so a write that does not change the status reports changed=false
	// and triggers no side effects. When tx is non-nil the write joins the
	// caller's transaction.
	UpdateStatus(ctx context.Context, tx *gorm.DB, id snowflake.ID, status Status, reason string) (changed bool, err error)

	// BulkUpdateStatus applies UpdateStatus across many organizations, each
	// under its own row lock so concurrent webhook processing for the same
	// organization cannot be overwritten.
	BulkUpdateStatus(ctx context.Context, ids []snowflake.ID, status Status, reason string) (BulkResult, error)

	// BulkExtendTrial pushes trial_ends_at forward by the given number of days
	// for organizations still in trial.
	BulkExtendTrial(ctx context.Context, ids []snowflake.ID, days int) (BulkResult, error)
}

var (
	ErrNotFound      = errors.New("organization_not_found")
	ErrInvalidStatus = errors.New("invalid_organization_status")
	ErrInvalidTrial  = errors.New("invalid_trial_extension")
)
