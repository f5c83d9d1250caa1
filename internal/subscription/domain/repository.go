package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// FindCurrent returns the organization's newest non-canceled subscription,
	// or nil when none exists.
	FindCurrent(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (*Subscription, error)

	Insert(ctx context.Context, db *gorm.DB, sub *Subscription) error

	// TransitionStatus performs a compare-and-swap status write guarded on the
	// current status. It reports whether a row changed.
	TransitionStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from []Status, to Status) (bool, error)
}
