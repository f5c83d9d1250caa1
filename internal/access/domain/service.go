package domain

import (
	"context"

	invoicedomain "github.com/pillarworks/meridian/internal/invoice/domain"
	organizationdomain "github.com/pillarworks/meridian/internal/organization/domain"
	subscriptiondomain "github.com/pillarworks/meridian/internal/subscription/domain"
	"gorm.io/gorm"
)

// Trigger describes the billing state an event left behind, which the access
// policy turns into an organization status decision.
type Trigger struct {
	SubscriptionStatus subscriptiondomain.Status
	InvoiceStatus      invoicedomain.Status
	PaymentSucceeded   bool
}

// Controller derives and applies the organization's access state. It is the
// only writer of Organization.status on the billing path.
type Controller interface {
	// ApplyAccessPolicy evaluates the policy rules in order against the
	// organization's current state and applies at most one status change
	// inside the caller's transaction. It reports whether the status actually
	// changed; no-ops trigger no notification and no audit entry.
	ApplyAccessPolicy(ctx context.Context, tx *gorm.DB, org *organizationdomain.Organization, trigger Trigger) (bool, error)
}
