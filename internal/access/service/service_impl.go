package service

import (
	"context"
	"fmt"

	accessdomain "github.com/pillarworks/meridian/internal/access/domain"
	auditdomain "github.com/pillarworks/meridian/internal/audit/domain"
	notificationdomain "github.com/pillarworks/meridian/internal/notification/domain"
	organizationdomain "github.com/pillarworks/meridian/internal/organization/domain"
	subscriptiondomain "github.com/pillarworks/meridian/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	ReasonSubscriptionCanceled = "subscription canceled"
	ReasonPaymentEscalation    = "payment failure escalation"
	ReasonPaymentRecovered     = "payment recovered"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	OrgSvc     organizationdomain.Service
	Dispatcher notificationdomain.Dispatcher
	Audit      auditdomain.Recorder
}

type Controller struct {
	log        *zap.Logger
	orgSvc     organizationdomain.Service
	dispatcher notificationdomain.Dispatcher
	audit      auditdomain.Recorder
}

func NewController(p Params) accessdomain.Controller {
	return &Controller{
		log:        p.Log.Named("access.controller"),
		orgSvc:     p.OrgSvc,
		dispatcher: p.Dispatcher,
		audit:      p.Audit,
	}
}

func (c *Controller) ApplyAccessPolicy(ctx context.Context, tx *gorm.DB, org *organizationdomain.Organization, trigger accessdomain.Trigger) (bool, error) {
	if org == nil {
		return false, organizationdomain.ErrNotFound
	}

	target, reason, kind := deriveStatus(org.Status, trigger)
	if target == "" {
		return false, nil
	}

	changed, err := c.orgSvc.UpdateStatus(ctx, tx, org.ID, target, reason)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	message := fmt.Sprintf("Your organization access changed to %s: %s.", target, reason)
	c.dispatcher.Notify(ctx, tx, org.ID, kind, message)

	orgID := org.ID
	c.audit.LogEvent(ctx, tx, &orgID, auditdomain.CategoryOrganization, "organization_status_change", map[string]any{
		"from":   string(org.Status),
		"to":     string(target),
		"reason": reason,
	})

	c.log.Info("organization status changed",
		zap.String("org_id", org.ID.String()),
		zap.String("from", string(org.Status)),
		zap.String("to", string(target)),
		zap.String("reason", reason),
	)
	return true, nil
}

// deriveStatus evaluates the policy rules in order. An empty target means no
// change.
func deriveStatus(current organizationdomain.Status, trigger accessdomain.Trigger) (organizationdomain.Status, string, string) {
	switch {
	case trigger.SubscriptionStatus == subscriptiondomain.StatusCanceled:
		return organizationdomain.StatusInactive, ReasonSubscriptionCanceled, notificationdomain.KindAccountInactive
	case trigger.SubscriptionStatus == subscriptiondomain.StatusSuspended:
		return organizationdomain.StatusSuspended, ReasonPaymentEscalation, notificationdomain.KindAccountSuspended
	case current == organizationdomain.StatusSuspended && trigger.PaymentSucceeded:
		return organizationdomain.StatusActive, ReasonPaymentRecovered, notificationdomain.KindPaymentRecovered
	default:
		return "", "", ""
	}
}
