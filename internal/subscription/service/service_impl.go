package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/pillarworks/meridian/internal/clock"
	escalationdomain "github.com/pillarworks/meridian/internal/escalation/domain"
	subscriptiondomain "github.com/pillarworks/meridian/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  subscriptiondomain.Repository
}

// Lifecycle implements the subscription state machine:
//
//	incomplete -> {trialing, active} -> past_due -> {active, suspended} -> canceled
//
// suspended returns to active only through a successful payment. canceled has
// no outgoing edges.
type Lifecycle struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  subscriptiondomain.Repository
}

func NewLifecycle(p Params) subscriptiondomain.Lifecycle {
	return &Lifecycle{
		log:   p.Log.Named("subscription.lifecycle"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (l *Lifecycle) OnCreated(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, params subscriptiondomain.CreateParams) (subscriptiondomain.Transition, error) {
	existing, err := l.repo.FindCurrent(ctx, tx, orgID)
	if err != nil {
		return subscriptiondomain.Transition{}, err
	}

	initial := subscriptiondomain.StatusActive
	if params.Trial {
		initial = subscriptiondomain.StatusTrialing
	}

	if existing != nil {
		// Redelivered or CRUD-created subscription: promote an incomplete row
		// instead of inserting a second one.
		if existing.Status != subscriptiondomain.StatusIncomplete {
			return subscriptiondomain.Transition{SubscriptionID: existing.ID, Status: existing.Status, Changed: false}, nil
		}
		changed, err := l.repo.TransitionStatus(ctx, tx, existing.ID,
			[]subscriptiondomain.Status{subscriptiondomain.StatusIncomplete}, initial)
		if err != nil {
			return subscriptiondomain.Transition{}, err
		}
		return subscriptiondomain.Transition{SubscriptionID: existing.ID, Status: initial, Changed: changed}, nil
	}

	now := l.clock.Now()
	periodEnd := now.AddDate(0, 1, 0)
	sub := &subscriptiondomain.Subscription{
		ID:                 l.genID.Generate(),
		OrgID:              orgID,
		Status:             initial,
		PriceID:            strings.TrimSpace(params.PriceID),
		TotalAmount:        params.Amount,
		Currency:           normalizeCurrency(params.Currency),
		CurrentPeriodStart: &now,
		CurrentPeriodEnd:   &periodEnd,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := l.repo.Insert(ctx, tx, sub); err != nil {
		return subscriptiondomain.Transition{}, err
	}
	return subscriptiondomain.Transition{SubscriptionID: sub.ID, Status: initial, Changed: true}, nil
}

func (l *Lifecycle) OnPaymentSuccess(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) (subscriptiondomain.Transition, error) {
	sub, err := l.repo.FindCurrent(ctx, tx, orgID)
	if err != nil {
		return subscriptiondomain.Transition{}, err
	}
	if sub == nil {
		return subscriptiondomain.Transition{}, subscriptiondomain.ErrNoSubscription
	}
	if sub.Status.Terminal() {
		return subscriptiondomain.Transition{SubscriptionID: sub.ID, Status: sub.Status, Changed: false}, nil
	}

	changed, err := l.repo.TransitionStatus(ctx, tx, sub.ID,
		[]subscriptiondomain.Status{
			subscriptiondomain.StatusIncomplete,
			subscriptiondomain.StatusPastDue,
			subscriptiondomain.StatusSuspended,
		},
		subscriptiondomain.StatusActive,
	)
	if err != nil {
		return subscriptiondomain.Transition{}, err
	}

	status := sub.Status
	if changed {
		status = subscriptiondomain.StatusActive
	}
	return subscriptiondomain.Transition{SubscriptionID: sub.ID, Status: status, Changed: changed}, nil
}

// OnPaymentFailure moves the subscription to past_due, or to suspended once
// the consecutive-failure count reaches the escalation threshold. The count
// is incremented by the caller before this runs.
func (l *Lifecycle) OnPaymentFailure(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, failureCount int) (subscriptiondomain.Transition, error) {
	sub, err := l.repo.FindCurrent(ctx, tx, orgID)
	if err != nil {
		return subscriptiondomain.Transition{}, err
	}
	if sub == nil {
		return subscriptiondomain.Transition{}, subscriptiondomain.ErrNoSubscription
	}
	if sub.Status.Terminal() {
		return subscriptiondomain.Transition{SubscriptionID: sub.ID, Status: sub.Status, Changed: false}, nil
	}

	target := subscriptiondomain.StatusPastDue
	if failureCount >= escalationdomain.Threshold {
		target = subscriptiondomain.StatusSuspended
	}

	from := []subscriptiondomain.Status{
		subscriptiondomain.StatusIncomplete,
		subscriptiondomain.StatusTrialing,
		subscriptiondomain.StatusActive,
		subscriptiondomain.StatusPastDue,
	}
	changed, err := l.repo.TransitionStatus(ctx, tx, sub.ID, from, target)
	if err != nil {
		return subscriptiondomain.Transition{}, err
	}

	status := sub.Status
	if changed {
		status = target
	}
	return subscriptiondomain.Transition{SubscriptionID: sub.ID, Status: status, Changed: changed}, nil
}

func (l *Lifecycle) OnSuspended(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) (subscriptiondomain.Transition, error) {
	return l.transitionCurrent(ctx, tx, orgID,
		[]subscriptiondomain.Status{
			subscriptiondomain.StatusIncomplete,
			subscriptiondomain.StatusTrialing,
			subscriptiondomain.StatusActive,
			subscriptiondomain.StatusPastDue,
		},
		subscriptiondomain.StatusSuspended,
	)
}

func (l *Lifecycle) OnCanceled(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) (subscriptiondomain.Transition, error) {
	return l.transitionCurrent(ctx, tx, orgID,
		[]subscriptiondomain.Status{
			subscriptiondomain.StatusIncomplete,
			subscriptiondomain.StatusTrialing,
			subscriptiondomain.StatusActive,
			subscriptiondomain.StatusPastDue,
			subscriptiondomain.StatusSuspended,
		},
		subscriptiondomain.StatusCanceled,
	)
}

func (l *Lifecycle) transitionCurrent(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, from []subscriptiondomain.Status, to subscriptiondomain.Status) (subscriptiondomain.Transition, error) {
	sub, err := l.repo.FindCurrent(ctx, tx, orgID)
	if err != nil {
		return subscriptiondomain.Transition{}, err
	}
	if sub == nil {
		return subscriptiondomain.Transition{}, subscriptiondomain.ErrNoSubscription
	}
	if sub.Status.Terminal() {
		return subscriptiondomain.Transition{SubscriptionID: sub.ID, Status: sub.Status, Changed: false}, nil
	}

	changed, err := l.repo.TransitionStatus(ctx, tx, sub.ID, from, to)
	if err != nil {
		return subscriptiondomain.Transition{}, err
	}

	status := sub.Status
	if changed {
		status = to
	}
	return subscriptiondomain.Transition{SubscriptionID: sub.ID, Status: status, Changed: changed}, nil
}

func normalizeCurrency(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return "USD"
	}
	return currency
}
