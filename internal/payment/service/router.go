package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	accessdomain "github.com/pillarworks/meridian/internal/access/domain"
	invoicedomain "github.com/pillarworks/meridian/internal/invoice/domain"
	notificationdomain "github.com/pillarworks/meridian/internal/notification/domain"
	organizationdomain "github.com/pillarworks/meridian/internal/organization/domain"
	paymentdomain "github.com/pillarworks/meridian/internal/payment/domain"
	subscriptiondomain "github.com/pillarworks/meridian/internal/subscription/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// route dispatches a decoded event to its state machines and then applies
// the organization access policy. The type switch is exhaustive over the
// sealed event set. It returns the audit action and payload for the single
// billing_webhook entry this event produces.
//
// A referenced subscription or invoice that does not exist locally is
// tolerated: the event may simply have arrived before the entity it talks
// about, so the applicable parts run and the gap is recorded in the audit
// payload instead of failing the transaction.
func (s *Service) route(ctx context.Context, tx *gorm.DB, org *organizationdomain.Organization, event paymentdomain.Event) (string, map[string]any, error) {
	meta := event.EventMeta()
	payload := map[string]any{
		"event_id": meta.EventID,
	}
	var trigger accessdomain.Trigger

	switch ev := event.(type) {
	case *paymentdomain.SubscriptionCreated:
		tr, err := s.lifecycle.OnCreated(ctx, tx, org.ID, subscriptiondomain.CreateParams{
			PriceID:  meta.PlanID,
			Amount:   ev.Amount,
			Currency: ev.Currency,
			Trial:    ev.Trial,
		})
		if err != nil {
			return "", nil, err
		}
		trigger.SubscriptionStatus = tr.Status
		payload["subscription_id"] = tr.SubscriptionID.String()
		payload["subscription_status"] = string(tr.Status)

	case *paymentdomain.SubscriptionPayment:
		trigger.PaymentSucceeded = true

		tr, err := s.lifecycle.OnPaymentSuccess(ctx, tx, org.ID)
		switch {
		case err == nil:
			trigger.SubscriptionStatus = tr.Status
			payload["subscription_status"] = string(tr.Status)
		case errors.Is(err, subscriptiondomain.ErrNoSubscription):
			s.logMissing(org, event, "subscription")
			payload["missing"] = "subscription"
		default:
			return "", nil, err
		}

		if err := s.counter.Reset(ctx, tx, org.ID); err != nil {
			return "", nil, err
		}

		status, err := s.applyInvoice(ctx, tx, org, event, payload, s.ledger.OnPaid)
		if err != nil {
			return "", nil, err
		}
		trigger.InvoiceStatus = status

	case *paymentdomain.SubscriptionFailure:
		count, err := s.counter.Increment(ctx, tx, org.ID)
		if err != nil {
			return "", nil, err
		}
		payload["failure_count"] = count

		tr, err := s.lifecycle.OnPaymentFailure(ctx, tx, org.ID, count)
		switch {
		case err == nil:
			trigger.SubscriptionStatus = tr.Status
			payload["subscription_status"] = string(tr.Status)
		case errors.Is(err, subscriptiondomain.ErrNoSubscription):
			s.logMissing(org, event, "subscription")
			payload["missing"] = "subscription"
		default:
			return "", nil, err
		}

		status, err := s.applyInvoice(ctx, tx, org, event, payload, s.ledger.OnPastDue)
		if err != nil {
			return "", nil, err
		}
		trigger.InvoiceStatus = status

		s.dispatcher.Notify(ctx, tx, org.ID, notificationdomain.KindPaymentFailed,
			fmt.Sprintf("A payment for your subscription failed (attempt %d).", count))

	case *paymentdomain.SubscriptionSuspended:
		tr, err := s.applyLifecycle(ctx, org, event, payload, func() (subscriptiondomain.Transition, error) {
			return s.lifecycle.OnSuspended(ctx, tx, org.ID)
		})
		if err != nil {
			return "", nil, err
		}
		trigger.SubscriptionStatus = tr.Status

	case *paymentdomain.SubscriptionCanceled:
		tr, err := s.applyLifecycle(ctx, org, event, payload, func() (subscriptiondomain.Transition, error) {
			return s.lifecycle.OnCanceled(ctx, tx, org.ID)
		})
		if err != nil {
			return "", nil, err
		}
		trigger.SubscriptionStatus = tr.Status
		if ev.Reason != "" {
			payload["reason"] = ev.Reason
		}

	case *paymentdomain.ChargeUpdated:
		status, err := s.applyInvoice(ctx, tx, org, event, payload, s.ledger.OnProcessing)
		if err != nil {
			return "", nil, err
		}
		trigger.InvoiceStatus = status

	case *paymentdomain.ChargeFinished:
		status, err := s.applyInvoice(ctx, tx, org, event, payload,
			func(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) (invoicedomain.Outcome, error) {
				return s.ledger.OnFinished(ctx, tx, invoiceID, ev.Succeeded)
			})
		if err != nil {
			return "", nil, err
		}
		trigger.InvoiceStatus = status
		payload["succeeded"] = ev.Succeeded

	case *paymentdomain.RefundFinished:
		status, err := s.applyInvoice(ctx, tx, org, event, payload, s.ledger.OnRefunded)
		if err != nil {
			return "", nil, err
		}
		trigger.InvoiceStatus = status
	}

	if _, err := s.access.ApplyAccessPolicy(ctx, tx, org, trigger); err != nil {
		return "", nil, err
	}

	return event.Type(), payload, nil
}

type invoiceOp func(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) (invoicedomain.Outcome, error)

// applyInvoice runs op against the event's referenced invoice, if any. A
// missing reference or unknown invoice is tolerated and noted in the audit
// payload.
func (s *Service) applyInvoice(ctx context.Context, tx *gorm.DB, org *organizationdomain.Organization, event paymentdomain.Event, payload map[string]any, op invoiceOp) (invoicedomain.Status, error) {
	invoiceID := event.EventMeta().InvoiceID
	if invoiceID == 0 {
		return "", nil
	}

	out, err := op(ctx, tx, invoiceID)
	if err != nil {
		if errors.Is(err, invoicedomain.ErrInvoiceNotFound) {
			s.logMissing(org, event, "invoice")
			payload["missing"] = "invoice"
			return "", nil
		}
		return "", err
	}

	payload["invoice_id"] = invoiceID.String()
	payload["invoice_status"] = string(out.Status)
	if out.Inconsistent {
		payload["inconsistent"] = true
	}
	return out.Status, nil
}

func (s *Service) applyLifecycle(ctx context.Context, org *organizationdomain.Organization, event paymentdomain.Event, payload map[string]any, op func() (subscriptiondomain.Transition, error)) (subscriptiondomain.Transition, error) {
	tr, err := op()
	if err != nil {
		if errors.Is(err, subscriptiondomain.ErrNoSubscription) {
			s.logMissing(org, event, "subscription")
			payload["missing"] = "subscription"
			return subscriptiondomain.Transition{}, nil
		}
		return subscriptiondomain.Transition{}, err
	}
	payload["subscription_status"] = string(tr.Status)
	return tr, nil
}

func (s *Service) logMissing(org *organizationdomain.Organization, event paymentdomain.Event, entity string) {
	s.log.Warn("event references an entity that does not exist locally",
		zap.String("org_id", org.ID.String()),
		zap.String("event_type", event.Type()),
		zap.String("entity", entity),
	)
}
