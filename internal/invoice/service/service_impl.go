package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/pillarworks/meridian/internal/clock"
	invoicedomain "github.com/pillarworks/meridian/internal/invoice/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	Clock clock.Clock
	Repo  invoicedomain.Repository
}

type Ledger struct {
	log   *zap.Logger
	clock clock.Clock
	repo  invoicedomain.Repository
}

func NewLedger(p Params) invoicedomain.Ledger {
	return &Ledger{
		log:   p.Log.Named("invoice.ledger"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// OnPaid is idempotent: an invoice already paid reports Changed=false without
// touching paid_at. Events arriving after void or refunded are dropped as
// inconsistencies so a late replay can never resurrect a settled invoice.
func (l *Ledger) OnPaid(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) (invoicedomain.Outcome, error) {
	invoice, err := l.repo.Find(ctx, tx, invoiceID)
	if err != nil {
		return invoicedomain.Outcome{}, err
	}
	if invoice == nil {
		return invoicedomain.Outcome{}, invoicedomain.ErrInvoiceNotFound
	}
	if invoice.Status == invoicedomain.StatusPaid {
		return invoicedomain.Outcome{Status: invoice.Status, Changed: false}, nil
	}
	if invoice.Status.Terminal() {
		l.logInconsistency("paid", invoice)
		return invoicedomain.Outcome{Status: invoice.Status, Inconsistent: true}, nil
	}

	changed, err := l.repo.MarkPaid(ctx, tx, invoiceID, l.clock.Now())
	if err != nil {
		return invoicedomain.Outcome{}, err
	}
	status := invoice.Status
	if changed {
		status = invoicedomain.StatusPaid
	}
	return invoicedomain.Outcome{Status: status, Changed: changed}, nil
}

func (l *Ledger) OnProcessing(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) (invoicedomain.Outcome, error) {
	return l.transition(ctx, tx, invoiceID, "processing",
		[]invoicedomain.Status{invoicedomain.StatusDraft, invoicedomain.StatusOpen},
		invoicedomain.StatusProcessing,
	)
}

func (l *Ledger) OnPastDue(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) (invoicedomain.Outcome, error) {
	return l.transition(ctx, tx, invoiceID, "past_due",
		[]invoicedomain.Status{
			invoicedomain.StatusDraft,
			invoicedomain.StatusOpen,
			invoicedomain.StatusProcessing,
			invoicedomain.StatusFailed,
		},
		invoicedomain.StatusPastDue,
	)
}

func (l *Ledger) OnFinished(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID, succeeded bool) (invoicedomain.Outcome, error) {
	if succeeded {
		return l.OnPaid(ctx, tx, invoiceID)
	}
	return l.transition(ctx, tx, invoiceID, "failed",
		[]invoicedomain.Status{
			invoicedomain.StatusDraft,
			invoicedomain.StatusOpen,
			invoicedomain.StatusProcessing,
			invoicedomain.StatusPastDue,
		},
		invoicedomain.StatusFailed,
	)
}

// OnRefunded is only legal from paid. Anything else is an inconsistency:
// logged, dropped, never raised.
func (l *Ledger) OnRefunded(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) (invoicedomain.Outcome, error) {
	invoice, err := l.repo.Find(ctx, tx, invoiceID)
	if err != nil {
		return invoicedomain.Outcome{}, err
	}
	if invoice == nil {
		return invoicedomain.Outcome{}, invoicedomain.ErrInvoiceNotFound
	}

	changed, err := l.repo.TransitionStatus(ctx, tx, invoiceID,
		[]invoicedomain.Status{invoicedomain.StatusPaid},
		invoicedomain.StatusRefunded,
	)
	if err != nil {
		return invoicedomain.Outcome{}, err
	}
	if !changed {
		l.logInconsistency("refunded", invoice)
		return invoicedomain.Outcome{Status: invoice.Status, Inconsistent: true}, nil
	}
	return invoicedomain.Outcome{Status: invoicedomain.StatusRefunded, Changed: true}, nil
}

func (l *Ledger) transition(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID, action string, from []invoicedomain.Status, to invoicedomain.Status) (invoicedomain.Outcome, error) {
	invoice, err := l.repo.Find(ctx, tx, invoiceID)
	if err != nil {
		return invoicedomain.Outcome{}, err
	}
	if invoice == nil {
		return invoicedomain.Outcome{}, invoicedomain.ErrInvoiceNotFound
	}
	if invoice.Status.Terminal() {
		if invoice.Status != to {
			l.logInconsistency(action, invoice)
			return invoicedomain.Outcome{Status: invoice.Status, Inconsistent: true}, nil
		}
		return invoicedomain.Outcome{Status: invoice.Status, Changed: false}, nil
	}

	changed, err := l.repo.TransitionStatus(ctx, tx, invoiceID, from, to)
	if err != nil {
		return invoicedomain.Outcome{}, err
	}
	status := invoice.Status
	if changed {
		status = to
	}
	return invoicedomain.Outcome{Status: status, Changed: changed}, nil
}

func (l *Ledger) logInconsistency(action string, invoice *invoicedomain.Invoice) {
	l.log.Warn("invoice event ignored for terminal or illegal state",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("current_status", string(invoice.Status)),
		zap.String("event", action),
	)
}
