package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pillarworks/meridian/internal/clock"
	invoicedomain "github.com/pillarworks/meridian/internal/invoice/domain"
	"github.com/pillarworks/meridian/internal/invoice/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupLedger(t *testing.T) (*gorm.DB, invoicedomain.Ledger) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec(
		`CREATE TABLE IF NOT EXISTS invoices (
			id BIGINT PRIMARY KEY,
			org_id BIGINT NOT NULL,
			subscription_id BIGINT,
			invoice_number TEXT NOT NULL,
			amount BIGINT NOT NULL DEFAULT 0,
			currency TEXT NOT NULL DEFAULT 'USD',
			status TEXT NOT NULL DEFAULT 'draft',
			billing_period_start DATETIME,
			billing_period_end DATETIME,
			due_date DATETIME,
			paid_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	).Error; err != nil {
		t.Fatalf("create invoices: %v", err)
	}

	ledger := NewLedger(Params{
		Log:   zap.NewNop(),
		Clock: clock.FixedClock{At: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		Repo:  repository.Provide(),
	})
	return db, ledger
}

func insertInvoice(t *testing.T, db *gorm.DB, id int64, status string) {
	t.Helper()
	if err := db.Exec(
		`INSERT INTO invoices (id, org_id, invoice_number, status) VALUES (?, 1, ?, ?)`,
		id, fmt.Sprintf("INV-%d", id), status,
	).Error; err != nil {
		t.Fatalf("insert invoice: %v", err)
	}
}

func invoiceColumn(t *testing.T, db *gorm.DB, id int64, column string) string {
	t.Helper()
	var value string
	if err := db.Raw(
		fmt.Sprintf(`SELECT COALESCE(CAST(%s AS TEXT), '') FROM invoices WHERE id = ?`, column), id,
	).Scan(&value).Error; err != nil {
		t.Fatalf("read %s: %v", column, err)
	}
	return value
}

func TestOnPaidSetsPaidAtOnce(t *testing.T) {
	db, ledger := setupLedger(t)
	insertInvoice(t, db, 1, "open")

	out, err := ledger.OnPaid(context.Background(), db, 1)
	if err != nil {
		t.Fatalf("on paid: %v", err)
	}
	if !out.Changed || out.Status != invoicedomain.StatusPaid {
		t.Fatalf("first paid: %+v", out)
	}
	paidAt := invoiceColumn(t, db, 1, "paid_at")
	if paidAt == "" {
		t.Fatal("paid_at must be set")
	}

	out, err = ledger.OnPaid(context.Background(), db, 1)
	if err != nil {
		t.Fatalf("second on paid: %v", err)
	}
	if out.Changed {
		t.Fatal("second paid must be a no-op")
	}
	if got := invoiceColumn(t, db, 1, "paid_at"); got != paidAt {
		t.Fatalf("paid_at changed from %q to %q", paidAt, got)
	}
}

func TestOnPaidAfterRefundIsInconsistent(t *testing.T) {
	db, ledger := setupLedger(t)
	insertInvoice(t, db, 1, "refunded")

	out, err := ledger.OnPaid(context.Background(), db, 1)
	if err != nil {
		t.Fatalf("on paid: %v", err)
	}
	if !out.Inconsistent {
		t.Fatalf("expected inconsistency, got %+v", out)
	}
	if got := invoiceColumn(t, db, 1, "status"); got != "refunded" {
		t.Fatalf("refunded invoice must stay refunded, got %q", got)
	}
}

func TestOnRefundedOnlyLegalFromPaid(t *testing.T) {
	db, ledger := setupLedger(t)
	insertInvoice(t, db, 1, "paid")
	insertInvoice(t, db, 2, "void")

	out, err := ledger.OnRefunded(context.Background(), db, 1)
	if err != nil {
		t.Fatalf("refund paid: %v", err)
	}
	if !out.Changed || out.Status != invoicedomain.StatusRefunded {
		t.Fatalf("refund from paid: %+v", out)
	}

	out, err = ledger.OnRefunded(context.Background(), db, 2)
	if err != nil {
		t.Fatalf("refund void: %v", err)
	}
	if !out.Inconsistent {
		t.Fatalf("refund from void must be inconsistent, got %+v", out)
	}
	if got := invoiceColumn(t, db, 2, "status"); got != "void" {
		t.Fatalf("void invoice must stay void, got %q", got)
	}
}

func TestOnFinishedFailedNeverOverwritesTerminal(t *testing.T) {
	db, ledger := setupLedger(t)
	insertInvoice(t, db, 1, "paid")

	out, err := ledger.OnFinished(context.Background(), db, 1, false)
	if err != nil {
		t.Fatalf("on finished: %v", err)
	}
	if !out.Inconsistent {
		t.Fatalf("expected inconsistency, got %+v", out)
	}
	if got := invoiceColumn(t, db, 1, "status"); got != "paid" {
		t.Fatalf("paid invoice must stay paid, got %q", got)
	}
}

func TestOnFinishedFailedFromProcessing(t *testing.T) {
	db, ledger := setupLedger(t)
	insertInvoice(t, db, 1, "processing")

	out, err := ledger.OnFinished(context.Background(), db, 1, false)
	if err != nil {
		t.Fatalf("on finished: %v", err)
	}
	if !out.Changed || out.Status != invoicedomain.StatusFailed {
		t.Fatalf("finish failed: %+v", out)
	}
}

func TestLedgerUnknownInvoice(t *testing.T) {
	db, ledger := setupLedger(t)

	_, err := ledger.OnPaid(context.Background(), db, 404)
	if !errors.Is(err, invoicedomain.ErrInvoiceNotFound) {
		t.Fatalf("expected ErrInvoiceNotFound, got %v", err)
	}
}
