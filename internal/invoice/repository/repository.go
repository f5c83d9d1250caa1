package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/pillarworks/meridian/internal/invoice/domain"
	"gorm.io/gorm"
)

type repository struct{}

func Provide() invoicedomain.Repository {
	return repository{}
}

func (repository) Find(ctx context.Context, db *gorm.DB, id snowflake.ID) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM invoices WHERE id = ?`,
		id,
	).Scan(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (repository) TransitionStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from []invoicedomain.Status, to invoicedomain.Status) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET status = ?, updated_at = ?
		 WHERE id = ? AND status IN ?`,
		to,
		time.Now().UTC(),
		id,
		from,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (repository) MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET status = ?, paid_at = COALESCE(paid_at, ?), updated_at = ?
		 WHERE id = ? AND status NOT IN ?`,
		invoicedomain.StatusPaid,
		paidAt,
		time.Now().UTC(),
		id,
		[]invoicedomain.Status{
			invoicedomain.StatusPaid,
			invoicedomain.StatusVoid,
			invoicedomain.StatusRefunded,
		},
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
