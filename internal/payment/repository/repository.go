package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/pillarworks/meridian/internal/payment/domain"
	"gorm.io/gorm"
)

type repository struct{}

func Provide() paymentdomain.Repository {
	return repository{}
}

func (repository) InsertRaw(ctx context.Context, db *gorm.DB, raw *paymentdomain.RawEvent) error {
	return db.WithContext(ctx).Create(raw).Error
}

func (repository) ClaimEvent(ctx context.Context, tx *gorm.DB, eventID string, at time.Time) (bool, error) {
	result := tx.WithContext(ctx).Exec(
		`INSERT INTO processed_events (event_id, processed_at)
		 VALUES (?, ?)
		 ON CONFLICT (event_id) DO NOTHING`,
		eventID,
		at,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (repository) MarkOutcome(ctx context.Context, db *gorm.DB, id snowflake.ID, outcome paymentdomain.Outcome, lastError string, processedAt *time.Time) error {
	var errValue any
	if lastError != "" {
		errValue = lastError
	}
	return db.WithContext(ctx).Exec(
		`UPDATE webhook_events
		 SET outcome = ?, last_error = ?, attempts = attempts + 1, processed_at = ?
		 WHERE id = ?`,
		outcome,
		errValue,
		processedAt,
		id,
	).Error
}

func (repository) FetchPending(ctx context.Context, tx *gorm.DB, limit int, olderThan time.Time) ([]paymentdomain.RawEvent, error) {
	var events []paymentdomain.RawEvent
	err := tx.WithContext(ctx).Raw(
		`SELECT * FROM webhook_events
		 WHERE outcome = ? AND received_at < ?
		 ORDER BY received_at
		 LIMIT ?`+lockSuffix(tx),
		paymentdomain.OutcomePending,
		olderThan,
		limit,
	).Scan(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// lockSuffix avoids FOR UPDATE SKIP LOCKED on sqlite, which is only used in
// tests and serializes writers on its own.
func lockSuffix(db *gorm.DB) string {
	if db.Dialector.Name() == "sqlite" {
		return ""
	}
	return " FOR UPDATE SKIP LOCKED"
}
