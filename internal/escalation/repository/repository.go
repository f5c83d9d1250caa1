package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	escalationdomain "github.com/pillarworks/meridian/internal/escalation/domain"
	"gorm.io/gorm"
)

type counter struct{}

func Provide() escalationdomain.Counter {
	return counter{}
}

// Increment upserts the per-organization row and bumps the count in one
// statement. RETURNING gives the post-increment value without a second read.
func (counter) Increment(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) (int, error) {
	now := time.Now().UTC()
	var count int
	err := tx.WithContext(ctx).Raw(
		`INSERT INTO failure_counts (org_id, count, last_event_at)
		 VALUES (?, 1, ?)
		 ON CONFLICT (org_id) DO UPDATE
		 SET count = failure_counts.count + 1, last_event_at = ?
		 RETURNING count`,
		orgID,
		now,
		now,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (counter) Reset(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) error {
	now := time.Now().UTC()
	return tx.WithContext(ctx).Exec(
		`INSERT INTO failure_counts (org_id, count, last_event_at)
		 VALUES (?, 0, ?)
		 ON CONFLICT (org_id) DO UPDATE
		 SET count = 0, last_event_at = ?`,
		orgID,
		now,
		now,
	).Error
}

func (counter) Get(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int, error) {
	var count int
	err := db.WithContext(ctx).Raw(
		`SELECT count FROM failure_counts WHERE org_id = ?`,
		orgID,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
