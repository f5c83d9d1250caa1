package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/pillarworks/meridian/internal/subscription/domain"
	"gorm.io/gorm"
)

type repository struct{}

func Provide() subscriptiondomain.Repository {
	return repository{}
}

func (repository) FindCurrent(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (*subscriptiondomain.Subscription, error) {
	var sub subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM subscriptions
		 WHERE org_id = ? AND status <> ?
		 ORDER BY id DESC
		 LIMIT 1`,
		orgID,
		subscriptiondomain.StatusCanceled,
	).Scan(&sub).Error
	if err != nil {
		return nil, err
	}
	if sub.ID == 0 {
		return nil, nil
	}
	return &sub, nil
}

func (repository) Insert(ctx context.Context, db *gorm.DB, sub *subscriptiondomain.Subscription) error {
	return db.WithContext(ctx).Create(sub).Error
}

func (repository) TransitionStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from []subscriptiondomain.Status, to subscriptiondomain.Status) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE subscriptions
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
