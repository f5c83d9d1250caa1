package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	organizationdomain "github.com/pillarworks/meridian/internal/organization/domain"
	"gorm.io/gorm"
)

type repository struct{}

func Provide() organizationdomain.Repository {
	return repository{}
}

func (repository) Find(ctx context.Context, db *gorm.DB, id snowflake.ID) (*organizationdomain.Organization, error) {
	var org organizationdomain.Organization
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM organizations WHERE id = ?`,
		id,
	).Scan(&org).Error
	if err != nil {
		return nil, err
	}
	if org.ID == 0 {
		return nil, nil
	}
	return &org, nil
}

func (repository) LockForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*organizationdomain.Organization, error) {
	var org organizationdomain.Organization
	err := tx.WithContext(ctx).Raw(
		`SELECT * FROM organizations WHERE id = ?`+lockSuffix(tx),
		id,
	).Scan(&org).Error
	if err != nil {
		return nil, err
	}
	if org.ID == 0 {
		return nil, nil
	}
	return &org, nil
}

func (repository) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status organizationdomain.Status, reason string) (bool, error) {
	var reasonValue any
	if reason != "" {
		reasonValue = reason
	}
	result := db.WithContext(ctx).Exec(
		`UPDATE organizations
		 SET status = ?, status_reason = ?, updated_at = ?
		 WHERE id = ? AND status <> ? AND status <> ?`,
		status,
		reasonValue,
		time.Now().UTC(),
		id,
		status,
		organizationdomain.StatusDeleted,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (repository) SetTrialEnd(ctx context.Context, db *gorm.DB, id snowflake.ID, endsAt time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE organizations
		 SET trial_ends_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		endsAt,
		time.Now().UTC(),
		id,
		organizationdomain.StatusTrial,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// lockSuffix avoids FOR UPDATE on sqlite, which is only used in tests and
// serializes writers on its own.
func lockSuffix(db *gorm.DB) string {
	if db.Dialector.Name() == "sqlite" {
		return ""
	}
	return " FOR UPDATE"
}
