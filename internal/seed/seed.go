package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	organizationdomain "github.com/pillarworks/meridian/internal/organization/domain"
	"gorm.io/gorm"
)

const (
	defaultOrgName  = "Main"
	defaultOrgEmail = "billing@meridian.local"
)

// EnsureMainOrg seeds the default organization for startup bootstrap so a
// fresh install can receive webhooks immediately.
func EnsureMainOrg(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing organizationdomain.Organization
		err := tx.WithContext(ctx).
			Where("name = ?", defaultOrgName).
			First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()
		trialEnd := now.AddDate(0, 0, 14)
		org := organizationdomain.Organization{
			ID:                  node.Generate(),
			Name:                defaultOrgName,
			Status:              organizationdomain.StatusTrial,
			BillingContactEmail: defaultOrgEmail,
			TrialEndsAt:         &trialEnd,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		return tx.WithContext(ctx).Create(&org).Error
	})
}
