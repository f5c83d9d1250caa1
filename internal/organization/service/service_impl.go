package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pillarworks/meridian/internal/clock"
	organizationdomain "github.com/pillarworks/meridian/internal/organization/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  organizationdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  organizationdomain.Repository
}

func NewService(p Params) organizationdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("organization.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*organizationdomain.Organization, error) {
	org, err := s.repo.Find(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, organizationdomain.ErrNotFound
	}
	return org, nil
}

func (s *Service) UpdateStatus(ctx context.Context, tx *gorm.DB, id snowflake.ID, status organizationdomain.Status, reason string) (bool, error) {
	if !status.Valid() {
		return false, organizationdomain.ErrInvalidStatus
	}

	if tx != nil {
		return s.repo.UpdateStatus(ctx, tx, id, status, reason)
	}

	// Standalone calls get their own transaction with the organization row
	// locked first, matching the webhook path's serialization discipline.
	var changed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org, err := s.repo.LockForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if org == nil {
			return organizationdomain.ErrNotFound
		}
		changed, err = s.repo.UpdateStatus(ctx, tx, id, status, reason)
		return err
	})
	return changed, err
}

func (s *Service) BulkUpdateStatus(ctx context.Context, ids []snowflake.ID, status organizationdomain.Status, reason string) (organizationdomain.BulkResult, error) {
	if !status.Valid() {
		return organizationdomain.BulkResult{}, organizationdomain.ErrInvalidStatus
	}

	result := organizationdomain.BulkResult{}
	for _, id := range ids {
		changed, err := s.UpdateStatus(ctx, nil, id, status, reason)
		if err != nil {
			s.log.Warn("bulk status update failed",
				zap.String("org_id", id.String()),
				zap.Error(err),
			)
			result.Skipped = append(result.Skipped, id)
			continue
		}
		if changed {
			result.Updated = append(result.Updated, id)
		} else {
			result.Skipped = append(result.Skipped, id)
		}
	}
	return result, nil
}

func (s *Service) BulkExtendTrial(ctx context.Context, ids []snowflake.ID, days int) (organizationdomain.BulkResult, error) {
	if days <= 0 || days > 365 {
		return organizationdomain.BulkResult{}, organizationdomain.ErrInvalidTrial
	}

	result := organizationdomain.BulkResult{}
	for _, id := range ids {
		changed, err := s.extendTrial(ctx, id, days)
		if err != nil {
			s.log.Warn("trial extension failed",
				zap.String("org_id", id.String()),
				zap.Error(err),
			)
			result.Skipped = append(result.Skipped, id)
			continue
		}
		if changed {
			result.Updated = append(result.Updated, id)
		} else {
			result.Skipped = append(result.Skipped, id)
		}
	}
	return result, nil
}

// extendTrial locks the row, computes the new trial end from the later of now
// and the current end, then writes it. One transaction per organization so a
// long batch never holds locks across tenants.
func (s *Service) extendTrial(ctx context.Context, id snowflake.ID, days int) (bool, error) {
	var changed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org, err := s.repo.LockForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if org == nil {
			return organizationdomain.ErrNotFound
		}
		if org.Status != organizationdomain.StatusTrial {
			return nil
		}

		now := s.clock.Now()
		base := now
		if org.TrialEndsAt != nil && org.TrialEndsAt.After(now) {
			base = *org.TrialEndsAt
		}
		endsAt := base.Add(time.Duration(days) * 24 * time.Hour)

		changed, err = s.repo.SetTrialEnd(ctx, tx, id, endsAt)
		return err
	})
	return changed, err
}
