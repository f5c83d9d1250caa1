package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/pillarworks/meridian/internal/audit/domain"
	"github.com/pillarworks/meridian/internal/clock"
	"github.com/pillarworks/meridian/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Recorder struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewRecorder(p Params) auditdomain.Recorder {
	return &Recorder{
		db:    p.DB,
		log:   p.Log.Named("audit.recorder"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (r *Recorder) LogEvent(ctx context.Context, tx *gorm.DB, orgID *snowflake.ID, category, action string, payload map[string]any) {
	r.append(ctx, tx, orgID, category, action, payload)
}

func (r *Recorder) LogError(ctx context.Context, tx *gorm.DB, orgID *snowflake.ID, category, action string, err error, payload map[string]any) {
	merged := make(map[string]any, len(payload)+1)
	for key, value := range payload {
		merged[key] = value
	}
	if err != nil {
		merged["error"] = err.Error()
	}
	r.append(ctx, tx, orgID, category, action, merged)
}

func (r *Recorder) LogPaymentEvent(ctx context.Context, tx *gorm.DB, orgID *snowflake.ID, action string, payload map[string]any) {
	r.append(ctx, tx, orgID, auditdomain.CategoryBillingWebhook, action, payload)
}

func (r *Recorder) LogSubscriptionEvent(ctx context.Context, tx *gorm.DB, orgID *snowflake.ID, action string, payload map[string]any) {
	r.append(ctx, tx, orgID, auditdomain.CategorySubscription, action, payload)
}

// append writes one entry. Failures are logged to zap and dropped; the audit
// trail is best-effort by contract so billing writes are never blocked.
func (r *Recorder) append(ctx context.Context, tx *gorm.DB, orgID *snowflake.ID, category, action string, payload map[string]any) {
	category = strings.TrimSpace(category)
	action = strings.TrimSpace(action)
	if category == "" || action == "" {
		r.log.Warn("dropping audit entry without category or action")
		return
	}

	db := tx
	if db == nil {
		db = r.db
	}

	entry := &auditdomain.AuditLog{
		ID:        r.genID.Generate(),
		OrgID:     orgID,
		Category:  category,
		Action:    action,
		Payload:   datatypes.JSONMap(logger.MaskFields(payload)),
		CreatedAt: r.clock.Now(),
	}
	if entry.Payload == nil {
		entry.Payload = datatypes.JSONMap{}
	}

	var err error
	if tx != nil {
		// Postgres aborts the whole transaction on any statement error, so a
		// failed audit insert is fenced behind a savepoint to keep the
		// caller's billing writes committable.
		tx.SavePoint("audit_append")
		if err = r.repo.Insert(ctx, tx, entry); err != nil {
			tx.RollbackTo("audit_append")
		}
	} else {
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		err = r.repo.Insert(writeCtx, db, entry)
	}
	if err != nil {
		r.log.Error("audit append failed",
			zap.String("category", category),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}
