package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pillarworks/meridian/internal/cache"
	"github.com/pillarworks/meridian/internal/clock"
	notificationdomain "github.com/pillarworks/meridian/internal/notification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	recipientCacheTTL = 5 * time.Minute
	dispatchTimeout   = 2 * time.Second
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Dispatcher struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	recipients *cache.TTLCache[snowflake.ID, string]
}

func NewDispatcher(p Params) notificationdomain.Dispatcher {
	return &Dispatcher{
		db:         p.DB,
		log:        p.Log.Named("notification.dispatcher"),
		genID:      p.GenID,
		clock:      p.Clock,
		recipients: cache.NewTTLCache[snowflake.ID, string](),
	}
}

// Notify records a notification for the organization's billing contact.
// Every failure is logged and swallowed. Inside a caller transaction the
// write sits behind a savepoint so a failed insert cannot poison the billing
// writes; without one it runs on the base connection with a bounded context
// so a slow write cannot hold up the webhook path.
func (d *Dispatcher) Notify(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, kind, message string) {
	kind = strings.TrimSpace(kind)
	message = strings.TrimSpace(message)
	if orgID == 0 || kind == "" || message == "" {
		d.log.Warn("dropping notification with missing fields",
			zap.String("kind", kind),
		)
		return
	}

	record := &notificationdomain.Notification{
		ID:        d.genID.Generate(),
		OrgID:     orgID,
		Kind:      kind,
		Message:   message,
		CreatedAt: d.clock.Now(),
	}

	var err error
	if tx != nil {
		record.Recipient = d.lookupRecipient(ctx, tx, orgID)
		tx.SavePoint("notify")
		if err = tx.WithContext(ctx).Create(record).Error; err != nil {
			tx.RollbackTo("notify")
		}
	} else {
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
		defer cancel()
		record.Recipient = d.lookupRecipient(writeCtx, d.db, orgID)
		err = d.db.WithContext(writeCtx).Create(record).Error
	}
	if err != nil {
		d.log.Error("notification dispatch failed",
			zap.String("org_id", orgID.String()),
			zap.String("kind", kind),
			zap.Error(err),
		)
		return
	}

	d.log.Info("notification dispatched",
		zap.String("org_id", orgID.String()),
		zap.String("kind", kind),
	)
}

func (d *Dispatcher) lookupRecipient(ctx context.Context, db *gorm.DB, orgID snowflake.ID) string {
	if cached, ok := d.recipients.Get(orgID); ok {
		return cached
	}

	var email string
	if err := db.WithContext(ctx).Raw(
		`SELECT billing_contact_email FROM organizations WHERE id = ?`,
		orgID,
	).Scan(&email).Error; err != nil {
		d.log.Warn("billing contact lookup failed",
			zap.String("org_id", orgID.String()),
			zap.Error(err),
		)
		return ""
	}

	email = strings.TrimSpace(email)
	if email != "" {
		d.recipients.Set(orgID, email, recipientCacheTTL)
	}
	return email
}
