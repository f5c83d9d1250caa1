package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	accessdomain "github.com/pillarworks/meridian/internal/access/domain"
	auditdomain "github.com/pillarworks/meridian/internal/audit/domain"
	"github.com/pillarworks/meridian/internal/clock"
	escalationdomain "github.com/pillarworks/meridian/internal/escalation/domain"
	invoicedomain "github.com/pillarworks/meridian/internal/invoice/domain"
	notificationdomain "github.com/pillarworks/meridian/internal/notification/domain"
	"github.com/pillarworks/meridian/internal/observability/logger"
	organizationdomain "github.com/pillarworks/meridian/internal/organization/domain"
	paymentdomain "github.com/pillarworks/meridian/internal/payment/domain"
	"github.com/pillarworks/meridian/internal/payment/signature"
	subscriptiondomain "github.com/pillarworks/meridian/internal/subscription/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// maxAttempts caps replays of a row that keeps failing; after that it is
	// parked as failed for manual inspection.
	maxAttempts = 8

	// replayMinAge keeps the replay worker off rows the synchronous path is
	// still working on.
	replayMinAge = 30 * time.Second
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Verifier   *signature.Verifier
	Repo       paymentdomain.Repository
	OrgRepo    organizationdomain.Repository
	Lifecycle  subscriptiondomain.Lifecycle
	Ledger     invoicedomain.Ledger
	Counter    escalationdomain.Counter
	Access     accessdomain.Controller
	Dispatcher notificationdomain.Dispatcher
	Audit      auditdomain.Recorder
}

// Service is the webhook processor. Capture makes the event durable before
// the HTTP acknowledgment; Process applies it inside a single transaction
// that locks the organization row first, so all billing mutations for one
// tenant are serialized while different tenants run in parallel.
type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	verifier   *signature.Verifier
	repo       paymentdomain.Repository
	orgRepo    organizationdomain.Repository
	lifecycle  subscriptiondomain.Lifecycle
	ledger     invoicedomain.Ledger
	counter    escalationdomain.Counter
	access     accessdomain.Controller
	dispatcher notificationdomain.Dispatcher
	audit      auditdomain.Recorder
}

func NewService(p Params) paymentdomain.Processor {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.processor"),
		genID:      p.GenID,
		clock:      p.Clock,
		verifier:   p.Verifier,
		repo:       p.Repo,
		orgRepo:    p.OrgRepo,
		lifecycle:  p.Lifecycle,
		ledger:     p.Ledger,
		counter:    p.Counter,
		access:     p.Access,
		dispatcher: p.Dispatcher,
		audit:      p.Audit,
	}
}

// Capture persists the raw event. An error here is the one case where the
// gateway must withhold the acknowledgment so the processor retries.
func (s *Service) Capture(ctx context.Context, body []byte, sig string) (*paymentdomain.RawEvent, error) {
	raw := &paymentdomain.RawEvent{
		ID:         s.genID.Generate(),
		EventID:    paymentdomain.PeekEventID(body),
		Signature:  sig,
		Body:       string(body),
		Outcome:    paymentdomain.OutcomePending,
		ReceivedAt: s.clock.Now(),
	}
	if err := s.repo.InsertRaw(ctx, s.db, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Process verifies, decodes and applies a captured event. Rejections
// (bad signature, malformed payload, unknown type, unattributable event,
// duplicate) finalize the row and return nil: the event is settled and must
// not be replayed. Only a downstream persistence failure returns an error, in
// which case the row stays pending, the idempotency claim is rolled back with
// the rest of the transaction, and a redelivery or the replay worker can
// retry it.
func (s *Service) Process(ctx context.Context, raw *paymentdomain.RawEvent) error {
	ctx, span := otel.Tracer("payment.processor").Start(ctx, "webhook.process")
	defer span.End()

	if !s.verifier.Verify([]byte(raw.Body), raw.Signature) {
		s.finalize(ctx, raw, paymentdomain.OutcomeSignatureInvalid, "")
		s.audit.LogError(ctx, nil, nil, auditdomain.CategoryBillingWebhook, "signature_rejected",
			paymentdomain.ErrSignatureInvalid, map[string]any{
				"event_id":  raw.EventID,
				"signature": logger.MaskSignature(raw.Signature),
			})
		return nil
	}

	event, err := paymentdomain.ParsePayload([]byte(raw.Body))
	if err != nil {
		s.reject(ctx, raw, err)
		return nil
	}

	meta := event.EventMeta()
	span.SetAttributes(
		attribute.String("webhook.event_id", meta.EventID),
		attribute.String("webhook.event_type", event.Type()),
	)

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		org, err := s.orgRepo.LockForUpdate(ctx, tx, meta.OrgID)
		if err != nil {
			return err
		}
		if org == nil {
			return paymentdomain.ErrUnknownOrganization
		}

		fresh, err := s.repo.ClaimEvent(ctx, tx, meta.EventID, s.clock.Now())
		if err != nil {
			return err
		}
		if !fresh {
			return paymentdomain.ErrDuplicateEvent
		}

		action, payload, err := s.route(ctx, tx, org, event)
		if err != nil {
			return err
		}

		orgID := meta.OrgID
		s.audit.LogPaymentEvent(ctx, tx, &orgID, action, payload)
		return nil
	})

	switch {
	case txErr == nil:
		s.finalize(ctx, raw, paymentdomain.OutcomeApplied, "")
		s.log.Info("webhook event applied",
			zap.String("event_id", meta.EventID),
			zap.String("event_type", event.Type()),
			zap.String("org_id", meta.OrgID.String()),
		)
		return nil

	case errors.Is(txErr, paymentdomain.ErrDuplicateEvent):
		s.finalize(ctx, raw, paymentdomain.OutcomeDuplicate, "")
		orgID := meta.OrgID
		s.audit.LogPaymentEvent(ctx, nil, &orgID, "duplicate_event", map[string]any{
			"event_id":   meta.EventID,
			"event_type": event.Type(),
		})
		return nil

	case errors.Is(txErr, paymentdomain.ErrUnknownOrganization):
		s.finalize(ctx, raw, paymentdomain.OutcomeUnattributed, txErr.Error())
		s.audit.LogError(ctx, nil, nil, auditdomain.CategoryBillingWebhook, "unattributed_event",
			txErr, map[string]any{
				"event_id": meta.EventID,
				"org_id":   meta.OrgID.String(),
			})
		return nil

	default:
		// Downstream persistence failure: the claim rolled back with the
		// transaction, so the event is attempted but not processed. Leave it
		// pending for the replay worker unless it has exhausted its attempts.
		outcome := paymentdomain.OutcomePending
		if raw.Attempts+1 >= maxAttempts {
			outcome = paymentdomain.OutcomeFailed
		}
		s.finalize(ctx, raw, outcome, txErr.Error())
		orgID := meta.OrgID
		s.audit.LogError(ctx, nil, &orgID, auditdomain.CategoryBillingWebhook, "event_processing_failed",
			txErr, map[string]any{
				"event_id":   meta.EventID,
				"event_type": event.Type(),
				"attempts":   raw.Attempts + 1,
			})
		return txErr
	}
}

// reject settles an event that failed verification-stage decoding. Each path
// still produces its audit entry.
func (s *Service) reject(ctx context.Context, raw *paymentdomain.RawEvent, parseErr error) {
	switch {
	case errors.Is(parseErr, paymentdomain.ErrUnknownEventType):
		s.finalize(ctx, raw, paymentdomain.OutcomeUnknownType, parseErr.Error())
		s.audit.LogPaymentEvent(ctx, nil, nil, "unknown_event_type", map[string]any{
			"event_id": raw.EventID,
			"detail":   parseErr.Error(),
		})
	case errors.Is(parseErr, paymentdomain.ErrMissingOrganization):
		s.finalize(ctx, raw, paymentdomain.OutcomeUnattributed, parseErr.Error())
		s.audit.LogError(ctx, nil, nil, auditdomain.CategoryBillingWebhook, "unattributed_event",
			parseErr, map[string]any{"event_id": raw.EventID})
	default:
		s.finalize(ctx, raw, paymentdomain.OutcomeInvalidPayload, parseErr.Error())
		s.audit.LogError(ctx, nil, nil, auditdomain.CategoryBillingWebhook, "invalid_payload",
			parseErr, map[string]any{"event_id": raw.EventID})
	}
}

// ProcessPending replays rows left pending by a crash or a transient failure.
// Rows are fetched under a skip-locked batch so concurrent replicas divide
// the backlog; the idempotency claim makes any overlap harmless.
func (s *Service) ProcessPending(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}
	cutoff := s.clock.Now().Add(-replayMinAge)

	var batch []paymentdomain.RawEvent
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		batch, err = s.repo.FetchPending(ctx, tx, limit, cutoff)
		return err
	})
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range batch {
		raw := batch[i]
		if err := s.Process(ctx, &raw); err != nil {
			s.log.Warn("replay attempt failed",
				zap.String("event_id", raw.EventID),
				zap.Int("attempts", raw.Attempts+1),
				zap.Error(err),
			)
			continue
		}
		processed++
	}
	return processed, nil
}

func (s *Service) finalize(ctx context.Context, raw *paymentdomain.RawEvent, outcome paymentdomain.Outcome, lastErr string) {
	now := s.clock.Now()
	at := &now
	if outcome == paymentdomain.OutcomePending {
		at = nil
	}
	raw.Outcome = outcome
	raw.Attempts++
	raw.ProcessedAt = at
	if err := s.repo.MarkOutcome(ctx, s.db, raw.ID, outcome, lastErr, at); err != nil {
		s.log.Error("failed to finalize webhook event",
			zap.String("event_id", raw.EventID),
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
	}
}
