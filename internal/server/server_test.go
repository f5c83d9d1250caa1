package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/pillarworks/meridian/internal/audit/domain"
	"github.com/pillarworks/meridian/internal/config"
	"github.com/pillarworks/meridian/internal/observability/metrics"
	organizationdomain "github.com/pillarworks/meridian/internal/organization/domain"
	paymentdomain "github.com/pillarworks/meridian/internal/payment/domain"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type stubProcessor struct {
	captureErr error
	processErr error
	captured   int
	processed  int
}

func (s *stubProcessor) Capture(ctx context.Context, body []byte, sig string) (*paymentdomain.RawEvent, error) {
	if s.captureErr != nil {
		return nil, s.captureErr
	}
	s.captured++
	return &paymentdomain.RawEvent{ID: 1, EventID: "evt_1", Body: string(body), Signature: sig}, nil
}

func (s *stubProcessor) Process(ctx context.Context, raw *paymentdomain.RawEvent) error {
	s.processed++
	if s.processErr != nil {
		raw.Outcome = paymentdomain.OutcomePending
		return s.processErr
	}
	raw.Outcome = paymentdomain.OutcomeApplied
	return nil
}

func (s *stubProcessor) ProcessPending(ctx context.Context, limit int) (int, error) { return 0, nil }

type stubOrgService struct {
	org *organizationdomain.Organization
}

func (s *stubOrgService) Get(ctx context.Context, id snowflake.ID) (*organizationdomain.Organization, error) {
	if s.org == nil || s.org.ID != id {
		return nil, organizationdomain.ErrNotFound
	}
	return s.org, nil
}

func (s *stubOrgService) UpdateStatus(ctx context.Context, tx *gorm.DB, id snowflake.ID, status organizationdomain.Status, reason string) (bool, error) {
	return true, nil
}

func (s *stubOrgService) BulkUpdateStatus(ctx context.Context, ids []snowflake.ID, status organizationdomain.Status, reason string) (organizationdomain.BulkResult, error) {
	return organizationdomain.BulkResult{Updated: ids}, nil
}

func (s *stubOrgService) BulkExtendTrial(ctx context.Context, ids []snowflake.ID, days int) (organizationdomain.BulkResult, error) {
	return organizationdomain.BulkResult{Updated: ids}, nil
}

type stubAudit struct{ events int }

func (s *stubAudit) LogEvent(ctx context.Context, tx *gorm.DB, orgID *snowflake.ID, category, action string, payload map[string]any) {
	s.events++
}
func (s *stubAudit) LogError(ctx context.Context, tx *gorm.DB, orgID *snowflake.ID, category, action string, err error, payload map[string]any) {
	s.events++
}
func (s *stubAudit) LogPaymentEvent(ctx context.Context, tx *gorm.DB, orgID *snowflake.ID, action string, payload map[string]any) {
	s.events++
}
func (s *stubAudit) LogSubscriptionEvent(ctx context.Context, tx *gorm.DB, orgID *snowflake.ID, action string, payload map[string]any) {
	s.events++
}

type stubAuditRepo struct{}

func (stubAuditRepo) Insert(ctx context.Context, db *gorm.DB, entry *auditdomain.AuditLog) error {
	return nil
}
func (stubAuditRepo) List(ctx context.Context, db *gorm.DB, filter auditdomain.ListFilter) ([]*auditdomain.AuditLog, error) {
	return []*auditdomain.AuditLog{}, nil
}

func newTestServer(t *testing.T, cfg config.Config, processor paymentdomain.Processor) (*gin.Engine, *Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	m, err := metrics.NewWebhookMetrics("test", noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}

	srv := NewServer(Params{
		Config:    cfg,
		Log:       zap.NewNop(),
		DB:        db,
		Processor: processor,
		OrgSvc:    &stubOrgService{org: &organizationdomain.Organization{ID: 1, Name: "org-1", Status: organizationdomain.StatusActive}},
		AuditRepo: stubAuditRepo{},
		Audit:     &stubAudit{},
		Metrics:   m,
	})

	engine := NewEngine(cfg, zap.NewNop(), m)
	srv.RegisterRoutes(engine)
	return engine, srv
}

func TestPaymentWebhookAcksWithReceivedTrue(t *testing.T) {
	processor := &stubProcessor{}
	engine, _ := newTestServer(t, config.Config{}, processor)

	req := httptest.NewRequest(http.MethodPost, "/webhook/payment", strings.NewReader(`{"type":"x"}`))
	req.Header.Set("X-Signature-Hmac-Sha256", "deadbeef")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"received":true`) {
		t.Fatalf("body: got %s", rec.Body.String())
	}
	if processor.captured != 1 || processor.processed != 1 {
		t.Fatalf("processor calls: captured=%d processed=%d", processor.captured, processor.processed)
	}
}

func TestPaymentWebhookStill200WhenProcessingFails(t *testing.T) {
	processor := &stubProcessor{processErr: fmt.Errorf("db down")}
	engine, _ := newTestServer(t, config.Config{}, processor)

	req := httptest.NewRequest(http.MethodPost, "/webhook/payment", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("processing failure must not change the ack, got %d", rec.Code)
	}
}

func TestPaymentWebhook503WhenCaptureFails(t *testing.T) {
	processor := &stubProcessor{captureErr: fmt.Errorf("storage unavailable")}
	engine, _ := newTestServer(t, config.Config{}, processor)

	req := httptest.NewRequest(http.MethodPost, "/webhook/payment", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("capture failure must withhold the ack, got %d", rec.Code)
	}
	if processor.processed != 0 {
		t.Fatal("nothing must be processed without durable capture")
	}
}

func TestAdminRoutesRequireKey(t *testing.T) {
	engine, _ := newTestServer(t, config.Config{AdminAPIKey: "admin_secret"}, &stubProcessor{})

	req := httptest.NewRequest(http.MethodGet, "/admin/organizations/1", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing key: got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/organizations/1", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key: got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/organizations/1", nil)
	req.Header.Set("Authorization", "Bearer admin_secret")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid key: got %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestAdminRoutesHiddenWithoutConfiguredKey(t *testing.T) {
	engine, _ := newTestServer(t, config.Config{}, &stubProcessor{})

	req := httptest.NewRequest(http.MethodGet, "/admin/organizations/1", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unconfigured admin key: got %d", rec.Code)
	}
}

func TestBulkStatusValidation(t *testing.T) {
	engine, _ := newTestServer(t, config.Config{AdminAPIKey: "admin_secret"}, &stubProcessor{})

	req := httptest.NewRequest(http.MethodPost, "/admin/organizations/bulk-status",
		strings.NewReader(`{"organization_ids":["1"],"status":"frozen"}`))
	req.Header.Set("Authorization", "Bearer admin_secret")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid status: got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/admin/organizations/bulk-status",
		strings.NewReader(`{"organization_ids":["1"],"status":"suspended","reason":"abuse"}`))
	req.Header.Set("Authorization", "Bearer admin_secret")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid bulk request: got %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	engine, _ := newTestServer(t, config.Config{}, &stubProcessor{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: got %d", rec.Code)
	}
}
