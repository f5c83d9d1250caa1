package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/pillarworks/meridian/internal/audit/domain"
	"github.com/pillarworks/meridian/internal/config"
	"github.com/pillarworks/meridian/internal/observability/metrics"
	organizationdomain "github.com/pillarworks/meridian/internal/organization/domain"
	paymentdomain "github.com/pillarworks/meridian/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Config    config.Config
	Log       *zap.Logger
	DB        *gorm.DB
	Processor paymentdomain.Processor
	OrgSvc    organizationdomain.Service
	AuditRepo auditdomain.Repository
	Audit     auditdomain.Recorder
	Metrics   *metrics.WebhookMetrics
}

type Server struct {
	cfg       config.Config
	log       *zap.Logger
	db        *gorm.DB
	processor paymentdomain.Processor
	orgSvc    organizationdomain.Service
	auditRepo auditdomain.Repository
	audit     auditdomain.Recorder
	metrics   *metrics.WebhookMetrics
	limiter   *rateLimiter
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:       p.Config,
		log:       p.Log.Named("server"),
		db:        p.DB,
		processor: p.Processor,
		orgSvc:    p.OrgSvc,
		auditRepo: p.AuditRepo,
		audit:     p.Audit,
		metrics:   p.Metrics,
		limiter:   newRateLimiter(p.Config.WebhookRateLimit, p.Config.WebhookRateWindow),
	}
}

func NewEngine(cfg config.Config, log *zap.Logger, m *metrics.WebhookMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), RequestID(), m.GinMiddleware())
	return engine
}

func (s *Server) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/healthz", s.Healthz)
	engine.POST("/webhook/payment", s.PaymentWebhook)

	admin := engine.Group("/admin", s.AdminKeyRequired())
	admin.GET("/organizations/:id", s.GetOrganization)
	admin.PATCH("/organizations/:id/status", s.UpdateOrganizationStatus)
	admin.POST("/organizations/bulk-status", s.BulkUpdateStatus)
	admin.POST("/organizations/bulk-extend-trial", s.BulkExtendTrial)
	admin.GET("/audit-logs", s.ListAuditLogs)
}

func (s *Server) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.cfg.ServiceVersion})
}

// RunHTTP binds the engine to the configured address under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, engine *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("http server exited", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
