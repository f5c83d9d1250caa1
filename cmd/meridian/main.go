package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/pillarworks/meridian/internal/access"
	"github.com/pillarworks/meridian/internal/audit"
	"github.com/pillarworks/meridian/internal/clock"
	"github.com/pillarworks/meridian/internal/config"
	"github.com/pillarworks/meridian/internal/escalation"
	"github.com/pillarworks/meridian/internal/invoice"
	"github.com/pillarworks/meridian/internal/migration"
	"github.com/pillarworks/meridian/internal/notification"
	"github.com/pillarworks/meridian/internal/observability"
	"github.com/pillarworks/meridian/internal/organization"
	"github.com/pillarworks/meridian/internal/payment"
	"github.com/pillarworks/meridian/internal/scheduler"
	"github.com/pillarworks/meridian/internal/seed"
	"github.com/pillarworks/meridian/internal/server"
	"github.com/pillarworks/meridian/internal/subscription"
	"github.com/pillarworks/meridian/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		fx.Invoke(RunMigrations),
		fx.Invoke(seed.EnsureMainOrg),

		audit.Module,
		notification.Module,
		organization.Module,
		subscription.Module,
		escalation.Module,
		invoice.Module,
		access.Module,
		payment.Module,
		scheduler.Module,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server, engine *gin.Engine) {
			s.RegisterRoutes(engine)
		}),
		fx.Invoke(server.RunHTTP),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func RunMigrations(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return migration.Run(sqlDB)
}
