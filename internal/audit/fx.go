package audit

import (
	"github.com/pillarworks/meridian/internal/audit/repository"
	"github.com/pillarworks/meridian/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewRecorder),
)
