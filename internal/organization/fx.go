package organization

import (
	"github.com/pillarworks/meridian/internal/organization/repository"
	"github.com/pillarworks/meridian/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
