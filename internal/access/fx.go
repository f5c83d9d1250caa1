package access

import (
	"github.com/pillarworks/meridian/internal/access/service"
	"go.uber.org/fx"
)

var Module = fx.Module("access.controller",
	fx.Provide(service.NewController),
)
