package subscription

import (
	"github.com/pillarworks/meridian/internal/subscription/repository"
	"github.com/pillarworks/meridian/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.lifecycle",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewLifecycle),
)
