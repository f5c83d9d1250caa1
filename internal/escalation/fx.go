package escalation

import (
	"github.com/pillarworks/meridian/internal/escalation/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("escalation.counter",
	fx.Provide(repository.Provide),
)
