package invoice

import (
	"github.com/pillarworks/meridian/internal/invoice/repository"
	"github.com/pillarworks/meridian/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.ledger",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewLedger),
)
