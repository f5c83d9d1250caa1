package payment

import (
	"github.com/pillarworks/meridian/internal/payment/repository"
	"github.com/pillarworks/meridian/internal/payment/service"
	"github.com/pillarworks/meridian/internal/payment/signature"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.processor",
	fx.Provide(
		signature.NewVerifier,
		repository.Provide,
		service.NewService,
	),
)
