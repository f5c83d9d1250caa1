package notification

import (
	"github.com/pillarworks/meridian/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.dispatcher",
	fx.Provide(service.NewDispatcher),
)
