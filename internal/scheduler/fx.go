package scheduler

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("scheduler.replay",
	fx.Provide(NewWorker),
	fx.Invoke(func(lc fx.Lifecycle, w *Worker) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				w.Start()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return w.Stop(ctx)
			},
		})
	}),
)
