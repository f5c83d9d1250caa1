package scheduler

import (
	"context"
	"time"

	"github.com/pillarworks/meridian/internal/config"
	paymentdomain "github.com/pillarworks/meridian/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config    config.Config
	Log       *zap.Logger
	Processor paymentdomain.Processor
}

// Worker drains webhook events left pending by a crash after the
// acknowledgment or by a transient downstream failure. The synchronous path
// is the normal one; this loop is the safety net that makes the durable
// capture worth having.
type Worker struct {
	log          *zap.Logger
	processor    paymentdomain.Processor
	batchSize    int
	pollInterval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

func NewWorker(p Params) *Worker {
	return &Worker{
		log:          p.Log.Named("scheduler.replay"),
		processor:    p.Processor,
		batchSize:    p.Config.ReplayBatchSize,
		pollInterval: p.Config.ReplayPollInterval,
	}
}

// RunOnce drains at most one batch and reports how many events were settled.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	return w.processor.ProcessPending(ctx, w.batchSize)
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.RunOnce(ctx)
			if err != nil {
				w.log.Error("replay batch failed", zap.Error(err))
				continue
			}
			if n > 0 {
				w.log.Info("replayed pending webhook events", zap.Int("count", n))
			}
		}
	}
}

func (w *Worker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.run(ctx)
}

func (w *Worker) Stop(ctx context.Context) error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
