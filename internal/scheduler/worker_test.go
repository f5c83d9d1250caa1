package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pillarworks/meridian/internal/config"
	paymentdomain "github.com/pillarworks/meridian/internal/payment/domain"
	"go.uber.org/zap"
)

type countingProcessor struct {
	calls     atomic.Int64
	lastLimit atomic.Int64
}

func (p *countingProcessor) Capture(ctx context.Context, body []byte, sig string) (*paymentdomain.RawEvent, error) {
	return nil, nil
}

func (p *countingProcessor) Process(ctx context.Context, raw *paymentdomain.RawEvent) error {
	return nil
}

func (p *countingProcessor) ProcessPending(ctx context.Context, limit int) (int, error) {
	p.calls.Add(1)
	p.lastLimit.Store(int64(limit))
	return 2, nil
}

func TestRunOnceDelegatesBatchSize(t *testing.T) {
	processor := &countingProcessor{}
	w := NewWorker(Params{
		Config:    config.Config{ReplayBatchSize: 25, ReplayPollInterval: time.Minute},
		Log:       zap.NewNop(),
		Processor: processor,
	})

	n, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if n != 2 {
		t.Fatalf("settled: got %d", n)
	}
	if got := processor.lastLimit.Load(); got != 25 {
		t.Fatalf("batch size: got %d", got)
	}
}

func TestStartStopDrainsLoop(t *testing.T) {
	processor := &countingProcessor{}
	w := NewWorker(Params{
		Config:    config.Config{ReplayBatchSize: 10, ReplayPollInterval: time.Millisecond},
		Log:       zap.NewNop(),
		Processor: processor,
	})

	w.Start()

	deadline := time.Now().Add(2 * time.Second)
	for processor.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if processor.calls.Load() == 0 {
		t.Fatal("worker never polled")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestStopWithoutStartIsNoop(t *testing.T) {
	w := NewWorker(Params{
		Config:    config.Config{ReplayBatchSize: 10, ReplayPollInterval: time.Minute},
		Log:       zap.NewNop(),
		Processor: &countingProcessor{},
	})
	if err := w.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
