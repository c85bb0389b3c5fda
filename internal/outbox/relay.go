package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/nimasrn/academy-ledger/pkg/logger"
	"github.com/robfig/cron/v3"
)

const maxRelayPasses = 20

type RelayConfig struct {
	// Schedule is a cron spec such as "@every 30s".
	Schedule  string
	MinAge    time.Duration
	BatchSize int
}

// Relay runs Outbox.Relay on a cron schedule. Overlapping runs are skipped.
type Relay struct {
	outbox *Outbox
	config RelayConfig
	cron   *cron.Cron
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

func NewRelay(o *Outbox, config RelayConfig) (*Relay, error) {
	if config.Schedule == "" {
		config.Schedule = "@every 30s"
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Relay{
		outbox: o,
		config: config,
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		ctx:    ctx,
		cancel: cancel,
	}
	if _, err := r.cron.AddFunc(config.Schedule, r.RunOnce); err != nil {
		cancel()
		return nil, err
	}
	return r, nil
}

func (r *Relay) Start() {
	r.cron.Start()
}

// RunOnce drains pending events until a batch comes back short.
func (r *Relay) RunOnce() {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for pass := 0; pass < maxRelayPasses && r.ctx.Err() == nil; pass++ {
		n, err := r.outbox.Relay(r.ctx, r.config.MinAge, r.config.BatchSize)
		if err != nil {
			logger.Error("outbox relay failed", "error", err)
			return
		}
		total += n
		if n < r.config.BatchSize {
			break
		}
	}
	if total > 0 {
		logger.Info("outbox relay published events", "count", total)
	}
}

// Stop waits for a running relay pass to finish.
func (r *Relay) Stop() {
	r.cancel()
	<-r.cron.Stop().Done()
}
