package thoughtspace

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultDecayInterval is how often the decay pass runs.
	DefaultDecayInterval = time.Hour

	// decayRunTimeout bounds a single pass.
	decayRunTimeout = 10 * time.Minute
)

// DecayScheduler runs the pheromone decay pass on a fixed interval.
//
// Passes are single-flight: a tick arriving while a pass is still running is
// skipped. A failed or panicking pass is logged and the schedule continues
// at the next tick.
type DecayScheduler struct {
	service  *Service
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	inPass  bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewDecayScheduler creates a scheduler. interval <= 0 uses
// DefaultDecayInterval.
func NewDecayScheduler(service *Service, interval time.Duration, logger *zap.Logger) *DecayScheduler {
	if interval <= 0 {
		interval = DefaultDecayInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DecayScheduler{
		service:  service,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the schedule. Calling Start on a running scheduler is a
// no-op.
func (d *DecayScheduler) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	d.running = true
	d.stopCh = make(chan struct{})

	d.wg.Add(1)
	go d.loop(d.stopCh)

	d.logger.Info("decay scheduler started", zap.Duration("interval", d.interval))
}

// Stop halts the schedule and waits for any in-flight pass to finish.
func (d *DecayScheduler) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.stopCh)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("decay scheduler stopped")
}

func (d *DecayScheduler) loop(stopCh chan struct{}) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			d.runOnce(stopCh)
		}
	}
}

// runOnce executes one decay pass with single-flight and panic protection.
func (d *DecayScheduler) runOnce(stopCh chan struct{}) {
	d.mu.Lock()
	if d.inPass {
		d.mu.Unlock()
		d.logger.Warn("decay pass still running, skipping tick")
		return
	}
	d.inPass = true
	d.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("decay pass panicked", zap.Any("panic", r))
		}
		d.mu.Lock()
		d.inPass = false
		d.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), decayRunTimeout)
	defer cancel()

	// Cancel the pass at page boundaries if the scheduler stops mid-run.
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	updated, err := d.service.RunDecayPass(ctx)
	if err != nil {
		d.logger.Error("decay pass failed",
			zap.Int("updated_before_failure", updated),
			zap.Error(err))
		return
	}

	d.logger.Info("decay pass finished", zap.Int("updated", updated))
}
