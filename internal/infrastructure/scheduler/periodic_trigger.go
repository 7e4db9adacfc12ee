package scheduler

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// TickFunc is the work a trigger runs on every tick
type TickFunc func(ctx context.Context) error

// PeriodicTriggerConfig holds configuration for a periodic trigger
type PeriodicTriggerConfig struct {
	// Name identifies the trigger in logs
	Name string

	// InitialDelayMax bounds the random delay before the first tick.
	// Zero runs the first tick immediately.
	InitialDelayMax time.Duration

	// Interval is the period between ticks after the first one
	Interval time.Duration
}

// Validate checks the configuration
func (c PeriodicTriggerConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: %s interval must be positive", ErrInvalidConfig, c.Name)
	}
	if c.InitialDelayMax < 0 {
		return fmt.Errorf("%w: %s initial delay must not be negative", ErrInvalidConfig, c.Name)
	}
	return nil
}

// TriggerStats holds counters of a trigger's ticks
type TriggerStats struct {
	Ticks    int64
	Failures int64
}

// PeriodicTrigger runs a tick after a random initial delay and then on a
// fixed interval until stopped. A failing or panicking tick is logged and the
// loop keeps going.
type PeriodicTrigger struct {
	config PeriodicTriggerConfig
	tick   TickFunc
	delay  func(max time.Duration) time.Duration
	logger *zap.Logger

	cancel    context.CancelFunc
	done      chan struct{} // closed when the current loop exits
	mu        sync.Mutex
	isRunning bool

	ticks    atomic.Int64
	failures atomic.Int64
}

// NewPeriodicTrigger creates a new periodic trigger
func NewPeriodicTrigger(config PeriodicTriggerConfig, tick TickFunc, logger *zap.Logger) (*PeriodicTrigger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if tick == nil {
		return nil, ErrNilTick
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodicTrigger{
		config: config,
		tick:   tick,
		delay:  randomDelay,
		logger: logger.With(zap.String("trigger", config.Name)),
	}, nil
}

func randomDelay(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return rand.N(max)
}

// Name returns the trigger name
func (p *PeriodicTrigger) Name() string {
	return p.config.Name
}

// Start starts the trigger loop. Starting a running trigger is a no-op.
// Starting a trigger whose previous loop has not exited yet fails with
// ErrStillStopping.
func (p *PeriodicTrigger) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isRunning {
		return nil
	}
	if p.done != nil {
		select {
		case <-p.done:
		default:
			return fmt.Errorf("%w: %s", ErrStillStopping, p.config.Name)
		}
	}
	p.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	initialDelay := p.delay(p.config.InitialDelayMax)
	go p.runLoop(ctx, initialDelay, p.done)

	p.logger.Info("periodic trigger started",
		zap.Duration("initial_delay", initialDelay),
		zap.Duration("interval", p.config.Interval),
	)
	return nil
}

// Stop cancels the loop and waits for it to exit or for ctx to expire. After
// a Stop that timed out, another Stop waits for the same loop. Stopping a
// stopped trigger is a no-op.
func (p *PeriodicTrigger) Stop(ctx context.Context) error {
	p.mu.Lock()
	wasRunning := p.isRunning
	if wasRunning {
		p.isRunning = false
		p.cancel()
	}
	done := p.done
	p.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		if wasRunning {
			p.logger.Info("periodic trigger stopped", zap.Int64("ticks", p.ticks.Load()))
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the loop has been started and not stopped
func (p *PeriodicTrigger) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isRunning
}

// Stats returns tick counters
func (p *PeriodicTrigger) Stats() TriggerStats {
	return TriggerStats{
		Ticks:    p.ticks.Load(),
		Failures: p.failures.Load(),
	}
}

func (p *PeriodicTrigger) runLoop(ctx context.Context, initialDelay time.Duration, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(initialDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
		p.runTick(ctx)
	}

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runTick(ctx)
		}
	}
}

func (p *PeriodicTrigger) runTick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	p.ticks.Add(1)
	if err := p.safeTick(ctx); err != nil {
		p.failures.Add(1)
		p.logger.Error("tick failed", zap.Error(err))
	}
}

func (p *PeriodicTrigger) safeTick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTickPanicked, r)
		}
	}()
	return p.tick(ctx)
}
