package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// PromotionTicker runs one tick of each promotion process, plus the check
// that puts ended promotions back on screen
type PromotionTicker interface {
	RunDiscountTick(ctx context.Context) error
	RunSuggestionTick(ctx context.Context) error
	RunExpiryCheck(ctx context.Context) error
}

// DefaultExpiryCheckInterval bounds how long an ended promotion stays on screen
const DefaultExpiryCheckInterval = time.Second

// PromotionSchedulerConfig holds timing for both promotion processes
type PromotionSchedulerConfig struct {
	DiscountEnabled         bool
	DiscountInitialDelayMax time.Duration
	DiscountInterval        time.Duration

	SuggestionEnabled         bool
	SuggestionInitialDelayMax time.Duration
	SuggestionInterval        time.Duration

	// ExpiryCheckInterval is how often ended promotions are looked for.
	// Zero means DefaultExpiryCheckInterval.
	ExpiryCheckInterval time.Duration
}

// DefaultPromotionSchedulerConfig returns default promotion timing
func DefaultPromotionSchedulerConfig() PromotionSchedulerConfig {
	return PromotionSchedulerConfig{
		DiscountEnabled:           true,
		DiscountInitialDelayMax:   10 * time.Second,
		DiscountInterval:          30 * time.Second,
		SuggestionEnabled:         true,
		SuggestionInitialDelayMax: 20 * time.Second,
		SuggestionInterval:        60 * time.Second,
		ExpiryCheckInterval:       DefaultExpiryCheckInterval,
	}
}

// PromotionScheduler owns the two promotion triggers and the expiry trigger
// that runs while either is enabled. Each promotion trigger can be stopped
// without affecting the other.
type PromotionScheduler struct {
	discount   *PeriodicTrigger
	suggestion *PeriodicTrigger
	expiry     *PeriodicTrigger
	logger     *zap.Logger
}

// NewPromotionScheduler creates triggers for the enabled processes
func NewPromotionScheduler(config PromotionSchedulerConfig, ticker PromotionTicker, logger *zap.Logger) (*PromotionScheduler, error) {
	if ticker == nil {
		return nil, fmt.Errorf("%w: promotion ticker is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &PromotionScheduler{logger: logger}
	var err error
	if config.DiscountEnabled {
		s.discount, err = NewPeriodicTrigger(PeriodicTriggerConfig{
			Name:            "discount",
			InitialDelayMax: config.DiscountInitialDelayMax,
			Interval:        config.DiscountInterval,
		}, ticker.RunDiscountTick, logger)
		if err != nil {
			return nil, err
		}
	}
	if config.SuggestionEnabled {
		s.suggestion, err = NewPeriodicTrigger(PeriodicTriggerConfig{
			Name:            "suggestion",
			InitialDelayMax: config.SuggestionInitialDelayMax,
			Interval:        config.SuggestionInterval,
		}, ticker.RunSuggestionTick, logger)
		if err != nil {
			return nil, err
		}
	}
	if config.DiscountEnabled || config.SuggestionEnabled {
		interval := config.ExpiryCheckInterval
		if interval == 0 {
			interval = DefaultExpiryCheckInterval
		}
		s.expiry, err = NewPeriodicTrigger(PeriodicTriggerConfig{
			Name:     "expiry",
			Interval: interval,
		}, ticker.RunExpiryCheck, logger)
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Discount returns the discount trigger, nil when disabled
func (s *PromotionScheduler) Discount() *PeriodicTrigger {
	return s.discount
}

// Suggestion returns the suggestion trigger, nil when disabled
func (s *PromotionScheduler) Suggestion() *PeriodicTrigger {
	return s.suggestion
}

// Expiry returns the expiry trigger, nil when both processes are disabled
func (s *PromotionScheduler) Expiry() *PeriodicTrigger {
	return s.expiry
}

// Start starts every enabled trigger
func (s *PromotionScheduler) Start(ctx context.Context) error {
	for _, t := range s.triggers() {
		if err := t.Start(ctx); err != nil {
			return fmt.Errorf("start %s trigger: %w", t.Name(), err)
		}
	}
	s.logger.Info("promotion scheduler started", zap.Int("triggers", len(s.triggers())))
	return nil
}

// StopDiscount stops only the discount trigger
func (s *PromotionScheduler) StopDiscount(ctx context.Context) error {
	if s.discount == nil {
		return nil
	}
	return s.discount.Stop(ctx)
}

// StopSuggestion stops only the suggestion trigger
func (s *PromotionScheduler) StopSuggestion(ctx context.Context) error {
	if s.suggestion == nil {
		return nil
	}
	return s.suggestion.Stop(ctx)
}

// Stop stops every trigger and waits for their loops to exit
func (s *PromotionScheduler) Stop(ctx context.Context) error {
	var stopExpiry error
	if s.expiry != nil {
		stopExpiry = s.expiry.Stop(ctx)
	}
	err := errors.Join(s.StopDiscount(ctx), s.StopSuggestion(ctx), stopExpiry)
	if err != nil {
		s.logger.Warn("promotion scheduler did not stop cleanly", zap.Error(err))
		return err
	}
	s.logger.Info("promotion scheduler stopped")
	return nil
}

func (s *PromotionScheduler) triggers() []*PeriodicTrigger {
	triggers := make([]*PeriodicTrigger, 0, 3)
	if s.discount != nil {
		triggers = append(triggers, s.discount)
	}
	if s.suggestion != nil {
		triggers = append(triggers, s.suggestion)
	}
	if s.expiry != nil {
		triggers = append(triggers, s.expiry)
	}
	return triggers
}
