package promotion

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/storefront/widget/internal/application/storefront"
	"github.com/storefront/widget/internal/domain/catalog"
	"github.com/storefront/widget/internal/domain/shared"
	"github.com/storefront/widget/internal/infrastructure/logger"
	"github.com/storefront/widget/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Promotion process names
const (
	ProcessDiscount   = "discount"
	ProcessSuggestion = "suggestion"
	ProcessExpiry     = "expiry"
)

// ErrNoEligibleItem means a tick found nothing to promote, or nothing that
// ended. It never leaves the tick.
var ErrNoEligibleItem = shared.NewDomainError("NO_ELIGIBLE_ITEM", "no eligible item to promote")

// Updater runs a state mutation under the storefront guard
type Updater interface {
	Update(ctx context.Context, fn storefront.UpdateFunc) error
}

// Config holds how long each promotion lasts
type Config struct {
	DiscountDuration   time.Duration
	SuggestionDuration time.Duration
}

// Service implements one tick of each promotion process. Ticks run inside
// Updater.Update, so they are serialized with shopper actions.
type Service struct {
	updater  Updater
	products catalog.ProductRepository
	config   Config
	rng      *rand.Rand // only used under the storefront guard
	clock    shared.Clock
	metrics  *telemetry.StorefrontMetrics
	logger   *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithRand sets the random source used to pick products
func WithRand(r *rand.Rand) Option {
	return func(s *Service) { s.rng = r }
}

// WithClock sets the clock promotion expiry is checked against. It must be
// the clock the storefront renders with.
func WithClock(c shared.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithMetrics sets the metrics recorder
func WithMetrics(m *telemetry.StorefrontMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a promotion service
func NewService(updater Updater, products catalog.ProductRepository, cfg Config, opts ...Option) *Service {
	s := &Service{
		updater:  updater,
		products: products,
		config:   cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if s.clock == nil {
		s.clock = shared.SystemClock{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// RunDiscountTick puts one random in-stock product on special discount. With
// nothing in stock the tick does nothing and no refresh happens.
func (s *Service) RunDiscountTick(ctx context.Context) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "promotion", "discount_tick",
		attribute.String(telemetry.SpanAttrProcess, ProcessDiscount))
	defer span.End()
	ctx = logger.WithOperation(ctx, "discount_tick")

	err := s.updater.Update(ctx, func(ctx context.Context, _ storefront.State) (bool, error) {
		id, err := s.pickEligible(ctx, "")
		if err != nil {
			return false, err
		}
		if err := s.products.MarkDiscounted(ctx, id, s.config.DiscountDuration); err != nil {
			return false, fmt.Errorf("mark %s discounted: %w", id, err)
		}
		logger.For(ctx, s.logger).Info("special discount started",
			zap.String("product_id", id.String()),
			zap.Duration("duration", s.config.DiscountDuration),
		)
		return true, nil
	})
	return s.finish(ctx, span, ProcessDiscount, err)
}

// RunSuggestionTick suggests one random in-stock product other than the last
// one added to the cart. Before anything has been added the tick does nothing.
func (s *Service) RunSuggestionTick(ctx context.Context) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "promotion", "suggestion_tick",
		attribute.String(telemetry.SpanAttrProcess, ProcessSuggestion))
	defer span.End()
	ctx = logger.WithOperation(ctx, "suggestion_tick")

	err := s.updater.Update(ctx, func(ctx context.Context, state storefront.State) (bool, error) {
		if state.LastAdded.IsZero() {
			return false, ErrNoEligibleItem
		}
		id, err := s.pickEligible(ctx, state.LastAdded)
		if err != nil {
			return false, err
		}
		if err := s.products.MarkSuggested(ctx, id, s.config.SuggestionDuration); err != nil {
			return false, fmt.Errorf("mark %s suggested: %w", id, err)
		}
		logger.For(ctx, s.logger).Info("suggestion started",
			zap.String("product_id", id.String()),
			zap.String("last_added", state.LastAdded.String()),
			zap.Duration("duration", s.config.SuggestionDuration),
		)
		return true, nil
	})
	return s.finish(ctx, span, ProcessSuggestion, err)
}

// RunExpiryCheck refreshes the views when a discount or suggestion that was
// on screen at the last render has ended since. Otherwise nothing happens.
func (s *Service) RunExpiryCheck(ctx context.Context) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "promotion", "expiry_check",
		attribute.String(telemetry.SpanAttrProcess, ProcessExpiry))
	defer span.End()
	ctx = logger.WithOperation(ctx, "expiry_check")

	err := s.updater.Update(ctx, func(ctx context.Context, state storefront.State) (bool, error) {
		if state.RenderedAt.IsZero() {
			return false, ErrNoEligibleItem
		}
		products, err := s.products.ListProducts(ctx)
		if err != nil {
			return false, fmt.Errorf("list products: %w", err)
		}

		now := s.clock.Now()
		var ended []string
		for _, p := range products {
			if endedSince(p.DiscountedUntil, state.RenderedAt, now) || endedSince(p.SuggestedUntil, state.RenderedAt, now) {
				ended = append(ended, p.ID.String())
			}
		}
		if len(ended) == 0 {
			return false, ErrNoEligibleItem
		}
		logger.For(ctx, s.logger).Info("promotion ended", zap.Strings("product_ids", ended))
		return true, nil
	})
	return s.finish(ctx, span, ProcessExpiry, err)
}

// endedSince reports whether a flag active at renderedAt has expired by now
func endedSince(until, renderedAt, now time.Time) bool {
	return renderedAt.Before(until) && !now.Before(until)
}

// finish turns ErrNoEligibleItem into a silent skip and records the outcome
func (s *Service) finish(ctx context.Context, span trace.Span, process string, err error) error {
	switch {
	case err == nil:
		s.metrics.RecordPromotionTick(ctx, process, telemetry.OutcomeSuccess)
		return nil
	case errors.Is(err, ErrNoEligibleItem):
		s.metrics.RecordPromotionTick(ctx, process, telemetry.OutcomeSkipped)
		span.SetAttributes(attribute.Bool("skipped", true))
		logger.For(ctx, s.logger).Debug("promotion tick skipped", zap.String("process", process))
		return nil
	default:
		s.metrics.RecordPromotionTick(ctx, process, telemetry.OutcomeFailure)
		telemetry.RecordError(span, err)
		return fmt.Errorf("%s tick: %w", process, err)
	}
}

// pickEligible returns a random in-stock product whose id is not exclude
func (s *Service) pickEligible(ctx context.Context, exclude catalog.ProductID) (catalog.ProductID, error) {
	products, err := s.products.ListProducts(ctx)
	if err != nil {
		return "", fmt.Errorf("list products: %w", err)
	}

	candidates := make([]catalog.ProductID, 0, len(products))
	for _, p := range products {
		if p.ID == exclude {
			continue
		}
		ok, err := s.products.IsEligible(ctx, p.ID)
		if err != nil {
			return "", fmt.Errorf("check eligibility of %s: %w", p.ID, err)
		}
		if ok {
			candidates = append(candidates, p.ID)
		}
	}
	if len(candidates) == 0 {
		return "", ErrNoEligibleItem
	}
	return candidates[s.rng.IntN(len(candidates))], nil
}
