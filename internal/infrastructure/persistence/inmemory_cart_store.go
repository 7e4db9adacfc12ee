package persistence

import (
	"context"
	"errors"
	"sync"

	"github.com/storefront/widget/internal/domain/cart"
	"github.com/storefront/widget/internal/domain/catalog"
	"github.com/storefront/widget/internal/domain/shared"
	"go.uber.org/zap"
)

// Shopper-facing cart failures
var (
	ErrProductUnavailable = shared.NewDomainError("PRODUCT_UNAVAILABLE", "product is not available")
	ErrNotInCart          = shared.NewDomainError("NOT_IN_CART", "product is not in the cart")
)

// InMemoryCartStore implements cart.Store for a single shopper session. Stock
// is reserved in the catalog as units enter the cart and released as they
// leave, so catalog stock always reflects what is still purchasable.
type InMemoryCartStore struct {
	mu        sync.Mutex
	cart      *cart.Cart
	products  catalog.ProductRepository
	publisher shared.EventPublisher
	clock     shared.Clock
	logger    *zap.Logger
}

// NewInMemoryCartStore creates an empty cart backed by the given catalog
func NewInMemoryCartStore(products catalog.ProductRepository, publisher shared.EventPublisher, clock shared.Clock, logger *zap.Logger) *InMemoryCartStore {
	if publisher == nil {
		publisher = shared.NopPublisher{}
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryCartStore{
		cart:      cart.NewCart(),
		products:  products,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

// Add reserves one unit of stock and puts it in the cart
func (s *InMemoryCartStore) Add(ctx context.Context, productID catalog.ProductID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reserve(ctx, productID, 1); err != nil {
		return err
	}
	if err := s.cart.Add(productID, s.clock.Now()); err != nil {
		s.release(ctx, productID, 1)
		return err
	}

	s.flush(ctx)
	return nil
}

// ChangeQuantity adds delta to a line, reserving or releasing stock to match
func (s *InMemoryCartStore) ChangeQuantity(ctx context.Context, productID catalog.ProductID, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.cart.Quantity(productID)
	if current == 0 {
		return ErrNotInCart
	}
	if delta == 0 {
		return nil
	}
	if delta < -current {
		delta = -current
	}

	if delta > 0 {
		if err := s.reserve(ctx, productID, delta); err != nil {
			return err
		}
	}
	if err := s.cart.ChangeQuantity(productID, delta, s.clock.Now()); err != nil {
		if delta > 0 {
			s.release(ctx, productID, delta)
		}
		return err
	}
	if delta < 0 {
		s.release(ctx, productID, -delta)
	}

	s.flush(ctx)
	return nil
}

// Remove drops the line and releases its stock
func (s *InMemoryCartStore) Remove(ctx context.Context, productID catalog.ProductID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	quantity, err := s.cart.Remove(productID, s.clock.Now())
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return ErrNotInCart
		}
		return err
	}
	s.release(ctx, productID, quantity)

	s.flush(ctx)
	return nil
}

// Items returns a copy of the cart lines
func (s *InMemoryCartStore) Items(ctx context.Context) ([]cart.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Items(), nil
}

func (s *InMemoryCartStore) reserve(ctx context.Context, productID catalog.ProductID, quantity int) error {
	err := s.products.AdjustStock(ctx, productID, -quantity)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, shared.ErrNotFound):
		return ErrProductUnavailable
	default:
		return err
	}
}

func (s *InMemoryCartStore) release(ctx context.Context, productID catalog.ProductID, quantity int) {
	if err := s.products.AdjustStock(ctx, productID, quantity); err != nil {
		s.logger.Error("failed to release reserved stock",
			zap.String("product_id", productID.String()),
			zap.Int("quantity", quantity),
			zap.Error(err),
		)
	}
}

func (s *InMemoryCartStore) flush(ctx context.Context) {
	events := s.cart.PullDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish cart events", zap.Error(err))
	}
}

var _ cart.Store = (*InMemoryCartStore)(nil)
