package persistence

import (
	"context"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/storefront/widget/internal/domain/catalog"
	"github.com/storefront/widget/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryProductRepository implements catalog.ProductRepository on a sharded
// concurrent map. Each product is updated under its own shard lock, so writes
// to different products never contend on a single lock.
// Products are never deleted, which keeps the existence check ahead of an
// upsert race-free.
type InMemoryProductRepository struct {
	products  cmap.ConcurrentMap[string, catalog.Product]
	orderMu   sync.RWMutex
	order     []catalog.ProductID
	publisher shared.EventPublisher
	clock     shared.Clock
	logger    *zap.Logger
}

// NewInMemoryProductRepository creates an empty in-memory catalog
func NewInMemoryProductRepository(publisher shared.EventPublisher, clock shared.Clock, logger *zap.Logger) *InMemoryProductRepository {
	if publisher == nil {
		publisher = shared.NopPublisher{}
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryProductRepository{
		products:  cmap.New[catalog.Product](),
		order:     make([]catalog.ProductID, 0),
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

// Save creates or replaces a product. New products are appended to the catalog order.
func (r *InMemoryProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	if product == nil || product.ID.IsZero() {
		return shared.ErrInvalidInput
	}

	events := product.PullDomainEvents()
	stored := product.Clone()

	r.orderMu.Lock()
	if !r.products.Has(product.ID.String()) {
		r.order = append(r.order, product.ID)
	}
	r.products.Set(product.ID.String(), stored)
	r.orderMu.Unlock()

	r.publish(ctx, events)
	return nil
}

// ListProducts returns copies of all products in catalog order
func (r *InMemoryProductRepository) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	r.orderMu.RLock()
	ids := make([]catalog.ProductID, len(r.order))
	copy(ids, r.order)
	r.orderMu.RUnlock()

	products := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.products.Get(id.String()); ok {
			products = append(products, p.Clone())
		}
	}
	return products, nil
}

// FindByID returns a copy of a single product
func (r *InMemoryProductRepository) FindByID(ctx context.Context, id catalog.ProductID) (*catalog.Product, error) {
	p, ok := r.products.Get(id.String())
	if !ok {
		return nil, shared.ErrNotFound
	}
	c := p.Clone()
	return &c, nil
}

// IsEligible reports whether the product exists and has stock
func (r *InMemoryProductRepository) IsEligible(ctx context.Context, id catalog.ProductID) (bool, error) {
	p, ok := r.products.Get(id.String())
	if !ok {
		return false, shared.ErrNotFound
	}
	return p.IsEligible(), nil
}

// MarkDiscounted puts the product on special discount for duration
func (r *InMemoryProductRepository) MarkDiscounted(ctx context.Context, id catalog.ProductID, duration time.Duration) error {
	now := r.clock.Now()
	return r.mutate(ctx, id, func(p *catalog.Product) error {
		return p.MarkDiscounted(now, duration)
	})
}

// MarkSuggested flags the product as suggested for duration
func (r *InMemoryProductRepository) MarkSuggested(ctx context.Context, id catalog.ProductID, duration time.Duration) error {
	now := r.clock.Now()
	return r.mutate(ctx, id, func(p *catalog.Product) error {
		return p.MarkSuggested(now, duration)
	})
}

// AdjustStock changes the stock level by delta
func (r *InMemoryProductRepository) AdjustStock(ctx context.Context, id catalog.ProductID, delta int) error {
	now := r.clock.Now()
	return r.mutate(ctx, id, func(p *catalog.Product) error {
		return p.AdjustStock(now, delta)
	})
}

// mutate applies fn to one product under its shard lock. A failing fn leaves
// the stored product untouched.
func (r *InMemoryProductRepository) mutate(ctx context.Context, id catalog.ProductID, fn func(p *catalog.Product) error) error {
	key := id.String()
	if !r.products.Has(key) {
		return shared.ErrNotFound
	}

	var (
		opErr  error
		events []shared.DomainEvent
	)
	r.products.Upsert(key, catalog.Product{}, func(exist bool, inMap catalog.Product, _ catalog.Product) catalog.Product {
		p := inMap
		if err := fn(&p); err != nil {
			opErr = err
			return inMap
		}
		events = p.PullDomainEvents()
		return p
	})
	if opErr != nil {
		return opErr
	}

	r.publish(ctx, events)
	return nil
}

func (r *InMemoryProductRepository) publish(ctx context.Context, events []shared.DomainEvent) {
	if len(events) == 0 {
		return
	}
	if err := r.publisher.Publish(ctx, events...); err != nil {
		r.logger.Warn("failed to publish catalog events",
			zap.Int("event_count", len(events)),
			zap.Error(err),
		)
	}
}

var _ catalog.ProductRepository = (*InMemoryProductRepository)(nil)
