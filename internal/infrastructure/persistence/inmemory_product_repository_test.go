package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/widget/internal/domain/catalog"
	"github.com/storefront/widget/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 10, 13, 9, 0, 0, 0, time.UTC)

// recordingPublisher captures published events for assertions
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.EventType())
	}
	return types
}

func seedProducts(t *testing.T, repo *InMemoryProductRepository, stocks map[catalog.ProductID]int, order ...catalog.ProductID) {
	t.Helper()
	for _, id := range order {
		p, err := catalog.NewProduct(id, "Product "+id.String(), decimal.NewFromInt(10000), stocks[id])
		require.NoError(t, err)
		require.NoError(t, repo.Save(context.Background(), p))
	}
}

func newTestProductRepo(t *testing.T) (*InMemoryProductRepository, *recordingPublisher, *shared.FixedClock) {
	t.Helper()
	publisher := &recordingPublisher{}
	clock := shared.NewFixedClock(testNow)
	return NewInMemoryProductRepository(publisher, clock, zap.NewNop()), publisher, clock
}

func TestInMemoryProductRepository_ListProducts(t *testing.T) {
	repo, _, _ := newTestProductRepo(t)
	seedProducts(t, repo, map[catalog.ProductID]int{"p2": 1, "p1": 2, "p3": 0}, "p2", "p1", "p3")

	products, err := repo.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, catalog.ProductID("p2"), products[0].ID)
	assert.Equal(t, catalog.ProductID("p1"), products[1].ID)
	assert.Equal(t, catalog.ProductID("p3"), products[2].ID)

	t.Run("saving an existing product keeps its position", func(t *testing.T) {
		p, err := repo.FindByID(context.Background(), "p2")
		require.NoError(t, err)
		p.Name = "Renamed"
		require.NoError(t, repo.Save(context.Background(), p))

		products, err := repo.ListProducts(context.Background())
		require.NoError(t, err)
		require.Len(t, products, 3)
		assert.Equal(t, "Renamed", products[0].Name)
	})

	t.Run("returned products are copies", func(t *testing.T) {
		products[1].Stock = 999
		p, err := repo.FindByID(context.Background(), "p1")
		require.NoError(t, err)
		assert.Equal(t, 2, p.Stock)
	})
}

func TestInMemoryProductRepository_FindAndEligibility(t *testing.T) {
	repo, _, _ := newTestProductRepo(t)
	seedProducts(t, repo, map[catalog.ProductID]int{"a": 10, "b": 0}, "a", "b")
	ctx := context.Background()

	ok, err := repo.IsEligible(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IsEligible(ctx, "b")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.IsEligible(ctx, "zzz")
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	_, err = repo.FindByID(ctx, "zzz")
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	assert.ErrorIs(t, repo.Save(ctx, nil), shared.ErrInvalidInput)
}

func TestInMemoryProductRepository_Flags(t *testing.T) {
	repo, publisher, clock := newTestProductRepo(t)
	seedProducts(t, repo, map[catalog.ProductID]int{"a": 10}, "a")
	ctx := context.Background()

	require.NoError(t, repo.MarkDiscounted(ctx, "a", 30*time.Second))
	require.NoError(t, repo.MarkSuggested(ctx, "a", time.Minute))

	p, err := repo.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.True(t, p.IsDiscounted(clock.Now()))
	assert.True(t, p.IsSuggested(clock.Now()))
	assert.Equal(t, []string{catalog.EventTypeProductDiscounted, catalog.EventTypeProductSuggested}, publisher.types())

	clock.Advance(45 * time.Second)
	assert.False(t, p.IsDiscounted(clock.Now()))
	assert.True(t, p.IsSuggested(clock.Now()))

	t.Run("unknown product", func(t *testing.T) {
		err := repo.MarkDiscounted(ctx, "zzz", time.Second)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
		_, err = repo.FindByID(ctx, "zzz")
		assert.True(t, errors.Is(err, shared.ErrNotFound), "failed mutation must not create an entry")
	})

	t.Run("invalid duration leaves product unchanged", func(t *testing.T) {
		before, _ := repo.FindByID(ctx, "a")
		require.Error(t, repo.MarkSuggested(ctx, "a", 0))
		after, _ := repo.FindByID(ctx, "a")
		assert.Equal(t, before.SuggestedUntil, after.SuggestedUntil)
		assert.Equal(t, before.GetVersion(), after.GetVersion())
	})
}

func TestInMemoryProductRepository_AdjustStock(t *testing.T) {
	repo, _, _ := newTestProductRepo(t)
	seedProducts(t, repo, map[catalog.ProductID]int{"a": 1}, "a")
	ctx := context.Background()

	require.NoError(t, repo.AdjustStock(ctx, "a", -1))
	err := repo.AdjustStock(ctx, "a", -1)
	assert.True(t, errors.Is(err, shared.ErrInsufficientStock))

	p, err := repo.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)
}

func TestInMemoryProductRepository_ConcurrentWrites(t *testing.T) {
	repo, publisher, _ := newTestProductRepo(t)
	seedProducts(t, repo, map[catalog.ProductID]int{"a": 1000, "b": 1000}, "a", "b")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.AdjustStock(ctx, "a", -1))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.AdjustStock(ctx, "b", -2))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.MarkDiscounted(ctx, "a", time.Second))
		}()
	}
	wg.Wait()

	a, err := repo.FindByID(ctx, "a")
	require.NoError(t, err)
	b, err := repo.FindByID(ctx, "b")
	require.NoError(t, err)

	assert.Equal(t, 900, a.Stock)
	assert.Equal(t, 800, b.Stock)
	assert.Equal(t, 1+200, a.GetVersion())
	assert.Len(t, publisher.types(), 300)
}
