package storefront

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/storefront/widget/internal/domain/cart"
	"github.com/storefront/widget/internal/domain/catalog"
	"github.com/storefront/widget/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// monday keeps the Tuesday special out of orchestrator tests
var monday = time.Date(2026, 10, 12, 10, 0, 0, 0, time.UTC)

type fixture struct {
	orch      *Orchestrator
	products  *mockProductRepository
	carts     *mockCartStore
	component *recordingComponent
	clock     *shared.FixedClock
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	products := &mockProductRepository{}
	products.On("ListProducts", mock.Anything).Return([]catalog.Product{
		mustProduct("A", 10000, 10),
		mustProduct("B", 20000, 0),
	}, nil)

	carts := &mockCartStore{}
	carts.On("Items", mock.Anything).Return([]cart.Item{}, nil)

	component := &recordingComponent{}
	registry, err := NewRegistry(Entry{Name: "recorder", Component: component})
	require.NoError(t, err)

	clock := shared.NewFixedClock(monday)
	opts = append([]Option{WithClock(clock), WithLogger(zap.NewNop())}, opts...)
	orch, err := NewOrchestrator(products, carts, registry, opts...)
	require.NoError(t, err)

	return &fixture{orch: orch, products: products, carts: carts, component: component, clock: clock}
}

func TestNewOrchestrator_RequiresCollaborators(t *testing.T) {
	registry, err := NewRegistry()
	require.NoError(t, err)

	_, err = NewOrchestrator(nil, &mockCartStore{}, registry)
	assert.Error(t, err)
	_, err = NewOrchestrator(&mockProductRepository{}, nil, registry)
	assert.Error(t, err)
	_, err = NewOrchestrator(&mockProductRepository{}, &mockCartStore{}, nil)
	assert.Error(t, err)
}

func TestOrchestrator_SetSelection_LastWriteWins(t *testing.T) {
	f := newFixture(t)

	f.orch.SetSelection("A")
	f.orch.SetSelection("B")
	f.orch.SetSelection("A")

	assert.Equal(t, catalog.ProductID("A"), f.orch.Selection())
	assert.Equal(t, 0, f.component.count(), "SetSelection does not refresh")

	f.orch.SetSelection("")
	assert.True(t, f.orch.Selection().IsZero())
}

func TestOrchestrator_Select_Refreshes(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.orch.Select(context.Background(), "B"))

	assert.Equal(t, 1, f.component.count())
	selected, ok := f.component.last().Selected()
	require.True(t, ok)
	assert.Equal(t, catalog.ProductID("B"), selected.ID)
	assert.True(t, selected.SoldOut)
}

func TestOrchestrator_AddToCart_WithoutSelection(t *testing.T) {
	f := newFixture(t)

	err := f.orch.AddToCart(context.Background())

	assert.ErrorIs(t, err, ErrNoSelection)
	assert.Equal(t, "no product selected", err.Error())
	f.carts.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
	assert.True(t, f.orch.LastAdded().IsZero())
	assert.Equal(t, 0, f.component.count())
}

func TestOrchestrator_AddToCart_Success(t *testing.T) {
	f := newFixture(t)
	f.carts.On("Add", mock.Anything, catalog.ProductID("A")).Return(nil).Once()

	f.orch.SetSelection("A")
	require.NoError(t, f.orch.AddToCart(context.Background()))

	assert.Equal(t, catalog.ProductID("A"), f.orch.LastAdded())
	assert.Equal(t, 1, f.component.count(), "exactly one refresh")
	assert.Equal(t, catalog.ProductID("A"), f.component.last().LastAdded)
	f.carts.AssertExpectations(t)
}

func TestOrchestrator_AddToCart_StoreFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	f := newFixture(t, WithLogger(zap.New(core)))

	f.carts.On("Add", mock.Anything, catalog.ProductID("A")).Return(nil).Once()
	f.orch.SetSelection("A")
	require.NoError(t, f.orch.AddToCart(context.Background()))
	rendersBefore := f.component.count()

	storeErr := errors.New("insufficient stock")
	f.carts.On("Add", mock.Anything, catalog.ProductID("B")).Return(storeErr).Once()
	f.orch.SetSelection("B")
	err := f.orch.AddToCart(context.Background())

	require.Error(t, err)
	assert.Equal(t, "insufficient stock", err.Error())
	assert.ErrorIs(t, err, storeErr)

	var failure *StoreFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, OpAdd, failure.Op)
	assert.Equal(t, catalog.ProductID("B"), failure.ProductID)

	assert.Equal(t, catalog.ProductID("A"), f.orch.LastAdded(), "marker unchanged")
	assert.Equal(t, rendersBefore, f.component.count(), "no refresh on failure")
	assert.Equal(t, 1, logs.FilterMessage("cart operation rejected").Len())
}

func TestOrchestrator_RefreshAll_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.orch.SetSelection("A")

	require.NoError(t, f.orch.RefreshAll(context.Background()))
	first := f.component.last()
	require.NoError(t, f.orch.RefreshAll(context.Background()))
	second := f.component.last()

	assert.Equal(t, 2, f.component.count())
	assert.Equal(t, first, second)
	f.products.AssertNotCalled(t, "MarkDiscounted", mock.Anything, mock.Anything, mock.Anything)
	f.products.AssertNotCalled(t, "AdjustStock", mock.Anything, mock.Anything, mock.Anything)
	f.carts.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestOrchestrator_RefreshAll_SnapshotErrors(t *testing.T) {
	products := &mockProductRepository{}
	products.On("ListProducts", mock.Anything).Return(nil, errors.New("catalog offline"))
	component := &recordingComponent{}
	registry, err := NewRegistry(Entry{Name: "recorder", Component: component})
	require.NoError(t, err)

	orch, err := NewOrchestrator(products, &mockCartStore{}, registry)
	require.NoError(t, err)

	err = orch.RefreshAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog offline")
	assert.Equal(t, 0, component.count())
}

func TestOrchestrator_ChangeQuantityAndRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.carts.On("ChangeQuantity", mock.Anything, catalog.ProductID("A"), 2).Return(nil).Once()
	require.NoError(t, f.orch.ChangeQuantity(ctx, "A", 2))
	assert.Equal(t, 1, f.component.count())

	f.carts.On("ChangeQuantity", mock.Anything, catalog.ProductID("A"), 50).Return(shared.ErrInsufficientStock).Once()
	err := f.orch.ChangeQuantity(ctx, "A", 50)
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	assert.Equal(t, 1, f.component.count())

	f.carts.On("Remove", mock.Anything, catalog.ProductID("A")).Return(nil).Once()
	require.NoError(t, f.orch.RemoveFromCart(ctx, "A"))
	assert.Equal(t, 2, f.component.count())

	f.carts.On("Remove", mock.Anything, catalog.ProductID("Z")).Return(errors.New("product is not in the cart")).Once()
	err = f.orch.RemoveFromCart(ctx, "Z")
	var failure *StoreFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, OpRemove, failure.Op)
	assert.Equal(t, 2, f.component.count())

	f.carts.AssertExpectations(t)
}

func TestOrchestrator_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("no change means no refresh", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.orch.Update(ctx, func(context.Context, State) (bool, error) {
			return false, nil
		}))
		assert.Equal(t, 0, f.component.count())
	})

	t.Run("change triggers one refresh", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.orch.Update(ctx, func(context.Context, State) (bool, error) {
			return true, nil
		}))
		assert.Equal(t, 1, f.component.count())
	})

	t.Run("error skips refresh", func(t *testing.T) {
		f := newFixture(t)
		boom := errors.New("boom")
		err := f.orch.Update(ctx, func(context.Context, State) (bool, error) {
			return true, boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, f.component.count())
	})

	t.Run("sees current state", func(t *testing.T) {
		f := newFixture(t)
		f.carts.On("Add", mock.Anything, catalog.ProductID("A")).Return(nil)
		f.orch.SetSelection("A")
		require.NoError(t, f.orch.AddToCart(ctx))

		var seen State
		require.NoError(t, f.orch.Update(ctx, func(_ context.Context, s State) (bool, error) {
			seen = s
			return false, nil
		}))
		assert.Equal(t, State{Selection: "A", LastAdded: "A", RenderedAt: monday}, seen)
	})
}

func TestOrchestrator_RenderedAtTracksLastRefresh(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	assert.True(t, f.orch.State().RenderedAt.IsZero(), "nothing rendered yet")

	f.clock.Advance(time.Minute)
	_, err := f.orch.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, f.orch.State().RenderedAt.IsZero(), "a snapshot alone is not a render")

	require.NoError(t, f.orch.RefreshAll(ctx))
	assert.Equal(t, monday.Add(time.Minute), f.orch.State().RenderedAt)

	f.clock.Advance(time.Minute)
	require.NoError(t, f.orch.Update(ctx, func(context.Context, State) (bool, error) { return false, nil }))
	assert.Equal(t, monday.Add(time.Minute), f.orch.State().RenderedAt, "unchanged update keeps the old render")
}

func TestOrchestrator_RenderPanicIsContained(t *testing.T) {
	products := &mockProductRepository{}
	products.On("ListProducts", mock.Anything).Return([]catalog.Product{mustProduct("A", 100, 1)}, nil)
	carts := &mockCartStore{}
	carts.On("Items", mock.Anything).Return([]cart.Item{}, nil)

	before := &recordingComponent{}
	after := &recordingComponent{}
	registry, err := NewRegistry(
		Entry{Name: "before", Component: before},
		Entry{Name: "broken", Component: ComponentFunc(func(Snapshot) { panic("render failed") })},
		Entry{Name: "after", Component: after},
	)
	require.NoError(t, err)

	core, logs := observer.New(zapcore.ErrorLevel)
	orch, err := NewOrchestrator(products, carts, registry, WithLogger(zap.New(core)))
	require.NoError(t, err)

	require.NoError(t, orch.RefreshAll(context.Background()))
	assert.Equal(t, 1, before.count())
	assert.Equal(t, 1, after.count())

	entries := logs.FilterMessage("display component panicked").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "broken", entries[0].ContextMap()["component"])
}

func TestOrchestrator_Close(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.orch.SetSelection("A")

	require.NoError(t, f.orch.Close())
	require.NoError(t, f.orch.Close())

	assert.ErrorIs(t, f.orch.AddToCart(ctx), ErrClosed)
	assert.ErrorIs(t, f.orch.RefreshAll(ctx), ErrClosed)
	assert.ErrorIs(t, f.orch.Select(ctx, "B"), ErrClosed)
	assert.ErrorIs(t, f.orch.ChangeQuantity(ctx, "A", 1), ErrClosed)
	assert.ErrorIs(t, f.orch.RemoveFromCart(ctx, "A"), ErrClosed)
	assert.ErrorIs(t, f.orch.Update(ctx, func(context.Context, State) (bool, error) { return true, nil }), ErrClosed)

	f.orch.SetSelection("B")
	assert.Equal(t, catalog.ProductID("A"), f.orch.Selection())
	assert.Equal(t, 0, f.component.count())
	f.carts.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestOrchestrator_ExpiredPromotionsResolveAtSnapshotTime(t *testing.T) {
	f := newFixture(t)
	discounted := mustProduct("A", 10000, 10)
	require.NoError(t, discounted.MarkDiscounted(monday, 30*time.Second))

	f.products.ExpectedCalls = nil
	f.products.On("ListProducts", mock.Anything).Return([]catalog.Product{discounted}, nil)

	snap, err := f.orch.Snapshot(context.Background())
	require.NoError(t, err)
	view, ok := snap.Product("A")
	require.True(t, ok)
	assert.True(t, view.Discounted)

	f.clock.Advance(time.Minute)
	snap, err = f.orch.Snapshot(context.Background())
	require.NoError(t, err)
	view, _ = snap.Product("A")
	assert.False(t, view.Discounted)
}

func TestOrchestrator_ConcurrentActionsAreSerialized(t *testing.T) {
	f := newFixture(t)
	f.carts.On("Add", mock.Anything, mock.Anything).Return(nil)
	f.orch.SetSelection("A")
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		inUpdate sync.Mutex
	)
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.orch.AddToCart(ctx))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, f.orch.Update(ctx, func(context.Context, State) (bool, error) {
				// The guard is held, so this never contends.
				locked := inUpdate.TryLock()
				assert.True(t, locked)
				if locked {
					defer inUpdate.Unlock()
				}
				return true, nil
			}))
		}()
		go func() {
			defer wg.Done()
			f.orch.SetSelection("A")
		}()
	}
	wg.Wait()

	assert.Equal(t, 40, f.component.count())
	assert.Equal(t, catalog.ProductID("A"), f.orch.LastAdded())
}
