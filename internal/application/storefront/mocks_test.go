package storefront

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/widget/internal/domain/cart"
	"github.com/storefront/widget/internal/domain/catalog"
	"github.com/stretchr/testify/mock"
)

type mockCartStore struct {
	mock.Mock
}

func (m *mockCartStore) Add(ctx context.Context, id catalog.ProductID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCartStore) ChangeQuantity(ctx context.Context, id catalog.ProductID, delta int) error {
	return m.Called(ctx, id, delta).Error(0)
}

func (m *mockCartStore) Remove(ctx context.Context, id catalog.ProductID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCartStore) Items(ctx context.Context) ([]cart.Item, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]cart.Item)
	return items, args.Error(1)
}

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	args := m.Called(ctx)
	products, _ := args.Get(0).([]catalog.Product)
	return products, args.Error(1)
}

func (m *mockProductRepository) FindByID(ctx context.Context, id catalog.ProductID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*catalog.Product)
	return p, args.Error(1)
}

func (m *mockProductRepository) IsEligible(ctx context.Context, id catalog.ProductID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockProductRepository) MarkDiscounted(ctx context.Context, id catalog.ProductID, d time.Duration) error {
	return m.Called(ctx, id, d).Error(0)
}

func (m *mockProductRepository) MarkSuggested(ctx context.Context, id catalog.ProductID, d time.Duration) error {
	return m.Called(ctx, id, d).Error(0)
}

func (m *mockProductRepository) AdjustStock(ctx context.Context, id catalog.ProductID, delta int) error {
	return m.Called(ctx, id, delta).Error(0)
}

// recordingComponent keeps every snapshot it was asked to render
type recordingComponent struct {
	mu        sync.Mutex
	snapshots []Snapshot
}

func (c *recordingComponent) Render(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots = append(c.snapshots, s)
}

func (c *recordingComponent) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.snapshots)
}

func (c *recordingComponent) last() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshots[len(c.snapshots)-1]
}

func mustProduct(id catalog.ProductID, price int64, stock int) catalog.Product {
	p, err := catalog.NewProduct(id, "Product "+id.String(), decimal.NewFromInt(price), stock)
	if err != nil {
		panic(err)
	}
	return *p
}
