package storefront

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/widget/internal/domain/cart"
	"github.com/storefront/widget/internal/domain/catalog"
	"github.com/storefront/widget/internal/domain/shared"
	"github.com/storefront/widget/internal/domain/shared/valueobject"
	"github.com/storefront/widget/internal/infrastructure/logger"
	"github.com/storefront/widget/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Cart operation names used in StoreFailure.Op and metrics
const (
	OpAdd            = "add"
	OpChangeQuantity = "change_quantity"
	OpRemove         = "remove"
)

// UpdateFunc mutates shared state on behalf of a background process. It runs
// under the orchestrator guard and reports whether anything changed. It must
// not call Orchestrator methods.
type UpdateFunc func(ctx context.Context, state State) (changed bool, err error)

// Orchestrator owns the selection state and keeps every display component
// consistent with the catalog and the cart. One mutex serializes selection
// changes, cart and catalog mutations, and renders, so components never see
// a partially applied change.
type Orchestrator struct {
	mu        sync.Mutex
	selection catalog.ProductID
	lastAdded catalog.ProductID
	rendered  time.Time
	closed    bool

	products catalog.ProductRepository
	cart     cart.Store
	registry *Registry
	summary  *SummaryCalculator
	clock    shared.Clock
	metrics  *telemetry.StorefrontMetrics
	logger   *zap.Logger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithSummaryCalculator sets the order summary calculator
func WithSummaryCalculator(c *SummaryCalculator) Option {
	return func(o *Orchestrator) { o.summary = c }
}

// WithClock sets the clock used to resolve promotion expiry and weekday pricing
func WithClock(c shared.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithMetrics sets the metrics recorder
func WithMetrics(m *telemetry.StorefrontMetrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithInitialSelection sets the selection before the first refresh
func WithInitialSelection(id catalog.ProductID) Option {
	return func(o *Orchestrator) { o.selection = id }
}

// NewOrchestrator creates an orchestrator over the catalog, the cart store and
// the component registry
func NewOrchestrator(products catalog.ProductRepository, carts cart.Store, registry *Registry, opts ...Option) (*Orchestrator, error) {
	if products == nil {
		return nil, fmt.Errorf("storefront: product repository is required")
	}
	if carts == nil {
		return nil, fmt.Errorf("storefront: cart store is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("storefront: component registry is required")
	}

	o := &Orchestrator{
		products: products,
		cart:     carts,
		registry: registry,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.summary == nil {
		o.summary = NewSummaryCalculator(nil, valueobject.DefaultCurrency, decimal.Zero)
	}
	if o.clock == nil {
		o.clock = shared.SystemClock{}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o, nil
}

// SetSelection replaces the selected product without refreshing. An empty id
// clears the selection. It is ignored once the orchestrator is closed.
func (o *Orchestrator) SetSelection(id catalog.ProductID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.selection = id
}

// Select replaces the selection and refreshes every component
func (o *Orchestrator) Select(ctx context.Context, id catalog.ProductID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "orchestrator", "select",
		attribute.String(telemetry.SpanAttrSelection, id.String()))
	defer span.End()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}

	o.selection = id
	if err := o.refreshLocked(ctx); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

// AddToCart adds one unit of the selected product. On success the product
// becomes the last-added marker and every component is refreshed once. On
// failure nothing changes and no refresh happens.
func (o *Orchestrator) AddToCart(ctx context.Context) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "orchestrator", "add_to_cart")
	defer span.End()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}

	id := o.selection
	if id.IsZero() {
		o.metrics.RecordCartOperation(ctx, OpAdd, telemetry.OutcomeFailure)
		telemetry.RecordError(span, ErrNoSelection)
		return ErrNoSelection
	}
	span.SetAttributes(attribute.String(telemetry.SpanAttrProductID, id.String()))

	if err := o.cart.Add(ctx, id); err != nil {
		return o.storeFailure(ctx, span, OpAdd, id, err)
	}
	o.metrics.RecordCartOperation(ctx, OpAdd, telemetry.OutcomeSuccess)

	o.lastAdded = id
	telemetry.AddEvent(span, "marker_set")
	o.logger.Debug("product added to cart", zap.String("product_id", id.String()))

	if err := o.refreshLocked(ctx); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("refresh after add to cart: %w", err)
	}
	return nil
}

// ChangeQuantity adds delta to a cart line and refreshes on success
func (o *Orchestrator) ChangeQuantity(ctx context.Context, id catalog.ProductID, delta int) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "orchestrator", "change_quantity",
		attribute.String(telemetry.SpanAttrProductID, id.String()),
		attribute.Int(telemetry.SpanAttrDelta, delta))
	defer span.End()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}

	if err := o.cart.ChangeQuantity(ctx, id, delta); err != nil {
		return o.storeFailure(ctx, span, OpChangeQuantity, id, err)
	}
	o.metrics.RecordCartOperation(ctx, OpChangeQuantity, telemetry.OutcomeSuccess)

	if err := o.refreshLocked(ctx); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("refresh after quantity change: %w", err)
	}
	return nil
}

// RemoveFromCart drops a cart line and refreshes on success
func (o *Orchestrator) RemoveFromCart(ctx context.Context, id catalog.ProductID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "orchestrator", "remove_from_cart",
		attribute.String(telemetry.SpanAttrProductID, id.String()))
	defer span.End()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}

	if err := o.cart.Remove(ctx, id); err != nil {
		return o.storeFailure(ctx, span, OpRemove, id, err)
	}
	o.metrics.RecordCartOperation(ctx, OpRemove, telemetry.OutcomeSuccess)

	if err := o.refreshLocked(ctx); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("refresh after remove: %w", err)
	}
	return nil
}

// RefreshAll renders every registered component from one consistent snapshot
func (o *Orchestrator) RefreshAll(ctx context.Context) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "orchestrator", "refresh_all")
	defer span.End()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}

	if err := o.refreshLocked(ctx); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

// Update runs fn under the guard and refreshes if fn reports a change. An
// error from fn is returned without a refresh.
func (o *Orchestrator) Update(ctx context.Context, fn UpdateFunc) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}

	changed, err := fn(ctx, o.stateLocked())
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return o.refreshLocked(ctx)
}

// State returns the current selection and last-added marker
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stateLocked()
}

// Selection returns the selected product id, or "" when none is selected
func (o *Orchestrator) Selection() catalog.ProductID {
	return o.State().Selection
}

// LastAdded returns the product most recently added to the cart
func (o *Orchestrator) LastAdded() catalog.ProductID {
	return o.State().LastAdded
}

// Snapshot builds the current snapshot without rendering
func (o *Orchestrator) Snapshot(ctx context.Context) (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked(ctx)
}

// Close stops the orchestrator. Later mutations and refreshes fail with
// ErrClosed. Close waits for any in-flight operation to finish.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	o.logger.Info("storefront closed",
		zap.String("selection", o.selection.String()),
		zap.String("last_added", o.lastAdded.String()),
	)
	return nil
}

func (o *Orchestrator) stateLocked() State {
	return State{Selection: o.selection, LastAdded: o.lastAdded, RenderedAt: o.rendered}
}

func (o *Orchestrator) storeFailure(ctx context.Context, span trace.Span, op string, id catalog.ProductID, err error) error {
	failure := &StoreFailure{Op: op, ProductID: id, Err: err}
	o.metrics.RecordCartOperation(ctx, op, telemetry.OutcomeFailure)
	telemetry.RecordError(span, err)
	logger.For(ctx, o.logger).Warn("cart operation rejected",
		zap.String("operation", op),
		zap.String("product_id", id.String()),
		zap.Error(err),
	)
	return failure
}

func (o *Orchestrator) refreshLocked(ctx context.Context) error {
	start := time.Now()

	snapshot, err := o.snapshotLocked(ctx)
	if err != nil {
		o.logger.Error("failed to build snapshot", zap.Error(err))
		return fmt.Errorf("build snapshot: %w", err)
	}

	o.registry.renderAll(snapshot, func(name string, recovered any) {
		o.metrics.RecordRenderPanic(ctx, name)
		o.logger.Error("display component panicked",
			zap.String("component", name),
			zap.Any("panic", recovered),
		)
	})
	o.rendered = snapshot.RenderedAt

	o.metrics.RecordRefresh(ctx, time.Since(start))
	return nil
}

func (o *Orchestrator) snapshotLocked(ctx context.Context) (Snapshot, error) {
	products, err := o.products.ListProducts(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list products: %w", err)
	}
	items, err := o.cart.Items(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list cart items: %w", err)
	}

	now := o.clock.Now()
	currency := o.summary.Currency()
	views := make([]ProductView, 0, len(products))
	for i := range products {
		p := &products[i]
		price, err := valueobject.NewMoney(p.Price, currency)
		if err != nil {
			return Snapshot{}, fmt.Errorf("price product %s: %w", p.ID, err)
		}
		views = append(views, ProductView{
			ID:         p.ID,
			Name:       p.Name,
			Price:      price,
			Stock:      p.Stock,
			Discounted: p.IsDiscounted(now),
			Suggested:  p.IsSuggested(now),
			SoldOut:    p.IsSoldOut(),
			LowStock:   p.IsLowStock(),
		})
	}

	summary, err := o.summary.Calculate(ctx, items, views, now)
	if err != nil {
		return Snapshot{}, fmt.Errorf("calculate summary: %w", err)
	}

	state := o.stateLocked()
	state.RenderedAt = now
	return Snapshot{
		State:    state,
		Products: views,
		Cart:     items,
		Summary:  summary,
	}, nil
}
