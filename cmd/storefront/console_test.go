package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/storefront/widget/internal/application/storefront"
	"github.com/storefront/widget/internal/domain/catalog"
	"github.com/storefront/widget/internal/infrastructure/config"
	"github.com/storefront/widget/internal/infrastructure/persistence"
	"github.com/storefront/widget/internal/interfaces/display"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStorefront(t *testing.T) (*storefront.Orchestrator, *display.MemorySurface) {
	t.Helper()
	ctx := context.Background()

	products := persistence.NewInMemoryProductRepository(nil, nil, zap.NewNop())
	first, err := seedCatalog(ctx, products, []config.ProductSeed{
		{ID: "A", Name: "Keyboard", Price: 10000, Stock: 10},
		{ID: "B", Name: "Mouse", Price: 20000, Stock: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, catalog.ProductID("A"), first)

	carts := persistence.NewInMemoryCartStore(products, nil, nil, zap.NewNop())
	surface := display.NewMemorySurface()
	format, err := display.NewFormatter("en-US")
	require.NoError(t, err)
	registry, err := display.NewRegistry(surface, format)
	require.NoError(t, err)

	orch, err := storefront.NewOrchestrator(products, carts, registry, storefront.WithInitialSelection(first))
	require.NoError(t, err)
	return orch, surface
}

func TestSeedCatalog_RejectsInvalidProduct(t *testing.T) {
	products := persistence.NewInMemoryProductRepository(nil, nil, zap.NewNop())
	_, err := seedCatalog(context.Background(), products, []config.ProductSeed{{ID: "", Name: "x"}})
	assert.Error(t, err)
}

func TestConsole_Run(t *testing.T) {
	orch, surface := newTestStorefront(t)
	var out bytes.Buffer

	input := strings.Join([]string{
		"add",
		"add",
		"select B",
		"add",
		"qty A -1",
		"bogus",
		"qty A x",
		"",
		"help",
	}, "\n")
	newConsole(orch, &out, zap.NewNop()).Run(context.Background(), strings.NewReader(input))

	assert.Equal(t, catalog.ProductID("A"), orch.LastAdded())
	assert.Equal(t, "Keyboard x1 @ ₩10,000 = ₩10,000", surface.Region(display.RegionCart))

	printed := out.String()
	assert.Contains(t, printed, "! insufficient stock")
	assert.Contains(t, printed, `! unknown command "bogus", try help`)
	assert.Contains(t, printed, `! invalid delta "x"`)
	assert.Contains(t, printed, "commands:")
}

func TestConsole_StopsWhenContextDone(t *testing.T) {
	orch, _ := newTestStorefront(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	newConsole(orch, &out, zap.NewNop()).Run(ctx, strings.NewReader("add\n"))
	assert.Empty(t, orch.LastAdded())
}
