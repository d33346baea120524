package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/commerce-core/internal/application/inventory"
	"github.com/jhoicas/commerce-core/internal/domain/entity"
	"github.com/jhoicas/commerce-core/internal/infrastructure/memory"
	"github.com/jhoicas/commerce-core/pkg/logger"
	"github.com/jhoicas/commerce-core/pkg/metrics"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type fixture struct {
	store   *memory.Store
	deps    inventory.Deps
	metrics *metrics.Metrics
	cache   *fakeCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	m := metrics.New(prometheus.NewRegistry())
	cache := newFakeCache()
	return &fixture{
		store:   store,
		metrics: m,
		cache:   cache,
		deps: inventory.Deps{
			Tx:      store,
			Repos:   store.Repositories(),
			Cache:   cache,
			Retry:   inventory.RetryConfig{MaxRetries: 50, BaseDelay: time.Millisecond},
			Metrics: m,
			Log:     logger.Nop(),
		},
	}
}

func (f *fixture) location(t *testing.T, name string) string {
	t.Helper()
	loc, err := entity.NewStockLocation("store-1", name, "", time.Now())
	require.NoError(t, err)
	require.NoError(t, f.store.Repositories().Locations.Create(context.Background(), loc))
	return loc.ID
}

func (f *fixture) stock(t *testing.T, variantID, locationID string, onHand int, backorderable bool, limit int) *entity.StockItem {
	t.Helper()
	item, err := inventory.NewStockUseCase(f.deps).Create(context.Background(), inventory.CreateStockItemInput{
		VariantID:       variantID,
		StockLocationID: locationID,
		Backorderable:   backorderable,
		BackorderLimit:  limit,
		InitialQuantity: onHand,
		UnitCost:        decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	return item
}

func (f *fixture) reload(t *testing.T, id string) *entity.StockItem {
	t.Helper()
	item, err := inventory.NewStockUseCase(f.deps).Get(context.Background(), id)
	require.NoError(t, err)
	return item
}

// fakeCache es un AvailabilityCache en memoria con contador de publicaciones.
type fakeCache struct {
	mu        sync.Mutex
	byVariant map[string]map[string]entity.StockLevel
	published int
	fills     int
}

func newFakeCache() *fakeCache {
	return &fakeCache{byVariant: make(map[string]map[string]entity.StockLevel)}
}

func (c *fakeCache) Publish(_ context.Context, levels []entity.StockLevel) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published++
	for _, l := range levels {
		if m, ok := c.byVariant[l.VariantID]; ok {
			m[l.StockLocationID] = l
		}
	}
	return nil
}

func (c *fakeCache) Fill(_ context.Context, variantID string, levels []entity.StockLevel) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fills++
	m := make(map[string]entity.StockLevel, len(levels))
	for _, l := range levels {
		m[l.StockLocationID] = l
	}
	c.byVariant[variantID] = m
	return nil
}

func (c *fakeCache) Get(_ context.Context, variantID string) ([]entity.StockLevel, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.byVariant[variantID]
	if !ok {
		return nil, false, nil
	}
	out := make([]entity.StockLevel, 0, len(m))
	for _, l := range m {
		out = append(out, l)
	}
	return out, true, nil
}
