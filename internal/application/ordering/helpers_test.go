package ordering_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/commerce-core/internal/application/inventory"
	"github.com/jhoicas/commerce-core/internal/application/ordering"
	"github.com/jhoicas/commerce-core/internal/domain/entity"
	"github.com/jhoicas/commerce-core/internal/infrastructure/memory"
	"github.com/jhoicas/commerce-core/pkg/logger"
	"github.com/jhoicas/commerce-core/pkg/metrics"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const storeID = "store-1"

type fixture struct {
	store    *memory.Store
	invDeps  inventory.Deps
	metrics  *metrics.Metrics
	planner  *fakePlanner
	promos   *fakePromotions
	orders   *ordering.OrderUseCase
	location string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	m := metrics.New(prometheus.NewRegistry())
	retry := inventory.RetryConfig{MaxRetries: 10, BaseDelay: time.Millisecond}
	invDeps := inventory.Deps{
		Tx:      store,
		Repos:   store.Repositories(),
		Retry:   retry,
		Metrics: m,
		Log:     logger.Nop(),
	}

	loc, err := entity.NewStockLocation(storeID, "Bodega central", "", time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Repositories().Locations.Create(ctx, loc))

	require.NoError(t, store.Variants().Create(ctx, &entity.Variant{ID: "V1", SKU: "SKU-1", Name: "Camiseta", PriceCents: 1000, Currency: "COP"}))
	require.NoError(t, store.Variants().Create(ctx, &entity.Variant{ID: "V2", SKU: "SKU-2", Name: "Gorra", PriceCents: 400, Currency: "COP"}))
	require.NoError(t, store.ShippingMethods().Create(ctx, &entity.ShippingMethod{ID: "std", Name: "Estándar", CostCents: 500, Currency: "COP"}))

	planner := &fakePlanner{location: loc.ID}
	promos := &fakePromotions{}
	return &fixture{
		store:    store,
		invDeps:  invDeps,
		metrics:  m,
		planner:  planner,
		promos:   promos,
		location: loc.ID,
		orders: ordering.NewOrderUseCase(ordering.Deps{
			Tx:              store,
			Orders:          store.Repositories().Orders,
			Variants:        store.Variants(),
			ShippingMethods: store.ShippingMethods(),
			Planner:         planner,
			Promotions:      promos,
			Reservations:    inventory.NewReservationService(invDeps),
			Retry:           retry,
			Metrics:         m,
			Log:             logger.Nop(),
		}),
	}
}

func (f *fixture) stock(t *testing.T, variantID string, onHand int) *entity.StockItem {
	t.Helper()
	item, err := inventory.NewStockUseCase(f.invDeps).Create(context.Background(), inventory.CreateStockItemInput{
		VariantID:       variantID,
		StockLocationID: f.location,
		InitialQuantity: onHand,
		UnitCost:        decimal.NewFromInt(300),
	})
	require.NoError(t, err)
	return item
}

func (f *fixture) reloadStock(t *testing.T, id string) *entity.StockItem {
	t.Helper()
	item, err := inventory.NewStockUseCase(f.invDeps).Get(context.Background(), id)
	require.NoError(t, err)
	return item
}

func address() *entity.Address {
	return &entity.Address{FirstName: "Ana", LastName: "Gómez", Line1: "Calle 10 # 5-20", City: "Bogotá", Country: "CO"}
}

// toConfirm lleva una orden con qty unidades de V1 hasta CONFIRM con el pago completo.
func (f *fixture) toConfirm(t *testing.T, qty int) *entity.Order {
	t.Helper()
	ctx := context.Background()
	o, err := f.orders.Create(ctx, ordering.CreateOrderInput{StoreID: storeID, Currency: "cop", Email: "cliente@example.com"})
	require.NoError(t, err)
	_, err = f.orders.AddVariant(ctx, o.ID, "V1", qty, nil)
	require.NoError(t, err)
	_, err = f.orders.Next(ctx, o.ID)
	require.NoError(t, err)
	_, err = f.orders.SetAddresses(ctx, o.ID, address(), address())
	require.NoError(t, err)
	_, err = f.orders.Next(ctx, o.ID)
	require.NoError(t, err)
	_, err = f.orders.SetShippingMethod(ctx, o.ID, "std", nil)
	require.NoError(t, err)
	o, err = f.orders.Next(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, entity.OrderPayment, o.State)

	o, err = f.orders.AddPayment(ctx, o.ID, "card", o.TotalCents)
	require.NoError(t, err)
	o, err = f.orders.TransitionPayment(ctx, o.ID, o.Payments[0].ID, ordering.PaymentComplete)
	require.NoError(t, err)
	o, err = f.orders.Next(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, entity.OrderConfirm, o.State)
	return o
}

// fakePlanner asigna todo a una ubicación salvo lo indicado en short.
type fakePlanner struct {
	location string
	short    map[string]int
	calls    int
	err      error
}

func (p *fakePlanner) PlanFulfillment(_ context.Context, _ string, requested map[string]int, _ string, _ entity.FulfillmentStrategy) (*entity.FulfillmentPlan, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	plan := &entity.FulfillmentPlan{Unfulfilled: map[string]int{}}
	pkg := entity.FulfillmentPackage{StockLocationID: p.location}
	for variantID, qty := range requested {
		if miss := p.short[variantID]; miss > 0 {
			plan.Unfulfilled[variantID] = miss
			qty -= miss
		}
		if qty > 0 {
			pkg.Items = append(pkg.Items, entity.PlannedItem{VariantID: variantID, Quantity: qty})
		}
	}
	plan.Packages = append(plan.Packages, pkg)
	return plan, nil
}

// fakePromotions descuenta un monto fijo a nivel de orden.
type fakePromotions struct {
	discount int64
	err      error
}

var errCalculator = errors.New("servicio de promociones caído")

func (p *fakePromotions) Calculate(_ context.Context, _ entity.Promotion, _ *entity.Order) (entity.CalculationResult, error) {
	if p.err != nil {
		return entity.CalculationResult{}, p.err
	}
	return entity.CalculationResult{Adjustments: []entity.PromotionAdjustment{{AmountCents: -p.discount}}}, nil
}
