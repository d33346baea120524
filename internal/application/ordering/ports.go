package ordering

import (
	"context"

	"github.com/jhoicas/commerce-core/internal/application/inventory"
	"github.com/jhoicas/commerce-core/internal/domain/entity"
	"github.com/jhoicas/commerce-core/internal/domain/repository"
	"github.com/jhoicas/commerce-core/pkg/logger"
	"github.com/jhoicas/commerce-core/pkg/metrics"
)

// FulfillmentPlanner propone desde qué ubicaciones se despachan las cantidades pedidas.
// Es de solo lectura: no reserva nada.
type FulfillmentPlanner interface {
	PlanFulfillment(ctx context.Context, storeID string, requested map[string]int, destinationAddressID string, strategy entity.FulfillmentStrategy) (*entity.FulfillmentPlan, error)
}

// PromotionCalculator calcula los ajustes de una promoción sobre la orden.
type PromotionCalculator interface {
	Calculate(ctx context.Context, promotion entity.Promotion, order *entity.Order) (entity.CalculationResult, error)
}

// VariantCatalog resuelve variantes por id.
type VariantCatalog interface {
	GetByID(ctx context.Context, id string) (*entity.Variant, error)
}

// ShippingMethodCatalog resuelve métodos de envío por id.
type ShippingMethodCatalog interface {
	GetByID(ctx context.Context, id string) (*entity.ShippingMethod, error)
}

// Deps agrupa los colaboradores del caso de uso de órdenes.
type Deps struct {
	Tx              inventory.TxRunner
	Orders          repository.OrderRepository // lecturas fuera de la unidad de trabajo
	Variants        VariantCatalog
	ShippingMethods ShippingMethodCatalog
	Planner         FulfillmentPlanner
	Promotions      PromotionCalculator
	Reservations    *inventory.ReservationService
	Strategy        entity.FulfillmentStrategy
	Retry           inventory.RetryConfig
	Metrics         *metrics.Metrics // opcional
	Log             *logger.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Strategy == "" {
		d.Strategy = entity.StrategyFewestPackages
	}
	return d
}
