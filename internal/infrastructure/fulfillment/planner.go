// Package fulfillment contiene el planificador de despacho por defecto: reparte las cantidades
// pedidas entre las ubicaciones activas de la tienda según lo que cada una puede reservar.
package fulfillment

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/commerce-core/internal/domain"
	"github.com/jhoicas/commerce-core/internal/domain/entity"
	"github.com/jhoicas/commerce-core/internal/domain/repository"
	"github.com/jhoicas/commerce-core/pkg/logger"
)

// Planner es un planificador voraz de solo lectura. No reserva: la reserva ocurre al completar
// la orden y puede fallar si el stock cambió entre medio.
type Planner struct {
	items     repository.StockItemRepository
	locations repository.StockLocationRepository
	log       *logger.Logger
}

// NewPlanner construye el planificador sobre repositorios de lectura.
func NewPlanner(items repository.StockItemRepository, locations repository.StockLocationRepository, log *logger.Logger) *Planner {
	if log == nil {
		log = logger.Nop()
	}
	return &Planner{items: items, locations: locations, log: log.Component("fulfillment")}
}

// PlanFulfillment propone paquetes por ubicación. Con StrategyPriority recorre las ubicaciones
// en su orden de alta; con StrategyFewestPackages elige cada vez la que más unidades cubre.
func (p *Planner) PlanFulfillment(ctx context.Context, storeID string, requested map[string]int, destinationAddressID string, strategy entity.FulfillmentStrategy) (*entity.FulfillmentPlan, error) {
	remaining := make(map[string]int, len(requested))
	variantIDs := make([]string, 0, len(requested))
	for variantID, qty := range requested {
		if qty < 0 {
			return nil, domain.ErrInvalidQuantity.Withf("variante %s", variantID)
		}
		if qty == 0 {
			continue
		}
		remaining[variantID] = qty
		variantIDs = append(variantIDs, variantID)
	}
	sort.Strings(variantIDs)
	plan := &entity.FulfillmentPlan{Unfulfilled: map[string]int{}}
	if len(variantIDs) == 0 {
		return plan, nil
	}

	locations, err := p.locations.ListActiveByStore(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("listar ubicaciones: %w", err)
	}
	items, err := p.items.ListByVariants(ctx, variantIDs)
	if err != nil {
		return nil, fmt.Errorf("listar stock: %w", err)
	}
	capacity := make(map[string]map[string]int, len(locations))
	for _, l := range locations {
		capacity[l.ID] = make(map[string]int)
	}
	for _, it := range items {
		if c, ok := capacity[it.StockLocationID]; ok {
			c[it.VariantID] += it.Reservable()
		}
	}

	covers := func(locationID string) int {
		n := 0
		for _, v := range variantIDs {
			n += min(remaining[v], capacity[locationID][v])
		}
		return n
	}
	take := func(locationID string) {
		pkg := entity.FulfillmentPackage{StockLocationID: locationID}
		for _, v := range variantIDs {
			q := min(remaining[v], capacity[locationID][v])
			if q <= 0 {
				continue
			}
			pkg.Items = append(pkg.Items, entity.PlannedItem{VariantID: v, Quantity: q})
			remaining[v] -= q
		}
		if len(pkg.Items) > 0 {
			plan.Packages = append(plan.Packages, pkg)
		}
	}

	switch strategy {
	case entity.StrategyPriority:
		for _, l := range locations {
			take(l.ID)
		}
	default:
		used := make(map[string]bool, len(locations))
		for {
			best, bestN := "", 0
			for _, l := range locations {
				if used[l.ID] {
					continue
				}
				if n := covers(l.ID); n > bestN {
					best, bestN = l.ID, n
				}
			}
			if bestN == 0 {
				break
			}
			used[best] = true
			take(best)
		}
	}

	for _, v := range variantIDs {
		if remaining[v] > 0 {
			plan.Unfulfilled[v] = remaining[v]
		}
	}
	p.log.Debug().
		Str("store_id", storeID).
		Str("destination", destinationAddressID).
		Str("strategy", string(strategy)).
		Int("packages", len(plan.Packages)).
		Int("unfulfilled", len(plan.Unfulfilled)).
		Msg("plan de despacho")
	return plan, nil
}
