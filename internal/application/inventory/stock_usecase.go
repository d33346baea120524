package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/commerce-core/internal/domain"
	"github.com/jhoicas/commerce-core/internal/domain/entity"
	"github.com/jhoicas/commerce-core/internal/domain/inventory"
	"github.com/jhoicas/commerce-core/internal/domain/repository"
)

// StockUseCase agrupa los comandos y consultas sobre StockItem.
type StockUseCase struct {
	deps Deps
}

// NewStockUseCase construye el caso de uso.
func NewStockUseCase(deps Deps) *StockUseCase {
	return &StockUseCase{deps: deps.withDefaults()}
}

// CreateStockItemInput datos para almacenar una variante en una ubicación por primera vez.
// InitialQuantity > 0 genera un movimiento Received con UnitCost.
type CreateStockItemInput struct {
	VariantID       string
	StockLocationID string
	Backorderable   bool
	BackorderLimit  int
	InitialQuantity int
	UnitCost        decimal.Decimal
	Reference       string
}

// AdjustStockInput entrada para registrar un movimiento físico.
type AdjustStockInput struct {
	StockItemID string
	Delta       int
	Type        entity.MovementType
	UnitCost    *decimal.Decimal // vacío usa el costo promedio actual
	Reason      string
	Reference   string
}

// Create crea el StockItem. Falla con ErrDuplicate si la variante ya está en esa ubicación.
func (uc *StockUseCase) Create(ctx context.Context, in CreateStockItemInput) (*entity.StockItem, error) {
	if in.InitialQuantity < 0 {
		return nil, domain.ErrInvalidQuantity.Withf("la cantidad inicial no puede ser negativa")
	}
	if in.UnitCost.IsNegative() {
		return nil, domain.ErrInvalidAmount.Withf("costo unitario negativo")
	}
	now := time.Now()
	var created *entity.StockItem
	err := uc.deps.Tx.Run(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Locations.GetByID(ctx, in.StockLocationID); err != nil {
			return err
		}
		_, err := repos.StockItems.GetByVariantLocation(ctx, in.VariantID, in.StockLocationID, repository.StockItemRoot)
		switch {
		case err == nil:
			return domain.ErrDuplicate.Withf("la variante %s ya tiene stock en %s", in.VariantID, in.StockLocationID)
		case !errors.Is(err, domain.ErrStockItemNotFound):
			return err
		}

		item, err := entity.NewStockItem(in.VariantID, in.StockLocationID, now)
		if err != nil {
			return err
		}
		if err := item.SetBackorderPolicy(in.Backorderable, in.BackorderLimit, now); err != nil {
			return err
		}
		if in.InitialQuantity > 0 {
			item.AverageCost = in.UnitCost
			if _, err := item.AdjustStock(in.InitialQuantity, entity.MovementReceived, in.UnitCost, "stock inicial", in.Reference, now); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := repos.StockItems.Create(ctx, item); err != nil {
			return err
		}
		created = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	if in.InitialQuantity > 0 {
		uc.deps.Metrics.Movement(string(entity.MovementReceived))
	}
	uc.deps.publish(ctx, created)
	return created, nil
}

// AdjustStock aplica un delta y registra el movimiento. Un Received con costo recalcula el
// costo promedio ponderado.
func (uc *StockUseCase) AdjustStock(ctx context.Context, in AdjustStockInput) (*entity.StockMovement, error) {
	if in.UnitCost != nil && in.UnitCost.IsNegative() {
		return nil, domain.ErrInvalidAmount.Withf("costo unitario negativo")
	}
	var (
		mov  *entity.StockMovement
		item *entity.StockItem
	)
	err := uc.mutate(ctx, "adjust_stock", in.StockItemID, func(it *entity.StockItem, now time.Time) error {
		cost := it.AverageCost
		if in.UnitCost != nil {
			cost = *in.UnitCost
		}
		newAverage := it.AverageCost
		if in.Type == entity.MovementReceived && in.Delta > 0 && in.UnitCost != nil {
			newAverage = inventory.CostCalculator(
				decimal.NewFromInt(int64(it.QuantityOnHand)), it.AverageCost,
				decimal.NewFromInt(int64(in.Delta)), cost,
			)
		}
		m, err := it.AdjustStock(in.Delta, in.Type, cost, in.Reason, in.Reference, now)
		if err != nil {
			return err
		}
		it.AverageCost = newAverage
		mov, item = m, it
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.deps.Metrics.Movement(string(mov.Type))
	uc.deps.Log.Info().
		Str("stock_item_id", item.ID).
		Str("type", string(mov.Type)).
		Int("delta", mov.QuantityDelta).
		Int("on_hand", item.QuantityOnHand).
		Msg("movimiento de stock registrado")
	uc.deps.publish(ctx, item)
	return mov, nil
}

// SetBackorderPolicy cambia la política de backorder del registro.
func (uc *StockUseCase) SetBackorderPolicy(ctx context.Context, stockItemID string, backorderable bool, limit int) (*entity.StockItem, error) {
	var item *entity.StockItem
	err := uc.mutate(ctx, "backorder_policy", stockItemID, func(it *entity.StockItem, now time.Time) error {
		item = it
		return it.SetBackorderPolicy(backorderable, limit, now)
	})
	if err != nil {
		return nil, err
	}
	uc.deps.publish(ctx, item)
	return item, nil
}

// Delete da de baja el registro (soft delete).
func (uc *StockUseCase) Delete(ctx context.Context, stockItemID string) error {
	var item *entity.StockItem
	err := uc.mutate(ctx, "delete_stock_item", stockItemID, func(it *entity.StockItem, now time.Time) error {
		item = it
		return it.SoftDelete(now)
	})
	if err != nil {
		return err
	}
	uc.deps.publish(ctx, item)
	return nil
}

// DamageUnit marca una unidad en mano como dañada (movimiento Loss).
func (uc *StockUseCase) DamageUnit(ctx context.Context, stockItemID, unitID, reason string) error {
	var item *entity.StockItem
	err := uc.mutate(ctx, "damage_unit", stockItemID, func(it *entity.StockItem, now time.Time) error {
		item = it
		return it.DamageUnit(unitID, reason, now)
	})
	if err != nil {
		return err
	}
	uc.deps.Metrics.Movement(string(entity.MovementLoss))
	uc.deps.publish(ctx, item)
	return nil
}

// ReturnUnit registra la devolución de una unidad despachada; con restock vuelve al stock.
func (uc *StockUseCase) ReturnUnit(ctx context.Context, stockItemID, unitID string, restock bool) error {
	var item *entity.StockItem
	err := uc.mutate(ctx, "return_unit", stockItemID, func(it *entity.StockItem, now time.Time) error {
		item = it
		return it.ReturnUnit(unitID, restock, now)
	})
	if err != nil {
		return err
	}
	if restock {
		uc.deps.Metrics.Movement(string(entity.MovementReturn))
	}
	uc.deps.publish(ctx, item)
	return nil
}

// mutate carga el registro bloqueado con sus unidades, aplica fn y guarda, repitiendo ante conflicto.
func (uc *StockUseCase) mutate(ctx context.Context, operation, stockItemID string, fn func(it *entity.StockItem, now time.Time) error) error {
	return RetryOnConflict(ctx, uc.deps.Retry, uc.deps.Metrics, uc.deps.Log, operation, func() error {
		return uc.deps.Tx.Run(ctx, func(repos repository.Repositories) error {
			it, err := repos.StockItems.GetForUpdate(ctx, stockItemID, repository.StockItemUnits)
			if err != nil {
				return err
			}
			if err := fn(it, time.Now()); err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			return repos.StockItems.Save(ctx, it)
		})
	})
}

// Get devuelve el registro con sus unidades.
func (uc *StockUseCase) Get(ctx context.Context, stockItemID string) (*entity.StockItem, error) {
	return uc.deps.Repos.StockItems.GetByID(ctx, stockItemID, repository.StockItemUnits)
}

// ListByLocation lista los registros de una ubicación.
func (uc *StockUseCase) ListByLocation(ctx context.Context, locationID string, limit, offset int) ([]*entity.StockItem, error) {
	return uc.deps.Repos.StockItems.ListByLocation(ctx, locationID, limit, offset)
}

// ListMovements devuelve el ledger del registro en orden cronológico.
func (uc *StockUseCase) ListMovements(ctx context.Context, stockItemID string, from, to *time.Time, limit, offset int) ([]entity.StockMovement, error) {
	if _, err := uc.deps.Repos.StockItems.GetByID(ctx, stockItemID, repository.StockItemRoot); err != nil {
		return nil, err
	}
	return uc.deps.Repos.Movements.ListByStockItem(ctx, stockItemID, from, to, limit, offset)
}

// VerifyLedger concilia el stock en mano con todos sus movimientos.
func (uc *StockUseCase) VerifyLedger(ctx context.Context, stockItemID string) (inventory.LedgerReport, error) {
	item, err := uc.deps.Repos.StockItems.GetByID(ctx, stockItemID, repository.StockItemRoot)
	if err != nil {
		return inventory.LedgerReport{}, err
	}
	movements, err := uc.deps.Repos.Movements.ListByStockItem(ctx, stockItemID, nil, nil, 0, 0)
	if err != nil {
		return inventory.LedgerReport{}, err
	}
	report, err := inventory.ReconcileLedger(item, movements)
	if err != nil && errors.Is(err, domain.ErrLedgerMismatch) {
		uc.deps.Log.Error().Err(err).Str("stock_item_id", stockItemID).Msg("ledger descuadrado")
	}
	return report, err
}

// Availability devuelve la disponibilidad de la variante por ubicación. Lee del cache y ante un
// miss consulta los registros y repuebla el cache.
func (uc *StockUseCase) Availability(ctx context.Context, variantID string) ([]entity.StockLevel, error) {
	if variantID == "" {
		return nil, domain.ErrInvalidInput.Withf("variante requerida")
	}
	if uc.deps.Cache != nil {
		levels, found, err := uc.deps.Cache.Get(ctx, variantID)
		if err != nil {
			uc.deps.Log.Warn().Err(err).Str("variant_id", variantID).Msg("cache de disponibilidad no disponible")
		} else if found {
			return levels, nil
		}
	}
	items, err := uc.deps.Repos.StockItems.ListByVariants(ctx, []string{variantID})
	if err != nil {
		return nil, err
	}
	levels := make([]entity.StockLevel, 0, len(items))
	for _, it := range items {
		if !it.IsDeleted() {
			levels = append(levels, it.Level())
		}
	}
	if uc.deps.Cache != nil && len(levels) > 0 {
		if err := uc.deps.Cache.Fill(ctx, variantID, levels); err != nil {
			uc.deps.Log.Warn().Err(err).Str("variant_id", variantID).Msg("no se pudo poblar el cache")
		}
	}
	return levels, nil
}
