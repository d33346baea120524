package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/commerce-core/internal/domain"
	"github.com/jhoicas/commerce-core/internal/domain/entity"
	"github.com/jhoicas/commerce-core/internal/domain/repository"
)

// TransferUseCase orquesta transferencias entre ubicaciones: carga la transferencia y los
// StockItem de origen o destino en la misma unidad de trabajo y guarda todo junto.
type TransferUseCase struct {
	deps Deps
}

// NewTransferUseCase construye el caso de uso.
func NewTransferUseCase(deps Deps) *TransferUseCase {
	return &TransferUseCase{deps: deps.withDefaults()}
}

// Create abre una transferencia en borrador entre dos ubicaciones existentes.
func (uc *TransferUseCase) Create(ctx context.Context, sourceLocationID, destinationLocationID, reference string) (*entity.StockTransfer, error) {
	tr, err := entity.NewStockTransfer(sourceLocationID, destinationLocationID, reference, time.Now())
	if err != nil {
		return nil, err
	}
	err = uc.deps.Tx.Run(ctx, func(repos repository.Repositories) error {
		for _, id := range []string{sourceLocationID, destinationLocationID} {
			if _, err := repos.Locations.GetByID(ctx, id); err != nil {
				return err
			}
		}
		return repos.Transfers.Create(ctx, tr)
	})
	if err != nil {
		return nil, err
	}
	return tr, nil
}

// Get devuelve la transferencia con sus ítems.
func (uc *TransferUseCase) Get(ctx context.Context, id string) (*entity.StockTransfer, error) {
	return uc.deps.Repos.Transfers.GetByID(ctx, id)
}

// ListByLocation lista transferencias que salen o llegan a la ubicación; status vacío trae todas.
func (uc *TransferUseCase) ListByLocation(ctx context.Context, locationID string, status entity.TransferStatus, limit, offset int) ([]*entity.StockTransfer, error) {
	return uc.deps.Repos.Transfers.ListByLocation(ctx, locationID, status, limit, offset)
}

// AddItem agrega cantidad de una variante a la transferencia en borrador.
func (uc *TransferUseCase) AddItem(ctx context.Context, transferID, variantID string, quantity int) (*entity.StockTransfer, error) {
	return uc.edit(ctx, "transfer_add_item", transferID, func(_ repository.Repositories, tr *entity.StockTransfer, now time.Time) ([]*entity.StockItem, error) {
		return nil, tr.AddItem(variantID, quantity, now)
	})
}

// RemoveItem quita una variante de la transferencia en borrador.
func (uc *TransferUseCase) RemoveItem(ctx context.Context, transferID, variantID string) (*entity.StockTransfer, error) {
	return uc.edit(ctx, "transfer_remove_item", transferID, func(_ repository.Repositories, tr *entity.StockTransfer, now time.Time) ([]*entity.StockItem, error) {
		return nil, tr.RemoveItem(variantID, now)
	})
}

// Ship descuenta el origen y pasa a en tránsito. Si un ítem no alcanza, nada se descuenta.
func (uc *TransferUseCase) Ship(ctx context.Context, transferID string) (*entity.StockTransfer, error) {
	return uc.edit(ctx, "transfer_ship", transferID, func(repos repository.Repositories, tr *entity.StockTransfer, now time.Time) ([]*entity.StockItem, error) {
		sources, touched, err := loadAt(ctx, repos, tr, tr.SourceLocationID, false, now)
		if err != nil {
			return nil, err
		}
		return touched, tr.Ship(sources, now)
	})
}

// Cancel anula la transferencia; si estaba en tránsito repone el origen con Correction.
func (uc *TransferUseCase) Cancel(ctx context.Context, transferID string) (*entity.StockTransfer, error) {
	return uc.edit(ctx, "transfer_cancel", transferID, func(repos repository.Repositories, tr *entity.StockTransfer, now time.Time) ([]*entity.StockItem, error) {
		if tr.Status != entity.TransferInTransit {
			return nil, tr.Cancel(nil, now)
		}
		sources, touched, err := loadAt(ctx, repos, tr, tr.SourceLocationID, false, now)
		if err != nil {
			return nil, err
		}
		return touched, tr.Cancel(sources, now)
	})
}

// Receive ingresa los ítems en el destino. Crea el StockItem de destino si la variante no
// estaba almacenada allí.
func (uc *TransferUseCase) Receive(ctx context.Context, transferID string) (*entity.StockTransfer, error) {
	return uc.edit(ctx, "transfer_receive", transferID, func(repos repository.Repositories, tr *entity.StockTransfer, now time.Time) ([]*entity.StockItem, error) {
		if !tr.CanTransitionTo(entity.TransferReceived) {
			return nil, tr.Receive(nil, now)
		}
		destinations, touched, err := loadAt(ctx, repos, tr, tr.DestinationLocationID, true, now)
		if err != nil {
			return nil, err
		}
		return touched, tr.Receive(destinations, now)
	})
}

type transferStep func(repos repository.Repositories, tr *entity.StockTransfer, now time.Time) ([]*entity.StockItem, error)

// edit carga la transferencia bloqueada, aplica step y guarda la transferencia y los StockItem tocados.
func (uc *TransferUseCase) edit(ctx context.Context, operation, transferID string, step transferStep) (*entity.StockTransfer, error) {
	var (
		out     *entity.StockTransfer
		touched []*entity.StockItem
	)
	err := RetryOnConflict(ctx, uc.deps.Retry, uc.deps.Metrics, uc.deps.Log, operation, func() error {
		return uc.deps.Tx.Run(ctx, func(repos repository.Repositories) error {
			tr, err := repos.Transfers.GetForUpdate(ctx, transferID)
			if err != nil {
				return err
			}
			items, err := step(repos, tr, time.Now())
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			for _, it := range items {
				if err := repos.StockItems.Save(ctx, it); err != nil {
					return err
				}
			}
			if err := repos.Transfers.Save(ctx, tr); err != nil {
				return err
			}
			out, touched = tr, items
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	for _, it := range touched {
		for _, m := range it.Movements {
			if m.Reference == out.ID {
				uc.deps.Metrics.Movement(string(m.Type))
			}
		}
	}
	if len(touched) > 0 {
		uc.deps.Log.Info().
			Str("transfer_id", out.ID).
			Str("status", string(out.Status)).
			Int("stock_items", len(touched)).
			Msg("transferencia actualizada")
	}
	uc.deps.publish(ctx, touched...)
	return out, nil
}

// loadAt bloquea los StockItem de cada variante en la ubicación. Un faltante queda fuera del mapa
// (la entidad lo reporta) salvo con create, que lo crea vacío dentro de la misma unidad de trabajo.
func loadAt(ctx context.Context, repos repository.Repositories, tr *entity.StockTransfer, locationID string, create bool, now time.Time) (map[string]*entity.StockItem, []*entity.StockItem, error) {
	byVariant := make(map[string]*entity.StockItem, len(tr.Items))
	touched := make([]*entity.StockItem, 0, len(tr.Items))
	for _, it := range tr.Items {
		si, err := repos.StockItems.GetByVariantLocationForUpdate(ctx, it.VariantID, locationID, repository.StockItemUnits)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrStockItemNotFound) && create:
			si, err = entity.NewStockItem(it.VariantID, locationID, now)
			if err != nil {
				return nil, nil, err
			}
			if err := repos.StockItems.Create(ctx, si); err != nil {
				return nil, nil, err
			}
		case errors.Is(err, domain.ErrStockItemNotFound):
			continue
		default:
			return nil, nil, err
		}
		byVariant[it.VariantID] = si
		touched = append(touched, si)
	}
	return byVariant, touched, nil
}
