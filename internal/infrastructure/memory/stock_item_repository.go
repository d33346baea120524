package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/commerce-core/internal/domain"
	"github.com/jhoicas/commerce-core/internal/domain/entity"
	"github.com/jhoicas/commerce-core/internal/domain/repository"
)

var _ repository.StockItemRepository = (*stockItemRepo)(nil)

type stockItemRepo struct {
	store *Store
	u     *unit
}

func (r *stockItemRepo) Create(_ context.Context, item *entity.StockItem) error {
	return run(r.store, r.u, func(u *unit) error {
		if _, ok := u.item(item.ID); ok {
			return domain.ErrDuplicate.Withf("registro de stock %s", item.ID)
		}
		for _, id := range u.itemIDs() {
			other, ok := u.item(id)
			if ok && other.VariantID == item.VariantID && other.StockLocationID == item.StockLocationID {
				return domain.ErrDuplicate.Withf("la variante %s ya tiene stock en %s", item.VariantID, item.StockLocationID)
			}
		}
		u.newMovs = append(u.newMovs, item.NewMovements()...)
		item.MarkPersisted()
		item.Version = 1
		u.items[item.ID] = stripped(item)
		u.dirty[item.ID] = true
		u.created[item.ID] = true
		return nil
	})
}

func (r *stockItemRepo) GetByID(_ context.Context, id string, graph repository.StockItemGraph) (*entity.StockItem, error) {
	var out *entity.StockItem
	err := run(r.store, r.u, func(u *unit) error {
		it, ok := u.item(id)
		if !ok {
			return domain.ErrStockItemNotFound
		}
		out = u.view(it, graph)
		return nil
	})
	return out, err
}

func (r *stockItemRepo) GetForUpdate(ctx context.Context, id string, graph repository.StockItemGraph) (*entity.StockItem, error) {
	return r.GetByID(ctx, id, graph)
}

func (r *stockItemRepo) GetByVariantLocation(_ context.Context, variantID, locationID string, graph repository.StockItemGraph) (*entity.StockItem, error) {
	var out *entity.StockItem
	err := run(r.store, r.u, func(u *unit) error {
		for _, id := range u.itemIDs() {
			it, ok := u.item(id)
			if ok && it.VariantID == variantID && it.StockLocationID == locationID {
				out = u.view(it, graph)
				return nil
			}
		}
		return domain.ErrStockItemNotFound.Withf("variante %s en %s", variantID, locationID)
	})
	return out, err
}

func (r *stockItemRepo) GetByVariantLocationForUpdate(ctx context.Context, variantID, locationID string, graph repository.StockItemGraph) (*entity.StockItem, error) {
	return r.GetByVariantLocation(ctx, variantID, locationID, graph)
}

func (r *stockItemRepo) ListReservedByOrder(_ context.Context, orderID string) ([]*entity.StockItem, error) {
	return r.list(func(it *entity.StockItem) bool {
		return it.ReservedFor(orderID) > 0
	}, repository.StockItemUnits)
}

func (r *stockItemRepo) ListByVariants(_ context.Context, variantIDs []string) ([]*entity.StockItem, error) {
	want := make(map[string]bool, len(variantIDs))
	for _, id := range variantIDs {
		want[id] = true
	}
	return r.list(func(it *entity.StockItem) bool { return want[it.VariantID] }, repository.StockItemRoot)
}

func (r *stockItemRepo) ListByLocation(_ context.Context, locationID string, limit, offset int) ([]*entity.StockItem, error) {
	items, err := r.list(func(it *entity.StockItem) bool {
		return it.StockLocationID == locationID && !it.IsDeleted()
	}, repository.StockItemRoot)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return page(items, limit, offset), nil
}

func (r *stockItemRepo) list(match func(*entity.StockItem) bool, graph repository.StockItemGraph) ([]*entity.StockItem, error) {
	var out []*entity.StockItem
	err := run(r.store, r.u, func(u *unit) error {
		for _, id := range u.itemIDs() {
			if it, ok := u.item(id); ok && match(it) {
				out = append(out, u.view(it, graph))
			}
		}
		return nil
	})
	return out, err
}

func (r *stockItemRepo) Save(_ context.Context, item *entity.StockItem) error {
	return run(r.store, r.u, func(u *unit) error {
		cur, ok := u.item(item.ID)
		if !ok {
			return domain.ErrStockItemNotFound
		}
		if cur.Version != item.Version {
			return domain.ErrConcurrencyConflict.Withf("registro de stock %s", item.ID)
		}
		u.newMovs = append(u.newMovs, item.NewMovements()...)
		item.MarkPersisted()
		item.Version++
		next := stripped(item)
		if next.Units == nil {
			next.Units = cur.Units
		}
		u.items[item.ID] = next
		u.dirty[item.ID] = true
		return nil
	})
}

// stripped copia el registro sin movimientos: el ledger se guarda aparte.
func stripped(item *entity.StockItem) *entity.StockItem {
	c := item.Clone()
	c.Movements = nil
	return c
}

// view devuelve una copia con las colecciones pedidas.
func (u *unit) view(it *entity.StockItem, graph repository.StockItemGraph) *entity.StockItem {
	c := it.Clone()
	if !graph.Has(repository.StockItemUnits) {
		c.Units = nil
	}
	c.Movements = nil
	if graph.Has(repository.StockItemMovements) {
		c.Movements = u.ledger(it.ID)
	}
	return c
}

// ledger devuelve los movimientos confirmados más los de la unidad, en orden de registro.
func (u *unit) ledger(stockItemID string) []entity.StockMovement {
	u.s.mu.RLock()
	out := append([]entity.StockMovement(nil), u.s.movements[stockItemID]...)
	u.s.mu.RUnlock()
	for _, m := range u.newMovs {
		if m.StockItemID == stockItemID {
			out = append(out, m)
		}
	}
	return out
}
