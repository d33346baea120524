package memory

import (
	"context"
	"time"

	"github.com/jhoicas/commerce-core/internal/domain/entity"
	"github.com/jhoicas/commerce-core/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*movementRepo)(nil)

type movementRepo struct {
	store *Store
	u     *unit
}

func (r *movementRepo) ListByStockItem(_ context.Context, stockItemID string, from, to *time.Time, limit, offset int) ([]entity.StockMovement, error) {
	var out []entity.StockMovement
	err := run(r.store, r.u, func(u *unit) error {
		for _, m := range u.ledger(stockItemID) {
			if from != nil && m.CreatedAt.Before(*from) {
				continue
			}
			if to != nil && m.CreatedAt.After(*to) {
				continue
			}
			out = append(out, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page(out, limit, offset), nil
}

func (r *movementRepo) ListByReference(_ context.Context, reference string) ([]entity.StockMovement, error) {
	var out []entity.StockMovement
	err := run(r.store, r.u, func(u *unit) error {
		for _, id := range u.itemIDs() {
			for _, m := range u.ledger(id) {
				if m.Reference == reference {
					out = append(out, m)
				}
			}
		}
		return nil
	})
	return out, err
}
