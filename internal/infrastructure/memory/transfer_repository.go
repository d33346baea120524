package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/commerce-core/internal/domain"
	"github.com/jhoicas/commerce-core/internal/domain/entity"
	"github.com/jhoicas/commerce-core/internal/domain/repository"
)

var _ repository.StockTransferRepository = (*transferRepo)(nil)

type transferRepo struct {
	store *Store
	u     *unit
}

func (r *transferRepo) Create(_ context.Context, tr *entity.StockTransfer) error {
	return run(r.store, r.u, func(u *unit) error {
		if _, ok := u.transfer(tr.ID); ok {
			return domain.ErrDuplicate.Withf("transferencia %s", tr.ID)
		}
		tr.Version = 1
		u.transfers[tr.ID] = tr.Clone()
		u.dirty[tr.ID] = true
		u.created[tr.ID] = true
		return nil
	})
}

func (r *transferRepo) GetByID(_ context.Context, id string) (*entity.StockTransfer, error) {
	var out *entity.StockTransfer
	err := run(r.store, r.u, func(u *unit) error {
		t, ok := u.transfer(id)
		if !ok {
			return domain.ErrTransferNotFound
		}
		out = t.Clone()
		return nil
	})
	return out, err
}

func (r *transferRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockTransfer, error) {
	return r.GetByID(ctx, id)
}

func (r *transferRepo) ListByLocation(_ context.Context, locationID string, status entity.TransferStatus, limit, offset int) ([]*entity.StockTransfer, error) {
	s := r.store
	if s == nil {
		s = r.u.s
	}
	s.mu.RLock()
	var out []*entity.StockTransfer
	for _, t := range s.transfers {
		if t.SourceLocationID != locationID && t.DestinationLocationID != locationID {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, t.Clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (r *transferRepo) Save(_ context.Context, tr *entity.StockTransfer) error {
	return run(r.store, r.u, func(u *unit) error {
		cur, ok := u.transfer(tr.ID)
		if !ok {
			return domain.ErrTransferNotFound
		}
		if cur.Version != tr.Version {
			return domain.ErrConcurrencyConflict.Withf("transferencia %s", tr.ID)
		}
		tr.Version++
		u.transfers[tr.ID] = tr.Clone()
		u.dirty[tr.ID] = true
		return nil
	})
}
