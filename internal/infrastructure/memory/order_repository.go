package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/commerce-core/internal/domain"
	"github.com/jhoicas/commerce-core/internal/domain/entity"
	"github.com/jhoicas/commerce-core/internal/domain/repository"
)

var _ repository.OrderRepository = (*orderRepo)(nil)

// orderRepo guarda el agregado completo; el grafo pedido no recorta nada.
type orderRepo struct {
	store *Store
	u     *unit
}

func (r *orderRepo) Create(_ context.Context, o *entity.Order) error {
	return run(r.store, r.u, func(u *unit) error {
		if _, ok := u.order(o.ID); ok {
			return domain.ErrDuplicate.Withf("orden %s", o.ID)
		}
		o.MarkPersisted()
		o.Version = 1
		u.orders[o.ID] = o.Clone()
		u.dirty[o.ID] = true
		u.created[o.ID] = true
		return nil
	})
}

func (r *orderRepo) GetByID(_ context.Context, id string, _ repository.OrderGraph) (*entity.Order, error) {
	var out *entity.Order
	err := run(r.store, r.u, func(u *unit) error {
		o, ok := u.order(id)
		if !ok {
			return domain.ErrOrderNotFound
		}
		out = o.Clone()
		return nil
	})
	return out, err
}

func (r *orderRepo) GetForUpdate(ctx context.Context, id string, graph repository.OrderGraph) (*entity.Order, error) {
	return r.GetByID(ctx, id, graph)
}

func (r *orderRepo) ListByStore(_ context.Context, storeID string, limit, offset int) ([]*entity.Order, error) {
	s := r.store
	if s == nil {
		s = r.u.s
	}
	s.mu.RLock()
	var out []*entity.Order
	for _, o := range s.orders {
		if o.StoreID == storeID {
			out = append(out, o.Clone())
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (r *orderRepo) Save(_ context.Context, o *entity.Order) error {
	return run(r.store, r.u, func(u *unit) error {
		cur, ok := u.order(o.ID)
		if !ok {
			return domain.ErrOrderNotFound
		}
		if cur.Version != o.Version {
			return domain.ErrConcurrencyConflict.Withf("orden %s", o.ID)
		}
		o.MarkPersisted()
		o.Version++
		u.orders[o.ID] = o.Clone()
		u.dirty[o.ID] = true
		return nil
	})
}
