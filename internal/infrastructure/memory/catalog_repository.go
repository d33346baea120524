package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/commerce-core/internal/domain"
	"github.com/jhoicas/commerce-core/internal/domain/entity"
	"github.com/jhoicas/commerce-core/internal/domain/repository"
)

var (
	_ repository.StockLocationRepository  = (*locationRepo)(nil)
	_ repository.VariantRepository        = (*VariantRepo)(nil)
	_ repository.ShippingMethodRepository = (*ShippingMethodRepo)(nil)
)

type locationRepo struct {
	store *Store
	u     *unit
}

func (r *locationRepo) Create(_ context.Context, l *entity.StockLocation) error {
	return run(r.store, r.u, func(u *unit) error {
		if _, ok := u.location(l.ID); ok {
			return domain.ErrDuplicate.Withf("ubicación %s", l.ID)
		}
		c := *l
		u.locations[l.ID] = &c
		return nil
	})
}

func (r *locationRepo) GetByID(_ context.Context, id string) (*entity.StockLocation, error) {
	var out *entity.StockLocation
	err := run(r.store, r.u, func(u *unit) error {
		l, ok := u.location(id)
		if !ok {
			return domain.ErrLocationNotFound.Withf("%s", id)
		}
		c := *l
		out = &c
		return nil
	})
	return out, err
}

func (r *locationRepo) ListActiveByStore(_ context.Context, storeID string) ([]*entity.StockLocation, error) {
	s := r.store
	if s == nil {
		s = r.u.s
	}
	s.mu.RLock()
	var out []*entity.StockLocation
	for _, l := range s.locations {
		if l.StoreID == storeID && l.Active {
			c := *l
			out = append(out, &c)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) || (out[i].CreatedAt.Equal(out[j].CreatedAt) && out[i].Name < out[j].Name) })
	return out, nil
}

func (u *unit) location(id string) (*entity.StockLocation, bool) {
	if l, ok := u.locations[id]; ok {
		return l, true
	}
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	l, ok := u.s.locations[id]
	return l, ok
}

// VariantRepo es el catálogo de variantes en memoria.
type VariantRepo struct {
	store *Store
}

// Variants devuelve el catálogo de variantes del store.
func (s *Store) Variants() *VariantRepo {
	return &VariantRepo{store: s}
}

func (r *VariantRepo) Create(_ context.Context, v *entity.Variant) error {
	if v.ID == "" {
		return domain.ErrInvalidInput.Withf("variante sin id")
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c := *v
	r.store.variants[v.ID] = &c
	return nil
}

func (r *VariantRepo) GetByID(_ context.Context, id string) (*entity.Variant, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	v, ok := r.store.variants[id]
	if !ok {
		return nil, domain.ErrVariantNotFound.Withf("%s", id)
	}
	c := *v
	return &c, nil
}

// ShippingMethodRepo es el catálogo de métodos de envío en memoria.
type ShippingMethodRepo struct {
	store *Store
}

// ShippingMethods devuelve el catálogo de métodos de envío del store.
func (s *Store) ShippingMethods() *ShippingMethodRepo {
	return &ShippingMethodRepo{store: s}
}

// Create registra o reemplaza un método de envío.
func (r *ShippingMethodRepo) Create(_ context.Context, m *entity.ShippingMethod) error {
	if m.ID == "" {
		return domain.ErrInvalidInput.Withf("método de envío sin id")
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c := *m
	r.store.methods[m.ID] = &c
	return nil
}

func (r *ShippingMethodRepo) GetByID(_ context.Context, id string) (*entity.ShippingMethod, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	m, ok := r.store.methods[id]
	if !ok {
		return nil, domain.ErrShippingMethodNotFound.Withf("%s", id)
	}
	c := *m
	return &c, nil
}
