// Package memory implementa los repositorios en proceso. Cada unidad de trabajo trabaja sobre
// copias y confirma al final comparando versiones, igual que el UPDATE condicional de postgres.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jhoicas/commerce-core/internal/domain"
	"github.com/jhoicas/commerce-core/internal/domain/entity"
	"github.com/jhoicas/commerce-core/internal/domain/repository"
)

// Store guarda el estado confirmado. Es seguro para uso concurrente.
type Store struct {
	mu        sync.RWMutex
	items     map[string]*entity.StockItem
	movements map[string][]entity.StockMovement
	transfers map[string]*entity.StockTransfer
	orders    map[string]*entity.Order
	locations map[string]*entity.StockLocation
	variants  map[string]*entity.Variant
	methods   map[string]*entity.ShippingMethod
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		items:     make(map[string]*entity.StockItem),
		movements: make(map[string][]entity.StockMovement),
		transfers: make(map[string]*entity.StockTransfer),
		orders:    make(map[string]*entity.Order),
		locations: make(map[string]*entity.StockLocation),
		variants:  make(map[string]*entity.Variant),
		methods:   make(map[string]*entity.ShippingMethod),
	}
}

// Run ejecuta fn en una unidad de trabajo y la confirma si fn no falla y ctx sigue vigente.
func (s *Store) Run(ctx context.Context, fn func(repos repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u := newUnit(s)
	if err := fn(u.repositories()); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return u.commit()
}

// Repositories devuelve repositorios sin unidad de trabajo: cada escritura se confirma sola.
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		StockItems: &stockItemRepo{store: s},
		Movements:  &movementRepo{store: s},
		Transfers:  &transferRepo{store: s},
		Orders:     &orderRepo{store: s},
		Locations:  &locationRepo{store: s},
	}
}

// unit acumula lecturas y escrituras de una unidad de trabajo. No es seguro para uso concurrente.
type unit struct {
	s *Store

	items     map[string]*entity.StockItem
	itemBase  map[string]int64
	newMovs   []entity.StockMovement
	transfers map[string]*entity.StockTransfer
	trBase    map[string]int64
	orders    map[string]*entity.Order
	orderBase map[string]int64
	locations map[string]*entity.StockLocation

	dirty   map[string]bool
	created map[string]bool
}

func newUnit(s *Store) *unit {
	return &unit{
		s:         s,
		items:     make(map[string]*entity.StockItem),
		itemBase:  make(map[string]int64),
		transfers: make(map[string]*entity.StockTransfer),
		trBase:    make(map[string]int64),
		orders:    make(map[string]*entity.Order),
		orderBase: make(map[string]int64),
		locations: make(map[string]*entity.StockLocation),
		dirty:     make(map[string]bool),
		created:   make(map[string]bool),
	}
}

func (u *unit) repositories() repository.Repositories {
	return repository.Repositories{
		StockItems: &stockItemRepo{u: u},
		Movements:  &movementRepo{u: u},
		Transfers:  &transferRepo{u: u},
		Orders:     &orderRepo{u: u},
		Locations:  &locationRepo{u: u},
	}
}

// run ejecuta fn en la unidad indicada o, si no hay, en una propia que confirma al terminar.
func run(s *Store, u *unit, fn func(u *unit) error) error {
	if u != nil {
		return fn(u)
	}
	own := newUnit(s)
	if err := fn(own); err != nil {
		return err
	}
	return own.commit()
}

func (u *unit) item(id string) (*entity.StockItem, bool) {
	if it, ok := u.items[id]; ok {
		return it, true
	}
	u.s.mu.RLock()
	c, ok := u.s.items[id]
	var cl *entity.StockItem
	if ok {
		cl = c.Clone()
	}
	u.s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	u.items[id] = cl
	u.itemBase[id] = cl.Version
	return cl, true
}

// itemIDs devuelve los ids confirmados más los creados en la unidad, ordenados.
func (u *unit) itemIDs() []string {
	u.s.mu.RLock()
	ids := make([]string, 0, len(u.s.items)+len(u.items))
	for id := range u.s.items {
		ids = append(ids, id)
	}
	u.s.mu.RUnlock()
	for id := range u.items {
		if u.created[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (u *unit) transfer(id string) (*entity.StockTransfer, bool) {
	if t, ok := u.transfers[id]; ok {
		return t, true
	}
	u.s.mu.RLock()
	c, ok := u.s.transfers[id]
	var cl *entity.StockTransfer
	if ok {
		cl = c.Clone()
	}
	u.s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	u.transfers[id] = cl
	u.trBase[id] = cl.Version
	return cl, true
}

func (u *unit) order(id string) (*entity.Order, bool) {
	if o, ok := u.orders[id]; ok {
		return o, true
	}
	u.s.mu.RLock()
	c, ok := u.s.orders[id]
	var cl *entity.Order
	if ok {
		cl = c.Clone()
	}
	u.s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	u.orders[id] = cl
	u.orderBase[id] = cl.Version
	return cl, true
}

// commit valida versiones y unicidad contra el estado confirmado y aplica todo o nada.
func (u *unit) commit() error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	for id, it := range u.items {
		if !u.dirty[id] {
			continue
		}
		cur, exists := u.s.items[id]
		if u.created[id] {
			if exists {
				return domain.ErrDuplicate.Withf("registro de stock %s", id)
			}
			for _, other := range u.s.items {
				if other.VariantID == it.VariantID && other.StockLocationID == it.StockLocationID {
					return domain.ErrDuplicate.Withf("la variante %s ya tiene stock en %s", it.VariantID, it.StockLocationID)
				}
			}
			continue
		}
		if !exists {
			return domain.ErrStockItemNotFound
		}
		if cur.Version != u.itemBase[id] {
			return domain.ErrConcurrencyConflict.Withf("registro de stock %s", id)
		}
	}
	for id := range u.transfers {
		if !u.dirty[id] || u.created[id] {
			continue
		}
		cur, exists := u.s.transfers[id]
		if !exists {
			return domain.ErrTransferNotFound
		}
		if cur.Version != u.trBase[id] {
			return domain.ErrConcurrencyConflict.Withf("transferencia %s", id)
		}
	}
	for id := range u.orders {
		if !u.dirty[id] || u.created[id] {
			continue
		}
		cur, exists := u.s.orders[id]
		if !exists {
			return domain.ErrOrderNotFound
		}
		if cur.Version != u.orderBase[id] {
			return domain.ErrConcurrencyConflict.Withf("orden %s", id)
		}
	}

	for id, it := range u.items {
		if u.dirty[id] {
			u.s.items[id] = it
		}
	}
	for _, m := range u.newMovs {
		u.s.movements[m.StockItemID] = append(u.s.movements[m.StockItemID], m)
	}
	for id, t := range u.transfers {
		if u.dirty[id] {
			u.s.transfers[id] = t
		}
	}
	for id, o := range u.orders {
		if u.dirty[id] {
			u.s.orders[id] = o
		}
	}
	for id, l := range u.locations {
		u.s.locations[id] = l
	}
	return nil
}

// page aplica limit/offset; limit <= 0 devuelve todo desde offset.
func page[T any](in []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(in) {
		return []T{}
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
