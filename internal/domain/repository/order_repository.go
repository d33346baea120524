package repository

import (
	"context"

	"github.com/jhoicas/commerce-core/internal/domain/entity"
)

// OrderGraph indica qué partes del agregado Order cargar.
type OrderGraph uint8

const (
	OrderLineItems OrderGraph = 1 << iota
	OrderAdjustments
	OrderPayments
	OrderShipments
	OrderHistories

	OrderRoot OrderGraph = 0
	OrderFull            = OrderLineItems | OrderAdjustments | OrderPayments | OrderShipments | OrderHistories
)

// Has indica si el grafo incluye la parte.
func (g OrderGraph) Has(part OrderGraph) bool {
	return g&part != 0
}

// OrderRepository define el puerto de persistencia para el agregado Order.
// Save espera el agregado cargado con OrderFull: reemplaza líneas, ajustes, pagos y envíos,
// agrega el historial nuevo y aplica control de versión (domain.ErrConcurrencyConflict).
type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id string, graph OrderGraph) (*entity.Order, error)
	GetForUpdate(ctx context.Context, id string, graph OrderGraph) (*entity.Order, error)
	ListByStore(ctx context.Context, storeID string, limit, offset int) ([]*entity.Order, error)
	Save(ctx context.Context, order *entity.Order) error
}
