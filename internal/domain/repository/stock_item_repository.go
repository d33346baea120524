package repository

import (
	"context"

	"github.com/jhoicas/commerce-core/internal/domain/entity"
)

// StockItemGraph indica qué colecciones hijas cargar junto al StockItem.
type StockItemGraph uint8

const (
	StockItemUnits StockItemGraph = 1 << iota
	StockItemMovements

	StockItemRoot StockItemGraph = 0
)

// Has indica si el grafo incluye la colección.
func (g StockItemGraph) Has(part StockItemGraph) bool {
	return g&part != 0
}

// StockItemRepository define el puerto de persistencia para StockItem (DIP).
// Save usa la versión como token optimista: si otra operación guardó antes, devuelve
// domain.ErrConcurrencyConflict; si el registro no existe, domain.ErrStockItemNotFound.
// Las unidades se guardan por id y nunca se borran: un registro cargado sin unidades no las pierde.
type StockItemRepository interface {
	Create(ctx context.Context, item *entity.StockItem) error
	GetByID(ctx context.Context, id string, graph StockItemGraph) (*entity.StockItem, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string, graph StockItemGraph) (*entity.StockItem, error)
	GetByVariantLocation(ctx context.Context, variantID, locationID string, graph StockItemGraph) (*entity.StockItem, error)
	GetByVariantLocationForUpdate(ctx context.Context, variantID, locationID string, graph StockItemGraph) (*entity.StockItem, error)
	// ListReservedByOrder devuelve, bloqueados y con unidades, los registros con reservas de la orden.
	ListReservedByOrder(ctx context.Context, orderID string) ([]*entity.StockItem, error)
	ListByVariants(ctx context.Context, variantIDs []string) ([]*entity.StockItem, error)
	ListByLocation(ctx context.Context, locationID string, limit, offset int) ([]*entity.StockItem, error)
	Save(ctx context.Context, item *entity.StockItem) error
}
