package repository

import (
	"context"
	"time"

	"github.com/jhoicas/commerce-core/internal/domain/entity"
)

// StockMovementRepository es la vista de lectura del ledger. Los movimientos se escriben
// junto con su StockItem en StockItemRepository.Save.
type StockMovementRepository interface {
	// ListByStockItem devuelve movimientos en orden cronológico; limit <= 0 trae todos.
	ListByStockItem(ctx context.Context, stockItemID string, from, to *time.Time, limit, offset int) ([]entity.StockMovement, error)
	ListByReference(ctx context.Context, reference string) ([]entity.StockMovement, error)
}
