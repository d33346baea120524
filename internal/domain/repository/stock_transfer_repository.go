package repository

import (
	"context"

	"github.com/jhoicas/commerce-core/internal/domain/entity"
)

// StockTransferRepository define el puerto de persistencia para transferencias con sus ítems.
type StockTransferRepository interface {
	Create(ctx context.Context, transfer *entity.StockTransfer) error
	GetByID(ctx context.Context, id string) (*entity.StockTransfer, error)
	GetForUpdate(ctx context.Context, id string) (*entity.StockTransfer, error)
	ListByLocation(ctx context.Context, locationID string, status entity.TransferStatus, limit, offset int) ([]*entity.StockTransfer, error)
	Save(ctx context.Context, transfer *entity.StockTransfer) error
}
