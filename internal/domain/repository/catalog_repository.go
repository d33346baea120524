package repository

import (
	"context"

	"github.com/jhoicas/commerce-core/internal/domain/entity"
)

// VariantRepository es el puerto de lectura del catálogo de variantes.
type VariantRepository interface {
	Create(ctx context.Context, variant *entity.Variant) error
	GetByID(ctx context.Context, id string) (*entity.Variant, error)
}

// ShippingMethodRepository es el puerto de lectura de métodos de envío.
type ShippingMethodRepository interface {
	GetByID(ctx context.Context, id string) (*entity.ShippingMethod, error)
}

// StockLocationRepository define el puerto de persistencia para ubicaciones de stock.
type StockLocationRepository interface {
	Create(ctx context.Context, location *entity.StockLocation) error
	GetByID(ctx context.Context, id string) (*entity.StockLocation, error)
	ListActiveByStore(ctx context.Context, storeID string) ([]*entity.StockLocation, error)
}
