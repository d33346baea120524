package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/commerce-core/internal/domain/entity"
	"github.com/jhoicas/commerce-core/internal/domain/repository"
)

// LocationUseCase administra las ubicaciones de stock de una tienda.
type LocationUseCase struct {
	deps Deps
}

// NewLocationUseCase construye el caso de uso.
func NewLocationUseCase(deps Deps) *LocationUseCase {
	return &LocationUseCase{deps: deps.withDefaults()}
}

// Create da de alta una ubicación activa.
func (uc *LocationUseCase) Create(ctx context.Context, storeID, name, address string) (*entity.StockLocation, error) {
	loc, err := entity.NewStockLocation(storeID, name, address, time.Now())
	if err != nil {
		return nil, err
	}
	err = uc.deps.Tx.Run(ctx, func(repos repository.Repositories) error {
		return repos.Locations.Create(ctx, loc)
	})
	if err != nil {
		return nil, err
	}
	uc.deps.Log.Info().Str("location_id", loc.ID).Str("store_id", storeID).Msg("ubicación creada")
	return loc, nil
}

// Get obtiene una ubicación por id.
func (uc *LocationUseCase) Get(ctx context.Context, id string) (*entity.StockLocation, error) {
	return uc.deps.Repos.Locations.GetByID(ctx, id)
}

// ListActive lista las ubicaciones activas de la tienda en orden de alta.
func (uc *LocationUseCase) ListActive(ctx context.Context, storeID string) ([]*entity.StockLocation, error) {
	return uc.deps.Repos.Locations.ListActiveByStore(ctx, storeID)
}
