package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/commerce-core/internal/application/inventory"
	"github.com/jhoicas/commerce-core/internal/domain"
	"github.com/jhoicas/commerce-core/internal/domain/entity"
)

// storeScope restringe los recursos de inventario a las ubicaciones de la tienda del token.
// Lo ajeno se reporta como inexistente.
type storeScope struct {
	locations *inventory.LocationUseCase
}

// ownLocation devuelve notFound si la ubicación no existe o es de otra tienda.
func (s storeScope) ownLocation(c *fiber.Ctx, locationID string, notFound error) error {
	loc, err := s.locations.Get(c.UserContext(), locationID)
	if err != nil {
		if errors.Is(err, domain.ErrLocationNotFound) {
			return notFound
		}
		return err
	}
	if loc.StoreID == "" || loc.StoreID != GetStoreID(c) {
		return notFound
	}
	return nil
}

// filterLevels deja solo los niveles de ubicaciones activas de la tienda del token.
func (s storeScope) filterLevels(c *fiber.Ctx, levels []entity.StockLevel) ([]entity.StockLevel, error) {
	locs, err := s.locations.ListActive(c.UserContext(), GetStoreID(c))
	if err != nil {
		return nil, err
	}
	own := make(map[string]bool, len(locs))
	for _, l := range locs {
		own[l.ID] = true
	}
	out := make([]entity.StockLevel, 0, len(levels))
	for _, lv := range levels {
		if own[lv.StockLocationID] {
			out = append(out, lv)
		}
	}
	return out, nil
}
