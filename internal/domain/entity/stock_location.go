package entity

import (
	"strings"
	"time"

	"github.com/jhoicas/commerce-core/internal/domain"
)

// StockLocation es una bodega o punto desde donde se despacha inventario.
type StockLocation struct {
	ID        string
	StoreID   string
	Name      string
	Address   string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewStockLocation crea una ubicación activa de la tienda.
func NewStockLocation(storeID, name, address string, now time.Time) (*StockLocation, error) {
	name = strings.TrimSpace(name)
	if storeID == "" || name == "" {
		return nil, domain.ErrInvalidInput.Withf("tienda y nombre son obligatorios")
	}
	now = utc(now)
	return &StockLocation{
		ID:        newID(),
		StoreID:   storeID,
		Name:      name,
		Address:   strings.TrimSpace(address),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
