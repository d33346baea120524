package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/commerce-core/internal/domain/entity"
	"github.com/jhoicas/commerce-core/internal/domain/inventory"
)

// CreateLocationRequest body para POST /api/locations.
type CreateLocationRequest struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// LocationResponse ubicación de stock.
type LocationResponse struct {
	ID        string    `json:"id"`
	StoreID   string    `json:"store_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateStockItemRequest body para POST /api/stock-items.
type CreateStockItemRequest struct {
	VariantID       string          `json:"variant_id"`
	StockLocationID string          `json:"stock_location_id"`
	Backorderable   bool            `json:"backorderable"`
	BackorderLimit  int             `json:"backorder_limit"`
	InitialQuantity int             `json:"initial_quantity"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	Reference       string          `json:"reference,omitempty"`
}

// AdjustStockRequest body para POST /api/stock-items/:id/adjustments.
type AdjustStockRequest struct {
	Delta     int              `json:"delta"`
	Type      string           `json:"type"`
	UnitCost  *decimal.Decimal `json:"unit_cost,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	Reference string           `json:"reference,omitempty"`
}

// BackorderPolicyRequest body para PUT /api/stock-items/:id/backorder.
type BackorderPolicyRequest struct {
	Backorderable bool `json:"backorderable"`
	Limit         int  `json:"limit"`
}

// DamageUnitRequest body para POST /api/stock-items/:id/units/:unit_id/damage.
type DamageUnitRequest struct {
	Reason string `json:"reason"`
}

// ReturnUnitRequest body para POST /api/stock-items/:id/units/:unit_id/return.
type ReturnUnitRequest struct {
	Restock bool `json:"restock"`
}

// StockItemResponse registro de stock con sus cantidades.
type StockItemResponse struct {
	ID               string          `json:"id"`
	VariantID        string          `json:"variant_id"`
	StockLocationID  string          `json:"stock_location_id"`
	QuantityOnHand   int             `json:"quantity_on_hand"`
	QuantityReserved int             `json:"quantity_reserved"`
	Available        int             `json:"available"`
	Backorderable    bool            `json:"backorderable"`
	BackorderLimit   int             `json:"backorder_limit"`
	AverageCost      decimal.Decimal `json:"average_cost"`
	Version          int64           `json:"version"`
	Deleted          bool            `json:"deleted"`
	Units            []UnitResponse  `json:"units,omitempty"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// UnitResponse unidad de inventario.
type UnitResponse struct {
	ID         string `json:"id"`
	State      string `json:"state"`
	OrderID    string `json:"order_id,omitempty"`
	LineItemID string `json:"line_item_id,omitempty"`
	ShipmentID string `json:"shipment_id,omitempty"`
}

// MovementResponse entrada del ledger.
type MovementResponse struct {
	ID            string          `json:"id"`
	StockItemID   string          `json:"stock_item_id"`
	QuantityDelta int             `json:"quantity_delta"`
	Type          string          `json:"type"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	Reason        string          `json:"reason,omitempty"`
	Reference     string          `json:"reference,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// LedgerResponse resultado de conciliar el ledger.
type LedgerResponse struct {
	StockItemID    string         `json:"stock_item_id"`
	QuantityOnHand int            `json:"quantity_on_hand"`
	LedgerBalance  int            `json:"ledger_balance"`
	MovementCount  int            `json:"movement_count"`
	Balanced       bool           `json:"balanced"`
	ByType         map[string]int `json:"by_type"`
}

// AvailabilityResponse disponibilidad de una variante por ubicación.
type AvailabilityResponse struct {
	VariantID string              `json:"variant_id"`
	Total     int                 `json:"total_available"`
	Locations []entity.StockLevel `json:"locations"`
}

// ToLocationResponse convierte una ubicación.
func ToLocationResponse(l *entity.StockLocation) LocationResponse {
	return LocationResponse{
		ID:        l.ID,
		StoreID:   l.StoreID,
		Name:      l.Name,
		Address:   l.Address,
		Active:    l.Active,
		CreatedAt: l.CreatedAt,
	}
}

// ToStockItemResponse convierte un registro de stock; las unidades solo si vienen cargadas.
func ToStockItemResponse(it *entity.StockItem) StockItemResponse {
	out := StockItemResponse{
		ID:               it.ID,
		VariantID:        it.VariantID,
		StockLocationID:  it.StockLocationID,
		QuantityOnHand:   it.QuantityOnHand,
		QuantityReserved: it.QuantityReserved,
		Available:        it.Available(),
		Backorderable:    it.Backorderable,
		BackorderLimit:   it.BackorderLimit,
		AverageCost:      it.AverageCost,
		Version:          it.Version,
		Deleted:          it.IsDeleted(),
		UpdatedAt:        it.UpdatedAt,
	}
	for _, u := range it.Units {
		out.Units = append(out.Units, UnitResponse{
			ID:         u.ID,
			State:      string(u.State),
			OrderID:    u.OrderID,
			LineItemID: u.LineItemID,
			ShipmentID: u.ShipmentID,
		})
	}
	return out
}

// ToMovementResponses convierte movimientos del ledger.
func ToMovementResponses(in []entity.StockMovement) []MovementResponse {
	out := make([]MovementResponse, 0, len(in))
	for _, m := range in {
		out = append(out, MovementResponse{
			ID:            m.ID,
			StockItemID:   m.StockItemID,
			QuantityDelta: m.QuantityDelta,
			Type:          string(m.Type),
			UnitCost:      m.UnitCost,
			Reason:        m.Reason,
			Reference:     m.Reference,
			CreatedAt:     m.CreatedAt,
		})
	}
	return out
}

// ToLedgerResponse convierte el reporte de conciliación.
func ToLedgerResponse(r inventory.LedgerReport) LedgerResponse {
	byType := make(map[string]int, len(r.ByType))
	for t, n := range r.ByType {
		byType[string(t)] = n
	}
	return LedgerResponse{
		StockItemID:    r.StockItemID,
		QuantityOnHand: r.QuantityOnHand,
		LedgerBalance:  r.LedgerBalance,
		MovementCount:  r.MovementCount,
		Balanced:       r.Balanced(),
		ByType:         byType,
	}
}

// ToAvailabilityResponse suma lo disponible en todas las ubicaciones.
func ToAvailabilityResponse(variantID string, levels []entity.StockLevel) AvailabilityResponse {
	out := AvailabilityResponse{VariantID: variantID, Locations: levels}
	if out.Locations == nil {
		out.Locations = []entity.StockLevel{}
	}
	for _, l := range levels {
		if l.Available > 0 {
			out.Total += l.Available
		}
	}
	return out
}
