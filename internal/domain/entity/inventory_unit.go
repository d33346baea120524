package entity

import "time"

// UnitState es el estado físico de una unidad de inventario.
type UnitState string

const (
	UnitOnHand      UnitState = "ON_HAND"
	UnitBackordered UnitState = "BACKORDERED"
	UnitShipped     UnitState = "SHIPPED"
	UnitDamaged     UnitState = "DAMAGED"
	UnitReturned    UnitState = "RETURNED"
)

// Las transiciones avanzan en un solo sentido salvo Backordered -> OnHand al reabastecer.
var unitTransitions = map[UnitState][]UnitState{
	UnitBackordered: {UnitOnHand},
	UnitOnHand:      {UnitShipped, UnitDamaged},
	UnitShipped:     {UnitReturned},
}

// InventoryUnit es una unidad rastreable de un StockItem. OrderID, LineItemID y ShipmentID
// son referencias (vacías cuando la unidad no está asignada).
type InventoryUnit struct {
	ID           string
	StockItemID  string
	VariantID    string
	State        UnitState
	OrderID      string
	LineItemID   string
	ShipmentID   string
	SerialNumber string
	LotNumber    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanTransitionTo indica si la unidad puede pasar al estado dado.
func (u *InventoryUnit) CanTransitionTo(to UnitState) bool {
	for _, s := range unitTransitions[u.State] {
		if s == to {
			return true
		}
	}
	return false
}

func (u *InventoryUnit) transitionTo(to UnitState, now time.Time) error {
	if !u.CanTransitionTo(to) {
		return errInvalidTransition("unidad", string(u.State), string(to))
	}
	u.State = to
	u.UpdatedAt = now
	return nil
}

// IsReservedFor indica si la unidad mantiene una reserva activa para la orden.
func (u *InventoryUnit) IsReservedFor(orderID string) bool {
	return u.OrderID == orderID && (u.State == UnitOnHand || u.State == UnitBackordered)
}
