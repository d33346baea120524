package entity

import (
	"time"

	"github.com/jhoicas/commerce-core/internal/domain"
	"github.com/shopspring/decimal"
)

// StockItem es el registro de stock de una variante en una ubicación. Solo cambia mediante
// AdjustStock, Reserve y Release (y las operaciones de unidades que se apoyan en ellos).
// Version es el token de concurrencia optimista; lo incrementa el repositorio al guardar.
type StockItem struct {
	ID               string
	VariantID        string
	StockLocationID  string
	QuantityOnHand   int
	QuantityReserved int
	Backorderable    bool
	BackorderLimit   int
	AverageCost      decimal.Decimal // costo promedio ponderado
	Version          int64
	DeletedAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Units     []InventoryUnit
	Movements []StockMovement

	pendingMovements int
}

// NewStockItem crea el registro cuando una variante se almacena por primera vez en una ubicación.
func NewStockItem(variantID, stockLocationID string, now time.Time) (*StockItem, error) {
	if variantID == "" || stockLocationID == "" {
		return nil, domain.ErrInvalidInput.Withf("variante y ubicación son obligatorias")
	}
	now = utc(now)
	return &StockItem{
		ID:              newID(),
		VariantID:       variantID,
		StockLocationID: stockLocationID,
		AverageCost:     decimal.Zero,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Available devuelve on hand menos reservado (puede ser negativo con backorder).
func (s *StockItem) Available() int {
	return s.QuantityOnHand - s.QuantityReserved
}

// Reservable es cuánto más se puede reservar contando el margen de backorder.
func (s *StockItem) Reservable() int {
	if s.IsDeleted() {
		return 0
	}
	return max(s.QuantityOnHand+s.allowance()-s.QuantityReserved, 0)
}

// IsDeleted indica si el registro fue dado de baja.
func (s *StockItem) IsDeleted() bool {
	return s.DeletedAt != nil
}

// allowance es cuánto puede quedar el stock por debajo de lo reservado según la política.
func (s *StockItem) allowance() int {
	if s.Backorderable {
		return s.BackorderLimit
	}
	return 0
}

// AdjustStock aplica un delta físico y agrega exactamente un movimiento al ledger.
// No toca reservas. Un delta negativo no puede dejar el stock por debajo de lo reservado
// más el margen de backorder.
func (s *StockItem) AdjustStock(delta int, movementType MovementType, unitCost decimal.Decimal, reason, reference string, now time.Time) (*StockMovement, error) {
	if delta == 0 {
		return nil, domain.ErrZeroQuantityMovement
	}
	if !movementType.Valid() {
		return nil, domain.ErrInvalidMovementType.Withf("%q", movementType)
	}
	if s.IsDeleted() {
		return nil, domain.ErrStockItemDeleted
	}
	newOnHand := s.QuantityOnHand + delta
	if delta < 0 && newOnHand < s.QuantityReserved-s.allowance() {
		return nil, domain.ErrInsufficientStock.Withf("variante %s: en mano %d, reservado %d, delta %d",
			s.VariantID, s.QuantityOnHand, s.QuantityReserved, delta)
	}
	now = utc(now)
	s.QuantityOnHand = newOnHand
	s.UpdatedAt = now
	s.Movements = append(s.Movements, StockMovement{
		ID:            newID(),
		StockItemID:   s.ID,
		QuantityDelta: delta,
		Type:          movementType,
		UnitCost:      unitCost,
		Reason:        reason,
		Reference:     reference,
		CreatedAt:     now,
	})
	s.pendingMovements++
	if delta > 0 {
		s.fillBackorders(now)
	}
	mov := s.Movements[len(s.Movements)-1]
	return &mov, nil
}

// fillBackorders pasa unidades en backorder a OnHand mientras el stock físico las cubra.
func (s *StockItem) fillBackorders(now time.Time) {
	covered := 0
	for i := range s.Units {
		if s.Units[i].OrderID != "" && s.Units[i].State == UnitOnHand {
			covered++
		}
	}
	capacity := s.QuantityOnHand - covered
	for i := range s.Units {
		if capacity <= 0 {
			return
		}
		u := &s.Units[i]
		if u.OrderID == "" || u.State != UnitBackordered {
			continue
		}
		_ = u.transitionTo(UnitOnHand, now)
		capacity--
	}
}

// Reserve aparta quantity unidades para la orden. Si no hay disponible y la política lo permite,
// el faltante queda en backorder; si no, falla sin aplicar cambios.
func (s *StockItem) Reserve(quantity int, orderID, lineItemID string, now time.Time) ([]InventoryUnit, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if orderID == "" {
		return nil, domain.ErrInvalidInput.Withf("orden requerida para reservar")
	}
	if s.IsDeleted() {
		return nil, domain.ErrStockItemDeleted
	}

	onHandQty := quantity
	available := s.Available()
	if available < quantity {
		if !s.Backorderable || s.QuantityReserved+quantity > s.QuantityOnHand+s.BackorderLimit {
			return nil, domain.ErrOutOfStock.Withf("variante %s: disponible %d, solicitado %d",
				s.VariantID, available, quantity)
		}
		onHandQty = max(available, 0)
	}

	now = utc(now)
	created := make([]InventoryUnit, 0, quantity)
	for i := 0; i < quantity; i++ {
		state := UnitOnHand
		if i >= onHandQty {
			state = UnitBackordered
		}
		u := s.claimUnit(state, orderID, lineItemID, now)
		created = append(created, *u)
	}
	s.QuantityReserved += quantity
	s.UpdatedAt = now
	return created, nil
}

// claimUnit reutiliza una unidad libre del pool en el estado pedido o crea una nueva.
func (s *StockItem) claimUnit(state UnitState, orderID, lineItemID string, now time.Time) *InventoryUnit {
	for i := range s.Units {
		u := &s.Units[i]
		if u.OrderID == "" && u.State == state {
			u.OrderID = orderID
			u.LineItemID = lineItemID
			u.UpdatedAt = now
			return u
		}
	}
	s.Units = append(s.Units, InventoryUnit{
		ID:          newID(),
		StockItemID: s.ID,
		VariantID:   s.VariantID,
		State:       state,
		OrderID:     orderID,
		LineItemID:  lineItemID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	return &s.Units[len(s.Units)-1]
}

// Release libera hasta quantity unidades reservadas por la orden (primero las de backorder)
// y las devuelve al pool libre; el stock liberado cubre backorders de otras órdenes.
// Nunca falla; devuelve cuántas liberó.
func (s *StockItem) Release(quantity int, orderID string, now time.Time) int {
	if quantity <= 0 || orderID == "" {
		return 0
	}
	now = utc(now)
	released := 0
	for _, state := range []UnitState{UnitBackordered, UnitOnHand} {
		for i := len(s.Units) - 1; i >= 0 && released < quantity; i-- {
			u := &s.Units[i]
			if u.State != state || !u.IsReservedFor(orderID) {
				continue
			}
			u.OrderID = ""
			u.LineItemID = ""
			u.ShipmentID = ""
			u.UpdatedAt = now
			released++
		}
	}
	s.QuantityReserved = max(s.QuantityReserved-released, 0)
	if released > 0 {
		s.UpdatedAt = now
		s.fillBackorders(now)
	}
	return released
}

// ReleaseUnits deshace una reserva puntual: devuelve al pool exactamente las unidades dadas
// si siguen reservadas por la orden. No promueve backorders de otras órdenes.
func (s *StockItem) ReleaseUnits(orderID string, unitIDs []string, now time.Time) int {
	if orderID == "" || len(unitIDs) == 0 {
		return 0
	}
	ids := make(map[string]bool, len(unitIDs))
	for _, id := range unitIDs {
		ids[id] = true
	}
	now = utc(now)
	released := 0
	for i := range s.Units {
		u := &s.Units[i]
		if !ids[u.ID] || !u.IsReservedFor(orderID) {
			continue
		}
		u.OrderID = ""
		u.LineItemID = ""
		u.ShipmentID = ""
		u.UpdatedAt = now
		released++
	}
	if released > 0 {
		s.QuantityReserved = max(s.QuantityReserved-released, 0)
		s.UpdatedAt = now
	}
	return released
}

// ReleaseShipment libera las unidades de la orden asignadas al envío.
func (s *StockItem) ReleaseShipment(orderID, shipmentID string, now time.Time) int {
	now = utc(now)
	released := 0
	for i := range s.Units {
		u := &s.Units[i]
		if !u.IsReservedFor(orderID) || u.ShipmentID != shipmentID {
			continue
		}
		u.OrderID = ""
		u.LineItemID = ""
		u.ShipmentID = ""
		u.UpdatedAt = now
		released++
	}
	if released > 0 {
		s.QuantityReserved = max(s.QuantityReserved-released, 0)
		s.UpdatedAt = now
		s.fillBackorders(now)
	}
	return released
}

// ReleaseAll libera todas las reservas activas de la orden en este registro.
func (s *StockItem) ReleaseAll(orderID string, now time.Time) int {
	return s.Release(s.ReservedFor(orderID), orderID, now)
}

// ReservedFor cuenta las unidades reservadas (OnHand o Backordered) por la orden.
func (s *StockItem) ReservedFor(orderID string) int {
	n := 0
	for i := range s.Units {
		if s.Units[i].IsReservedFor(orderID) {
			n++
		}
	}
	return n
}

// BackorderedCount cuenta las unidades asignadas que siguen en backorder.
func (s *StockItem) BackorderedCount() int {
	n := 0
	for i := range s.Units {
		if s.Units[i].OrderID != "" && s.Units[i].State == UnitBackordered {
			n++
		}
	}
	return n
}

// SetBackorderPolicy cambia la política de backorder. Se bloquea si dejaría reservas o
// stock negativo fuera del nuevo margen.
func (s *StockItem) SetBackorderPolicy(backorderable bool, limit int, now time.Time) error {
	if limit < 0 {
		return domain.ErrInvalidBackorderLimit
	}
	if s.IsDeleted() {
		return domain.ErrStockItemDeleted
	}
	if !backorderable && s.BackorderedCount() > 0 {
		return domain.ErrBackorderedUnitsPending.Withf("%d unidades en backorder", s.BackorderedCount())
	}
	allowance := 0
	if backorderable {
		allowance = limit
	}
	if s.QuantityReserved > s.QuantityOnHand+allowance || s.QuantityOnHand < -allowance {
		return domain.ErrBackorderedUnitsPending.Withf("en mano %d, reservado %d, margen %d",
			s.QuantityOnHand, s.QuantityReserved, allowance)
	}
	s.Backorderable = backorderable
	s.BackorderLimit = limit
	s.UpdatedAt = utc(now)
	return nil
}

// SoftDelete da de baja el registro; no se permite con reservas vigentes.
func (s *StockItem) SoftDelete(now time.Time) error {
	if s.IsDeleted() {
		return nil
	}
	if s.QuantityReserved > 0 {
		return domain.ErrReservedUnitsPending.Withf("%d unidades reservadas", s.QuantityReserved)
	}
	now = utc(now)
	s.DeletedAt = &now
	s.UpdatedAt = now
	return nil
}

// AssignShipment vincula las unidades indicadas al envío.
func (s *StockItem) AssignShipment(unitIDs []string, shipmentID string, now time.Time) {
	ids := make(map[string]struct{}, len(unitIDs))
	for _, id := range unitIDs {
		ids[id] = struct{}{}
	}
	now = utc(now)
	for i := range s.Units {
		if _, ok := ids[s.Units[i].ID]; ok {
			s.Units[i].ShipmentID = shipmentID
			s.Units[i].UpdatedAt = now
		}
	}
}

// ShipUnits despacha las unidades de la orden asignadas al envío: pasan a Shipped, salen de la
// reserva y se registra un movimiento Sold. Falla si alguna sigue en backorder.
func (s *StockItem) ShipUnits(orderID, shipmentID string, now time.Time) (int, error) {
	var idx []int
	for i := range s.Units {
		u := &s.Units[i]
		if !u.IsReservedFor(orderID) || u.ShipmentID != shipmentID {
			continue
		}
		if u.State == UnitBackordered {
			return 0, domain.ErrBackorderedUnitsPending.Withf("variante %s", s.VariantID)
		}
		idx = append(idx, i)
	}
	if len(idx) == 0 {
		return 0, nil
	}
	now = utc(now)
	n := len(idx)
	s.QuantityReserved -= n
	if _, err := s.AdjustStock(-n, MovementSold, s.AverageCost, "despacho de envío", orderID, now); err != nil {
		s.QuantityReserved += n
		return 0, err
	}
	for _, i := range idx {
		_ = s.Units[i].transitionTo(UnitShipped, now)
	}
	return n, nil
}

// DamageUnit marca una unidad en mano como dañada y registra la pérdida.
func (s *StockItem) DamageUnit(unitID, reason string, now time.Time) error {
	u := s.unit(unitID)
	if u == nil {
		return domain.ErrUnitNotFound
	}
	if !u.CanTransitionTo(UnitDamaged) {
		return errInvalidTransition("unidad", string(u.State), string(UnitDamaged))
	}
	reserved := u.OrderID != ""
	if reserved {
		s.QuantityReserved--
	}
	if _, err := s.AdjustStock(-1, MovementLoss, s.AverageCost, reason, unitID, now); err != nil {
		if reserved {
			s.QuantityReserved++
		}
		return err
	}
	return u.transitionTo(UnitDamaged, utc(now))
}

// ReturnUnit registra la devolución de una unidad despachada; con restock vuelve al stock físico.
func (s *StockItem) ReturnUnit(unitID string, restock bool, now time.Time) error {
	u := s.unit(unitID)
	if u == nil {
		return domain.ErrUnitNotFound
	}
	if !u.CanTransitionTo(UnitReturned) {
		return errInvalidTransition("unidad", string(u.State), string(UnitReturned))
	}
	if restock {
		if _, err := s.AdjustStock(1, MovementReturn, s.AverageCost, "devolución de cliente", u.OrderID, now); err != nil {
			return err
		}
	}
	return u.transitionTo(UnitReturned, utc(now))
}

func (s *StockItem) unit(id string) *InventoryUnit {
	for i := range s.Units {
		if s.Units[i].ID == id {
			return &s.Units[i]
		}
	}
	return nil
}

// Level devuelve la foto de disponibilidad del registro.
func (s *StockItem) Level() StockLevel {
	return StockLevel{
		StockItemID:     s.ID,
		VariantID:       s.VariantID,
		StockLocationID: s.StockLocationID,
		OnHand:          s.QuantityOnHand,
		Reserved:        s.QuantityReserved,
		Available:       s.Available(),
		Backorderable:   s.Backorderable,
		Deleted:         s.IsDeleted(),
		UpdatedAt:       s.UpdatedAt,
	}
}

// LedgerBalance suma los deltas de los movimientos cargados.
func (s *StockItem) LedgerBalance() int {
	total := 0
	for _, m := range s.Movements {
		total += m.QuantityDelta
	}
	return total
}

// NewMovements devuelve los movimientos agregados desde la última persistencia.
func (s *StockItem) NewMovements() []StockMovement {
	if s.pendingMovements == 0 {
		return nil
	}
	return s.Movements[len(s.Movements)-s.pendingMovements:]
}

// MarkPersisted indica que el repositorio ya guardó los movimientos nuevos.
func (s *StockItem) MarkPersisted() {
	s.pendingMovements = 0
}

// Clone devuelve una copia profunda con unidades y movimientos.
func (s *StockItem) Clone() *StockItem {
	c := *s
	c.Units = append([]InventoryUnit(nil), s.Units...)
	c.Movements = append([]StockMovement(nil), s.Movements...)
	if s.DeletedAt != nil {
		t := *s.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}
