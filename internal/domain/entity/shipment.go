package entity

import (
	"fmt"
	"time"

	"github.com/jhoicas/commerce-core/internal/domain"
)

// ShipmentState es el estado de un envío.
type ShipmentState string

const (
	ShipmentPending  ShipmentState = "PENDING"
	ShipmentReady    ShipmentState = "READY"
	ShipmentShipped  ShipmentState = "SHIPPED"
	ShipmentCanceled ShipmentState = "CANCELED"
)

var shipmentTransitions = map[ShipmentState][]ShipmentState{
	ShipmentPending: {ShipmentReady, ShipmentCanceled},
	ShipmentReady:   {ShipmentShipped, ShipmentCanceled, ShipmentPending},
}

// ShipmentItem es una porción de una línea que sale desde la ubicación del envío.
type ShipmentItem struct {
	LineItemID string
	VariantID  string
	Quantity   int
}

// Shipment es un paquete de la orden despachado desde una ubicación. Las unidades de
// inventario lo referencian por ShipmentID.
type Shipment struct {
	ID              string
	OrderID         string
	Number          string
	StockLocationID string
	State           ShipmentState
	Items           []ShipmentItem
	TrackingNumber  string
	ShippedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CanTransitionTo indica si el envío puede pasar al estado dado.
func (s *Shipment) CanTransitionTo(to ShipmentState) bool {
	for _, st := range shipmentTransitions[s.State] {
		if st == to {
			return true
		}
	}
	return false
}

func (s *Shipment) transitionTo(to ShipmentState, now time.Time) error {
	if !s.CanTransitionTo(to) {
		return errInvalidTransition("envío", string(s.State), string(to))
	}
	s.State = to
	s.UpdatedAt = now
	return nil
}

// Shipment busca un envío por id.
func (o *Order) Shipment(id string) *Shipment {
	for i := range o.Shipments {
		if o.Shipments[i].ID == id {
			return &o.Shipments[i]
		}
	}
	return nil
}

func (o *Order) activeShipments() []Shipment {
	var out []Shipment
	for _, s := range o.Shipments {
		if s.State != ShipmentCanceled {
			out = append(out, s)
		}
	}
	return out
}

// BuildShipments reemplaza los envíos con los paquetes del plan, repartiendo cada línea en el
// orden de las líneas. Falla si el plan deja cantidades sin cubrir.
func (o *Order) BuildShipments(plan *FulfillmentPlan, now time.Time) error {
	if plan == nil {
		return domain.ErrInvalidInput.Withf("plan de despacho requerido")
	}
	for variantID, qty := range plan.Unfulfilled {
		if qty > 0 {
			return domain.ErrUnfulfillableItems.Withf("variante %s: %d", variantID, qty)
		}
	}
	for _, s := range o.Shipments {
		if s.State == ShipmentReady || s.State == ShipmentShipped {
			return domain.ErrOrderNotEditable.Withf("envío %s en estado %s", s.Number, s.State)
		}
	}

	now = utc(now)
	left := make(map[string]int, len(o.LineItems))
	for _, li := range o.LineItems {
		left[li.ID] = li.Quantity
	}
	var shipments []Shipment
	for _, pkg := range plan.Packages {
		sh := Shipment{
			ID:              newID(),
			OrderID:         o.ID,
			Number:          fmt.Sprintf("%s-%d", o.Number, len(shipments)+1),
			StockLocationID: pkg.StockLocationID,
			State:           ShipmentPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		for _, pi := range pkg.Items {
			q := pi.Quantity
			for _, li := range o.LineItems {
				if q == 0 {
					break
				}
				if li.VariantID != pi.VariantID || left[li.ID] == 0 {
					continue
				}
				take := min(q, left[li.ID])
				sh.Items = append(sh.Items, ShipmentItem{LineItemID: li.ID, VariantID: li.VariantID, Quantity: take})
				left[li.ID] -= take
				q -= take
			}
		}
		if len(sh.Items) > 0 {
			shipments = append(shipments, sh)
		}
	}
	for _, li := range o.LineItems {
		if left[li.ID] > 0 {
			return domain.ErrUnfulfillableItems.Withf("línea %s: %d sin ubicación", li.SKU, left[li.ID])
		}
	}
	o.Shipments = shipments
	o.touch(now)
	o.addHistory(o.State, o.State, fmt.Sprintf("%d envíos planificados", len(shipments)), nil, now)
	return nil
}

// ReadyShipment deja el envío listo para despacho: la orden debe estar completa y pagada.
func (o *Order) ReadyShipment(shipmentID string, now time.Time) error {
	if o.State != OrderComplete {
		return domain.ErrInvalidTransition.Withf("la orden debe estar completa, estado %s", o.State)
	}
	if err := o.guardPaid(); err != nil {
		return err
	}
	return o.transitionShipment(shipmentID, ShipmentReady, now, nil)
}

// MarkShipmentShipped registra el despacho. El movimiento de stock lo aplica el llamador
// sobre los StockItem involucrados.
func (o *Order) MarkShipmentShipped(shipmentID, trackingNumber string, now time.Time) error {
	return o.transitionShipment(shipmentID, ShipmentShipped, now, func(s *Shipment, at time.Time) {
		s.TrackingNumber = trackingNumber
		s.ShippedAt = &at
	})
}

// CancelShipment anula un envío que aún no salió. Las unidades asignadas las libera el llamador.
func (o *Order) CancelShipment(shipmentID string, now time.Time) error {
	return o.transitionShipment(shipmentID, ShipmentCanceled, now, nil)
}

// UnreadyShipment devuelve un envío listo a pendiente.
func (o *Order) UnreadyShipment(shipmentID string, now time.Time) error {
	return o.transitionShipment(shipmentID, ShipmentPending, now, nil)
}

func (o *Order) transitionShipment(shipmentID string, to ShipmentState, now time.Time, apply func(*Shipment, time.Time)) error {
	s := o.Shipment(shipmentID)
	if s == nil {
		return domain.ErrShipmentNotFound
	}
	now = utc(now)
	from := s.State
	if err := s.transitionTo(to, now); err != nil {
		return err
	}
	if apply != nil {
		apply(s, now)
	}
	o.touch(now)
	o.addHistory(o.State, o.State, "envío "+s.Number+": "+string(from)+" -> "+string(to), map[string]string{"shipment_id": s.ID}, now)
	return nil
}
