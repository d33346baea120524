package entity

import (
	"errors"
	"strings"
	"time"

	"github.com/jhoicas/commerce-core/internal/domain"
)

// OrderState es el paso del flujo de checkout en el que está la orden.
type OrderState string

const (
	OrderCart     OrderState = "CART"
	OrderAddress  OrderState = "ADDRESS"
	OrderDelivery OrderState = "DELIVERY"
	OrderPayment  OrderState = "PAYMENT"
	OrderConfirm  OrderState = "CONFIRM"
	OrderComplete OrderState = "COMPLETE"
	OrderCanceled OrderState = "CANCELED"
)

// orderTransition es un avance de Next(): destino y precondición.
type orderTransition struct {
	to    OrderState
	guard func(o *Order) error
}

// Tabla de avance de Next(). Los estados sin entrada no avanzan.
var orderTransitions = map[OrderState]orderTransition{
	OrderCart:     {to: OrderAddress, guard: (*Order).guardHasItems},
	OrderAddress:  {to: OrderDelivery, guard: (*Order).guardAddresses},
	OrderDelivery: {to: OrderPayment, guard: (*Order).guardDelivery},
	OrderPayment:  {to: OrderConfirm, guard: (*Order).guardPaid},
	OrderConfirm:  {to: OrderComplete, guard: (*Order).guardCompletable},
}

// Order es la raíz del agregado de venta. Es dueña de líneas, ajustes, pagos, envíos e historial.
// Los totales se recalculan tras cada cambio; nunca se confía en un total guardado.
type Order struct {
	ID               string
	StoreID          string
	Number           string
	Currency         string
	UserID           string
	Email            string
	State            OrderState
	ShippingAddress  *Address
	BillingAddress   *Address
	ShippingMethodID string

	LineItems   []LineItem
	Adjustments []Adjustment // ajustes a nivel de orden
	Payments    []Payment
	Shipments   []Shipment
	Histories   []OrderHistory

	ItemTotalCents       int64
	AdjustmentTotalCents int64
	ShippingTotalCents   int64
	PaymentTotalCents    int64
	TotalCents           int64

	CompletedAt *time.Time
	CanceledAt  *time.Time
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time

	pendingHistories int
}

// CreateOrder es la fábrica de órdenes: carrito vacío en estado CART.
func CreateOrder(storeID, currency, userID, email string, now time.Time) (*Order, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if storeID == "" {
		return nil, domain.ErrInvalidInput.Withf("tienda requerida")
	}
	if len(currency) != 3 {
		return nil, domain.ErrInvalidInput.Withf("moneda inválida %q", currency)
	}
	now = utc(now)
	id := newID()
	o := &Order{
		ID:        id,
		StoreID:   storeID,
		Number:    "R" + strings.ToUpper(strings.ReplaceAll(id, "-", "")[:10]),
		Currency:  currency,
		UserID:    userID,
		Email:     strings.TrimSpace(email),
		State:     OrderCart,
		CreatedAt: now,
		UpdatedAt: now,
	}
	o.addHistory(OrderCart, OrderCart, "orden creada", nil, now)
	return o, nil
}

// IsTerminal indica si la orden ya no admite cambios de checkout.
// Una orden COMPLETE sigue siendo cancelable mientras ningún envío haya salido (ver Cancel).
func (o *Order) IsTerminal() bool {
	return o.State == OrderComplete || o.State == OrderCanceled
}

func (o *Order) ensureOpen() error {
	if o.IsTerminal() {
		return domain.ErrOrderNotEditable.Withf("estado %s", o.State)
	}
	return nil
}

// ensureLinesEditable: líneas y direcciones solo cambian antes de planificar envíos.
func (o *Order) ensureLinesEditable() error {
	if o.State != OrderCart && o.State != OrderAddress {
		return domain.ErrOrderNotEditable.Withf("estado %s", o.State)
	}
	return nil
}

// SetAddresses fija las direcciones de envío y facturación. Reporta todas las faltas juntas.
func (o *Order) SetAddresses(shipping, billing *Address, now time.Time) error {
	if err := o.ensureLinesEditable(); err != nil {
		return err
	}
	var errs []error
	if shipping == nil {
		errs = append(errs, domain.ErrMissingAddress.Withf("envío"))
	} else if err := shipping.Validate(); err != nil {
		errs = append(errs, err)
	}
	if billing == nil {
		errs = append(errs, domain.ErrMissingAddress.Withf("facturación"))
	} else if err := billing.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	s, b := *shipping, *billing
	if s.ID == "" {
		s.ID = newID()
	}
	if b.ID == "" {
		b.ID = newID()
	}
	o.ShippingAddress = &s
	o.BillingAddress = &b
	now = utc(now)
	o.RecalculateTotals()
	o.touch(now)
	o.addHistory(o.State, o.State, "direcciones actualizadas", map[string]string{"city": s.City}, now)
	return nil
}

// SetShippingMethod elige el método de envío y reemplaza el ajuste de envío con su costo
// (o con overrideCostCents si se indica).
func (o *Order) SetShippingMethod(method ShippingMethod, overrideCostCents *int64, now time.Time) error {
	if err := o.ensureOpen(); err != nil {
		return err
	}
	if method.ID == "" {
		return domain.ErrInvalidInput.Withf("método de envío requerido")
	}
	if method.Currency != "" && method.Currency != o.Currency {
		return domain.ErrCurrencyMismatch.Withf("%s vs %s", method.Currency, o.Currency)
	}
	cost := method.CostCents
	if overrideCostCents != nil {
		cost = *overrideCostCents
	}
	if cost < 0 {
		return domain.ErrInvalidAmount.Withf("costo de envío %d", cost)
	}
	now = utc(now)
	kept := o.Adjustments[:0]
	for _, a := range o.Adjustments {
		if a.Source != AdjustmentShipping {
			kept = append(kept, a)
		}
	}
	o.Adjustments = append(kept, Adjustment{
		ID:          newID(),
		OrderID:     o.ID,
		Source:      AdjustmentShipping,
		Label:       method.Name,
		AmountCents: cost,
		CreatedAt:   now,
	})
	o.ShippingMethodID = method.ID
	o.RecalculateTotals()
	o.touch(now)
	o.addHistory(o.State, o.State, "método de envío "+method.ID, nil, now)
	return nil
}

// RecalculateTotals: total = suma de totales de línea + suma de ajustes de orden.
func (o *Order) RecalculateTotals() {
	var items, adjustments, shipping, total int64
	for i := range o.LineItems {
		li := &o.LineItems[i]
		li.recalculate()
		items += li.AmountCents()
		adjustments += li.AdjustmentTotalCents
		total += li.TotalCents
	}
	for _, a := range o.Adjustments {
		adjustments += a.AmountCents
		total += a.AmountCents
		if a.Source == AdjustmentShipping {
			shipping += a.AmountCents
		}
	}
	var paid int64
	for _, p := range o.Payments {
		if p.State == PaymentCompleted {
			paid += p.AmountCents
		}
	}
	o.ItemTotalCents = items
	o.AdjustmentTotalCents = adjustments
	o.ShippingTotalCents = shipping
	o.PaymentTotalCents = paid
	o.TotalCents = total
}

// NextState devuelve a dónde avanzaría Next() desde el estado actual.
func (o *Order) NextState() (OrderState, bool) {
	tr, ok := orderTransitions[o.State]
	return tr.to, ok
}

// CanAdvance evalúa la precondición del siguiente paso sin modificar la orden.
func (o *Order) CanAdvance() error {
	tr, ok := orderTransitions[o.State]
	if !ok {
		return errInvalidTransition("orden", string(o.State), "siguiente")
	}
	return tr.guard(o)
}

// Next avanza exactamente un paso si la precondición se cumple; si no, la orden no cambia.
func (o *Order) Next(now time.Time) error {
	if err := o.CanAdvance(); err != nil {
		return err
	}
	tr := orderTransitions[o.State]
	now = utc(now)
	from := o.State
	o.State = tr.to
	if tr.to == OrderComplete {
		o.CompletedAt = &now
	}
	o.RecalculateTotals()
	o.touch(now)
	o.addHistory(from, tr.to, "avance de checkout", nil, now)
	return nil
}

func (o *Order) guardHasItems() error {
	if len(o.LineItems) == 0 {
		return domain.ErrEmptyOrder
	}
	return nil
}

func (o *Order) guardAddresses() error {
	if err := o.guardHasItems(); err != nil {
		return err
	}
	if o.ShippingAddress == nil || o.BillingAddress == nil {
		return domain.ErrMissingAddress
	}
	return nil
}

func (o *Order) guardDelivery() error {
	if o.ShippingMethodID == "" {
		return domain.ErrMissingShippingMethod
	}
	if len(o.activeShipments()) == 0 {
		return domain.ErrNoShipments
	}
	return nil
}

func (o *Order) guardPaid() error {
	o.RecalculateTotals()
	if o.PaymentTotalCents < o.TotalCents {
		return domain.ErrPaymentInsufficient.Withf("pagado %d, total %d", o.PaymentTotalCents, o.TotalCents)
	}
	return nil
}

func (o *Order) guardCompletable() error {
	if len(o.activeShipments()) == 0 {
		return domain.ErrNoShipments
	}
	return o.guardPaid()
}

// Cancel anula la orden desde cualquier estado salvo CANCELED, incluida COMPLETE, si ningún envío salió.
// Cancela envíos y anula pagos pendientes.
// Liberar las reservas es responsabilidad del servicio de reservas.
func (o *Order) Cancel(reason string, now time.Time) error {
	if o.State == OrderCanceled {
		return errInvalidTransition("orden", string(o.State), string(OrderCanceled))
	}
	for _, sh := range o.Shipments {
		if sh.State == ShipmentShipped {
			return domain.ErrShipmentAlreadyShipped.Withf("envío %s", sh.Number)
		}
	}
	now = utc(now)
	for i := range o.Shipments {
		if o.Shipments[i].CanTransitionTo(ShipmentCanceled) {
			_ = o.Shipments[i].transitionTo(ShipmentCanceled, now)
		}
	}
	for i := range o.Payments {
		if o.Payments[i].State == PaymentPending {
			_ = o.Payments[i].transitionTo(PaymentVoided, now)
		}
	}
	from := o.State
	o.State = OrderCanceled
	o.CanceledAt = &now
	o.RecalculateTotals()
	o.touch(now)
	o.addHistory(from, OrderCanceled, "orden cancelada", map[string]string{"reason": reason}, now)
	return nil
}

func (o *Order) touch(now time.Time) {
	o.UpdatedAt = now
}

// NewHistories devuelve las entradas de historial aún no persistidas.
func (o *Order) NewHistories() []OrderHistory {
	if o.pendingHistories == 0 {
		return nil
	}
	return o.Histories[len(o.Histories)-o.pendingHistories:]
}

// MarkPersisted indica que el repositorio ya guardó el historial nuevo.
func (o *Order) MarkPersisted() {
	o.pendingHistories = 0
}

// Clone devuelve una copia profunda del agregado.
func (o *Order) Clone() *Order {
	c := *o
	if o.ShippingAddress != nil {
		a := *o.ShippingAddress
		c.ShippingAddress = &a
	}
	if o.BillingAddress != nil {
		a := *o.BillingAddress
		c.BillingAddress = &a
	}
	c.LineItems = make([]LineItem, len(o.LineItems))
	for i, li := range o.LineItems {
		li.Adjustments = append([]Adjustment(nil), li.Adjustments...)
		c.LineItems[i] = li
	}
	c.Adjustments = append([]Adjustment(nil), o.Adjustments...)
	c.Payments = append([]Payment(nil), o.Payments...)
	c.Shipments = make([]Shipment, len(o.Shipments))
	for i, sh := range o.Shipments {
		sh.Items = append([]ShipmentItem(nil), sh.Items...)
		c.Shipments[i] = sh
	}
	c.Histories = make([]OrderHistory, len(o.Histories))
	for i, h := range o.Histories {
		if h.Context != nil {
			ctx := make(map[string]string, len(h.Context))
			for k, v := range h.Context {
				ctx[k] = v
			}
			h.Context = ctx
		}
		c.Histories[i] = h
	}
	return &c
}
