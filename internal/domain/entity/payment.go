package entity

import (
	"time"

	"github.com/jhoicas/commerce-core/internal/domain"
)

// PaymentState es el estado de un pago.
type PaymentState string

const (
	PaymentPending   PaymentState = "PENDING"
	PaymentCompleted PaymentState = "COMPLETED"
	PaymentFailed    PaymentState = "FAILED"
	PaymentVoided    PaymentState = "VOIDED"
	PaymentRefunded  PaymentState = "REFUNDED"
)

var paymentTransitions = map[PaymentState][]PaymentState{
	PaymentPending:   {PaymentCompleted, PaymentFailed, PaymentVoided},
	PaymentCompleted: {PaymentRefunded, PaymentVoided},
}

// Payment es un pago de la orden. Solo los completados cuentan para el total pagado.
type Payment struct {
	ID          string
	OrderID     string
	Method      string
	AmountCents int64
	State       PaymentState
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CanTransitionTo indica si el pago puede pasar al estado dado.
func (p *Payment) CanTransitionTo(to PaymentState) bool {
	for _, s := range paymentTransitions[p.State] {
		if s == to {
			return true
		}
	}
	return false
}

func (p *Payment) transitionTo(to PaymentState, now time.Time) error {
	if !p.CanTransitionTo(to) {
		return errInvalidTransition("pago", string(p.State), string(to))
	}
	p.State = to
	p.UpdatedAt = now
	return nil
}

// Payment busca un pago por id.
func (o *Order) Payment(id string) *Payment {
	for i := range o.Payments {
		if o.Payments[i].ID == id {
			return &o.Payments[i]
		}
	}
	return nil
}

// AddPayment registra un pago pendiente. Solo en PAYMENT o CONFIRM.
func (o *Order) AddPayment(method string, amountCents int64, now time.Time) (*Payment, error) {
	if o.State != OrderPayment && o.State != OrderConfirm {
		return nil, domain.ErrInvalidTransition.Withf("la orden no acepta pagos en estado %s", o.State)
	}
	if amountCents <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if method == "" {
		return nil, domain.ErrInvalidInput.Withf("método de pago requerido")
	}
	now = utc(now)
	o.Payments = append(o.Payments, Payment{
		ID:          newID(),
		OrderID:     o.ID,
		Method:      method,
		AmountCents: amountCents,
		State:       PaymentPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	p := o.Payments[len(o.Payments)-1]
	o.touch(now)
	o.addHistory(o.State, o.State, "pago registrado "+method, map[string]string{"payment_id": p.ID}, now)
	return &p, nil
}

// CompletePayment marca el pago como completado.
func (o *Order) CompletePayment(paymentID string, now time.Time) error {
	return o.transitionPayment(paymentID, PaymentCompleted, now)
}

// FailPayment marca el pago como fallido.
func (o *Order) FailPayment(paymentID string, now time.Time) error {
	return o.transitionPayment(paymentID, PaymentFailed, now)
}

// VoidPayment anula el pago.
func (o *Order) VoidPayment(paymentID string, now time.Time) error {
	return o.transitionPayment(paymentID, PaymentVoided, now)
}

// RefundPayment reembolsa un pago completado.
func (o *Order) RefundPayment(paymentID string, now time.Time) error {
	return o.transitionPayment(paymentID, PaymentRefunded, now)
}

func (o *Order) transitionPayment(paymentID string, to PaymentState, now time.Time) error {
	p := o.Payment(paymentID)
	if p == nil {
		return domain.ErrPaymentNotFound
	}
	now = utc(now)
	from := p.State
	if err := p.transitionTo(to, now); err != nil {
		return err
	}
	o.RecalculateTotals()
	o.touch(now)
	o.addHistory(o.State, o.State, "pago "+string(from)+" -> "+string(to), map[string]string{"payment_id": paymentID}, now)
	return nil
}
