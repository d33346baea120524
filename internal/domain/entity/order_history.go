package entity

import "time"

// OrderHistory es una entrada de auditoría de la orden. Nunca se edita.
type OrderHistory struct {
	ID          string
	OrderID     string
	FromState   OrderState
	ToState     OrderState
	Description string
	Context     map[string]string
	CreatedAt   time.Time
}

func (o *Order) addHistory(from, to OrderState, description string, context map[string]string, now time.Time) {
	o.Histories = append(o.Histories, OrderHistory{
		ID:          newID(),
		OrderID:     o.ID,
		FromState:   from,
		ToState:     to,
		Description: description,
		Context:     context,
		CreatedAt:   now,
	})
	o.pendingHistories++
}
