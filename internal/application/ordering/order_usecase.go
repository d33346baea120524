package ordering

import (
	"context"
	"time"

	"github.com/jhoicas/commerce-core/internal/application/inventory"
	"github.com/jhoicas/commerce-core/internal/domain"
	"github.com/jhoicas/commerce-core/internal/domain/entity"
	"github.com/jhoicas/commerce-core/internal/domain/repository"
)

// CreateOrderInput datos para abrir un carrito.
type CreateOrderInput struct {
	StoreID  string
	Currency string
	UserID   string
	Email    string
}

// OrderUseCase orquesta los comandos de la orden. Cada comando corre en su propia unidad de
// trabajo y se repite ante conflictos de versión.
type OrderUseCase struct {
	deps Deps
}

// NewOrderUseCase construye el caso de uso.
func NewOrderUseCase(deps Deps) *OrderUseCase {
	return &OrderUseCase{deps: deps.withDefaults()}
}

// Create abre una orden vacía en CART.
func (uc *OrderUseCase) Create(ctx context.Context, in CreateOrderInput) (*entity.Order, error) {
	order, err := entity.CreateOrder(in.StoreID, in.Currency, in.UserID, in.Email, time.Now())
	if err != nil {
		return nil, err
	}
	err = uc.deps.Tx.Run(ctx, func(repos repository.Repositories) error {
		return repos.Orders.Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	uc.deps.Log.Info().Str("order_id", order.ID).Str("number", order.Number).Msg("orden creada")
	return order, nil
}

// Get devuelve la orden completa.
func (uc *OrderUseCase) Get(ctx context.Context, id string) (*entity.Order, error) {
	return uc.deps.Orders.GetByID(ctx, id, repository.OrderFull)
}

// ListByStore lista las órdenes de la tienda, más recientes primero.
func (uc *OrderUseCase) ListByStore(ctx context.Context, storeID string, limit, offset int) ([]*entity.Order, error) {
	return uc.deps.Orders.ListByStore(ctx, storeID, limit, offset)
}

// AddVariant agrega una variante del catálogo a la orden.
func (uc *OrderUseCase) AddVariant(ctx context.Context, orderID, variantID string, quantity int, overridePriceCents *int64) (*entity.Order, error) {
	variant, err := uc.deps.Variants.GetByID(ctx, variantID)
	if err != nil {
		return nil, err
	}
	return uc.mutate(ctx, "order_add_variant", orderID, func(_ repository.Repositories, o *entity.Order, now time.Time) ([]*entity.StockItem, error) {
		_, err := o.AddVariant(*variant, quantity, now, overridePriceCents)
		return nil, err
	})
}

// SetLineItemQuantity cambia la cantidad de una línea; 0 la elimina.
func (uc *OrderUseCase) SetLineItemQuantity(ctx context.Context, orderID, lineItemID string, quantity int) (*entity.Order, error) {
	return uc.mutate(ctx, "order_set_quantity", orderID, func(_ repository.Repositories, o *entity.Order, now time.Time) ([]*entity.StockItem, error) {
		return nil, o.SetLineItemQuantity(lineItemID, quantity, now)
	})
}

// RemoveLineItem elimina una línea de la orden.
func (uc *OrderUseCase) RemoveLineItem(ctx context.Context, orderID, lineItemID string) (*entity.Order, error) {
	return uc.mutate(ctx, "order_remove_line", orderID, func(_ repository.Repositories, o *entity.Order, now time.Time) ([]*entity.StockItem, error) {
		return nil, o.RemoveLineItem(lineItemID, now)
	})
}

// SetAddresses fija direcciones de envío y facturación.
func (uc *OrderUseCase) SetAddresses(ctx context.Context, orderID string, shipping, billing *entity.Address) (*entity.Order, error) {
	return uc.mutate(ctx, "order_set_addresses", orderID, func(_ repository.Repositories, o *entity.Order, now time.Time) ([]*entity.StockItem, error) {
		return nil, o.SetAddresses(shipping, billing, now)
	})
}

// SetShippingMethod fija el método de envío; overrideCostCents reemplaza el costo del catálogo.
func (uc *OrderUseCase) SetShippingMethod(ctx context.Context, orderID, methodID string, overrideCostCents *int64) (*entity.Order, error) {
	method, err := uc.deps.ShippingMethods.GetByID(ctx, methodID)
	if err != nil {
		return nil, err
	}
	return uc.mutate(ctx, "order_set_shipping", orderID, func(_ repository.Repositories, o *entity.Order, now time.Time) ([]*entity.StockItem, error) {
		return nil, o.SetShippingMethod(*method, overrideCostCents, now)
	})
}

// AddManualAdjustment agrega un cargo o descuento manual.
func (uc *OrderUseCase) AddManualAdjustment(ctx context.Context, orderID string, amountCents int64, label, lineItemID string) (*entity.Order, error) {
	return uc.mutate(ctx, "order_add_adjustment", orderID, func(_ repository.Repositories, o *entity.Order, now time.Time) ([]*entity.StockItem, error) {
		_, err := o.AddManualAdjustment(amountCents, label, lineItemID, now)
		return nil, err
	})
}

// ApplyPromotion calcula la promoción sobre la versión leída y la aplica solo si la orden no
// cambió mientras tanto; si cambió, se recalcula.
func (uc *OrderUseCase) ApplyPromotion(ctx context.Context, orderID string, promotion entity.Promotion) (*entity.Order, error) {
	if uc.deps.Promotions == nil {
		return nil, domain.ErrPromotionRejected.Withf("no hay calculadora de promociones")
	}
	var out *entity.Order
	err := inventory.RetryOnConflict(ctx, uc.deps.Retry, uc.deps.Metrics, uc.deps.Log, "order_apply_promotion", func() error {
		snapshot, err := uc.deps.Orders.GetByID(ctx, orderID, repository.OrderFull)
		if err != nil {
			return err
		}
		result, err := uc.deps.Promotions.Calculate(ctx, promotion, snapshot)
		if err != nil {
			if domain.KindOf(err) != "" {
				return err
			}
			return domain.ErrPromotionRejected.Withf("%s: %v", promotion.Code, err)
		}
		out, err = uc.inTx(ctx, orderID, snapshot.Version, func(_ repository.Repositories, o *entity.Order, now time.Time) ([]*entity.StockItem, error) {
			return nil, o.ApplyPromotion(promotion, result, now)
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AddPayment registra un pago pendiente.
func (uc *OrderUseCase) AddPayment(ctx context.Context, orderID, method string, amountCents int64) (*entity.Order, error) {
	return uc.mutate(ctx, "order_add_payment", orderID, func(_ repository.Repositories, o *entity.Order, now time.Time) ([]*entity.StockItem, error) {
		_, err := o.AddPayment(method, amountCents, now)
		return nil, err
	})
}

// PaymentAction es una transición de pago pedida desde fuera.
type PaymentAction string

const (
	PaymentComplete PaymentAction = "complete"
	PaymentFail     PaymentAction = "fail"
	PaymentVoid     PaymentAction = "void"
	PaymentRefund   PaymentAction = "refund"
)

// TransitionPayment aplica la acción sobre el pago.
func (uc *OrderUseCase) TransitionPayment(ctx context.Context, orderID, paymentID string, action PaymentAction) (*entity.Order, error) {
	var apply func(o *entity.Order, now time.Time) error
	switch action {
	case PaymentComplete:
		apply = func(o *entity.Order, now time.Time) error { return o.CompletePayment(paymentID, now) }
	case PaymentFail:
		apply = func(o *entity.Order, now time.Time) error { return o.FailPayment(paymentID, now) }
	case PaymentVoid:
		apply = func(o *entity.Order, now time.Time) error { return o.VoidPayment(paymentID, now) }
	case PaymentRefund:
		apply = func(o *entity.Order, now time.Time) error { return o.RefundPayment(paymentID, now) }
	default:
		return nil, domain.ErrInvalidInput.Withf("acción de pago %q", action)
	}
	return uc.mutate(ctx, "order_payment_"+string(action), orderID, func(_ repository.Repositories, o *entity.Order, now time.Time) ([]*entity.StockItem, error) {
		return nil, apply(o, now)
	})
}

// Next avanza la orden un paso. Al salir de ADDRESS planifica los envíos; al pasar a COMPLETE
// reserva todas las líneas de los envíos en la misma unidad de trabajo.
func (uc *OrderUseCase) Next(ctx context.Context, orderID string) (*entity.Order, error) {
	var (
		out     *entity.Order
		from    entity.OrderState
		touched []*entity.StockItem
	)
	err := inventory.RetryOnConflict(ctx, uc.deps.Retry, uc.deps.Metrics, uc.deps.Log, "order_next", func() error {
		snapshot, err := uc.deps.Orders.GetByID(ctx, orderID, repository.OrderFull)
		if err != nil {
			return err
		}
		from = snapshot.State

		switch snapshot.State {
		case entity.OrderAddress:
			if err := snapshot.CanAdvance(); err != nil {
				return err
			}
			plan, err := uc.plan(ctx, snapshot)
			if err != nil {
				return err
			}
			out, err = uc.inTx(ctx, orderID, snapshot.Version, func(_ repository.Repositories, o *entity.Order, now time.Time) ([]*entity.StockItem, error) {
				if err := o.BuildShipments(plan, now); err != nil {
					return nil, err
				}
				return nil, o.Next(now)
			})
			return err

		case entity.OrderConfirm:
			out, err = uc.inTx(ctx, orderID, 0, func(repos repository.Repositories, o *entity.Order, now time.Time) ([]*entity.StockItem, error) {
				if err := o.CanAdvance(); err != nil {
					return nil, err
				}
				items, err := uc.deps.Reservations.AttemptReservationInTx(ctx, repos, o.ID, reservationLines(o))
				if err != nil {
					return nil, err
				}
				touched = items
				return items, o.Next(now)
			})
			return err

		default:
			out, err = uc.inTx(ctx, orderID, 0, func(_ repository.Repositories, o *entity.Order, now time.Time) ([]*entity.StockItem, error) {
				return nil, o.Next(now)
			})
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	uc.deps.Metrics.Transition(string(from), string(out.State))
	uc.deps.Log.Info().
		Str("order_id", out.ID).
		Str("from", string(from)).
		Str("to", string(out.State)).
		Msg("orden avanzó")
	uc.publish(ctx, touched)
	return out, nil
}

func (uc *OrderUseCase) plan(ctx context.Context, o *entity.Order) (*entity.FulfillmentPlan, error) {
	if uc.deps.Planner == nil {
		return nil, domain.ErrUnfulfillableItems.Withf("no hay planificador de despacho")
	}
	requested := make(map[string]int, len(o.LineItems))
	for _, li := range o.LineItems {
		requested[li.VariantID] += li.Quantity
	}
	destination := ""
	if o.ShippingAddress != nil {
		destination = o.ShippingAddress.ID
	}
	return uc.deps.Planner.PlanFulfillment(ctx, o.StoreID, requested, destination, uc.deps.Strategy)
}

func reservationLines(o *entity.Order) []inventory.ReservationLine {
	var lines []inventory.ReservationLine
	for _, sh := range o.Shipments {
		if sh.State == entity.ShipmentCanceled {
			continue
		}
		for _, it := range sh.Items {
			lines = append(lines, inventory.ReservationLine{
				LineItemID:      it.LineItemID,
				VariantID:       it.VariantID,
				StockLocationID: sh.StockLocationID,
				ShipmentID:      sh.ID,
				Quantity:        it.Quantity,
			})
		}
	}
	return lines
}

// Cancel anula la orden y libera sus reservas en la misma unidad de trabajo.
func (uc *OrderUseCase) Cancel(ctx context.Context, orderID, reason string) (*entity.Order, error) {
	var from entity.OrderState
	out, err := uc.mutate(ctx, "order_cancel", orderID, func(repos repository.Repositories, o *entity.Order, now time.Time) ([]*entity.StockItem, error) {
		from = o.State
		if err := o.Cancel(reason, now); err != nil {
			return nil, err
		}
		return uc.deps.Reservations.ReleaseReservationInTx(ctx, repos, o.ID)
	})
	if err != nil {
		return nil, err
	}
	uc.deps.Metrics.Transition(string(from), string(out.State))
	uc.deps.Log.Info().Str("order_id", out.ID).Str("reason", reason).Msg("orden cancelada")
	return out, nil
}

// ReadyShipment deja un envío listo para despacho.
func (uc *OrderUseCase) ReadyShipment(ctx context.Context, orderID, shipmentID string) (*entity.Order, error) {
	return uc.mutate(ctx, "shipment_ready", orderID, func(_ repository.Repositories, o *entity.Order, now time.Time) ([]*entity.StockItem, error) {
		return nil, o.ReadyShipment(shipmentID, now)
	})
}

// ShipShipment despacha un envío listo: sus unidades pasan a Shipped con un movimiento Sold
// por cada StockItem involucrado.
func (uc *OrderUseCase) ShipShipment(ctx context.Context, orderID, shipmentID, trackingNumber string) (*entity.Order, error) {
	return uc.mutate(ctx, "shipment_ship", orderID, func(repos repository.Repositories, o *entity.Order, now time.Time) ([]*entity.StockItem, error) {
		sh := o.Shipment(shipmentID)
		if sh == nil {
			return nil, domain.ErrShipmentNotFound
		}
		if !sh.CanTransitionTo(entity.ShipmentShipped) {
			return nil, domain.ErrInvalidTransition.Withf("envío %s en estado %s", sh.Number, sh.State)
		}
		seen := make(map[string]bool, len(sh.Items))
		var touched []*entity.StockItem
		for _, it := range sh.Items {
			if seen[it.VariantID] {
				continue
			}
			seen[it.VariantID] = true
			item, err := repos.StockItems.GetByVariantLocationForUpdate(ctx, it.VariantID, sh.StockLocationID, repository.StockItemUnits)
			if err != nil {
				return nil, err
			}
			n, err := item.ShipUnits(o.ID, sh.ID, now)
			if err != nil {
				return nil, err
			}
			if n > 0 {
				uc.deps.Metrics.Movement(string(entity.MovementSold))
				touched = append(touched, item)
			}
		}
		if err := o.MarkShipmentShipped(shipmentID, trackingNumber, now); err != nil {
			return nil, err
		}
		for _, item := range touched {
			if err := repos.StockItems.Save(ctx, item); err != nil {
				return nil, err
			}
		}
		return touched, nil
	})
}

// CancelShipment anula un envío no despachado y libera sus unidades.
func (uc *OrderUseCase) CancelShipment(ctx context.Context, orderID, shipmentID string) (*entity.Order, error) {
	return uc.mutate(ctx, "shipment_cancel", orderID, func(repos repository.Repositories, o *entity.Order, now time.Time) ([]*entity.StockItem, error) {
		sh := o.Shipment(shipmentID)
		if sh == nil {
			return nil, domain.ErrShipmentNotFound
		}
		if err := o.CancelShipment(shipmentID, now); err != nil {
			return nil, err
		}
		return uc.deps.Reservations.ReleaseShipmentInTx(ctx, repos, o.ID, *sh)
	})
}

type orderStep func(repos repository.Repositories, o *entity.Order, now time.Time) ([]*entity.StockItem, error)

// mutate repite la unidad de trabajo ante conflictos de versión y publica la disponibilidad
// de los StockItem tocados tras el commit.
func (uc *OrderUseCase) mutate(ctx context.Context, operation, orderID string, step orderStep) (*entity.Order, error) {
	var (
		out     *entity.Order
		touched []*entity.StockItem
	)
	err := inventory.RetryOnConflict(ctx, uc.deps.Retry, uc.deps.Metrics, uc.deps.Log, operation, func() error {
		var err error
		out, err = uc.inTx(ctx, orderID, 0, func(repos repository.Repositories, o *entity.Order, now time.Time) ([]*entity.StockItem, error) {
			items, err := step(repos, o, now)
			touched = items
			return items, err
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.publish(ctx, touched)
	return out, nil
}

// inTx carga la orden bloqueada, aplica step y guarda la orden; los StockItem los guarda el
// propio step. Con expectedVersion > 0 la orden debe seguir en esa versión.
func (uc *OrderUseCase) inTx(ctx context.Context, orderID string, expectedVersion int64, step orderStep) (*entity.Order, error) {
	var out *entity.Order
	err := uc.deps.Tx.Run(ctx, func(repos repository.Repositories) error {
		o, err := repos.Orders.GetForUpdate(ctx, orderID, repository.OrderFull)
		if err != nil {
			return err
		}
		if expectedVersion > 0 && o.Version != expectedVersion {
			return domain.ErrConcurrencyConflict.Withf("orden %s cambió durante el cálculo", orderID)
		}
		if _, err := step(repos, o, time.Now()); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := repos.Orders.Save(ctx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *OrderUseCase) publish(ctx context.Context, items []*entity.StockItem) {
	if uc.deps.Reservations == nil || len(items) == 0 {
		return
	}
	uc.deps.Reservations.Publish(ctx, items)
}
