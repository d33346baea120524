package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/commerce-core/internal/application/dto"
	"github.com/jhoicas/commerce-core/internal/application/ordering"
	"github.com/jhoicas/commerce-core/internal/domain"
	"github.com/jhoicas/commerce-core/internal/domain/entity"
)

// OrderHandler maneja el checkout y la postventa de órdenes de la tienda del token.
type OrderHandler struct {
	uc *ordering.OrderUseCase
}

// NewOrderHandler construye el handler.
func NewOrderHandler(uc *ordering.OrderUseCase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

// Create godoc
// @Summary      Crear orden
// @Description  Carrito vacío en la tienda del token.
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateOrderRequest  true  "moneda y email"
// @Success      201  {object}  dto.OrderResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/orders [post]
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	var in dto.CreateOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	o, err := h.uc.Create(c.UserContext(), ordering.CreateOrderInput{
		StoreID:  storeID,
		Currency: in.Currency,
		UserID:   GetUserID(c),
		Email:    in.Email,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToOrderResponse(o))
}

// List godoc
// @Summary      Listar órdenes de la tienda
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Tamaño de página"
// @Param        offset  query  int  false  "Desplazamiento"
// @Success      200  {object}  dto.OrderListResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/orders [get]
func (h *OrderHandler) List(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	p := page(c)
	list, err := h.uc.ListByStore(c.UserContext(), storeID, p.Limit, p.Offset)
	if err != nil {
		return writeError(c, err)
	}
	out := dto.OrderListResponse{
		Items: make([]dto.OrderSummary, 0, len(list)),
		Page:  dto.PageResponse{Limit: p.Limit, Offset: p.Offset},
	}
	for _, o := range list {
		out.Items = append(out.Items, dto.ToOrderSummary(o))
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener orden
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la orden"
// @Success      200  {object}  dto.OrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetByID(c *fiber.Ctx) error {
	o, err := h.uc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	if o.StoreID != GetStoreID(c) {
		return writeError(c, domain.ErrOrderNotFound)
	}
	return c.JSON(dto.ToOrderResponse(o))
}

// AddVariant godoc
// @Summary      Agregar variante
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id  path  string  true  "ID de la orden"
// @Param        body  body  dto.AddVariantRequest  true  "variante, cantidad y precio opcional"
// @Success      200  {object}  dto.OrderResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/items [post]
func (h *OrderHandler) AddVariant(c *fiber.Ctx) error {
	var in dto.AddVariantRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	return h.guarded(c, func(id string) (*entity.Order, error) {
		return h.uc.AddVariant(c.UserContext(), id, in.VariantID, in.Quantity, in.PriceCents)
	})
}

// SetQuantity godoc
// @Summary      Cambiar cantidad de línea
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id  path  string  true  "ID de la orden"
// @Param        item_id  path  string  true  "ID de la línea"
// @Param        body  body  dto.SetQuantityRequest  true  "cantidad (0 elimina)"
// @Success      200  {object}  dto.OrderResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/items/{item_id} [put]
func (h *OrderHandler) SetQuantity(c *fiber.Ctx) error {
	var in dto.SetQuantityRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	return h.guarded(c, func(id string) (*entity.Order, error) {
		return h.uc.SetLineItemQuantity(c.UserContext(), id, c.Params("item_id"), in.Quantity)
	})
}

// RemoveItem godoc
// @Summary      Eliminar línea
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la orden"
// @Param        item_id  path  string  true  "ID de la línea"
// @Success      200  {object}  dto.OrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/items/{item_id} [delete]
func (h *OrderHandler) RemoveItem(c *fiber.Ctx) error {
	return h.guarded(c, func(id string) (*entity.Order, error) {
		return h.uc.RemoveLineItem(c.UserContext(), id, c.Params("item_id"))
	})
}

// SetAddresses godoc
// @Summary      Fijar direcciones
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id  path  string  true  "ID de la orden"
// @Param        body  body  dto.AddressesRequest  true  "envío y facturación"
// @Success      200  {object}  dto.OrderResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/addresses [put]
func (h *OrderHandler) SetAddresses(c *fiber.Ctx) error {
	var in dto.AddressesRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	return h.guarded(c, func(id string) (*entity.Order, error) {
		return h.uc.SetAddresses(c.UserContext(), id, in.Shipping, in.Billing)
	})
}

// SetShippingMethod godoc
// @Summary      Fijar método de envío
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id  path  string  true  "ID de la orden"
// @Param        body  body  dto.ShippingMethodRequest  true  "método y costo opcional"
// @Success      200  {object}  dto.OrderResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/shipping-method [put]
func (h *OrderHandler) SetShippingMethod(c *fiber.Ctx) error {
	var in dto.ShippingMethodRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	return h.guarded(c, func(id string) (*entity.Order, error) {
		return h.uc.SetShippingMethod(c.UserContext(), id, in.ShippingMethodID, in.CostCents)
	})
}

// AddAdjustment godoc
// @Summary      Agregar ajuste manual
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id  path  string  true  "ID de la orden"
// @Param        body  body  dto.AdjustmentRequest  true  "monto en centavos, etiqueta y línea opcional"
// @Success      200  {object}  dto.OrderResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/adjustments [post]
func (h *OrderHandler) AddAdjustment(c *fiber.Ctx) error {
	var in dto.AdjustmentRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	return h.guarded(c, func(id string) (*entity.Order, error) {
		return h.uc.AddManualAdjustment(c.UserContext(), id, in.AmountCents, in.Label, in.LineItemID)
	})
}

// ApplyPromotion godoc
// @Summary      Aplicar promoción
// @Description  Reemplaza los ajustes previos de la misma promoción.
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id  path  string  true  "ID de la orden"
// @Param        body  body  dto.PromotionRequest  true  "promoción"
// @Success      200  {object}  dto.OrderResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/promotions [post]
func (h *OrderHandler) ApplyPromotion(c *fiber.Ctx) error {
	var in dto.PromotionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	return h.guarded(c, func(id string) (*entity.Order, error) {
		return h.uc.ApplyPromotion(c.UserContext(), id, entity.Promotion{ID: in.ID, Code: in.Code, Name: in.Name})
	})
}

// AddPayment godoc
// @Summary      Registrar pago
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id  path  string  true  "ID de la orden"
// @Param        body  body  dto.PaymentRequest  true  "método y monto"
// @Success      200  {object}  dto.OrderResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/payments [post]
func (h *OrderHandler) AddPayment(c *fiber.Ctx) error {
	var in dto.PaymentRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	return h.guarded(c, func(id string) (*entity.Order, error) {
		return h.uc.AddPayment(c.UserContext(), id, in.Method, in.AmountCents)
	})
}

// PaymentAction godoc
// @Summary      Transición de pago
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la orden"
// @Param        payment_id  path  string  true  "ID del pago"
// @Param        action  path  string  true  "complete, fail, void o refund"
// @Success      200  {object}  dto.OrderResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/payments/{payment_id}/{action} [post]
func (h *OrderHandler) PaymentAction(c *fiber.Ctx) error {
	return h.guarded(c, func(id string) (*entity.Order, error) {
		return h.uc.TransitionPayment(c.UserContext(), id, c.Params("payment_id"), ordering.PaymentAction(c.Params("action")))
	})
}

// Next godoc
// @Summary      Avanzar orden
// @Description  Avanza un estado si se cumplen las guardas; al completar reserva el stock.
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la orden"
// @Success      200  {object}  dto.OrderResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/next [post]
func (h *OrderHandler) Next(c *fiber.Ctx) error {
	return h.guarded(c, func(id string) (*entity.Order, error) {
		return h.uc.Next(c.UserContext(), id)
	})
}

// Cancel godoc
// @Summary      Cancelar orden
// @Description  Anula pagos pendientes y envíos y libera las reservas.
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id  path  string  true  "ID de la orden"
// @Param        body  body  dto.CancelOrderRequest  false  "motivo"
// @Success      200  {object}  dto.OrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	var in dto.CancelOrderRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	return h.guarded(c, func(id string) (*entity.Order, error) {
		return h.uc.Cancel(c.UserContext(), id, in.Reason)
	})
}

// ReadyShipment godoc
// @Summary      Envío listo
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la orden"
// @Param        shipment_id  path  string  true  "ID del envío"
// @Success      200  {object}  dto.OrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/shipments/{shipment_id}/ready [post]
func (h *OrderHandler) ReadyShipment(c *fiber.Ctx) error {
	return h.guarded(c, func(id string) (*entity.Order, error) {
		return h.uc.ReadyShipment(c.UserContext(), id, c.Params("shipment_id"))
	})
}

// ShipShipment godoc
// @Summary      Despachar envío
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id  path  string  true  "ID de la orden"
// @Param        shipment_id  path  string  true  "ID del envío"
// @Param        body  body  dto.ShipRequest  false  "guía"
// @Success      200  {object}  dto.OrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/shipments/{shipment_id}/ship [post]
func (h *OrderHandler) ShipShipment(c *fiber.Ctx) error {
	var in dto.ShipRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	return h.guarded(c, func(id string) (*entity.Order, error) {
		return h.uc.ShipShipment(c.UserContext(), id, c.Params("shipment_id"), in.TrackingNumber)
	})
}

// CancelShipment godoc
// @Summary      Cancelar envío
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la orden"
// @Param        shipment_id  path  string  true  "ID del envío"
// @Success      200  {object}  dto.OrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/shipments/{shipment_id}/cancel [post]
func (h *OrderHandler) CancelShipment(c *fiber.Ctx) error {
	return h.guarded(c, func(id string) (*entity.Order, error) {
		return h.uc.CancelShipment(c.UserContext(), id, c.Params("shipment_id"))
	})
}

// guarded verifica que la orden sea de la tienda del token antes de aplicar el comando.
func (h *OrderHandler) guarded(c *fiber.Ctx, cmd func(orderID string) (*entity.Order, error)) error {
	orderID := c.Params("id")
	cur, err := h.uc.Get(c.UserContext(), orderID)
	if err != nil {
		return writeError(c, err)
	}
	if cur.StoreID != GetStoreID(c) {
		return writeError(c, domain.ErrOrderNotFound)
	}
	o, err := cmd(orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToOrderResponse(o))
}
