package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/commerce-core/internal/application/dto"
	"github.com/jhoicas/commerce-core/internal/application/inventory"
	"github.com/jhoicas/commerce-core/internal/domain"
	"github.com/jhoicas/commerce-core/internal/domain/entity"
)

// StockHandler expone los registros de stock, su ledger y la disponibilidad por variante.
type StockHandler struct {
	uc    *inventory.StockUseCase
	scope storeScope
}

// NewStockHandler construye el handler. locations limita el acceso a la tienda del token.
func NewStockHandler(uc *inventory.StockUseCase, locations *inventory.LocationUseCase) *StockHandler {
	return &StockHandler{uc: uc, scope: storeScope{locations: locations}}
}

// Create godoc
// @Summary      Crear registro de stock
// @Description  Da de alta la variante en una ubicación de la tienda, opcionalmente con existencia inicial.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateStockItemRequest  true  "variant_id, stock_location_id, backorder e inicial"
// @Success      201   {object}  dto.StockItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock-items [post]
func (h *StockHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateStockItemRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if in.StockLocationID != "" {
		if err := h.scope.ownLocation(c, in.StockLocationID, domain.ErrLocationNotFound); err != nil {
			return writeError(c, err)
		}
	}
	item, err := h.uc.Create(c.UserContext(), inventory.CreateStockItemInput{
		VariantID:       in.VariantID,
		StockLocationID: in.StockLocationID,
		Backorderable:   in.Backorderable,
		BackorderLimit:  in.BackorderLimit,
		InitialQuantity: in.InitialQuantity,
		UnitCost:        in.UnitCost,
		Reference:       in.Reference,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToStockItemResponse(item))
}

// GetByID godoc
// @Summary      Obtener registro de stock
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del registro"
// @Success      200  {object}  dto.StockItemResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock-items/{id} [get]
func (h *StockHandler) GetByID(c *fiber.Ctx) error {
	item, err := h.owned(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToStockItemResponse(item))
}

// ListByLocation godoc
// @Summary      Listar stock de una ubicación
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id      path      string  true   "ID de la ubicación"
// @Param        limit   query     int     false  "Tamaño de página"
// @Param        offset  query     int     false  "Desplazamiento"
// @Success      200     {object}  map[string]interface{}
// @Failure      404     {object}  dto.ErrorResponse
// @Router       /api/locations/{id}/stock-items [get]
func (h *StockHandler) ListByLocation(c *fiber.Ctx) error {
	if err := h.scope.ownLocation(c, c.Params("id"), domain.ErrLocationNotFound); err != nil {
		return writeError(c, err)
	}
	p := page(c)
	items, err := h.uc.ListByLocation(c.UserContext(), c.Params("id"), p.Limit, p.Offset)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.StockItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, dto.ToStockItemResponse(it))
	}
	return c.JSON(fiber.Map{"items": out, "page": dto.PageResponse{Limit: p.Limit, Offset: p.Offset}})
}

// Adjust godoc
// @Summary      Ajustar existencia
// @Description  Aplica un delta con su tipo de movimiento y lo registra en el ledger.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                  true  "ID del registro"
// @Param        body  body      dto.AdjustStockRequest  true  "delta, type, unit_cost, reason, reference"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/stock-items/{id}/adjustments [post]
func (h *StockHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if _, err := h.owned(c); err != nil {
		return writeError(c, err)
	}
	mov, err := h.uc.AdjustStock(c.UserContext(), inventory.AdjustStockInput{
		StockItemID: c.Params("id"),
		Delta:       in.Delta,
		Type:        entity.MovementType(in.Type),
		UnitCost:    in.UnitCost,
		Reason:      in.Reason,
		Reference:   in.Reference,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToMovementResponses([]entity.StockMovement{*mov})[0])
}

// SetBackorderPolicy godoc
// @Summary      Cambiar política de backorder
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                      true  "ID del registro"
// @Param        body  body      dto.BackorderPolicyRequest  true  "backorderable y límite"
// @Success      200   {object}  dto.StockItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/stock-items/{id}/backorder [put]
func (h *StockHandler) SetBackorderPolicy(c *fiber.Ctx) error {
	var in dto.BackorderPolicyRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if _, err := h.owned(c); err != nil {
		return writeError(c, err)
	}
	item, err := h.uc.SetBackorderPolicy(c.UserContext(), c.Params("id"), in.Backorderable, in.Limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToStockItemResponse(item))
}

// Delete godoc
// @Summary      Dar de baja registro de stock
// @Description  Baja lógica; se rechaza mientras haya unidades reservadas.
// @Tags         stock
// @Security     Bearer
// @Param        id   path  string  true  "ID del registro"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/stock-items/{id} [delete]
func (h *StockHandler) Delete(c *fiber.Ctx) error {
	if _, err := h.owned(c); err != nil {
		return writeError(c, err)
	}
	if err := h.uc.Delete(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DamageUnit godoc
// @Summary      Marcar unidad como dañada
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Param        id       path  string                 true  "ID del registro"
// @Param        unit_id  path  string                 true  "ID de la unidad"
// @Param        body     body  dto.DamageUnitRequest  true  "motivo"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/stock-items/{id}/units/{unit_id}/damage [post]
func (h *StockHandler) DamageUnit(c *fiber.Ctx) error {
	var in dto.DamageUnitRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if _, err := h.owned(c); err != nil {
		return writeError(c, err)
	}
	if err := h.uc.DamageUnit(c.UserContext(), c.Params("id"), c.Params("unit_id"), in.Reason); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ReturnUnit godoc
// @Summary      Registrar devolución de unidad
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Param        id       path  string                 true  "ID del registro"
// @Param        unit_id  path  string                 true  "ID de la unidad"
// @Param        body     body  dto.ReturnUnitRequest  true  "restock"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/stock-items/{id}/units/{unit_id}/return [post]
func (h *StockHandler) ReturnUnit(c *fiber.Ctx) error {
	var in dto.ReturnUnitRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if _, err := h.owned(c); err != nil {
		return writeError(c, err)
	}
	if err := h.uc.ReturnUnit(c.UserContext(), c.Params("id"), c.Params("unit_id"), in.Restock); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Movements godoc
// @Summary      Listar movimientos del ledger
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id      path      string  true   "ID del registro"
// @Param        from    query     string  false  "Desde (RFC 3339, inclusive)"
// @Param        to      query     string  false  "Hasta (RFC 3339, exclusivo)"
// @Param        limit   query     int     false  "Tamaño de página"
// @Param        offset  query     int     false  "Desplazamiento"
// @Success      200     {object}  map[string]interface{}
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Router       /api/stock-items/{id}/movements [get]
func (h *StockHandler) Movements(c *fiber.Ctx) error {
	if _, err := h.owned(c); err != nil {
		return writeError(c, err)
	}
	from, err := queryTime(c, "from")
	if err != nil {
		return writeError(c, err)
	}
	to, err := queryTime(c, "to")
	if err != nil {
		return writeError(c, err)
	}
	p := page(c)
	movs, err := h.uc.ListMovements(c.UserContext(), c.Params("id"), from, to, p.Limit, p.Offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"items": dto.ToMovementResponses(movs), "page": dto.PageResponse{Limit: p.Limit, Offset: p.Offset}})
}

// Ledger godoc
// @Summary      Conciliar ledger
// @Description  Compara la existencia con la suma de movimientos. Un descuadre se informa con balanced=false.
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del registro"
// @Success      200  {object}  dto.LedgerResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock-items/{id}/ledger [get]
func (h *StockHandler) Ledger(c *fiber.Ctx) error {
	if _, err := h.owned(c); err != nil {
		return writeError(c, err)
	}
	report, err := h.uc.VerifyLedger(c.UserContext(), c.Params("id"))
	if err != nil && !errors.Is(err, domain.ErrLedgerMismatch) {
		return writeError(c, err)
	}
	return c.JSON(dto.ToLedgerResponse(report))
}

// Availability godoc
// @Summary      Disponibilidad de una variante
// @Description  Niveles por ubicación activa de la tienda. También en GET /api/stock/availability?variant_id=
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la variante"
// @Success      200  {object}  dto.AvailabilityResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/variants/{id}/availability [get]
func (h *StockHandler) Availability(c *fiber.Ctx) error {
	variantID := c.Params("id", c.Query("variant_id"))
	levels, err := h.uc.Availability(c.UserContext(), variantID)
	if err != nil {
		return writeError(c, err)
	}
	if levels, err = h.scope.filterLevels(c, levels); err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToAvailabilityResponse(variantID, levels))
}

// owned carga el registro de :id y verifica que su ubicación sea de la tienda del token.
func (h *StockHandler) owned(c *fiber.Ctx) (*entity.StockItem, error) {
	item, err := h.uc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return nil, err
	}
	if err := h.scope.ownLocation(c, item.StockLocationID, domain.ErrStockItemNotFound); err != nil {
		return nil, err
	}
	return item, nil
}

func queryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, domain.ErrInvalidInput.Withf("%s debe ser RFC 3339", key)
	}
	return &t, nil
}
