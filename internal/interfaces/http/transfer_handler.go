package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/commerce-core/internal/application/dto"
	"github.com/jhoicas/commerce-core/internal/application/inventory"
	"github.com/jhoicas/commerce-core/internal/domain"
	"github.com/jhoicas/commerce-core/internal/domain/entity"
)

// TransferHandler maneja el flujo de transferencias entre ubicaciones.
type TransferHandler struct {
	uc    *inventory.TransferUseCase
	scope storeScope
}

// NewTransferHandler construye el handler. locations limita el acceso a la tienda del token.
func NewTransferHandler(uc *inventory.TransferUseCase, locations *inventory.LocationUseCase) *TransferHandler {
	return &TransferHandler{uc: uc, scope: storeScope{locations: locations}}
}

// Create godoc
// @Summary      Crear transferencia
// @Description  Crea una transferencia en borrador entre dos ubicaciones de la tienda.
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateTransferRequest  true  "origen, destino y referencia"
// @Success      201   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/transfers [post]
func (h *TransferHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	for _, id := range []string{in.SourceLocationID, in.DestinationLocationID} {
		if id == "" {
			continue
		}
		if err := h.scope.ownLocation(c, id, domain.ErrLocationNotFound); err != nil {
			return writeError(c, err)
		}
	}
	tr, err := h.uc.Create(c.UserContext(), in.SourceLocationID, in.DestinationLocationID, in.Reference)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToTransferResponse(tr))
}

// GetByID godoc
// @Summary      Obtener transferencia
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la transferencia"
// @Success      200  {object}  dto.TransferResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id} [get]
func (h *TransferHandler) GetByID(c *fiber.Ctx) error {
	return h.guarded(c, func(tr *entity.StockTransfer) (*entity.StockTransfer, error) {
		return tr, nil
	})
}

// ListByLocation godoc
// @Summary      Listar transferencias de una ubicación
// @Description  Transferencias donde la ubicación es origen o destino.
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id      path      string  true   "ID de la ubicación"
// @Param        status  query     string  false  "DRAFT, IN_TRANSIT, RECEIVED o CANCELED"
// @Param        limit   query     int     false  "Tamaño de página"
// @Param        offset  query     int     false  "Desplazamiento"
// @Success      200     {object}  map[string]interface{}
// @Failure      404     {object}  dto.ErrorResponse
// @Router       /api/locations/{id}/transfers [get]
func (h *TransferHandler) ListByLocation(c *fiber.Ctx) error {
	if err := h.scope.ownLocation(c, c.Params("id"), domain.ErrLocationNotFound); err != nil {
		return writeError(c, err)
	}
	p := page(c)
	list, err := h.uc.ListByLocation(c.UserContext(), c.Params("id"), entity.TransferStatus(c.Query("status")), p.Limit, p.Offset)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.TransferResponse, 0, len(list))
	for _, tr := range list {
		out = append(out, dto.ToTransferResponse(tr))
	}
	return c.JSON(fiber.Map{"items": out, "page": dto.PageResponse{Limit: p.Limit, Offset: p.Offset}})
}

// AddItem godoc
// @Summary      Agregar ítem a la transferencia
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                   true  "ID de la transferencia"
// @Param        body  body      dto.TransferItemRequest  true  "variante y cantidad"
// @Success      200   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/items [post]
func (h *TransferHandler) AddItem(c *fiber.Ctx) error {
	var in dto.TransferItemRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	return h.guarded(c, func(tr *entity.StockTransfer) (*entity.StockTransfer, error) {
		return h.uc.AddItem(c.UserContext(), tr.ID, in.VariantID, in.Quantity)
	})
}

// RemoveItem godoc
// @Summary      Quitar ítem de la transferencia
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id          path      string  true  "ID de la transferencia"
// @Param        variant_id  path      string  true  "ID de la variante"
// @Success      200         {object}  dto.TransferResponse
// @Failure      404         {object}  dto.ErrorResponse
// @Failure      422         {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/items/{variant_id} [delete]
func (h *TransferHandler) RemoveItem(c *fiber.Ctx) error {
	return h.guarded(c, func(tr *entity.StockTransfer) (*entity.StockTransfer, error) {
		return h.uc.RemoveItem(c.UserContext(), tr.ID, c.Params("variant_id"))
	})
}

// Ship godoc
// @Summary      Despachar transferencia
// @Description  Descuenta cada ítem en el origen; si alguno falla no se descuenta nada.
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la transferencia"
// @Success      200  {object}  dto.TransferResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/ship [post]
func (h *TransferHandler) Ship(c *fiber.Ctx) error {
	return h.guarded(c, func(tr *entity.StockTransfer) (*entity.StockTransfer, error) {
		return h.uc.Ship(c.UserContext(), tr.ID)
	})
}

// Receive godoc
// @Summary      Recibir transferencia
// @Description  Ingresa cada ítem en el destino, creando el registro de stock si no existe.
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la transferencia"
// @Success      200  {object}  dto.TransferResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/receive [post]
func (h *TransferHandler) Receive(c *fiber.Ctx) error {
	return h.guarded(c, func(tr *entity.StockTransfer) (*entity.StockTransfer, error) {
		return h.uc.Receive(c.UserContext(), tr.ID)
	})
}

// Cancel godoc
// @Summary      Cancelar transferencia
// @Description  En tránsito repone el origen con movimientos de corrección.
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la transferencia"
// @Success      200  {object}  dto.TransferResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/cancel [post]
func (h *TransferHandler) Cancel(c *fiber.Ctx) error {
	return h.guarded(c, func(tr *entity.StockTransfer) (*entity.StockTransfer, error) {
		return h.uc.Cancel(c.UserContext(), tr.ID)
	})
}

// guarded carga la transferencia de :id, verifica que su origen sea de la tienda del token
// y aplica el comando.
func (h *TransferHandler) guarded(c *fiber.Ctx, cmd func(tr *entity.StockTransfer) (*entity.StockTransfer, error)) error {
	cur, err := h.uc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	if err := h.scope.ownLocation(c, cur.SourceLocationID, domain.ErrTransferNotFound); err != nil {
		return writeError(c, err)
	}
	tr, err := cmd(cur)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToTransferResponse(tr))
}
