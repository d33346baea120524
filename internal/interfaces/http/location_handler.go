package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/commerce-core/internal/application/dto"
	"github.com/jhoicas/commerce-core/internal/application/inventory"
	"github.com/jhoicas/commerce-core/internal/domain"
)

// LocationHandler maneja las ubicaciones de stock de la tienda del token.
type LocationHandler struct {
	uc *inventory.LocationUseCase
}

// NewLocationHandler construye el handler.
func NewLocationHandler(uc *inventory.LocationUseCase) *LocationHandler {
	return &LocationHandler{uc: uc}
}

// Create godoc
// @Summary      Crear ubicación
// @Tags         locations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateLocationRequest  true  "nombre y dirección"
// @Success      201   {object}  dto.LocationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/locations [post]
func (h *LocationHandler) Create(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	var in dto.CreateLocationRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	loc, err := h.uc.Create(c.UserContext(), storeID, in.Name, in.Address)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToLocationResponse(loc))
}

// List godoc
// @Summary      Listar ubicaciones activas
// @Tags         locations
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   dto.LocationResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/locations [get]
func (h *LocationHandler) List(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	list, err := h.uc.ListActive(c.UserContext(), storeID)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.LocationResponse, 0, len(list))
	for _, l := range list {
		out = append(out, dto.ToLocationResponse(l))
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener ubicación
// @Description  Una ubicación de otra tienda se reporta como inexistente.
// @Tags         locations
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la ubicación"
// @Success      200  {object}  dto.LocationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/locations/{id} [get]
func (h *LocationHandler) GetByID(c *fiber.Ctx) error {
	loc, err := h.uc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	if loc.StoreID != GetStoreID(c) {
		return writeError(c, domain.ErrLocationNotFound)
	}
	return c.JSON(dto.ToLocationResponse(loc))
}
