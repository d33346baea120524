package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/commerce-core/internal/application/dto"
	"github.com/jhoicas/commerce-core/internal/domain"
)

// statusFor traduce la clase del error de dominio a código HTTP.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return fiber.StatusBadRequest
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindConflict:
		return fiber.StatusConflict
	case domain.KindRuleViolation:
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}

// writeError responde con el código estable del dominio; los errores desconocidos son 500.
func writeError(c *fiber.Ctx, err error) error {
	kind := domain.KindOf(err)
	if kind == "" {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
	}
	return c.Status(statusFor(kind)).JSON(dto.ErrorResponse{Code: domain.CodeOf(err), Message: err.Error()})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
}

// page lee limit y offset de la query con los valores por defecto.
func page(c *fiber.Ctx) dto.PageRequest {
	var p dto.PageRequest
	_ = c.QueryParser(&p)
	p.DefaultPage()
	return p
}
