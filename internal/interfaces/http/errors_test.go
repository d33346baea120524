package http

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/commerce-core/internal/domain"
)

func TestWriteError_MapeaClases(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validación", domain.ErrZeroQuantityMovement, fiber.StatusBadRequest, "ZERO_QUANTITY_MOVEMENT"},
		{"no encontrado", domain.ErrOrderNotFound.Withf("R1"), fiber.StatusNotFound, "ORDER_NOT_FOUND"},
		{"conflicto envuelto", fmt.Errorf("save: %w", domain.ErrConcurrencyConflict), fiber.StatusConflict, "CONCURRENCY_CONFLICT"},
		{"regla", domain.ErrOutOfStock, fiber.StatusUnprocessableEntity, "OUT_OF_STOCK"},
		{"varios errores", errors.Join(domain.ErrMissingAddress, domain.ErrInvalidAddress), fiber.StatusBadRequest, "MISSING_ADDRESS"},
		{"infraestructura", errors.New("connection refused"), fiber.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return writeError(c, tt.err) })
			resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			body, _ := io.ReadAll(resp.Body)
			assert.Contains(t, string(body), `"code":"`+tt.code+`"`)
			if tt.status == fiber.StatusInternalServerError {
				assert.NotContains(t, string(body), "connection refused")
			}
		})
	}
}
