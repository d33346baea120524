package entity_test

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/commerce-core/internal/domain"
	"github.com/jhoicas/commerce-core/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// stockedItem crea un StockItem con onHand unidades ingresadas por el ledger.
func stockedItem(t *testing.T, onHand int, backorderable bool, limit int) *entity.StockItem {
	t.Helper()
	item, err := entity.NewStockItem("variant-1", "loc-1", testNow)
	require.NoError(t, err)
	if onHand > 0 {
		_, err = item.AdjustStock(onHand, entity.MovementReceived, decimal.NewFromInt(10), "ingreso inicial", "po-1", testNow)
		require.NoError(t, err)
	}
	require.NoError(t, item.SetBackorderPolicy(backorderable, limit, testNow))
	return item
}

func countUnits(item *entity.StockItem, orderID string, state entity.UnitState) int {
	n := 0
	for _, u := range item.Units {
		if u.OrderID == orderID && u.State == state {
			n++
		}
	}
	return n
}

// ──────────────────────────────────────────────────────────────────────────────
// AdjustStock
// ──────────────────────────────────────────────────────────────────────────────

func TestAdjustStock_DeltaCeroRechazado(t *testing.T) {
	item := stockedItem(t, 5, false, 0)
	_, err := item.AdjustStock(0, entity.MovementAdjustment, decimal.Zero, "", "", testNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrZeroQuantityMovement)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Len(t, item.Movements, 1, "no debe agregarse movimiento")
}

func TestAdjustStock_TipoInvalido(t *testing.T) {
	item := stockedItem(t, 5, false, 0)
	_, err := item.AdjustStock(1, entity.MovementType("GIFT"), decimal.Zero, "", "", testNow)
	assert.ErrorIs(t, err, domain.ErrInvalidMovementType)
}

func TestAdjustStock_NegativoSinBackorderFalla(t *testing.T) {
	item := stockedItem(t, 3, false, 0)
	_, err := item.AdjustStock(-4, entity.MovementLoss, decimal.Zero, "merma", "", testNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, domain.KindRuleViolation, domain.KindOf(err))
	assert.Equal(t, 3, item.QuantityOnHand, "el stock no debe cambiar")
}

func TestAdjustStock_BackorderRespetaLimite(t *testing.T) {
	item := stockedItem(t, 2, true, 3)

	_, err := item.AdjustStock(-5, entity.MovementSold, decimal.Zero, "", "", testNow)
	require.NoError(t, err, "puede quedar en -3 con límite 3")
	assert.Equal(t, -3, item.QuantityOnHand)

	_, err = item.AdjustStock(-1, entity.MovementSold, decimal.Zero, "", "", testNow)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock, "no puede bajar de -3")
	assert.Equal(t, -3, item.QuantityOnHand)
}

func TestAdjustStock_NoDejaStockBajoLoReservado(t *testing.T) {
	item := stockedItem(t, 10, false, 0)
	_, err := item.Reserve(8, "O1", "L1", testNow)
	require.NoError(t, err)

	_, err = item.AdjustStock(-3, entity.MovementLoss, decimal.Zero, "merma", "", testNow)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = item.AdjustStock(-2, entity.MovementLoss, decimal.Zero, "merma", "", testNow)
	assert.NoError(t, err)
	assert.Equal(t, 8, item.QuantityOnHand)
	assert.Equal(t, 8, item.QuantityReserved, "AdjustStock no toca reservas")
}

func TestAdjustStock_RegistraMovimiento(t *testing.T) {
	item := stockedItem(t, 0, false, 0)
	mov, err := item.AdjustStock(7, entity.MovementReceived, decimal.NewFromInt(12), "compra", "po-9", testNow)
	require.NoError(t, err)

	assert.Equal(t, 7, mov.QuantityDelta)
	assert.Equal(t, entity.MovementReceived, mov.Type)
	assert.Equal(t, "po-9", mov.Reference)
	assert.Equal(t, item.ID, mov.StockItemID)
	assert.Len(t, item.NewMovements(), 1)

	item.MarkPersisted()
	assert.Empty(t, item.NewMovements())
}

// Propiedad: para cualquier secuencia de AdjustStock, QuantityOnHand == suma de deltas.
func TestAdjustStock_LedgerConcilia(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	types := entity.MovementTypes()
	for run := 0; run < 50; run++ {
		item := stockedItem(t, 0, rng.Intn(2) == 0, rng.Intn(5))
		for i := 0; i < 40; i++ {
			delta := rng.Intn(21) - 10
			_, _ = item.AdjustStock(delta, types[rng.Intn(len(types))], decimal.Zero, "", "", testNow)
			require.Equal(t, item.LedgerBalance(), item.QuantityOnHand, "el ledger debe cuadrar en cada paso")
		}
	}
}

func TestAdjustStock_ReabastecerPromueveBackorder(t *testing.T) {
	item := stockedItem(t, 2, true, 5)
	_, err := item.Reserve(5, "O1", "L1", testNow)
	require.NoError(t, err)
	assert.Equal(t, 3, countUnits(item, "O1", entity.UnitBackordered))

	_, err = item.AdjustStock(2, entity.MovementReceived, decimal.Zero, "", "", testNow)
	require.NoError(t, err)
	assert.Equal(t, 4, countUnits(item, "O1", entity.UnitOnHand))
	assert.Equal(t, 1, countUnits(item, "O1", entity.UnitBackordered))
}

// ──────────────────────────────────────────────────────────────────────────────
// Reserve / Release
// ──────────────────────────────────────────────────────────────────────────────

func TestReserve_ReservaSimple(t *testing.T) {
	item := stockedItem(t, 10, false, 0)

	units, err := item.Reserve(10, "O1", "L1", testNow)
	require.NoError(t, err)

	assert.Equal(t, 10, item.QuantityReserved)
	assert.Len(t, units, 10)
	assert.Equal(t, 10, countUnits(item, "O1", entity.UnitOnHand))
	for _, u := range units {
		assert.Equal(t, "L1", u.LineItemID)
	}
}

func TestReserve_ConBackorder(t *testing.T) {
	item := stockedItem(t, 5, true, 3)

	_, err := item.Reserve(8, "O2", "L1", testNow)
	require.NoError(t, err)

	assert.Equal(t, 8, item.QuantityReserved)
	assert.Equal(t, 5, countUnits(item, "O2", entity.UnitOnHand))
	assert.Equal(t, 3, countUnits(item, "O2", entity.UnitBackordered))
}

func TestReserve_Rechazo(t *testing.T) {
	item := stockedItem(t, 5, false, 0)
	_, err := item.Reserve(5, "O0", "L0", testNow)
	require.NoError(t, err)
	unitsBefore := len(item.Units)

	_, err = item.Reserve(1, "O3", "L1", testNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOutOfStock)
	assert.Equal(t, 5, item.QuantityReserved)
	assert.Len(t, item.Units, unitsBefore, "no deben crearse unidades")
	assert.Zero(t, item.ReservedFor("O3"))
}

func TestReserve_BackorderExcedeLimite(t *testing.T) {
	item := stockedItem(t, 5, true, 3)
	_, err := item.Reserve(6, "O1", "L1", testNow)
	require.NoError(t, err)

	_, err = item.Reserve(3, "O2", "L1", testNow)
	assert.ErrorIs(t, err, domain.ErrOutOfStock, "la exposición existente cuenta contra el límite")
	_, err = item.Reserve(2, "O2", "L1", testNow)
	assert.NoError(t, err)
	assert.Equal(t, 8, item.QuantityReserved)
}

func TestReserve_CantidadInvalida(t *testing.T) {
	item := stockedItem(t, 5, false, 0)
	_, err := item.Reserve(0, "O1", "L1", testNow)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = item.Reserve(1, "", "L1", testNow)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// Propiedad: toda reserva exitosa respeta el máximo permitido.
func TestReserve_NuncaSobrevende(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for run := 0; run < 50; run++ {
		backorderable := rng.Intn(2) == 0
		limit := rng.Intn(4)
		item := stockedItem(t, rng.Intn(10), backorderable, limit)
		for i := 0; i < 20; i++ {
			_, err := item.Reserve(rng.Intn(4)+1, "O1", "L1", testNow)
			if err != nil {
				continue
			}
			if backorderable {
				require.LessOrEqual(t, item.QuantityReserved, item.QuantityOnHand+limit)
			} else {
				require.LessOrEqual(t, item.QuantityReserved, item.QuantityOnHand)
			}
		}
	}
}

func TestRelease_LiberaYEsIdempotente(t *testing.T) {
	item := stockedItem(t, 5, true, 3)
	_, err := item.Reserve(7, "O1", "L1", testNow)
	require.NoError(t, err)
	_, err = item.Reserve(1, "O2", "L1", testNow)
	require.NoError(t, err)

	released := item.Release(3, "O1", testNow)
	assert.Equal(t, 3, released)
	assert.Equal(t, 5, item.QuantityReserved)
	assert.Equal(t, 0, countUnits(item, "O1", entity.UnitBackordered), "primero se liberan las de backorder")

	released = item.ReleaseAll("O1", testNow)
	assert.Equal(t, 4, released)
	assert.Equal(t, 1, item.QuantityReserved)

	assert.Zero(t, item.ReleaseAll("O1", testNow))
	assert.Equal(t, 1, item.QuantityReserved, "O2 no se toca")
	assert.Equal(t, 1, item.ReservedFor("O2"))
}

func TestRelease_ReutilizaUnidadesLibres(t *testing.T) {
	item := stockedItem(t, 4, false, 0)
	_, err := item.Reserve(4, "O1", "L1", testNow)
	require.NoError(t, err)
	item.ReleaseAll("O1", testNow)

	_, err = item.Reserve(4, "O2", "L1", testNow)
	require.NoError(t, err)
	assert.Len(t, item.Units, 4, "las unidades liberadas vuelven al pool")
	assert.Equal(t, 4, item.ReservedFor("O2"))
}

func TestRelease_CubreBackorderDeOtraOrden(t *testing.T) {
	item := stockedItem(t, 5, true, 5)
	_, err := item.Reserve(5, "A", "LA", testNow)
	require.NoError(t, err)
	units, err := item.Reserve(3, "B", "LB", testNow)
	require.NoError(t, err)
	require.Equal(t, 3, countUnits(item, "B", entity.UnitBackordered))

	assert.Equal(t, 5, item.ReleaseAll("A", testNow))
	assert.Equal(t, 3, item.QuantityReserved)
	assert.Zero(t, item.BackorderedCount(), "el stock liberado cubre el backorder de B")
	assert.Equal(t, 3, countUnits(item, "B", entity.UnitOnHand))

	ids := []string{units[0].ID, units[1].ID, units[2].ID}
	item.AssignShipment(ids, "S", testNow)
	n, err := item.ShipUnits("B", "S", testNow)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, item.SetBackorderPolicy(false, 0, testNow))
}

func TestReleaseShipment_CubreBackorderDeOtraOrden(t *testing.T) {
	item := stockedItem(t, 2, true, 2)
	units, err := item.Reserve(2, "A", "LA", testNow)
	require.NoError(t, err)
	item.AssignShipment([]string{units[0].ID, units[1].ID}, "SA", testNow)
	_, err = item.Reserve(1, "B", "LB", testNow)
	require.NoError(t, err)
	require.Equal(t, 1, item.BackorderedCount())

	assert.Equal(t, 2, item.ReleaseShipment("A", "SA", testNow))
	assert.Zero(t, item.BackorderedCount())
	assert.Equal(t, 1, countUnits(item, "B", entity.UnitOnHand))
}

func TestReleaseUnits_SoloLasIndicadas(t *testing.T) {
	item := stockedItem(t, 5, false, 0)
	previas, err := item.Reserve(2, "O1", "L1", testNow)
	require.NoError(t, err)
	nuevas, err := item.Reserve(2, "O1", "L2", testNow)
	require.NoError(t, err)

	released := item.ReleaseUnits("O1", []string{nuevas[0].ID, nuevas[1].ID}, testNow)
	assert.Equal(t, 2, released)
	assert.Equal(t, 2, item.QuantityReserved)
	for _, u := range item.Units {
		switch u.ID {
		case previas[0].ID, previas[1].ID:
			assert.Equal(t, "O1", u.OrderID, "las reservas previas conservan su marca")
			assert.Equal(t, "L1", u.LineItemID)
		case nuevas[0].ID, nuevas[1].ID:
			assert.Empty(t, u.OrderID)
		}
	}
	assert.Zero(t, item.ReleaseUnits("O1", []string{nuevas[0].ID}, testNow), "ya liberada")
	assert.Zero(t, item.ReleaseUnits("O2", []string{previas[0].ID}, testNow), "otra orden")
}

// ──────────────────────────────────────────────────────────────────────────────
// Política de backorder y baja
// ──────────────────────────────────────────────────────────────────────────────

func TestSetBackorderPolicy(t *testing.T) {
	item := stockedItem(t, 2, true, 3)

	err := item.SetBackorderPolicy(true, -1, testNow)
	assert.ErrorIs(t, err, domain.ErrInvalidBackorderLimit)

	_, err = item.Reserve(4, "O1", "L1", testNow)
	require.NoError(t, err)

	err = item.SetBackorderPolicy(false, 0, testNow)
	assert.ErrorIs(t, err, domain.ErrBackorderedUnitsPending, "no se puede desactivar con unidades en backorder")
	err = item.SetBackorderPolicy(true, 1, testNow)
	assert.ErrorIs(t, err, domain.ErrBackorderedUnitsPending, "el nuevo límite no cubre la exposición")
	assert.True(t, item.Backorderable)
	assert.Equal(t, 3, item.BackorderLimit)

	item.ReleaseAll("O1", testNow)
	require.NoError(t, item.SetBackorderPolicy(false, 0, testNow))
	assert.False(t, item.Backorderable)
}

func TestSoftDelete(t *testing.T) {
	item := stockedItem(t, 2, false, 0)
	_, err := item.Reserve(1, "O1", "L1", testNow)
	require.NoError(t, err)
	assert.ErrorIs(t, item.SoftDelete(testNow), domain.ErrReservedUnitsPending)

	item.ReleaseAll("O1", testNow)
	require.NoError(t, item.SoftDelete(testNow))
	assert.True(t, item.IsDeleted())

	_, err = item.AdjustStock(1, entity.MovementReceived, decimal.Zero, "", "", testNow)
	assert.ErrorIs(t, err, domain.ErrStockItemDeleted)
	_, err = item.Reserve(1, "O2", "L1", testNow)
	assert.ErrorIs(t, err, domain.ErrStockItemDeleted)
}

// ──────────────────────────────────────────────────────────────────────────────
// Unidades: despacho, daño y devolución
// ──────────────────────────────────────────────────────────────────────────────

func TestShipUnits_RegistraVenta(t *testing.T) {
	item := stockedItem(t, 5, false, 0)
	units, err := item.Reserve(3, "O1", "L1", testNow)
	require.NoError(t, err)
	ids := []string{units[0].ID, units[1].ID, units[2].ID}
	item.AssignShipment(ids, "S1", testNow)

	n, err := item.ShipUnits("O1", "S1", testNow)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 2, item.QuantityOnHand)
	assert.Equal(t, 0, item.QuantityReserved)
	assert.Equal(t, 3, countUnits(item, "O1", entity.UnitShipped))
	last := item.Movements[len(item.Movements)-1]
	assert.Equal(t, entity.MovementSold, last.Type)
	assert.Equal(t, -3, last.QuantityDelta)
	assert.Equal(t, item.LedgerBalance(), item.QuantityOnHand)
}

func TestShipUnits_BackorderBloquea(t *testing.T) {
	item := stockedItem(t, 1, true, 2)
	units, err := item.Reserve(2, "O1", "L1", testNow)
	require.NoError(t, err)
	item.AssignShipment([]string{units[0].ID, units[1].ID}, "S1", testNow)

	_, err = item.ShipUnits("O1", "S1", testNow)
	assert.ErrorIs(t, err, domain.ErrBackorderedUnitsPending)
	assert.Equal(t, 2, item.QuantityReserved)
	assert.Equal(t, 1, item.QuantityOnHand)
}

func TestDamageAndReturnUnit(t *testing.T) {
	item := stockedItem(t, 3, false, 0)
	units, err := item.Reserve(2, "O1", "L1", testNow)
	require.NoError(t, err)

	require.NoError(t, item.DamageUnit(units[0].ID, "caída en bodega", testNow))
	assert.Equal(t, 2, item.QuantityOnHand)
	assert.Equal(t, 1, item.QuantityReserved)
	assert.Equal(t, entity.MovementLoss, item.Movements[len(item.Movements)-1].Type)

	err = item.ReturnUnit(units[1].ID, true, testNow)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "solo se devuelve lo despachado")

	item.AssignShipment([]string{units[1].ID}, "S1", testNow)
	_, err = item.ShipUnits("O1", "S1", testNow)
	require.NoError(t, err)
	require.NoError(t, item.ReturnUnit(units[1].ID, true, testNow))
	assert.Equal(t, 2, item.QuantityOnHand)
	assert.Equal(t, item.LedgerBalance(), item.QuantityOnHand)

	assert.True(t, errors.Is(item.DamageUnit("nope", "", testNow), domain.ErrUnitNotFound))
}

func TestClone_EsIndependiente(t *testing.T) {
	item := stockedItem(t, 3, false, 0)
	c := item.Clone()
	_, err := c.Reserve(2, "O1", "L1", testNow)
	require.NoError(t, err)
	assert.Zero(t, item.QuantityReserved)
	assert.Empty(t, item.Units)
}

func TestReleaseShipment_SoloUnidadesDelEnvio(t *testing.T) {
	item := stockedItem(t, 5, false, 0)
	units, err := item.Reserve(3, "O1", "L1", testNow)
	require.NoError(t, err)
	item.AssignShipment([]string{units[0].ID, units[1].ID}, "S1", testNow)
	item.AssignShipment([]string{units[2].ID}, "S2", testNow)

	assert.Equal(t, 2, item.ReleaseShipment("O1", "S1", testNow))
	assert.Equal(t, 1, item.QuantityReserved)
	assert.Equal(t, 1, item.ReservedFor("O1"))
	assert.Zero(t, item.ReleaseShipment("O1", "S1", testNow))

	lvl := item.Level()
	assert.Equal(t, 5, lvl.OnHand)
	assert.Equal(t, 1, lvl.Reserved)
	assert.Equal(t, 4, lvl.Available)
	assert.Equal(t, "loc-1", lvl.StockLocationID)
}
