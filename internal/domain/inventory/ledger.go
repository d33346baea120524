package inventory

import (
	"github.com/jhoicas/commerce-core/internal/domain"
	"github.com/jhoicas/commerce-core/internal/domain/entity"
)

// LedgerReport resume la conciliación de un StockItem contra sus movimientos.
type LedgerReport struct {
	StockItemID    string
	QuantityOnHand int
	LedgerBalance  int
	MovementCount  int
	ByType         map[entity.MovementType]int
}

// Balanced indica si el ledger cuadra con el stock físico.
func (r LedgerReport) Balanced() bool {
	return r.QuantityOnHand == r.LedgerBalance
}

// SummarizeMovements totaliza los deltas por tipo. Todos los tipos aparecen, aunque sumen cero.
func SummarizeMovements(movements []entity.StockMovement) map[entity.MovementType]int {
	out := make(map[entity.MovementType]int, len(entity.MovementTypes()))
	for _, t := range entity.MovementTypes() {
		out[t] = 0
	}
	for _, m := range movements {
		out[m.Type] += m.QuantityDelta
	}
	return out
}

// ReconcileLedger compara el stock en mano con la suma de todos sus movimientos.
// Devuelve el reporte y ErrLedgerMismatch si no cuadran o si hay movimientos de otro registro.
func ReconcileLedger(item *entity.StockItem, movements []entity.StockMovement) (LedgerReport, error) {
	report := LedgerReport{
		StockItemID:    item.ID,
		QuantityOnHand: item.QuantityOnHand,
		MovementCount:  len(movements),
		ByType:         SummarizeMovements(movements),
	}
	for _, m := range movements {
		if m.StockItemID != item.ID {
			return report, domain.ErrLedgerMismatch.Withf("movimiento %s pertenece a %s", m.ID, m.StockItemID)
		}
		if !m.Type.Valid() {
			return report, domain.ErrInvalidMovementType.Withf("movimiento %s: %q", m.ID, m.Type)
		}
		report.LedgerBalance += m.QuantityDelta
	}
	if !report.Balanced() {
		return report, domain.ErrLedgerMismatch.Withf("en mano %d, ledger %d", report.QuantityOnHand, report.LedgerBalance)
	}
	return report, nil
}
