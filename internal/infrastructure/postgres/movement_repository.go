package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jhoicas/commerce-core/internal/domain/entity"
	"github.com/jhoicas/commerce-core/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo es la vista de lectura del ledger de movimientos.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const movementColumns = `id, stock_item_id, quantity_delta, type, unit_cost, reason, reference, created_at`

// ListByStockItem lista en orden cronológico, opcionalmente acotado por fechas.
func (r *StockMovementRepo) ListByStockItem(ctx context.Context, stockItemID string, from, to *time.Time, limit, offset int) ([]entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE stock_item_id = $1`
	args := []any{stockItemID}
	if from != nil {
		args = append(args, *from)
		query += ` AND created_at >= $` + strconv.Itoa(len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += ` AND created_at < $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at, seq`
	page, args := limitClause(limit, offset, args)
	return r.list(ctx, query+page, args...)
}

// ListByReference devuelve los movimientos de una orden o transferencia.
func (r *StockMovementRepo) ListByReference(ctx context.Context, reference string) ([]entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE reference = $1 ORDER BY created_at, seq`
	return r.list(ctx, query, reference)
}

func (r *StockMovementRepo) list(ctx context.Context, query string, args ...any) ([]entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	var out []entity.StockMovement
	for rows.Next() {
		var m entity.StockMovement
		if err := rows.Scan(&m.ID, &m.StockItemID, &m.QuantityDelta, &m.Type, &m.UnitCost,
			&m.Reason, &m.Reference, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
