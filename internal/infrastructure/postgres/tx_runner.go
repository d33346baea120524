package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/commerce-core/internal/application/inventory"
	"github.com/jhoicas/commerce-core/internal/domain"
	"github.com/jhoicas/commerce-core/internal/domain/repository"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Repositories arma el juego de repositorios sobre un Querier (pool para lecturas, tx dentro de Run).
func Repositories(q Querier) repository.Repositories {
	return repository.Repositories{
		StockItems: NewStockItemRepository(q),
		Movements:  NewStockMovementRepository(q),
		Transfers:  NewStockTransferRepository(q),
		Orders:     NewOrderRepository(q),
		Locations:  NewStockLocationRepository(q),
	}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Los abortos por serialización o deadlock se reportan como conflicto de concurrencia.
func (r *TxRunner) Run(ctx context.Context, fn func(repos repository.Repositories) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(Repositories(tx)); err != nil {
		return asConflict(err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return asConflict(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// asConflict traduce 40001 (serialization_failure) y 40P01 (deadlock_detected).
func asConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return domain.ErrConcurrencyConflict.Withf("%s", pgErr.Message)
	}
	return err
}
