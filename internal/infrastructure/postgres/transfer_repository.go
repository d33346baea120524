package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/commerce-core/internal/domain"
	"github.com/jhoicas/commerce-core/internal/domain/entity"
	"github.com/jhoicas/commerce-core/internal/domain/repository"
)

var _ repository.StockTransferRepository = (*StockTransferRepo)(nil)

// StockTransferRepo persiste transferencias con sus ítems.
type StockTransferRepo struct {
	q Querier
}

// NewStockTransferRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockTransferRepository(q Querier) *StockTransferRepo {
	return &StockTransferRepo{q: q}
}

const transferColumns = `id, source_location_id, destination_location_id, status, reference,
	shipped_at, received_at, canceled_at, version, created_at, updated_at`

func scanTransfer(row pgx.Row) (*entity.StockTransfer, error) {
	var t entity.StockTransfer
	if err := row.Scan(&t.ID, &t.SourceLocationID, &t.DestinationLocationID, &t.Status, &t.Reference,
		&t.ShippedAt, &t.ReceivedAt, &t.CanceledAt, &t.Version, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserta la transferencia en borrador con sus ítems.
func (r *StockTransferRepo) Create(ctx context.Context, t *entity.StockTransfer) error {
	query := `INSERT INTO stock_transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $10)`
	_, err := r.q.Exec(ctx, query, t.ID, t.SourceLocationID, t.DestinationLocationID, t.Status, t.Reference,
		t.ShippedAt, t.ReceivedAt, t.CanceledAt, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create transfer: %w", duplicateOr(err, "transferencia "+t.ID))
	}
	if err := r.replaceItems(ctx, t); err != nil {
		return err
	}
	t.Version = 1
	return nil
}

func (r *StockTransferRepo) get(ctx context.Context, id string, lock bool) (*entity.StockTransfer, error) {
	query := `SELECT ` + transferColumns + ` FROM stock_transfers WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	t, err := scanTransfer(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransferNotFound
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	if err := r.loadItems(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetByID obtiene la transferencia con sus ítems.
func (r *StockTransferRepo) GetByID(ctx context.Context, id string) (*entity.StockTransfer, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate obtiene la transferencia bloqueando la fila.
func (r *StockTransferRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockTransfer, error) {
	return r.get(ctx, id, true)
}

// ListByLocation lista transferencias que salen o llegan a la ubicación; status vacío no filtra.
func (r *StockTransferRepo) ListByLocation(ctx context.Context, locationID string, status entity.TransferStatus, limit, offset int) ([]*entity.StockTransfer, error) {
	query := `SELECT ` + transferColumns + ` FROM stock_transfers
		WHERE (source_location_id = $1 OR destination_location_id = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, id`
	page, args := limitClause(limit, offset, []any{locationID, string(status)})
	rows, err := r.q.Query(ctx, query+page, args...)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	var out []*entity.StockTransfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		out = append(out, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, t := range out {
		if err := r.loadItems(ctx, t); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Save aplica control de versión y reemplaza los ítems.
func (r *StockTransferRepo) Save(ctx context.Context, t *entity.StockTransfer) error {
	query := `
		UPDATE stock_transfers SET
			status = $3, reference = $4, shipped_at = $5, received_at = $6, canceled_at = $7,
			updated_at = $8, version = version + 1
		WHERE id = $1 AND version = $2`
	tag, err := r.q.Exec(ctx, query, t.ID, t.Version, t.Status, t.Reference,
		t.ShippedAt, t.ReceivedAt, t.CanceledAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save transfer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.get(ctx, t.ID, false); err != nil {
			return err
		}
		return domain.ErrConcurrencyConflict.Withf("transferencia %s", t.ID)
	}
	if err := r.replaceItems(ctx, t); err != nil {
		return err
	}
	t.Version++
	return nil
}

func (r *StockTransferRepo) replaceItems(ctx context.Context, t *entity.StockTransfer) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM stock_transfer_items WHERE transfer_id = $1`, t.ID)
	for i, it := range t.Items {
		batch.Queue(`INSERT INTO stock_transfer_items (id, transfer_id, variant_id, quantity, position)
			VALUES ($1, $2, $3, $4, $5)`, it.ID, t.ID, it.VariantID, it.Quantity, i)
	}
	if err := r.q.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("write transfer items: %w", err)
	}
	return nil
}

func (r *StockTransferRepo) loadItems(ctx context.Context, t *entity.StockTransfer) error {
	rows, err := r.q.Query(ctx, `SELECT id, transfer_id, variant_id, quantity
		FROM stock_transfer_items WHERE transfer_id = $1 ORDER BY position`, t.ID)
	if err != nil {
		return fmt.Errorf("list transfer items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.StockTransferItem
		if err := rows.Scan(&it.ID, &it.TransferID, &it.VariantID, &it.Quantity); err != nil {
			return fmt.Errorf("scan transfer item: %w", err)
		}
		t.Items = append(t.Items, it)
	}
	return rows.Err()
}
