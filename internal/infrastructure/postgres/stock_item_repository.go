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

var _ repository.StockItemRepository = (*StockItemRepo)(nil)

// StockItemRepo implementación de StockItemRepository sobre PostgreSQL (usable con pool o tx).
// Los métodos ForUpdate solo bloquean dentro de una transacción.
type StockItemRepo struct {
	q Querier
}

// NewStockItemRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockItemRepository(q Querier) *StockItemRepo {
	return &StockItemRepo{q: q}
}

const stockItemColumns = `id, variant_id, stock_location_id, quantity_on_hand, quantity_reserved,
	backorderable, backorder_limit, average_cost, version, deleted_at, created_at, updated_at`

func scanStockItem(row pgx.Row) (*entity.StockItem, error) {
	var it entity.StockItem
	err := row.Scan(
		&it.ID, &it.VariantID, &it.StockLocationID, &it.QuantityOnHand, &it.QuantityReserved,
		&it.Backorderable, &it.BackorderLimit, &it.AverageCost, &it.Version, &it.DeletedAt,
		&it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Create inserta el registro con sus unidades y movimientos iniciales.
func (r *StockItemRepo) Create(ctx context.Context, item *entity.StockItem) error {
	query := `
		INSERT INTO stock_items (` + stockItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		item.ID, item.VariantID, item.StockLocationID, item.QuantityOnHand, item.QuantityReserved,
		item.Backorderable, item.BackorderLimit, item.AverageCost, item.DeletedAt,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate.Withf("la variante %s ya tiene stock en %s", item.VariantID, item.StockLocationID)
		}
		return fmt.Errorf("create stock item: %w", err)
	}
	if err := r.writeChildren(ctx, item); err != nil {
		return err
	}
	item.Version = 1
	return nil
}

func (r *StockItemRepo) getOne(ctx context.Context, where string, graph repository.StockItemGraph, lock bool, args ...any) (*entity.StockItem, error) {
	query := `SELECT ` + stockItemColumns + ` FROM stock_items WHERE ` + where
	if lock {
		query += ` FOR UPDATE`
	}
	it, err := scanStockItem(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStockItemNotFound
		}
		return nil, fmt.Errorf("get stock item: %w", err)
	}
	if err := r.loadGraph(ctx, it, graph); err != nil {
		return nil, err
	}
	return it, nil
}

// GetByID obtiene el registro con las colecciones pedidas.
func (r *StockItemRepo) GetByID(ctx context.Context, id string, graph repository.StockItemGraph) (*entity.StockItem, error) {
	return r.getOne(ctx, `id = $1`, graph, false, id)
}

// GetForUpdate obtiene el registro y bloquea la fila (SELECT FOR UPDATE).
func (r *StockItemRepo) GetForUpdate(ctx context.Context, id string, graph repository.StockItemGraph) (*entity.StockItem, error) {
	return r.getOne(ctx, `id = $1`, graph, true, id)
}

// GetByVariantLocation busca por variante y ubicación.
func (r *StockItemRepo) GetByVariantLocation(ctx context.Context, variantID, locationID string, graph repository.StockItemGraph) (*entity.StockItem, error) {
	return r.getOne(ctx, `variant_id = $1 AND stock_location_id = $2`, graph, false, variantID, locationID)
}

// GetByVariantLocationForUpdate busca por variante y ubicación bloqueando la fila.
func (r *StockItemRepo) GetByVariantLocationForUpdate(ctx context.Context, variantID, locationID string, graph repository.StockItemGraph) (*entity.StockItem, error) {
	return r.getOne(ctx, `variant_id = $1 AND stock_location_id = $2`, graph, true, variantID, locationID)
}

// ListReservedByOrder bloquea en orden de id los registros con unidades de la orden.
func (r *StockItemRepo) ListReservedByOrder(ctx context.Context, orderID string) ([]*entity.StockItem, error) {
	query := `
		SELECT ` + stockItemColumns + ` FROM stock_items
		WHERE id IN (SELECT DISTINCT stock_item_id FROM inventory_units
		             WHERE order_id = $1 AND state IN ('ON_HAND', 'BACKORDERED'))
		ORDER BY id
		FOR UPDATE`
	items, err := r.list(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if err := r.loadGraph(ctx, it, repository.StockItemUnits); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// ListByVariants lista los registros de las variantes, sin colecciones.
func (r *StockItemRepo) ListByVariants(ctx context.Context, variantIDs []string) ([]*entity.StockItem, error) {
	if len(variantIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + stockItemColumns + ` FROM stock_items WHERE variant_id = ANY($1) ORDER BY created_at, id`
	return r.list(ctx, query, variantIDs)
}

// ListByLocation lista los registros vigentes de la ubicación.
func (r *StockItemRepo) ListByLocation(ctx context.Context, locationID string, limit, offset int) ([]*entity.StockItem, error) {
	query := `SELECT ` + stockItemColumns + ` FROM stock_items
		WHERE stock_location_id = $1 AND deleted_at IS NULL ORDER BY created_at, id`
	page, args := limitClause(limit, offset, []any{locationID})
	return r.list(ctx, query+page, args...)
}

func (r *StockItemRepo) list(ctx context.Context, query string, args ...any) ([]*entity.StockItem, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock items: %w", err)
	}
	defer rows.Close()
	var out []*entity.StockItem
	for rows.Next() {
		it, err := scanStockItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Save actualiza la fila solo si la versión no cambió y agrega los movimientos nuevos.
func (r *StockItemRepo) Save(ctx context.Context, item *entity.StockItem) error {
	query := `
		UPDATE stock_items SET
			quantity_on_hand = $3, quantity_reserved = $4, backorderable = $5, backorder_limit = $6,
			average_cost = $7, deleted_at = $8, updated_at = $9, version = version + 1
		WHERE id = $1 AND version = $2`
	tag, err := r.q.Exec(ctx, query,
		item.ID, item.Version, item.QuantityOnHand, item.QuantityReserved, item.Backorderable,
		item.BackorderLimit, item.AverageCost, item.DeletedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save stock item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM stock_items WHERE id = $1)`, item.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check stock item: %w", err)
		}
		if !exists {
			return domain.ErrStockItemNotFound
		}
		return domain.ErrConcurrencyConflict.Withf("registro de stock %s", item.ID)
	}
	if err := r.writeChildren(ctx, item); err != nil {
		return err
	}
	item.Version++
	return nil
}

// writeChildren hace upsert de las unidades cargadas e inserta los movimientos pendientes.
func (r *StockItemRepo) writeChildren(ctx context.Context, item *entity.StockItem) error {
	batch := &pgx.Batch{}
	for _, u := range item.Units {
		batch.Queue(`
			INSERT INTO inventory_units (id, stock_item_id, variant_id, state, order_id, line_item_id,
				shipment_id, serial_number, lot_number, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO UPDATE SET
				state = EXCLUDED.state, order_id = EXCLUDED.order_id, line_item_id = EXCLUDED.line_item_id,
				shipment_id = EXCLUDED.shipment_id, updated_at = EXCLUDED.updated_at`,
			u.ID, item.ID, u.VariantID, u.State, nullable(u.OrderID), nullable(u.LineItemID),
			nullable(u.ShipmentID), nullable(u.SerialNumber), nullable(u.LotNumber), u.CreatedAt, u.UpdatedAt,
		)
	}
	movements := item.NewMovements()
	for _, m := range movements {
		batch.Queue(`
			INSERT INTO stock_movements (id, stock_item_id, quantity_delta, type, unit_cost, reason, reference, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			m.ID, m.StockItemID, m.QuantityDelta, m.Type, m.UnitCost, m.Reason, m.Reference, m.CreatedAt,
		)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := r.q.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("write stock item children: %w", err)
	}
	item.MarkPersisted()
	return nil
}

func (r *StockItemRepo) loadGraph(ctx context.Context, it *entity.StockItem, graph repository.StockItemGraph) error {
	if graph.Has(repository.StockItemUnits) {
		units, err := r.units(ctx, it.ID)
		if err != nil {
			return err
		}
		it.Units = units
	}
	if graph.Has(repository.StockItemMovements) {
		movs, err := NewStockMovementRepository(r.q).ListByStockItem(ctx, it.ID, nil, nil, 0, 0)
		if err != nil {
			return err
		}
		it.Movements = movs
	}
	return nil
}

func (r *StockItemRepo) units(ctx context.Context, stockItemID string) ([]entity.InventoryUnit, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, stock_item_id, variant_id, state, order_id, line_item_id, shipment_id,
			serial_number, lot_number, created_at, updated_at
		FROM inventory_units WHERE stock_item_id = $1 ORDER BY created_at, id`, stockItemID)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()
	var out []entity.InventoryUnit
	for rows.Next() {
		var (
			u                               entity.InventoryUnit
			orderID, lineItemID, shipmentID *string
			serialNumber, lotNumber         *string
		)
		if err := rows.Scan(&u.ID, &u.StockItemID, &u.VariantID, &u.State, &orderID, &lineItemID,
			&shipmentID, &serialNumber, &lotNumber, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		u.OrderID, u.LineItemID, u.ShipmentID = deref(orderID), deref(lineItemID), deref(shipmentID)
		u.SerialNumber, u.LotNumber = deref(serialNumber), deref(lotNumber)
		out = append(out, u)
	}
	return out, rows.Err()
}
