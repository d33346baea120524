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

var (
	_ repository.StockLocationRepository  = (*StockLocationRepo)(nil)
	_ repository.VariantRepository        = (*VariantRepo)(nil)
	_ repository.ShippingMethodRepository = (*ShippingMethodRepo)(nil)
)

// StockLocationRepo persiste ubicaciones de stock.
type StockLocationRepo struct {
	q Querier
}

// NewStockLocationRepository construye el adaptador.
func NewStockLocationRepository(q Querier) *StockLocationRepo {
	return &StockLocationRepo{q: q}
}

func (r *StockLocationRepo) Create(ctx context.Context, l *entity.StockLocation) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_locations (id, store_id, name, address, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		l.ID, l.StoreID, l.Name, l.Address, l.Active, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create location: %w", duplicateOr(err, "ubicación "+l.ID))
	}
	return nil
}

const locationColumns = `id, store_id, name, address, active, created_at, updated_at`

func scanLocation(row pgx.Row) (*entity.StockLocation, error) {
	var l entity.StockLocation
	if err := row.Scan(&l.ID, &l.StoreID, &l.Name, &l.Address, &l.Active, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *StockLocationRepo) GetByID(ctx context.Context, id string) (*entity.StockLocation, error) {
	l, err := scanLocation(r.q.QueryRow(ctx, `SELECT `+locationColumns+` FROM stock_locations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLocationNotFound
		}
		return nil, fmt.Errorf("get location: %w", err)
	}
	return l, nil
}

// ListActiveByStore devuelve las ubicaciones activas en orden de creación (prioridad de despacho).
func (r *StockLocationRepo) ListActiveByStore(ctx context.Context, storeID string) ([]*entity.StockLocation, error) {
	rows, err := r.q.Query(ctx, `SELECT `+locationColumns+` FROM stock_locations
		WHERE store_id = $1 AND active ORDER BY created_at, id`, storeID)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()
	var out []*entity.StockLocation
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// VariantRepo lee y registra variantes del catálogo.
type VariantRepo struct {
	q Querier
}

// NewVariantRepository construye el adaptador.
func NewVariantRepository(q Querier) *VariantRepo {
	return &VariantRepo{q: q}
}

func (r *VariantRepo) Create(ctx context.Context, v *entity.Variant) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO variants (id, product_id, sku, name, price_cents, currency)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		v.ID, v.ProductID, v.SKU, v.Name, v.PriceCents, v.Currency)
	if err != nil {
		return fmt.Errorf("create variant: %w", duplicateOr(err, "variante "+v.ID))
	}
	return nil
}

func (r *VariantRepo) GetByID(ctx context.Context, id string) (*entity.Variant, error) {
	var v entity.Variant
	err := r.q.QueryRow(ctx, `SELECT id, product_id, sku, name, price_cents, currency FROM variants WHERE id = $1`, id).
		Scan(&v.ID, &v.ProductID, &v.SKU, &v.Name, &v.PriceCents, &v.Currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrVariantNotFound
		}
		return nil, fmt.Errorf("get variant: %w", err)
	}
	return &v, nil
}

// ShippingMethodRepo lee métodos de envío.
type ShippingMethodRepo struct {
	q Querier
}

// NewShippingMethodRepository construye el adaptador.
func NewShippingMethodRepository(q Querier) *ShippingMethodRepo {
	return &ShippingMethodRepo{q: q}
}

func (r *ShippingMethodRepo) GetByID(ctx context.Context, id string) (*entity.ShippingMethod, error) {
	var m entity.ShippingMethod
	err := r.q.QueryRow(ctx, `SELECT id, name, cost_cents, currency FROM shipping_methods WHERE id = $1`, id).
		Scan(&m.ID, &m.Name, &m.CostCents, &m.Currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrShippingMethodNotFound
		}
		return nil, fmt.Errorf("get shipping method: %w", err)
	}
	return &m, nil
}

func (r *ShippingMethodRepo) Create(ctx context.Context, m *entity.ShippingMethod) error {
	_, err := r.q.Exec(ctx, `INSERT INTO shipping_methods (id, name, cost_cents, currency) VALUES ($1, $2, $3, $4)`,
		m.ID, m.Name, m.CostCents, m.Currency)
	if err != nil {
		return fmt.Errorf("create shipping method: %w", duplicateOr(err, "método de envío "+m.ID))
	}
	return nil
}
