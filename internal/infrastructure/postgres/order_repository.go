package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/commerce-core/internal/domain"
	"github.com/jhoicas/commerce-core/internal/domain/entity"
	"github.com/jhoicas/commerce-core/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo persiste el agregado Order: la fila raíz más líneas, ajustes, pagos, envíos e historial.
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

const orderColumns = `id, store_id, number, currency, user_id, email, state, shipping_address, billing_address,
	shipping_method_id, item_total_cents, adjustment_total_cents, shipping_total_cents, payment_total_cents,
	total_cents, completed_at, canceled_at, version, created_at, updated_at`

func scanOrder(row pgx.Row) (*entity.Order, error) {
	var (
		o                 entity.Order
		shipping, billing []byte
	)
	err := row.Scan(&o.ID, &o.StoreID, &o.Number, &o.Currency, &o.UserID, &o.Email, &o.State,
		&shipping, &billing, &o.ShippingMethodID, &o.ItemTotalCents, &o.AdjustmentTotalCents,
		&o.ShippingTotalCents, &o.PaymentTotalCents, &o.TotalCents, &o.CompletedAt, &o.CanceledAt,
		&o.Version, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if o.ShippingAddress, err = decodeAddress(shipping); err != nil {
		return nil, err
	}
	if o.BillingAddress, err = decodeAddress(billing); err != nil {
		return nil, err
	}
	return &o, nil
}

func decodeAddress(raw []byte) (*entity.Address, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var a entity.Address
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}
	return &a, nil
}

func encodeAddress(a *entity.Address) ([]byte, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// Create inserta la orden completa.
func (r *OrderRepo) Create(ctx context.Context, o *entity.Order) error {
	shipping, billing, err := addresses(o)
	if err != nil {
		return err
	}
	query := `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, 1, $18, $19)`
	_, err = r.q.Exec(ctx, query, o.ID, o.StoreID, o.Number, o.Currency, o.UserID, o.Email, o.State,
		shipping, billing, o.ShippingMethodID, o.ItemTotalCents, o.AdjustmentTotalCents,
		o.ShippingTotalCents, o.PaymentTotalCents, o.TotalCents, o.CompletedAt, o.CanceledAt,
		o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create order: %w", duplicateOr(err, "orden "+o.Number))
	}
	if err := r.writeChildren(ctx, o); err != nil {
		return err
	}
	o.Version = 1
	return nil
}

func addresses(o *entity.Order) ([]byte, []byte, error) {
	shipping, err := encodeAddress(o.ShippingAddress)
	if err != nil {
		return nil, nil, fmt.Errorf("encode address: %w", err)
	}
	billing, err := encodeAddress(o.BillingAddress)
	if err != nil {
		return nil, nil, fmt.Errorf("encode address: %w", err)
	}
	return shipping, billing, nil
}

func (r *OrderRepo) get(ctx context.Context, id string, graph repository.OrderGraph, lock bool) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	o, err := scanOrder(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := r.loadGraph(ctx, o, graph); err != nil {
		return nil, err
	}
	return o, nil
}

// GetByID obtiene la orden con las partes pedidas.
func (r *OrderRepo) GetByID(ctx context.Context, id string, graph repository.OrderGraph) (*entity.Order, error) {
	return r.get(ctx, id, graph, false)
}

// GetForUpdate obtiene la orden bloqueando la fila raíz.
func (r *OrderRepo) GetForUpdate(ctx context.Context, id string, graph repository.OrderGraph) (*entity.Order, error) {
	return r.get(ctx, id, graph, true)
}

// ListByStore lista las órdenes de la tienda, más recientes primero, sin hijos.
func (r *OrderRepo) ListByStore(ctx context.Context, storeID string, limit, offset int) ([]*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE store_id = $1 ORDER BY created_at DESC, id`
	page, args := limitClause(limit, offset, []any{storeID})
	rows, err := r.q.Query(ctx, query+page, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()
	var out []*entity.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Save actualiza la raíz con control de versión, reemplaza los hijos y agrega el historial nuevo.
func (r *OrderRepo) Save(ctx context.Context, o *entity.Order) error {
	shipping, billing, err := addresses(o)
	if err != nil {
		return err
	}
	query := `
		UPDATE orders SET
			email = $3, state = $4, shipping_address = $5, billing_address = $6, shipping_method_id = $7,
			item_total_cents = $8, adjustment_total_cents = $9, shipping_total_cents = $10,
			payment_total_cents = $11, total_cents = $12, completed_at = $13, canceled_at = $14,
			updated_at = $15, version = version + 1
		WHERE id = $1 AND version = $2`
	tag, err := r.q.Exec(ctx, query, o.ID, o.Version, o.Email, o.State, shipping, billing,
		o.ShippingMethodID, o.ItemTotalCents, o.AdjustmentTotalCents, o.ShippingTotalCents,
		o.PaymentTotalCents, o.TotalCents, o.CompletedAt, o.CanceledAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, o.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check order: %w", err)
		}
		if !exists {
			return domain.ErrOrderNotFound
		}
		return domain.ErrConcurrencyConflict.Withf("orden %s", o.ID)
	}
	if err := r.writeChildren(ctx, o); err != nil {
		return err
	}
	o.Version++
	return nil
}

// writeChildren borra y reinserta las colecciones editables; el historial solo se agrega.
func (r *OrderRepo) writeChildren(ctx context.Context, o *entity.Order) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM shipments WHERE order_id = $1`, o.ID)
	batch.Queue(`DELETE FROM payments WHERE order_id = $1`, o.ID)
	batch.Queue(`DELETE FROM adjustments WHERE order_id = $1`, o.ID)
	batch.Queue(`DELETE FROM line_items WHERE order_id = $1`, o.ID)

	pos := 0
	queueAdjustment := func(a entity.Adjustment) {
		batch.Queue(`INSERT INTO adjustments (id, order_id, line_item_id, source, promotion_id, label,
				amount_cents, position, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			a.ID, o.ID, nullable(a.LineItemID), a.Source, nullable(a.PromotionID), a.Label,
			a.AmountCents, pos, a.CreatedAt)
		pos++
	}
	for i, li := range o.LineItems {
		batch.Queue(`INSERT INTO line_items (id, order_id, variant_id, name, sku, quantity, price_cents,
				adjustment_total_cents, total_cents, position, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			li.ID, o.ID, li.VariantID, li.Name, li.SKU, li.Quantity, li.PriceCents,
			li.AdjustmentTotalCents, li.TotalCents, i, li.CreatedAt, li.UpdatedAt)
		for _, a := range li.Adjustments {
			queueAdjustment(a)
		}
	}
	for _, a := range o.Adjustments {
		queueAdjustment(a)
	}
	for i, p := range o.Payments {
		batch.Queue(`INSERT INTO payments (id, order_id, method, amount_cents, state, position, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, o.ID, p.Method, p.AmountCents, p.State, i, p.CreatedAt, p.UpdatedAt)
	}
	for i, s := range o.Shipments {
		batch.Queue(`INSERT INTO shipments (id, order_id, number, stock_location_id, state, tracking_number,
				shipped_at, position, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			s.ID, o.ID, s.Number, s.StockLocationID, s.State, s.TrackingNumber, s.ShippedAt, i,
			s.CreatedAt, s.UpdatedAt)
		for j, it := range s.Items {
			batch.Queue(`INSERT INTO shipment_items (shipment_id, line_item_id, variant_id, quantity, position)
				VALUES ($1, $2, $3, $4, $5)`, s.ID, it.LineItemID, it.VariantID, it.Quantity, j)
		}
	}
	for _, h := range o.NewHistories() {
		var ctxJSON []byte
		if len(h.Context) > 0 {
			raw, err := json.Marshal(h.Context)
			if err != nil {
				return fmt.Errorf("encode history context: %w", err)
			}
			ctxJSON = raw
		}
		batch.Queue(`INSERT INTO order_histories (id, order_id, from_state, to_state, description, context, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			h.ID, o.ID, h.FromState, h.ToState, h.Description, ctxJSON, h.CreatedAt)
	}
	if err := r.q.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("write order children: %w", err)
	}
	o.MarkPersisted()
	return nil
}

func (r *OrderRepo) loadGraph(ctx context.Context, o *entity.Order, graph repository.OrderGraph) error {
	if graph.Has(repository.OrderLineItems) {
		if err := r.loadLineItems(ctx, o); err != nil {
			return err
		}
	}
	if graph.Has(repository.OrderAdjustments) {
		if err := r.loadAdjustments(ctx, o); err != nil {
			return err
		}
	}
	if graph.Has(repository.OrderPayments) {
		if err := r.loadPayments(ctx, o); err != nil {
			return err
		}
	}
	if graph.Has(repository.OrderShipments) {
		if err := r.loadShipments(ctx, o); err != nil {
			return err
		}
	}
	if graph.Has(repository.OrderHistories) {
		if err := r.loadHistories(ctx, o); err != nil {
			return err
		}
	}
	if graph == repository.OrderFull {
		o.RecalculateTotals()
	}
	return nil
}

func (r *OrderRepo) loadLineItems(ctx context.Context, o *entity.Order) error {
	rows, err := r.q.Query(ctx, `SELECT id, variant_id, name, sku, quantity, price_cents,
			adjustment_total_cents, total_cents, created_at, updated_at
		FROM line_items WHERE order_id = $1 ORDER BY position`, o.ID)
	if err != nil {
		return fmt.Errorf("list line items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		li := entity.LineItem{OrderID: o.ID}
		if err := rows.Scan(&li.ID, &li.VariantID, &li.Name, &li.SKU, &li.Quantity, &li.PriceCents,
			&li.AdjustmentTotalCents, &li.TotalCents, &li.CreatedAt, &li.UpdatedAt); err != nil {
			return fmt.Errorf("scan line item: %w", err)
		}
		o.LineItems = append(o.LineItems, li)
	}
	return rows.Err()
}

// loadAdjustments reparte los ajustes entre la orden y sus líneas.
func (r *OrderRepo) loadAdjustments(ctx context.Context, o *entity.Order) error {
	rows, err := r.q.Query(ctx, `SELECT id, line_item_id, source, promotion_id, label, amount_cents, created_at
		FROM adjustments WHERE order_id = $1 ORDER BY position`, o.ID)
	if err != nil {
		return fmt.Errorf("list adjustments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			a                       entity.Adjustment
			lineItemID, promotionID *string
		)
		if err := rows.Scan(&a.ID, &lineItemID, &a.Source, &promotionID, &a.Label, &a.AmountCents, &a.CreatedAt); err != nil {
			return fmt.Errorf("scan adjustment: %w", err)
		}
		a.OrderID = o.ID
		a.LineItemID, a.PromotionID = deref(lineItemID), deref(promotionID)
		if li := o.LineItem(a.LineItemID); a.LineItemID != "" && li != nil {
			li.Adjustments = append(li.Adjustments, a)
			continue
		}
		o.Adjustments = append(o.Adjustments, a)
	}
	return rows.Err()
}

func (r *OrderRepo) loadPayments(ctx context.Context, o *entity.Order) error {
	rows, err := r.q.Query(ctx, `SELECT id, method, amount_cents, state, created_at, updated_at
		FROM payments WHERE order_id = $1 ORDER BY position`, o.ID)
	if err != nil {
		return fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p := entity.Payment{OrderID: o.ID}
		if err := rows.Scan(&p.ID, &p.Method, &p.AmountCents, &p.State, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return fmt.Errorf("scan payment: %w", err)
		}
		o.Payments = append(o.Payments, p)
	}
	return rows.Err()
}

func (r *OrderRepo) loadShipments(ctx context.Context, o *entity.Order) error {
	rows, err := r.q.Query(ctx, `SELECT id, number, stock_location_id, state, tracking_number, shipped_at,
			created_at, updated_at
		FROM shipments WHERE order_id = $1 ORDER BY position`, o.ID)
	if err != nil {
		return fmt.Errorf("list shipments: %w", err)
	}
	for rows.Next() {
		s := entity.Shipment{OrderID: o.ID}
		if err := rows.Scan(&s.ID, &s.Number, &s.StockLocationID, &s.State, &s.TrackingNumber, &s.ShippedAt,
			&s.CreatedAt, &s.UpdatedAt); err != nil {
			rows.Close()
			return fmt.Errorf("scan shipment: %w", err)
		}
		o.Shipments = append(o.Shipments, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(o.Shipments) == 0 {
		return nil
	}

	items, err := r.q.Query(ctx, `SELECT si.shipment_id, si.line_item_id, si.variant_id, si.quantity
		FROM shipment_items si JOIN shipments s ON s.id = si.shipment_id
		WHERE s.order_id = $1 ORDER BY s.position, si.position`, o.ID)
	if err != nil {
		return fmt.Errorf("list shipment items: %w", err)
	}
	defer items.Close()
	for items.Next() {
		var (
			shipmentID string
			it         entity.ShipmentItem
		)
		if err := items.Scan(&shipmentID, &it.LineItemID, &it.VariantID, &it.Quantity); err != nil {
			return fmt.Errorf("scan shipment item: %w", err)
		}
		if s := o.Shipment(shipmentID); s != nil {
			s.Items = append(s.Items, it)
		}
	}
	return items.Err()
}

func (r *OrderRepo) loadHistories(ctx context.Context, o *entity.Order) error {
	rows, err := r.q.Query(ctx, `SELECT id, from_state, to_state, description, context, created_at
		FROM order_histories WHERE order_id = $1 ORDER BY seq`, o.ID)
	if err != nil {
		return fmt.Errorf("list histories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			h   = entity.OrderHistory{OrderID: o.ID}
			raw []byte
		)
		if err := rows.Scan(&h.ID, &h.FromState, &h.ToState, &h.Description, &raw, &h.CreatedAt); err != nil {
			return fmt.Errorf("scan history: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &h.Context); err != nil {
				return fmt.Errorf("decode history context: %w", err)
			}
		}
		o.Histories = append(o.Histories, h)
	}
	return rows.Err()
}
