package dto

import (
	"time"

	"github.com/jhoicas/commerce-core/internal/domain/entity"
)

// CreateOrderRequest body para POST /api/orders. La tienda y el usuario salen del token.
type CreateOrderRequest struct {
	Currency string `json:"currency"`
	Email    string `json:"email,omitempty"`
}

// AddVariantRequest body para POST /api/orders/:id/items.
type AddVariantRequest struct {
	VariantID  string `json:"variant_id"`
	Quantity   int    `json:"quantity"`
	PriceCents *int64 `json:"price_cents,omitempty"`
}

// SetQuantityRequest body para PUT /api/orders/:id/items/:item_id.
type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// AddressesRequest body para PUT /api/orders/:id/addresses.
type AddressesRequest struct {
	Shipping *entity.Address `json:"shipping"`
	Billing  *entity.Address `json:"billing"`
}

// ShippingMethodRequest body para PUT /api/orders/:id/shipping-method.
type ShippingMethodRequest struct {
	ShippingMethodID string `json:"shipping_method_id"`
	CostCents        *int64 `json:"cost_cents,omitempty"`
}

// AdjustmentRequest body para POST /api/orders/:id/adjustments.
type AdjustmentRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Label       string `json:"label"`
	LineItemID  string `json:"line_item_id,omitempty"`
}

// PromotionRequest body para POST /api/orders/:id/promotions.
type PromotionRequest struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
}

// PaymentRequest body para POST /api/orders/:id/payments.
type PaymentRequest struct {
	Method      string `json:"method"`
	AmountCents int64  `json:"amount_cents"`
}

// CancelOrderRequest body para POST /api/orders/:id/cancel.
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// ShipRequest body para POST /api/orders/:id/shipments/:shipment_id/ship.
type ShipRequest struct {
	TrackingNumber string `json:"tracking_number,omitempty"`
}

// AdjustmentResponse cargo o descuento.
type AdjustmentResponse struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	PromotionID string `json:"promotion_id,omitempty"`
	Label       string `json:"label"`
	AmountCents int64  `json:"amount_cents"`
}

// LineItemResponse línea de la orden.
type LineItemResponse struct {
	ID                   string               `json:"id"`
	VariantID            string               `json:"variant_id"`
	Name                 string               `json:"name"`
	SKU                  string               `json:"sku"`
	Quantity             int                  `json:"quantity"`
	PriceCents           int64                `json:"price_cents"`
	AdjustmentTotalCents int64                `json:"adjustment_total_cents"`
	TotalCents           int64                `json:"total_cents"`
	Adjustments          []AdjustmentResponse `json:"adjustments,omitempty"`
}

// PaymentResponse pago.
type PaymentResponse struct {
	ID          string `json:"id"`
	Method      string `json:"method"`
	AmountCents int64  `json:"amount_cents"`
	State       string `json:"state"`
}

// ShipmentItemResponse porción de línea en un envío.
type ShipmentItemResponse struct {
	LineItemID string `json:"line_item_id"`
	VariantID  string `json:"variant_id"`
	Quantity   int    `json:"quantity"`
}

// ShipmentResponse envío.
type ShipmentResponse struct {
	ID              string                 `json:"id"`
	Number          string                 `json:"number"`
	StockLocationID string                 `json:"stock_location_id"`
	State           string                 `json:"state"`
	TrackingNumber  string                 `json:"tracking_number,omitempty"`
	ShippedAt       *time.Time             `json:"shipped_at,omitempty"`
	Items           []ShipmentItemResponse `json:"items"`
}

// HistoryResponse entrada de auditoría.
type HistoryResponse struct {
	From        string            `json:"from"`
	To          string            `json:"to"`
	Description string            `json:"description"`
	Context     map[string]string `json:"context,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// OrderResponse orden con todo su agregado.
type OrderResponse struct {
	ID                   string               `json:"id"`
	StoreID              string               `json:"store_id"`
	Number               string               `json:"number"`
	Currency             string               `json:"currency"`
	Email                string               `json:"email,omitempty"`
	State                string               `json:"state"`
	ShippingAddress      *entity.Address      `json:"shipping_address,omitempty"`
	BillingAddress       *entity.Address      `json:"billing_address,omitempty"`
	ShippingMethodID     string               `json:"shipping_method_id,omitempty"`
	LineItems            []LineItemResponse   `json:"line_items"`
	Adjustments          []AdjustmentResponse `json:"adjustments"`
	Payments             []PaymentResponse    `json:"payments"`
	Shipments            []ShipmentResponse   `json:"shipments"`
	Histories            []HistoryResponse    `json:"histories,omitempty"`
	ItemTotalCents       int64                `json:"item_total_cents"`
	AdjustmentTotalCents int64                `json:"adjustment_total_cents"`
	ShippingTotalCents   int64                `json:"shipping_total_cents"`
	PaymentTotalCents    int64                `json:"payment_total_cents"`
	TotalCents           int64                `json:"total_cents"`
	Version              int64                `json:"version"`
	CompletedAt          *time.Time           `json:"completed_at,omitempty"`
	CanceledAt           *time.Time           `json:"canceled_at,omitempty"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

// OrderSummary fila de listado.
type OrderSummary struct {
	ID         string    `json:"id"`
	Number     string    `json:"number"`
	State      string    `json:"state"`
	TotalCents int64     `json:"total_cents"`
	CreatedAt  time.Time `json:"created_at"`
}

// OrderListResponse listado paginado.
type OrderListResponse struct {
	Items []OrderSummary `json:"items"`
	Page  PageResponse   `json:"page"`
}

func toAdjustments(in []entity.Adjustment) []AdjustmentResponse {
	out := make([]AdjustmentResponse, 0, len(in))
	for _, a := range in {
		out = append(out, AdjustmentResponse{
			ID:          a.ID,
			Source:      string(a.Source),
			PromotionID: a.PromotionID,
			Label:       a.Label,
			AmountCents: a.AmountCents,
		})
	}
	return out
}

// ToOrderResponse convierte el agregado completo.
func ToOrderResponse(o *entity.Order) OrderResponse {
	out := OrderResponse{
		ID:                   o.ID,
		StoreID:              o.StoreID,
		Number:               o.Number,
		Currency:             o.Currency,
		Email:                o.Email,
		State:                string(o.State),
		ShippingAddress:      o.ShippingAddress,
		BillingAddress:       o.BillingAddress,
		ShippingMethodID:     o.ShippingMethodID,
		LineItems:            make([]LineItemResponse, 0, len(o.LineItems)),
		Adjustments:          toAdjustments(o.Adjustments),
		Payments:             make([]PaymentResponse, 0, len(o.Payments)),
		Shipments:            make([]ShipmentResponse, 0, len(o.Shipments)),
		ItemTotalCents:       o.ItemTotalCents,
		AdjustmentTotalCents: o.AdjustmentTotalCents,
		ShippingTotalCents:   o.ShippingTotalCents,
		PaymentTotalCents:    o.PaymentTotalCents,
		TotalCents:           o.TotalCents,
		Version:              o.Version,
		CompletedAt:          o.CompletedAt,
		CanceledAt:           o.CanceledAt,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
	for _, li := range o.LineItems {
		out.LineItems = append(out.LineItems, LineItemResponse{
			ID:                   li.ID,
			VariantID:            li.VariantID,
			Name:                 li.Name,
			SKU:                  li.SKU,
			Quantity:             li.Quantity,
			PriceCents:           li.PriceCents,
			AdjustmentTotalCents: li.AdjustmentTotalCents,
			TotalCents:           li.TotalCents,
			Adjustments:          toAdjustments(li.Adjustments),
		})
	}
	for _, p := range o.Payments {
		out.Payments = append(out.Payments, PaymentResponse{ID: p.ID, Method: p.Method, AmountCents: p.AmountCents, State: string(p.State)})
	}
	for _, sh := range o.Shipments {
		s := ShipmentResponse{
			ID:              sh.ID,
			Number:          sh.Number,
			StockLocationID: sh.StockLocationID,
			State:           string(sh.State),
			TrackingNumber:  sh.TrackingNumber,
			ShippedAt:       sh.ShippedAt,
			Items:           make([]ShipmentItemResponse, 0, len(sh.Items)),
		}
		for _, it := range sh.Items {
			s.Items = append(s.Items, ShipmentItemResponse{LineItemID: it.LineItemID, VariantID: it.VariantID, Quantity: it.Quantity})
		}
		out.Shipments = append(out.Shipments, s)
	}
	for _, h := range o.Histories {
		out.Histories = append(out.Histories, HistoryResponse{
			From:        string(h.FromState),
			To:          string(h.ToState),
			Description: h.Description,
			Context:     h.Context,
			CreatedAt:   h.CreatedAt,
		})
	}
	return out
}

// ToOrderSummary convierte una orden para listados.
func ToOrderSummary(o *entity.Order) OrderSummary {
	return OrderSummary{ID: o.ID, Number: o.Number, State: string(o.State), TotalCents: o.TotalCents, CreatedAt: o.CreatedAt}
}
