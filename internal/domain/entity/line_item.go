package entity

import (
	"time"

	"github.com/jhoicas/commerce-core/internal/domain"
)

// AdjustmentSource indica quién originó un ajuste.
type AdjustmentSource string

const (
	AdjustmentManual    AdjustmentSource = "MANUAL"
	AdjustmentPromotion AdjustmentSource = "PROMOTION"
	AdjustmentShipping  AdjustmentSource = "SHIPPING"
)

// Adjustment es un cargo o descuento en centavos (negativo = descuento).
// LineItemID vacío indica ajuste a nivel de orden.
type Adjustment struct {
	ID          string
	OrderID     string
	LineItemID  string
	Source      AdjustmentSource
	PromotionID string
	Label       string
	AmountCents int64
	CreatedAt   time.Time
}

// LineItem es una línea de la orden con el snapshot de nombre, sku y precio de la variante.
type LineItem struct {
	ID                   string
	OrderID              string
	VariantID            string
	Name                 string
	SKU                  string
	Quantity             int
	PriceCents           int64
	Adjustments          []Adjustment
	AdjustmentTotalCents int64
	TotalCents           int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// AmountCents es precio por cantidad, sin ajustes.
func (li *LineItem) AmountCents() int64 {
	return li.PriceCents * int64(li.Quantity)
}

func (li *LineItem) recalculate() {
	var adj int64
	for _, a := range li.Adjustments {
		adj += a.AmountCents
	}
	li.AdjustmentTotalCents = adj
	li.TotalCents = li.AmountCents() + adj
}

// LineItem busca una línea por id.
func (o *Order) LineItem(id string) *LineItem {
	for i := range o.LineItems {
		if o.LineItems[i].ID == id {
			return &o.LineItems[i]
		}
	}
	return nil
}

// AddVariant agrega la variante o suma cantidad a la línea existente. El precio de override
// reemplaza el del snapshot.
func (o *Order) AddVariant(variant Variant, quantity int, now time.Time, overridePriceCents *int64) (*LineItem, error) {
	if err := o.ensureLinesEditable(); err != nil {
		return nil, err
	}
	if variant.ID == "" {
		return nil, domain.ErrInvalidInput.Withf("variante requerida")
	}
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if variant.Currency != "" && variant.Currency != o.Currency {
		return nil, domain.ErrCurrencyMismatch.Withf("%s vs %s", variant.Currency, o.Currency)
	}
	price := variant.PriceCents
	if overridePriceCents != nil {
		price = *overridePriceCents
	}
	if price < 0 {
		return nil, domain.ErrInvalidAmount.Withf("precio %d", price)
	}

	now = utc(now)
	li := o.lineItemForVariant(variant.ID)
	if li != nil {
		li.Quantity += quantity
		if overridePriceCents != nil {
			li.PriceCents = price
		}
		li.UpdatedAt = now
	} else {
		o.LineItems = append(o.LineItems, LineItem{
			ID:         newID(),
			OrderID:    o.ID,
			VariantID:  variant.ID,
			Name:       variant.Name,
			SKU:        variant.SKU,
			Quantity:   quantity,
			PriceCents: price,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		li = &o.LineItems[len(o.LineItems)-1]
	}
	o.RecalculateTotals()
	o.touch(now)
	o.addHistory(o.State, o.State, "variante agregada "+variant.SKU, map[string]string{"variant_id": variant.ID}, now)
	out := *li
	return &out, nil
}

func (o *Order) lineItemForVariant(variantID string) *LineItem {
	for i := range o.LineItems {
		if o.LineItems[i].VariantID == variantID {
			return &o.LineItems[i]
		}
	}
	return nil
}

// SetLineItemQuantity cambia la cantidad de una línea; 0 la elimina.
func (o *Order) SetLineItemQuantity(lineItemID string, quantity int, now time.Time) error {
	if err := o.ensureLinesEditable(); err != nil {
		return err
	}
	if quantity < 0 {
		return domain.ErrInvalidQuantity
	}
	if quantity == 0 {
		return o.RemoveLineItem(lineItemID, now)
	}
	li := o.LineItem(lineItemID)
	if li == nil {
		return domain.ErrLineItemNotFound
	}
	now = utc(now)
	li.Quantity = quantity
	li.UpdatedAt = now
	o.RecalculateTotals()
	o.touch(now)
	o.addHistory(o.State, o.State, "cantidad actualizada", map[string]string{"line_item_id": lineItemID}, now)
	return nil
}

// RemoveLineItem elimina la línea y sus ajustes.
func (o *Order) RemoveLineItem(lineItemID string, now time.Time) error {
	if err := o.ensureLinesEditable(); err != nil {
		return err
	}
	for i := range o.LineItems {
		if o.LineItems[i].ID != lineItemID {
			continue
		}
		o.LineItems = append(o.LineItems[:i], o.LineItems[i+1:]...)
		now = utc(now)
		o.RecalculateTotals()
		o.touch(now)
		o.addHistory(o.State, o.State, "línea eliminada", map[string]string{"line_item_id": lineItemID}, now)
		return nil
	}
	return domain.ErrLineItemNotFound
}

// AddManualAdjustment agrega un cargo o descuento manual a la orden o a una línea.
func (o *Order) AddManualAdjustment(amountCents int64, label, lineItemID string, now time.Time) (*Adjustment, error) {
	if err := o.ensureOpen(); err != nil {
		return nil, err
	}
	if amountCents == 0 {
		return nil, domain.ErrInvalidAmount.Withf("el ajuste no puede ser cero")
	}
	if label == "" {
		return nil, domain.ErrInvalidInput.Withf("etiqueta requerida")
	}
	now = utc(now)
	adj := Adjustment{
		ID:          newID(),
		OrderID:     o.ID,
		LineItemID:  lineItemID,
		Source:      AdjustmentManual,
		Label:       label,
		AmountCents: amountCents,
		CreatedAt:   now,
	}
	if err := o.attachAdjustment(adj); err != nil {
		return nil, err
	}
	o.RecalculateTotals()
	o.touch(now)
	o.addHistory(o.State, o.State, "ajuste manual: "+label, nil, now)
	return &adj, nil
}

// ApplyPromotion reemplaza los ajustes de la promoción por los del nuevo cálculo.
func (o *Order) ApplyPromotion(promotion Promotion, result CalculationResult, now time.Time) error {
	if err := o.ensureOpen(); err != nil {
		return err
	}
	if promotion.ID == "" {
		return domain.ErrInvalidInput.Withf("promoción requerida")
	}
	for _, pa := range result.Adjustments {
		if pa.LineItemID != "" && o.LineItem(pa.LineItemID) == nil {
			return domain.ErrLineItemNotFound.Withf("%s", pa.LineItemID)
		}
	}

	now = utc(now)
	o.removePromotion(promotion.ID)
	for _, pa := range result.Adjustments {
		if pa.AmountCents == 0 {
			continue
		}
		label := pa.Label
		if label == "" {
			label = promotion.Name
		}
		_ = o.attachAdjustment(Adjustment{
			ID:          newID(),
			OrderID:     o.ID,
			LineItemID:  pa.LineItemID,
			Source:      AdjustmentPromotion,
			PromotionID: promotion.ID,
			Label:       label,
			AmountCents: pa.AmountCents,
			CreatedAt:   now,
		})
	}
	o.RecalculateTotals()
	o.touch(now)
	o.addHistory(o.State, o.State, "promoción aplicada "+promotion.Code, map[string]string{"promotion_id": promotion.ID}, now)
	return nil
}

func (o *Order) attachAdjustment(adj Adjustment) error {
	if adj.LineItemID == "" {
		o.Adjustments = append(o.Adjustments, adj)
		return nil
	}
	li := o.LineItem(adj.LineItemID)
	if li == nil {
		return domain.ErrLineItemNotFound
	}
	li.Adjustments = append(li.Adjustments, adj)
	return nil
}

func (o *Order) removePromotion(promotionID string) {
	keep := func(in []Adjustment) []Adjustment {
		out := in[:0]
		for _, a := range in {
			if a.PromotionID != promotionID {
				out = append(out, a)
			}
		}
		return out
	}
	o.Adjustments = keep(o.Adjustments)
	for i := range o.LineItems {
		o.LineItems[i].Adjustments = keep(o.LineItems[i].Adjustments)
	}
}

// AllAdjustments devuelve ajustes de orden y de línea.
func (o *Order) AllAdjustments() []Adjustment {
	out := append([]Adjustment(nil), o.Adjustments...)
	for _, li := range o.LineItems {
		out = append(out, li.Adjustments...)
	}
	return out
}
