package entity

// Variant es la vista del catálogo que la orden copia al agregar una línea.
// El precio se maneja en centavos de la moneda indicada.
type Variant struct {
	ID         string
	ProductID  string
	SKU        string
	Name       string
	PriceCents int64
	Currency   string
}

// ShippingMethod es un método de envío con su costo base.
type ShippingMethod struct {
	ID        string
	Name      string
	CostCents int64
	Currency  string
}

// Promotion identifica una promoción cuyo cálculo hace un colaborador externo.
type Promotion struct {
	ID   string
	Code string
	Name string
}

// PromotionAdjustment es un ajuste calculado por una promoción. LineItemID vacío aplica a la orden.
type PromotionAdjustment struct {
	LineItemID  string
	AmountCents int64
	Label       string
}

// CalculationResult es el resultado del cálculo de una promoción sobre una orden.
type CalculationResult struct {
	Adjustments []PromotionAdjustment
}
