package entity

// FulfillmentStrategy orienta al planificador al elegir ubicaciones.
type FulfillmentStrategy string

const (
	StrategyFewestPackages FulfillmentStrategy = "FEWEST_PACKAGES"
	StrategyPriority       FulfillmentStrategy = "PRIORITY"
)

// PlannedItem es una cantidad de variante asignada a una ubicación.
type PlannedItem struct {
	VariantID string
	Quantity  int
}

// FulfillmentPackage agrupa lo que sale de una misma ubicación.
type FulfillmentPackage struct {
	StockLocationID string
	Items           []PlannedItem
}

// FulfillmentPlan es la propuesta de ubicaciones para las cantidades pedidas. Unfulfilled
// guarda por variante lo que ninguna ubicación puede cubrir.
type FulfillmentPlan struct {
	Packages    []FulfillmentPackage
	Unfulfilled map[string]int
}

// PlannedQuantity suma lo asignado a una variante en todos los paquetes.
func (p *FulfillmentPlan) PlannedQuantity(variantID string) int {
	total := 0
	for _, pkg := range p.Packages {
		for _, it := range pkg.Items {
			if it.VariantID == variantID {
				total += it.Quantity
			}
		}
	}
	return total
}
