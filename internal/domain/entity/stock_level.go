package entity

import "time"

// StockLevel es la vista de disponibilidad de un StockItem que se publica al cache de lectura.
type StockLevel struct {
	StockItemID     string    `json:"stock_item_id"`
	VariantID       string    `json:"variant_id"`
	StockLocationID string    `json:"stock_location_id"`
	OnHand          int       `json:"on_hand"`
	Reserved        int       `json:"reserved"`
	Available       int       `json:"available"`
	Backorderable   bool      `json:"backorderable"`
	Deleted         bool      `json:"deleted,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}
