package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType es el tipo cerrado de un movimiento del ledger de stock.
type MovementType string

// Tipos de movimiento de stock.
const (
	MovementReceived   MovementType = "RECEIVED"   // entrada de mercancía
	MovementSold       MovementType = "SOLD"       // salida por despacho de una orden
	MovementCorrection MovementType = "CORRECTION" // reverso o corrección
	MovementTransfer   MovementType = "TRANSFER"   // traslado entre ubicaciones
	MovementLoss       MovementType = "LOSS"       // merma, daño o robo
	MovementReturn     MovementType = "RETURN"     // devolución de cliente
	MovementAdjustment MovementType = "ADJUSTMENT" // ajuste manual de conteo
)

// MovementTypes lista todos los tipos válidos, en orden estable.
func MovementTypes() []MovementType {
	return []MovementType{
		MovementReceived, MovementSold, MovementCorrection, MovementTransfer,
		MovementLoss, MovementReturn, MovementAdjustment,
	}
}

// Valid indica si el tipo pertenece al conjunto cerrado.
func (t MovementType) Valid() bool {
	switch t {
	case MovementReceived, MovementSold, MovementCorrection, MovementTransfer,
		MovementLoss, MovementReturn, MovementAdjustment:
		return true
	}
	return false
}

// StockMovement es una entrada inmutable del ledger de un StockItem.
type StockMovement struct {
	ID            string
	StockItemID   string
	QuantityDelta int // positivo entrada, negativo salida
	Type          MovementType
	UnitCost      decimal.Decimal
	Reason        string
	Reference     string // orden, transferencia, etc.
	CreatedAt     time.Time
}
