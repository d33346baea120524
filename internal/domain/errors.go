package domain

import (
	"errors"
	"fmt"
)

// ErrorKind clasifica los errores de dominio para que la capa que llama decida cómo presentarlos.
type ErrorKind string

const (
	KindValidation    ErrorKind = "VALIDATION"
	KindConflict      ErrorKind = "CONFLICT"
	KindNotFound      ErrorKind = "NOT_FOUND"
	KindRuleViolation ErrorKind = "RULE_VIOLATION"
)

// Error es el error tipado del dominio: código estable para máquinas y mensaje legible.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

// NewError construye un error de dominio.
func NewError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// Is compara por código, así un sentinel con detalle sigue coincidiendo con errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Withf devuelve una copia del error con el detalle agregado al mensaje.
func (e *Error) Withf(format string, args ...any) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message + ": " + fmt.Sprintf(format, args...)}
}

// KindOf devuelve el tipo del primer error de dominio encontrado en la cadena, o "" si no hay.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// CodeOf devuelve el código del primer error de dominio en la cadena, o "".
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound               = NewError(KindNotFound, "NOT_FOUND", "recurso no encontrado")
	ErrStockItemNotFound      = NewError(KindNotFound, "STOCK_ITEM_NOT_FOUND", "registro de stock no encontrado")
	ErrOrderNotFound          = NewError(KindNotFound, "ORDER_NOT_FOUND", "orden no encontrada")
	ErrTransferNotFound       = NewError(KindNotFound, "TRANSFER_NOT_FOUND", "transferencia no encontrada")
	ErrVariantNotFound        = NewError(KindNotFound, "VARIANT_NOT_FOUND", "variante no encontrada")
	ErrLineItemNotFound       = NewError(KindNotFound, "LINE_ITEM_NOT_FOUND", "línea de la orden no encontrada")
	ErrPaymentNotFound        = NewError(KindNotFound, "PAYMENT_NOT_FOUND", "pago no encontrado")
	ErrShipmentNotFound       = NewError(KindNotFound, "SHIPMENT_NOT_FOUND", "envío no encontrado")
	ErrUnitNotFound           = NewError(KindNotFound, "INVENTORY_UNIT_NOT_FOUND", "unidad de inventario no encontrada")
	ErrShippingMethodNotFound = NewError(KindNotFound, "SHIPPING_METHOD_NOT_FOUND", "método de envío no encontrado")
	ErrLocationNotFound       = NewError(KindNotFound, "STOCK_LOCATION_NOT_FOUND", "ubicación de stock no encontrada")

	ErrInvalidInput          = NewError(KindValidation, "VALIDATION", "entrada inválida")
	ErrZeroQuantityMovement  = NewError(KindValidation, "ZERO_QUANTITY_MOVEMENT", "la cantidad del movimiento no puede ser cero")
	ErrInvalidQuantity       = NewError(KindValidation, "INVALID_QUANTITY", "la cantidad debe ser mayor a cero")
	ErrInvalidMovementType   = NewError(KindValidation, "INVALID_MOVEMENT_TYPE", "tipo de movimiento inválido")
	ErrInvalidBackorderLimit = NewError(KindValidation, "INVALID_BACKORDER_LIMIT", "el límite de backorder debe ser mayor o igual a cero")
	ErrSameLocation          = NewError(KindValidation, "SAME_LOCATION", "origen y destino de la transferencia deben ser distintos")
	ErrCurrencyMismatch      = NewError(KindValidation, "CURRENCY_MISMATCH", "la moneda no coincide con la de la orden")
	ErrInvalidAmount         = NewError(KindValidation, "INVALID_AMOUNT", "el monto debe ser mayor a cero")
	ErrMissingAddress        = NewError(KindValidation, "MISSING_ADDRESS", "falta la dirección de envío o facturación")
	ErrInvalidAddress        = NewError(KindValidation, "INVALID_ADDRESS", "dirección incompleta")
	ErrPromotionRejected     = NewError(KindValidation, "PROMOTION_REJECTED", "la promoción no aplica a la orden")

	ErrDuplicate           = NewError(KindConflict, "DUPLICATE", "recurso duplicado")
	ErrConflict            = NewError(KindConflict, "CONFLICT", "conflicto con el estado actual")
	ErrConcurrencyConflict = NewError(KindConflict, "CONCURRENCY_CONFLICT", "el registro fue modificado por otra operación")

	ErrInsufficientStock       = NewError(KindRuleViolation, "INSUFFICIENT_STOCK", "stock insuficiente")
	ErrOutOfStock              = NewError(KindRuleViolation, "OUT_OF_STOCK", "sin stock disponible para reservar")
	ErrBackorderedUnitsPending = NewError(KindRuleViolation, "BACKORDERED_UNITS_PENDING", "existen unidades en backorder pendientes")
	ErrReservedUnitsPending    = NewError(KindRuleViolation, "RESERVED_UNITS_PENDING", "existen unidades reservadas")
	ErrStockItemDeleted        = NewError(KindRuleViolation, "STOCK_ITEM_DELETED", "el registro de stock fue eliminado")
	ErrInvalidTransition       = NewError(KindRuleViolation, "INVALID_STATE_TRANSITION", "transición de estado no permitida")
	ErrTransferNotDraft        = NewError(KindRuleViolation, "TRANSFER_NOT_DRAFT", "la transferencia solo se modifica en borrador")
	ErrTransferEmpty           = NewError(KindRuleViolation, "TRANSFER_EMPTY", "la transferencia no tiene ítems")
	ErrEmptyOrder              = NewError(KindRuleViolation, "EMPTY_ORDER", "la orden no tiene líneas")
	ErrOrderNotEditable        = NewError(KindRuleViolation, "ORDER_NOT_EDITABLE", "la orden ya no admite cambios en sus líneas")
	ErrMissingShippingMethod   = NewError(KindRuleViolation, "MISSING_SHIPPING_METHOD", "la orden no tiene método de envío")
	ErrNoShipments             = NewError(KindRuleViolation, "NO_SHIPMENTS", "la orden no tiene envíos")
	ErrPaymentInsufficient     = NewError(KindRuleViolation, "PAYMENT_INSUFFICIENT", "el total pagado no cubre el total de la orden")
	ErrUnfulfillableItems      = NewError(KindRuleViolation, "UNFULFILLABLE_ITEMS", "hay cantidades sin ubicación de despacho")
	ErrShipmentAlreadyShipped  = NewError(KindRuleViolation, "SHIPMENT_ALREADY_SHIPPED", "la orden tiene envíos despachados")
	ErrLedgerMismatch          = NewError(KindRuleViolation, "LEDGER_MISMATCH", "los movimientos no cuadran con el stock físico")
)
