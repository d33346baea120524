package entity

import (
	"time"

	"github.com/jhoicas/commerce-core/internal/domain"
)

// TransferStatus es el estado de una transferencia entre ubicaciones.
type TransferStatus string

const (
	TransferDraft     TransferStatus = "DRAFT"
	TransferInTransit TransferStatus = "IN_TRANSIT"
	TransferReceived  TransferStatus = "RECEIVED"
	TransferCanceled  TransferStatus = "CANCELED"
)

var transferTransitions = map[TransferStatus][]TransferStatus{
	TransferDraft:     {TransferInTransit, TransferCanceled},
	TransferInTransit: {TransferReceived, TransferCanceled},
}

// StockTransferItem es una variante y cantidad a trasladar.
type StockTransferItem struct {
	ID         string
	TransferID string
	VariantID  string
	Quantity   int
}

// StockTransfer mueve cantidades de una ubicación a otra usando AdjustStock en ambos extremos.
type StockTransfer struct {
	ID                    string
	SourceLocationID      string
	DestinationLocationID string
	Status                TransferStatus
	Items                 []StockTransferItem
	Reference             string
	ShippedAt             *time.Time
	ReceivedAt            *time.Time
	CanceledAt            *time.Time
	Version               int64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewStockTransfer crea una transferencia en borrador.
func NewStockTransfer(sourceLocationID, destinationLocationID, reference string, now time.Time) (*StockTransfer, error) {
	if sourceLocationID == "" || destinationLocationID == "" {
		return nil, domain.ErrInvalidInput.Withf("origen y destino son obligatorios")
	}
	if sourceLocationID == destinationLocationID {
		return nil, domain.ErrSameLocation
	}
	now = utc(now)
	return &StockTransfer{
		ID:                    newID(),
		SourceLocationID:      sourceLocationID,
		DestinationLocationID: destinationLocationID,
		Status:                TransferDraft,
		Reference:             reference,
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

// CanTransitionTo indica si la transferencia puede pasar al estado dado.
func (t *StockTransfer) CanTransitionTo(to TransferStatus) bool {
	for _, s := range transferTransitions[t.Status] {
		if s == to {
			return true
		}
	}
	return false
}

// AddItem agrega una variante o suma a la existente. Solo en borrador.
func (t *StockTransfer) AddItem(variantID string, quantity int, now time.Time) error {
	if t.Status != TransferDraft {
		return domain.ErrTransferNotDraft
	}
	if variantID == "" {
		return domain.ErrInvalidInput.Withf("variante requerida")
	}
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	t.UpdatedAt = utc(now)
	for i := range t.Items {
		if t.Items[i].VariantID == variantID {
			t.Items[i].Quantity += quantity
			return nil
		}
	}
	t.Items = append(t.Items, StockTransferItem{
		ID:         newID(),
		TransferID: t.ID,
		VariantID:  variantID,
		Quantity:   quantity,
	})
	return nil
}

// RemoveItem quita la variante de la transferencia. Solo en borrador.
func (t *StockTransfer) RemoveItem(variantID string, now time.Time) error {
	if t.Status != TransferDraft {
		return domain.ErrTransferNotDraft
	}
	for i := range t.Items {
		if t.Items[i].VariantID == variantID {
			t.Items = append(t.Items[:i], t.Items[i+1:]...)
			t.UpdatedAt = utc(now)
			return nil
		}
	}
	return domain.ErrNotFound.Withf("variante %s no está en la transferencia", variantID)
}

// Ship descuenta cada ítem en el origen con un movimiento Transfer. Si algún ajuste falla,
// revierte los ya aplicados y la transferencia sigue en borrador.
func (t *StockTransfer) Ship(sources map[string]*StockItem, now time.Time) error {
	if !t.CanTransitionTo(TransferInTransit) {
		return errInvalidTransition("transferencia", string(t.Status), string(TransferInTransit))
	}
	if len(t.Items) == 0 {
		return domain.ErrTransferEmpty
	}
	now = utc(now)
	if err := t.adjustAll(sources, t.SourceLocationID, -1, MovementTransfer, "envío de transferencia", now); err != nil {
		return err
	}
	t.Status = TransferInTransit
	t.ShippedAt = &now
	t.UpdatedAt = now
	return nil
}

// Cancel anula la transferencia. En tránsito, devuelve lo descontado al origen con Correction.
func (t *StockTransfer) Cancel(sources map[string]*StockItem, now time.Time) error {
	if !t.CanTransitionTo(TransferCanceled) {
		return errInvalidTransition("transferencia", string(t.Status), string(TransferCanceled))
	}
	now = utc(now)
	if t.Status == TransferInTransit {
		if err := t.adjustAll(sources, t.SourceLocationID, 1, MovementCorrection, "cancelación de transferencia", now); err != nil {
			return err
		}
	}
	t.Status = TransferCanceled
	t.CanceledAt = &now
	t.UpdatedAt = now
	return nil
}

// Receive ingresa cada ítem en el destino con un movimiento Transfer.
func (t *StockTransfer) Receive(destinations map[string]*StockItem, now time.Time) error {
	if !t.CanTransitionTo(TransferReceived) {
		return errInvalidTransition("transferencia", string(t.Status), string(TransferReceived))
	}
	now = utc(now)
	if err := t.adjustAll(destinations, t.DestinationLocationID, 1, MovementTransfer, "recepción de transferencia", now); err != nil {
		return err
	}
	t.Status = TransferReceived
	t.ReceivedAt = &now
	t.UpdatedAt = now
	return nil
}

// adjustAll aplica sign*cantidad a cada ítem; ante un fallo compensa en orden inverso.
func (t *StockTransfer) adjustAll(stock map[string]*StockItem, locationID string, sign int, movementType MovementType, reason string, now time.Time) error {
	type applied struct {
		item *StockItem
		qty  int
	}
	done := make([]applied, 0, len(t.Items))
	compensate := func() {
		for i := len(done) - 1; i >= 0; i-- {
			a := done[i]
			_, _ = a.item.AdjustStock(-sign*a.qty, MovementCorrection, a.item.AverageCost, "reverso: "+reason, t.ID, now)
		}
	}
	for _, it := range t.Items {
		si := stock[it.VariantID]
		if si == nil || si.StockLocationID != locationID {
			compensate()
			return domain.ErrStockItemNotFound.Withf("variante %s en ubicación %s", it.VariantID, locationID)
		}
		if _, err := si.AdjustStock(sign*it.Quantity, movementType, si.AverageCost, reason, t.ID, now); err != nil {
			compensate()
			return err
		}
		done = append(done, applied{item: si, qty: it.Quantity})
	}
	return nil
}

// Clone devuelve una copia profunda.
func (t *StockTransfer) Clone() *StockTransfer {
	c := *t
	c.Items = append([]StockTransferItem(nil), t.Items...)
	return &c
}
