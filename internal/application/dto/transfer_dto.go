package dto

import (
	"time"

	"github.com/jhoicas/commerce-core/internal/domain/entity"
)

// CreateTransferRequest body para POST /api/transfers.
type CreateTransferRequest struct {
	SourceLocationID      string `json:"source_location_id"`
	DestinationLocationID string `json:"destination_location_id"`
	Reference             string `json:"reference,omitempty"`
}

// TransferItemRequest body para POST /api/transfers/:id/items.
type TransferItemRequest struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// TransferItemResponse ítem de la transferencia.
type TransferItemResponse struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// TransferResponse transferencia con sus ítems.
type TransferResponse struct {
	ID                    string                 `json:"id"`
	SourceLocationID      string                 `json:"source_location_id"`
	DestinationLocationID string                 `json:"destination_location_id"`
	Status                string                 `json:"status"`
	Reference             string                 `json:"reference,omitempty"`
	Items                 []TransferItemResponse `json:"items"`
	ShippedAt             *time.Time             `json:"shipped_at,omitempty"`
	ReceivedAt            *time.Time             `json:"received_at,omitempty"`
	CanceledAt            *time.Time             `json:"canceled_at,omitempty"`
	CreatedAt             time.Time              `json:"created_at"`
}

// ToTransferResponse convierte una transferencia.
func ToTransferResponse(tr *entity.StockTransfer) TransferResponse {
	out := TransferResponse{
		ID:                    tr.ID,
		SourceLocationID:      tr.SourceLocationID,
		DestinationLocationID: tr.DestinationLocationID,
		Status:                string(tr.Status),
		Reference:             tr.Reference,
		Items:                 make([]TransferItemResponse, 0, len(tr.Items)),
		ShippedAt:             tr.ShippedAt,
		ReceivedAt:            tr.ReceivedAt,
		CanceledAt:            tr.CanceledAt,
		CreatedAt:             tr.CreatedAt,
	}
	for _, it := range tr.Items {
		out.Items = append(out.Items, TransferItemResponse{VariantID: it.VariantID, Quantity: it.Quantity})
	}
	return out
}
