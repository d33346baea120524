package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/commerce-core/internal/domain"
	"github.com/jhoicas/commerce-core/internal/domain/entity"
	"github.com/jhoicas/commerce-core/internal/domain/repository"
	"github.com/jhoicas/commerce-core/pkg/saga"
)

// ReservationLine es una porción de línea de orden a reservar en una ubicación.
// ShipmentID, si viene, queda asignado a las unidades creadas.
type ReservationLine struct {
	LineItemID      string
	VariantID       string
	StockLocationID string
	ShipmentID      string
	Quantity        int
}

// ReservationService reserva y libera stock de todas las líneas de una orden como una sola
// operación lógica: si una línea falla, lo ya reservado se libera en orden inverso.
type ReservationService struct {
	deps Deps
}

// NewReservationService construye el servicio.
func NewReservationService(deps Deps) *ReservationService {
	return &ReservationService{deps: deps.withDefaults()}
}

// AttemptReservation reserva todas las líneas o ninguna, en su propia unidad de trabajo.
// Los conflictos de versión repiten la unidad completa.
func (s *ReservationService) AttemptReservation(ctx context.Context, orderID string, lines []ReservationLine) error {
	var touched []*entity.StockItem
	err := RetryOnConflict(ctx, s.deps.Retry, s.deps.Metrics, s.deps.Log, "reserve", func() error {
		return s.deps.Tx.Run(ctx, func(repos repository.Repositories) error {
			var err error
			touched, err = s.AttemptReservationInTx(ctx, repos, orderID, lines)
			return err
		})
	})
	if err != nil {
		return err
	}
	s.deps.publish(ctx, touched...)
	return nil
}

// AttemptReservationInTx hace la reserva con los repositorios de una unidad de trabajo del llamador
// y devuelve los registros guardados. No publica disponibilidad: eso queda para después del commit.
func (s *ReservationService) AttemptReservationInTx(ctx context.Context, repos repository.Repositories, orderID string, lines []ReservationLine) ([]*entity.StockItem, error) {
	if err := validateLines(orderID, lines); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	log := s.deps.Log

	loaded := make(map[string]*entity.StockItem, len(lines))
	var touched []*entity.StockItem
	load := func(ctx context.Context, line ReservationLine) (*entity.StockItem, error) {
		key := line.VariantID + "@" + line.StockLocationID
		if it, ok := loaded[key]; ok {
			return it, nil
		}
		it, err := repos.StockItems.GetByVariantLocationForUpdate(ctx, line.VariantID, line.StockLocationID, repository.StockItemUnits)
		if err != nil {
			return nil, err
		}
		loaded[key] = it
		touched = append(touched, it)
		return it, nil
	}

	sg := saga.New()
	sg.OnCompensate = func(step string, _ error) {
		s.deps.Metrics.Compensation()
		log.Warn().Str("order_id", orderID).Str("step", step).Msg("reserva compensada")
	}
	for _, line := range lines {
		line := line
		var (
			item     *entity.StockItem
			reserved []string
		)
		sg.AddStep(line.VariantID+"@"+line.StockLocationID, func(ctx context.Context) error {
			it, err := load(ctx, line)
			if err != nil {
				return err
			}
			units, err := it.Reserve(line.Quantity, orderID, line.LineItemID, now)
			if err != nil {
				return err
			}
			ids := make([]string, len(units))
			for i, u := range units {
				ids[i] = u.ID
			}
			if line.ShipmentID != "" {
				it.AssignShipment(ids, line.ShipmentID, now)
			}
			item, reserved = it, ids
			return nil
		}, func(context.Context) error {
			item.ReleaseUnits(orderID, reserved, now)
			return nil
		})
	}

	if err := sg.Execute(ctx); err != nil {
		s.deps.Metrics.ReservationAttempt(len(lines), false)
		log.Info().Err(err).Str("order_id", orderID).Msg("reserva rechazada")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, it := range touched {
		if err := repos.StockItems.Save(ctx, it); err != nil {
			return nil, err
		}
	}
	s.deps.Metrics.ReservationAttempt(len(lines), true)
	return touched, nil
}

// ReleaseReservation libera todas las unidades que la orden tenga reservadas. Llamarla de nuevo
// no cambia nada.
func (s *ReservationService) ReleaseReservation(ctx context.Context, orderID string) error {
	var touched []*entity.StockItem
	err := RetryOnConflict(ctx, s.deps.Retry, s.deps.Metrics, s.deps.Log, "release", func() error {
		return s.deps.Tx.Run(ctx, func(repos repository.Repositories) error {
			var err error
			touched, err = s.ReleaseReservationInTx(ctx, repos, orderID)
			return err
		})
	})
	if err != nil {
		return err
	}
	s.deps.publish(ctx, touched...)
	return nil
}

// ReleaseReservationInTx libera usando la unidad de trabajo del llamador.
func (s *ReservationService) ReleaseReservationInTx(ctx context.Context, repos repository.Repositories, orderID string) ([]*entity.StockItem, error) {
	if orderID == "" {
		return nil, domain.ErrInvalidInput.Withf("orden requerida")
	}
	items, err := repos.StockItems.ListReservedByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	var touched []*entity.StockItem
	for _, it := range items {
		if it.ReleaseAll(orderID, now) > 0 {
			touched = append(touched, it)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, it := range touched {
		if err := repos.StockItems.Save(ctx, it); err != nil {
			return nil, err
		}
	}
	if len(touched) > 0 {
		s.deps.Log.Info().Str("order_id", orderID).Int("stock_items", len(touched)).Msg("reservas liberadas")
	}
	return touched, nil
}

// ReleaseShipmentInTx libera las unidades asignadas a un envío en su ubicación.
func (s *ReservationService) ReleaseShipmentInTx(ctx context.Context, repos repository.Repositories, orderID string, shipment entity.Shipment) ([]*entity.StockItem, error) {
	items, err := repos.StockItems.ListReservedByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	var touched []*entity.StockItem
	for _, it := range items {
		if it.StockLocationID != shipment.StockLocationID {
			continue
		}
		if it.ReleaseShipment(orderID, shipment.ID, now) > 0 {
			if err := repos.StockItems.Save(ctx, it); err != nil {
				return nil, err
			}
			touched = append(touched, it)
		}
	}
	return touched, nil
}

// Publish refresca el cache de disponibilidad para registros ya confirmados por el llamador.
func (s *ReservationService) Publish(ctx context.Context, items []*entity.StockItem) {
	s.deps.publish(ctx, items...)
}

func validateLines(orderID string, lines []ReservationLine) error {
	if orderID == "" {
		return domain.ErrInvalidInput.Withf("orden requerida")
	}
	if len(lines) == 0 {
		return domain.ErrInvalidInput.Withf("no hay líneas para reservar")
	}
	for i, l := range lines {
		if l.VariantID == "" || l.StockLocationID == "" {
			return domain.ErrInvalidInput.Withf("línea %d: variante y ubicación son obligatorias", i+1)
		}
		if l.Quantity <= 0 {
			return domain.ErrInvalidQuantity.Withf("línea %d", i+1)
		}
	}
	return nil
}
