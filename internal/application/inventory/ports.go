package inventory

import (
	"context"

	"github.com/jhoicas/commerce-core/internal/domain/entity"
	"github.com/jhoicas/commerce-core/internal/domain/repository"
	"github.com/jhoicas/commerce-core/pkg/logger"
	"github.com/jhoicas/commerce-core/pkg/metrics"
)

// TxRunner ejecuta fn dentro de una unidad de trabajo, pasando repositorios atados a ella.
// Si fn devuelve error nada se persiste.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos repository.Repositories) error) error
}

// AvailabilityCache es el modelo de lectura de disponibilidad por variante.
// Publish actualiza solo variantes ya cacheadas; Fill reemplaza el conjunto completo de una
// variante. Get devuelve found=false ante un miss.
type AvailabilityCache interface {
	Publish(ctx context.Context, levels []entity.StockLevel) error
	Fill(ctx context.Context, variantID string, levels []entity.StockLevel) error
	Get(ctx context.Context, variantID string) (levels []entity.StockLevel, found bool, err error)
}

// Deps agrupa los colaboradores compartidos por los casos de uso de inventario.
type Deps struct {
	Tx      TxRunner
	Repos   repository.Repositories // lecturas fuera de la unidad de trabajo
	Cache   AvailabilityCache       // opcional
	Retry   RetryConfig
	Metrics *metrics.Metrics // opcional
	Log     *logger.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	return d
}

// publish refresca el cache con el estado ya confirmado. Un fallo del cache no afecta la operación.
func (d Deps) publish(ctx context.Context, items ...*entity.StockItem) {
	if d.Cache == nil || len(items) == 0 {
		return
	}
	levels := make([]entity.StockLevel, 0, len(items))
	for _, it := range items {
		levels = append(levels, it.Level())
	}
	if err := d.Cache.Publish(ctx, levels); err != nil {
		d.Log.Warn().Err(err).Int("levels", len(levels)).Msg("no se pudo publicar disponibilidad")
	}
}
