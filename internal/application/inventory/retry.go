package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jhoicas/commerce-core/internal/domain"
	"github.com/jhoicas/commerce-core/pkg/logger"
	"github.com/jhoicas/commerce-core/pkg/metrics"
)

// RetryConfig controla cuántas veces se repite una unidad de trabajo ante un conflicto de versión.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultRetryConfig devuelve 3 reintentos desde 20ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, BaseDelay: 20 * time.Millisecond}
}

// RetryOnConflict ejecuta fn y la repite con backoff exponencial solo mientras devuelva
// domain.ErrConcurrencyConflict. Cualquier otro error corta de inmediato y se devuelve tal cual.
func RetryOnConflict(ctx context.Context, cfg RetryConfig, m *metrics.Metrics, log *logger.Logger, operation string, fn func() error) error {
	base := cfg.BaseDelay
	if base <= 0 {
		base = time.Millisecond
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = base
	eb.MaxInterval = 20 * base
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(max(cfg.MaxRetries, 0))), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			m.Conflict(operation)
			if log != nil {
				log.Debug().Str("operation", operation).Int("attempt", attempt).Msg("conflicto de versión, reintentando")
			}
			return err
		}
		return backoff.Permanent(err)
	}, b)
}
