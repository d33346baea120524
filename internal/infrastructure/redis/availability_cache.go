package redis

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/commerce-core/internal/domain/entity"
)

//go:embed publish_level.lua
var publishLevelLua string

const (
	keyPrefix = "availability:"
	// marker mantiene el hash vivo aunque la variante no tenga stock en ninguna ubicación.
	marker = "_"
)

// AvailabilityCache guarda por variante un hash ubicación -> nivel de stock.
// Key: availability:{variant_id}.
type AvailabilityCache struct {
	client  redis.UniversalClient
	ttl     time.Duration
	publish *redis.Script
}

// NewAvailabilityCache construye el cache; ttl <= 0 deja las claves sin vencimiento.
func NewAvailabilityCache(client redis.UniversalClient, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{client: client, ttl: ttl, publish: redis.NewScript(publishLevelLua)}
}

func variantKey(variantID string) string {
	return keyPrefix + variantID
}

// Publish actualiza las ubicaciones de variantes ya cacheadas. Las no cacheadas se ignoran:
// un hash parcial se confundiría con el conjunto completo.
func (c *AvailabilityCache) Publish(ctx context.Context, levels []entity.StockLevel) error {
	for _, l := range levels {
		raw, err := json.Marshal(l)
		if err != nil {
			return fmt.Errorf("serializar nivel %s: %w", l.StockItemID, err)
		}
		deleted := "0"
		if l.Deleted {
			deleted = "1"
		}
		err = c.publish.Run(ctx, c.client, []string{variantKey(l.VariantID)}, l.StockLocationID, raw, deleted).Err()
		if err != nil {
			return fmt.Errorf("publicar disponibilidad %s: %w", l.VariantID, err)
		}
	}
	return nil
}

// Fill reemplaza el conjunto completo de la variante en una transacción MULTI/EXEC.
func (c *AvailabilityCache) Fill(ctx context.Context, variantID string, levels []entity.StockLevel) error {
	fields := make([]any, 0, 2+2*len(levels))
	fields = append(fields, marker, "")
	for _, l := range levels {
		if l.Deleted {
			continue
		}
		raw, err := json.Marshal(l)
		if err != nil {
			return fmt.Errorf("serializar nivel %s: %w", l.StockItemID, err)
		}
		fields = append(fields, l.StockLocationID, raw)
	}
	key := variantKey(variantID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fields...)
		if c.ttl > 0 {
			pipe.Expire(ctx, key, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("llenar disponibilidad %s: %w", variantID, err)
	}
	return nil
}

// Get devuelve los niveles cacheados; found=false si la variante no está en cache.
func (c *AvailabilityCache) Get(ctx context.Context, variantID string) ([]entity.StockLevel, bool, error) {
	fields, err := c.client.HGetAll(ctx, variantKey(variantID)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("leer disponibilidad %s: %w", variantID, err)
	}
	if len(fields) == 0 {
		return nil, false, nil
	}
	levels := make([]entity.StockLevel, 0, len(fields)-1)
	for location, raw := range fields {
		if location == marker {
			continue
		}
		var l entity.StockLevel
		if err := json.Unmarshal([]byte(raw), &l); err != nil {
			return nil, false, fmt.Errorf("nivel corrupto %s/%s: %w", variantID, location, err)
		}
		levels = append(levels, l)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].StockLocationID < levels[j].StockLocationID })
	return levels, true, nil
}
