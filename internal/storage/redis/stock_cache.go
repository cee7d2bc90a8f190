package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/clinicshop/internal/domain"
)

const (
	stockKeyPrefix = "shop:stock:"
	stockKeyTTL    = 10 * time.Minute
)

// StockCache хранит остатки товаров в Redis для быстрых проверок
// на витрине и в корзине. Кэш носит совещательный характер:
// окончательное решение о списании принимает PostgreSQL.
type StockCache struct {
	client *redis.Client
}

// NewStockCache создаёт кэш остатков поверх подключённого клиента Redis.
func NewStockCache(client *redis.Client) *StockCache {
	return &StockCache{client: client}
}

// GetStock возвращает закэшированный остаток. ok=false означает промах кэша.
func (c *StockCache) GetStock(ctx context.Context, itemID string) (int32, bool, error) {
	qty, err := c.client.Get(ctx, stockKeyPrefix+itemID).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get cached stock: %w", err)
	}

	return int32(qty), true, nil
}

// SetStock записывает актуальный остаток с TTL, чтобы устаревшие
// значения не жили дольше окна обновления.
func (c *StockCache) SetStock(ctx context.Context, itemID string, qty int32) error {
	if err := c.client.Set(ctx, stockKeyPrefix+itemID, int64(qty), stockKeyTTL).Err(); err != nil {
		return fmt.Errorf("set cached stock: %w", err)
	}
	return nil
}

// Forget сбрасывает запись кэша, например после удаления товара.
func (c *StockCache) Forget(ctx context.Context, itemID string) error {
	if err := c.client.Del(ctx, stockKeyPrefix+itemID).Err(); err != nil {
		return fmt.Errorf("forget cached stock: %w", err)
	}
	return nil
}

var _ domain.StockCache = (*StockCache)(nil)
