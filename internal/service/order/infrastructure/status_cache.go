// internal/service/order/infrastructure/status_cache.go
package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"mercury/internal/pkg/redis"
	"mercury/internal/service/order/domain"
)

const (
	orderCacheKeyPrefix = "mercury:order:status:"
	orderCacheTTL       = 30 * time.Minute
)

// RedisOrderCache 把订单终态缓存到 Redis，读路径优先命中缓存。
type RedisOrderCache struct {
	rdb *redis.Client
}

func NewRedisOrderCache(rdb *redis.Client) *RedisOrderCache {
	return &RedisOrderCache{rdb: rdb}
}

func (c *RedisOrderCache) Set(ctx context.Context, order *domain.Order) error {
	payload, err := json.Marshal(cachedOrderFromDomain(order))
	if err != nil {
		return fmt.Errorf("failed to marshal order for cache: %w", err)
	}
	return c.rdb.GetClient().Set(ctx, orderCacheKeyPrefix+order.ID, payload, orderCacheTTL).Err()
}

func (c *RedisOrderCache) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	raw, err := c.rdb.GetClient().Get(ctx, orderCacheKeyPrefix+orderID).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var cached cachedOrder
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, err
	}
	return cached.toDomain(), nil
}

// cachedOrder 是缓存中的序列化形态，与领域对象解耦。
type cachedOrder struct {
	OrderID       string            `json:"order_id"`
	CustomerRef   string            `json:"customer_ref"`
	Status        string            `json:"status"`
	TotalAmount   string            `json:"total_amount"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Lines         []cachedOrderLine `json:"lines"`
}

type cachedOrderLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

func cachedOrderFromDomain(order *domain.Order) cachedOrder {
	cached := cachedOrder{
		OrderID:       order.ID,
		CustomerRef:   order.CustomerRef,
		Status:        string(order.Status),
		TotalAmount:   order.TotalAmount.String(),
		FailureReason: order.FailureReason,
	}
	for _, line := range order.Lines {
		cached.Lines = append(cached.Lines, cachedOrderLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.String(),
		})
	}
	return cached
}

func (c cachedOrder) toDomain() *domain.Order {
	order := &domain.Order{
		ID:            c.OrderID,
		CustomerRef:   c.CustomerRef,
		Status:        domain.State(c.Status),
		FailureReason: c.FailureReason,
	}
	order.TotalAmount, _ = decimal.NewFromString(c.TotalAmount)
	for _, line := range c.Lines {
		price, _ := decimal.NewFromString(line.UnitPrice)
		order.Lines = append(order.Lines, domain.OrderLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: price,
		})
	}
	return order
}
