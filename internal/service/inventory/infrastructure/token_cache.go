// internal/service/inventory/infrastructure/token_cache.go
package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"mercury/internal/pkg/logger"
	"mercury/internal/pkg/redis"
	"mercury/internal/service/inventory/domain"
)

const (
	tokenCacheKeyPrefix = "mercury:inventory:reservation:"
	tokenCacheTTL       = 30 * time.Minute
)

// cachedReserveResult 是缓存里的结果快照。
type cachedReserveResult struct {
	ProductID      string                `json:"product_id"`
	Outcome        domain.ReserveOutcome `json:"outcome"`
	RemainingStock int                   `json:"remaining_stock"`
}

// CachedProductRepository 在仓储之上加一层按令牌的快路径：
// 编排层带同一令牌重试时不必再进数据库事务。
// 流水表仍是幂等判定的最终依据，缓存不可用时直接落库。
type CachedProductRepository struct {
	inner domain.ProductRepository
	rdb   goredis.UniversalClient
}

func NewCachedProductRepository(inner domain.ProductRepository, client *redis.Client) *CachedProductRepository {
	return &CachedProductRepository{inner: inner, rdb: client.GetClient()}
}

func (r *CachedProductRepository) CreateProduct(ctx context.Context, product *domain.Product) error {
	return r.inner.CreateProduct(ctx, product)
}

func (r *CachedProductRepository) FindProduct(ctx context.Context, productID string) (*domain.Product, error) {
	return r.inner.FindProduct(ctx, productID)
}

func (r *CachedProductRepository) Reserve(ctx context.Context, token, productID string, quantity int) (*domain.ReserveResult, error) {
	key := tokenCacheKeyPrefix + token
	data, err := r.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var cached cachedReserveResult
		if jerr := json.Unmarshal(data, &cached); jerr == nil {
			return &domain.ReserveResult{
				ProductID:      cached.ProductID,
				Outcome:        cached.Outcome,
				RemainingStock: cached.RemainingStock,
			}, nil
		}
	} else if !errors.Is(err, goredis.Nil) {
		logger.Ctx(ctx).Warn().Err(err).Msg("reservation cache unavailable, falling through to store")
	}

	result, err := r.inner.Reserve(ctx, token, productID, quantity)
	if err != nil {
		return nil, err
	}

	// 只缓存已入流水的终态。NOT_FOUND 不缓存，商品补录后重试仍可成功。
	if result.Outcome == domain.OutcomeReserved || result.Outcome == domain.OutcomeInsufficientStock {
		payload, jerr := json.Marshal(cachedReserveResult{
			ProductID:      result.ProductID,
			Outcome:        result.Outcome,
			RemainingStock: result.RemainingStock,
		})
		if jerr == nil {
			if serr := r.rdb.Set(ctx, key, payload, tokenCacheTTL).Err(); serr != nil {
				logger.Ctx(ctx).Warn().Err(serr).Str("token", token).Msg("failed to cache reservation outcome")
			}
		}
	}
	return result, nil
}

func (r *CachedProductRepository) Release(ctx context.Context, token, productID string) (domain.ReleaseOutcome, error) {
	outcome, err := r.inner.Release(ctx, token, productID)
	if err != nil {
		return "", err
	}
	// 释放之后缓存的 RESERVED 结果作废，必须清掉
	if derr := r.rdb.Del(ctx, tokenCacheKeyPrefix+token).Err(); derr != nil {
		logger.Ctx(ctx).Warn().Err(derr).Str("token", token).Msg("failed to evict reservation cache entry")
	}
	return outcome, nil
}
