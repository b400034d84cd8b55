// internal/service/inventory/application/service.go
package application

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercury/internal/pkg/logger"
	"mercury/internal/pkg/metrics"
	"mercury/internal/service/inventory/domain"
	"mercury/internal/service/inventory/domain/port"
)

// Service 是库存服务的应用层，负责加锁、追踪与指标，
// 真正的库存变更语义在仓储的事务里完成。
type Service struct {
	repo   domain.ProductRepository
	locks  port.LockManager
	tracer trace.Tracer
}

func NewService(repo domain.ProductRepository, locks port.LockManager) *Service {
	return &Service{
		repo:   repo,
		locks:  locks,
		tracer: otel.Tracer("inventory-service"),
	}
}

// CreateProduct 向台账登记一个新商品。
func (s *Service) CreateProduct(ctx context.Context, productID, name string, price decimal.Decimal, quantity int) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "CreateProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", productID))

	product, err := domain.NewProduct(productID, name, price, quantity)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		span.RecordError(err)
		return nil, err
	}
	logger.Ctx(ctx).Info().Str("product_id", productID).Int("quantity", quantity).Msg("product created")
	return product, nil
}

// GetProduct 查询单个商品。
func (s *Service) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "GetProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", productID))
	return s.repo.FindProduct(ctx, productID)
}

// CheckStock 查询某商品的可用量是否覆盖给定数量。只读，不做任何预留。
func (s *Service) CheckStock(ctx context.Context, productID string, quantity int) (bool, int, error) {
	ctx, span := s.tracer.Start(ctx, "CheckStock")
	defer span.End()

	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		return false, 0, err
	}
	return product.HasSufficientStock(quantity), product.AvailableQuantity, nil
}

// Reserve 以幂等令牌预留库存。
// 同一商品的预留经由锁管理器串行化，扣减本身还有条件更新兜底。
func (s *Service) Reserve(ctx context.Context, token, productID string, quantity int) (*domain.ReserveResult, error) {
	ctx, span := s.tracer.Start(ctx, "ReserveStock")
	defer span.End()
	span.SetAttributes(
		attribute.String("product.id", productID),
		attribute.String("reservation.token", token),
		attribute.Int("reservation.quantity", quantity),
	)

	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	unlock, err := s.locks.Acquire(ctx, "stock/"+productID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to acquire stock lock")
		return nil, err
	}
	defer unlock.Unlock()

	result, err := s.repo.Reserve(ctx, token, productID, quantity)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("reservation.outcome", string(result.Outcome)))
	metrics.ReservationsTotal.WithLabelValues(string(result.Outcome)).Inc()
	logger.Ctx(ctx).Info().
		Str("product_id", productID).
		Str("token", token).
		Str("outcome", string(result.Outcome)).
		Int("remaining", result.RemainingStock).
		Msg("reservation processed")
	return result, nil
}

// Release 释放一个令牌的预留。任何时候重复调用都是安全的。
func (s *Service) Release(ctx context.Context, token, productID string) (domain.ReleaseOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "ReleaseStock")
	defer span.End()
	span.SetAttributes(
		attribute.String("product.id", productID),
		attribute.String("reservation.token", token),
	)

	unlock, err := s.locks.Acquire(ctx, "stock/"+productID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to acquire stock lock")
		return "", err
	}
	defer unlock.Unlock()

	outcome, err := s.repo.Release(ctx, token, productID)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	metrics.ReleasesTotal.WithLabelValues(string(outcome)).Inc()
	logger.Ctx(ctx).Info().
		Str("product_id", productID).
		Str("token", token).
		Str("outcome", string(outcome)).
		Msg("release processed")
	return outcome, nil
}
