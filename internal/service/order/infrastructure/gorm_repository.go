// internal/service/order/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"mercury/internal/service/order/domain"
)

const defaultListLimit = 50

// GormOrderRepository 基于 MySQL 实现订单持久化。
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(dsn string) (*GormOrderRepository, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to connect to mysql")
	}
	if err := db.AutoMigrate(&OrderModel{}, &OrderItemModel{}); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to migrate order schema")
	}
	return &GormOrderRepository{db: db}, nil
}

// Create 持久化订单聚合。同一订单号重复写入直接视为成功，
// 保证编排层的重试不会产生重复订单。
func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing OrderModel
		err := tx.First(&existing, "order_id = ?", order.ID).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		model := OrderModel{
			OrderID:       order.ID,
			CustomerRef:   order.CustomerRef,
			Status:        string(order.Status),
			TotalAmount:   order.TotalAmount,
			FailureReason: order.FailureReason,
			CreatedAt:     order.CreatedAt,
			UpdatedAt:     order.UpdatedAt,
		}
		for _, line := range order.Lines {
			model.Items = append(model.Items, OrderItemModel{
				OrderID:          order.ID,
				ProductID:        line.ProductID,
				Quantity:         line.Quantity,
				UnitPrice:        line.UnitPrice,
				ReservationToken: line.ReservationToken,
			})
		}
		// 并发重试可能同时通过上面的查重，唯一键冲突同样视为已写入
		if err := tx.Create(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil
			}
			return err
		}
		return nil
	})
}

func (r *GormOrderRepository) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Preload("Items").First(&model, "order_id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return toDomainOrder(&model), nil
}

func (r *GormOrderRepository) ListByCustomerRef(ctx context.Context, customerRef string, limit, offset int) ([]*domain.Order, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var models []OrderModel
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("customer_ref = ?", customerRef).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(models))
	for i := range models {
		orders = append(orders, toDomainOrder(&models[i]))
	}
	return orders, nil
}

func toDomainOrder(model *OrderModel) *domain.Order {
	order := &domain.Order{
		ID:            model.OrderID,
		CustomerRef:   model.CustomerRef,
		Status:        domain.State(model.Status),
		TotalAmount:   model.TotalAmount,
		FailureReason: model.FailureReason,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
	for _, item := range model.Items {
		order.Lines = append(order.Lines, domain.OrderLine{
			ProductID:        item.ProductID,
			Quantity:         item.Quantity,
			UnitPrice:        item.UnitPrice,
			ReservationToken: item.ReservationToken,
		})
	}
	return order
}
