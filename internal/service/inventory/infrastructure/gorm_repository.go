// internal/service/inventory/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"mercury/internal/service/inventory/domain"
)

// GormProductRepository 基于 MySQL 实现库存台账。
// 预留与释放都在单个事务里完成库存变更和流水写入。
type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(dsn string) (*GormProductRepository, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to connect to mysql")
	}
	if err := db.AutoMigrate(&ProductModel{}, &ReservationModel{}); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to migrate inventory schema")
	}
	return &GormProductRepository{db: db}, nil
}

func (r *GormProductRepository) CreateProduct(ctx context.Context, product *domain.Product) error {
	model := ProductModel{
		ProductID:         product.ProductID,
		Name:              product.Name,
		Price:             product.Price,
		AvailableQuantity: product.AvailableQuantity,
		Active:            product.Active,
		CreatedAt:         product.CreatedAt,
		UpdatedAt:         product.UpdatedAt,
	}
	err := r.db.WithContext(ctx).Create(&model).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrProductExists
	}
	return err
}

func (r *GormProductRepository) FindProduct(ctx context.Context, productID string) (*domain.Product, error) {
	var model ProductModel
	err := r.db.WithContext(ctx).First(&model, "product_id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	return toDomainProduct(&model), nil
}

func (r *GormProductRepository) Reserve(ctx context.Context, token, productID string, quantity int) (*domain.ReserveResult, error) {
	var result *domain.ReserveResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 幂等令牌查重，重放直接返回首次记录的结果
		var journal ReservationModel
		err := tx.First(&journal, "token = ?", token).Error
		if err == nil {
			replay, rerr := r.replayOutcome(tx, &journal)
			if rerr != nil {
				return rerr
			}
			result = replay
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var product ProductModel
		if err := tx.First(&product, "product_id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result = &domain.ReserveResult{ProductID: productID, Outcome: domain.OutcomeNotFound}
				return nil
			}
			return err
		}
		if !product.Active {
			return domain.ErrProductInactive
		}

		// 条件更新，可用量不足时不会产生任何变更
		res := tx.Model(&ProductModel{}).
			Where("product_id = ? AND available_quantity >= ?", productID, quantity).
			Update("available_quantity", gorm.Expr("available_quantity - ?", quantity))
		if res.Error != nil {
			return res.Error
		}

		status := domain.StatusReserved
		outcome := domain.OutcomeReserved
		if res.RowsAffected == 0 {
			status = domain.StatusRejected
			outcome = domain.OutcomeInsufficientStock
		}

		if err := tx.Create(&ReservationModel{
			Token:     token,
			ProductID: productID,
			Quantity:  quantity,
			Status:    string(status),
		}).Error; err != nil {
			return err
		}

		if err := tx.First(&product, "product_id = ?", productID).Error; err != nil {
			return err
		}
		result = &domain.ReserveResult{
			ProductID:      productID,
			Outcome:        outcome,
			RemainingStock: product.AvailableQuantity,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// replayOutcome 把一条已存在的流水翻译成对调用方的响应。
func (r *GormProductRepository) replayOutcome(tx *gorm.DB, journal *ReservationModel) (*domain.ReserveResult, error) {
	var product ProductModel
	remaining := 0
	if err := tx.First(&product, "product_id = ?", journal.ProductID).Error; err == nil {
		remaining = product.AvailableQuantity
	}

	switch domain.ReservationStatus(journal.Status) {
	case domain.StatusReserved:
		return &domain.ReserveResult{ProductID: journal.ProductID, Outcome: domain.OutcomeReserved, RemainingStock: remaining}, nil
	case domain.StatusRejected:
		return &domain.ReserveResult{ProductID: journal.ProductID, Outcome: domain.OutcomeInsufficientStock, RemainingStock: remaining}, nil
	default:
		// 已释放或墓碑：预留不再有效，迟到的重试不得再扣库存
		return &domain.ReserveResult{ProductID: journal.ProductID, Outcome: domain.OutcomeCancelled, RemainingStock: remaining}, nil
	}
}

func (r *GormProductRepository) Release(ctx context.Context, token, productID string) (domain.ReleaseOutcome, error) {
	outcome := domain.ReleaseNoop
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var journal ReservationModel
		err := tx.First(&journal, "token = ?", token).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 未知令牌：写入墓碑，挡住可能迟到的预留重试
			return tx.Create(&ReservationModel{
				Token:     token,
				ProductID: productID,
				Quantity:  0,
				Status:    string(domain.StatusCancelled),
			}).Error
		}
		if err != nil {
			return err
		}

		if domain.ReservationStatus(journal.Status) != domain.StatusReserved {
			// REJECTED/RELEASED/CANCELLED 都无库存可还
			return nil
		}

		res := tx.Model(&ProductModel{}).
			Where("product_id = ?", journal.ProductID).
			Update("available_quantity", gorm.Expr("available_quantity + ?", journal.Quantity))
		if res.Error != nil {
			return res.Error
		}
		if err := tx.Model(&journal).Update("status", string(domain.StatusReleased)).Error; err != nil {
			return err
		}
		outcome = domain.ReleaseDone
		return nil
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

func toDomainProduct(model *ProductModel) *domain.Product {
	return &domain.Product{
		ProductID:         model.ProductID,
		Name:              model.Name,
		Price:             model.Price,
		AvailableQuantity: model.AvailableQuantity,
		Active:            model.Active,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}
}
