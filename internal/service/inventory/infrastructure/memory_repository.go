// internal/service/inventory/infrastructure/memory_repository.go
package infrastructure

import (
	"context"
	"sync"

	"mercury/internal/service/inventory/domain"
)

// MemoryProductRepository 是库存台账的进程内实现，
// 语义与 MySQL 实现一致，用于测试与本地开发。
type MemoryProductRepository struct {
	mu           sync.Mutex
	products     map[string]*domain.Product
	reservations map[string]*domain.Reservation
}

func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{
		products:     make(map[string]*domain.Product),
		reservations: make(map[string]*domain.Reservation),
	}
}

func (r *MemoryProductRepository) CreateProduct(_ context.Context, product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[product.ProductID]; ok {
		return domain.ErrProductExists
	}
	copied := *product
	r.products[product.ProductID] = &copied
	return nil
}

func (r *MemoryProductRepository) FindProduct(_ context.Context, productID string) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	product, ok := r.products[productID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	copied := *product
	return &copied, nil
}

func (r *MemoryProductRepository) Reserve(_ context.Context, token, productID string, quantity int) (*domain.ReserveResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if journal, ok := r.reservations[token]; ok {
		return r.replayOutcome(journal), nil
	}

	product, ok := r.products[productID]
	if !ok {
		return &domain.ReserveResult{ProductID: productID, Outcome: domain.OutcomeNotFound}, nil
	}
	if !product.Active {
		return nil, domain.ErrProductInactive
	}

	status := domain.StatusReserved
	outcome := domain.OutcomeReserved
	if product.AvailableQuantity >= quantity {
		product.AvailableQuantity -= quantity
	} else {
		status = domain.StatusRejected
		outcome = domain.OutcomeInsufficientStock
	}

	r.reservations[token] = &domain.Reservation{
		Token:     token,
		ProductID: productID,
		Quantity:  quantity,
		Status:    status,
	}
	return &domain.ReserveResult{
		ProductID:      productID,
		Outcome:        outcome,
		RemainingStock: product.AvailableQuantity,
	}, nil
}

func (r *MemoryProductRepository) replayOutcome(journal *domain.Reservation) *domain.ReserveResult {
	remaining := 0
	if product, ok := r.products[journal.ProductID]; ok {
		remaining = product.AvailableQuantity
	}
	switch journal.Status {
	case domain.StatusReserved:
		return &domain.ReserveResult{ProductID: journal.ProductID, Outcome: domain.OutcomeReserved, RemainingStock: remaining}
	case domain.StatusRejected:
		return &domain.ReserveResult{ProductID: journal.ProductID, Outcome: domain.OutcomeInsufficientStock, RemainingStock: remaining}
	default:
		return &domain.ReserveResult{ProductID: journal.ProductID, Outcome: domain.OutcomeCancelled, RemainingStock: remaining}
	}
}

func (r *MemoryProductRepository) Release(_ context.Context, token, productID string) (domain.ReleaseOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	journal, ok := r.reservations[token]
	if !ok {
		r.reservations[token] = &domain.Reservation{
			Token:     token,
			ProductID: productID,
			Quantity:  0,
			Status:    domain.StatusCancelled,
		}
		return domain.ReleaseNoop, nil
	}

	if journal.Status != domain.StatusReserved {
		return domain.ReleaseNoop, nil
	}

	if product, ok := r.products[journal.ProductID]; ok {
		product.AvailableQuantity += journal.Quantity
	}
	journal.Status = domain.StatusReleased
	return domain.ReleaseDone, nil
}
