package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercury/internal/service/order/domain"
	"mercury/internal/service/order/domain/port"
	"mercury/internal/service/order/infrastructure/adapter"
)

// ---- 测试替身 ----

type reservationRecord struct {
	productID string
	quantity  int
	status    string
}

// fakeInventory 模拟库存服务，语义与真实台账一致：
// 幂等令牌、条件扣减、未知令牌释放写墓碑。
type fakeInventory struct {
	mu           sync.Mutex
	products     map[string]*port.ProductInfo
	journal      map[string]reservationRecord
	releaseCalls []string
	reserveErr   map[string]error
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{
		products:   make(map[string]*port.ProductInfo),
		journal:    make(map[string]reservationRecord),
		reserveErr: make(map[string]error),
	}
}

func (f *fakeInventory) addProduct(productID string, price string, stock int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[productID] = &port.ProductInfo{
		ProductID:         productID,
		Name:              "product " + productID,
		Price:             decimal.RequireFromString(price),
		AvailableQuantity: stock,
		Active:            true,
	}
}

func (f *fakeInventory) stockOf(productID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[productID].AvailableQuantity
}

func (f *fakeInventory) GetProduct(_ context.Context, productID string) (*port.ProductInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	product, ok := f.products[productID]
	if !ok {
		return nil, domain.ErrUnknownProduct
	}
	copied := *product
	return &copied, nil
}

func (f *fakeInventory) Reserve(_ context.Context, token, productID string, quantity int) (*port.ReserveOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.reserveErr[productID]; ok {
		return nil, err
	}
	if rec, ok := f.journal[token]; ok {
		return &port.ReserveOutcome{ProductID: rec.productID, Code: port.ReserveCode(rec.status)}, nil
	}
	product, ok := f.products[productID]
	if !ok {
		return &port.ReserveOutcome{ProductID: productID, Code: port.ReserveCodeNotFound}, nil
	}
	if product.AvailableQuantity < quantity {
		f.journal[token] = reservationRecord{productID: productID, quantity: quantity, status: string(port.ReserveCodeInsufficientStock)}
		return &port.ReserveOutcome{ProductID: productID, Code: port.ReserveCodeInsufficientStock, RemainingStock: product.AvailableQuantity}, nil
	}
	product.AvailableQuantity -= quantity
	f.journal[token] = reservationRecord{productID: productID, quantity: quantity, status: string(port.ReserveCodeReserved)}
	return &port.ReserveOutcome{ProductID: productID, Code: port.ReserveCodeReserved, RemainingStock: product.AvailableQuantity}, nil
}

func (f *fakeInventory) Release(_ context.Context, token, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.releaseCalls = append(f.releaseCalls, token)
	rec, ok := f.journal[token]
	if !ok {
		f.journal[token] = reservationRecord{productID: productID, status: string(port.ReserveCodeCancelled)}
		return nil
	}
	if rec.status == string(port.ReserveCodeReserved) {
		f.products[rec.productID].AvailableQuantity += rec.quantity
		rec.status = "RELEASED"
		f.journal[token] = rec
	}
	return nil
}

type fakeOrderRepository struct {
	mu         sync.Mutex
	orders     map[string]*domain.Order
	failCreate bool
}

func newFakeOrderRepository() *fakeOrderRepository {
	return &fakeOrderRepository{orders: make(map[string]*domain.Order)}
}

func (f *fakeOrderRepository) Create(_ context.Context, order *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return errors.New("database unavailable")
	}
	if _, ok := f.orders[order.ID]; ok {
		return nil
	}
	copied := *order
	f.orders[order.ID] = &copied
	return nil
}

func (f *fakeOrderRepository) FindByID(_ context.Context, orderID string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeOrderRepository) ListByCustomerRef(_ context.Context, customerRef string, limit, offset int) ([]*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*domain.Order
	for _, order := range f.orders {
		if order.CustomerRef == customerRef {
			copied := *order
			result = append(result, &copied)
		}
	}
	if offset > len(result) {
		offset = len(result)
	}
	result = result[offset:]
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

type publishedEvent struct {
	eventType string
	orderID   string
}

type fakeEventProducer struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *fakeEventProducer) PublishOrderEvent(_ context.Context, eventType string, order *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{eventType: eventType, orderID: order.ID})
	return nil
}

type fakeOrderCache struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func newFakeOrderCache() *fakeOrderCache {
	return &fakeOrderCache{orders: make(map[string]*domain.Order)}
}

func (f *fakeOrderCache) Set(_ context.Context, order *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *order
	f.orders[order.ID] = &copied
	return nil
}

func (f *fakeOrderCache) Get(_ context.Context, orderID string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if order, ok := f.orders[orderID]; ok {
		copied := *order
		return &copied, nil
	}
	return nil, nil
}

type testDeps struct {
	inventory *fakeInventory
	repo      *fakeOrderRepository
	events    *fakeEventProducer
	cache     *fakeOrderCache
}

func newTestService(t *testing.T, ruleExpr string) (*OrderApplicationService, *testDeps) {
	t.Helper()
	deps := &testDeps{
		inventory: newFakeInventory(),
		repo:      newFakeOrderRepository(),
		events:    &fakeEventProducer{},
		cache:     newFakeOrderCache(),
	}
	rules, err := adapter.NewCelRuleEngine(ruleExpr)
	require.NoError(t, err)
	svc := NewOrderApplicationService(deps.repo, deps.inventory, rules, deps.events, deps.cache)
	return svc, deps
}

// ---- 用例 ----

func TestPlaceOrder_Success(t *testing.T) {
	svc, deps := newTestService(t, "")
	deps.inventory.addProduct("P-1", "19.99", 10)
	deps.inventory.addProduct("P-2", "5.00", 3)

	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		CustomerRef: "C-1",
		Lines: []OrderLineRequest{
			{ProductID: "P-1", Quantity: 2},
			{ProductID: "P-2", Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StateConfirmed, result.Status)
	assert.True(t, decimal.RequireFromString("44.98").Equal(result.TotalAmount))

	// 库存已扣减
	assert.Equal(t, 8, deps.inventory.stockOf("P-1"))
	assert.Equal(t, 2, deps.inventory.stockOf("P-2"))

	// 订单已落库，每行都带着自己的预留令牌
	stored, err := deps.repo.FindByID(context.Background(), result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateConfirmed, stored.Status)
	for _, line := range stored.Lines {
		assert.NotEmpty(t, line.ReservationToken)
	}

	// 确认事件已发布
	require.Len(t, deps.events.events, 1)
	assert.Equal(t, domain.EventOrderConfirmed, deps.events.events[0].eventType)
	assert.Empty(t, deps.inventory.releaseCalls)
}

func TestPlaceOrder_EmptyOrderFailsValidation(t *testing.T) {
	svc, deps := newTestService(t, "")

	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{CustomerRef: "C-1"})
	require.NoError(t, err)

	assert.Equal(t, domain.StateFailed, result.Status)
	assert.Equal(t, FailureValidation, result.FailureKind)
	// 校验失败不会留下任何痕迹
	assert.Empty(t, deps.repo.orders)
	assert.Empty(t, deps.events.events)
	assert.Empty(t, deps.inventory.releaseCalls)
}

func TestPlaceOrder_PartialFailureCompensatesAll(t *testing.T) {
	svc, deps := newTestService(t, "")
	deps.inventory.addProduct("P-1", "10.00", 5)
	deps.inventory.addProduct("P-2", "4.00", 0)

	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		CustomerRef: "C-1",
		Lines: []OrderLineRequest{
			{ProductID: "P-1", Quantity: 2},
			{ProductID: "P-2", Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StateFailed, result.Status)
	assert.Equal(t, FailureRejected, result.FailureKind)

	// 失败响应逐行回报，只有缺货的那一行在列
	require.Len(t, result.FailedLines, 1)
	assert.Equal(t, "P-2", result.FailedLines[0].ProductID)

	// 两行都被补偿，P-1 的预留已释放回台账
	assert.Len(t, deps.inventory.releaseCalls, 2)
	assert.Equal(t, 5, deps.inventory.stockOf("P-1"))
	assert.Equal(t, 0, deps.inventory.stockOf("P-2"))

	// 预留已经开始，失败订单要留审计记录并发布失败事件
	stored, err := deps.repo.FindByID(context.Background(), result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailed, stored.Status)
	require.Len(t, deps.events.events, 1)
	assert.Equal(t, domain.EventOrderFailed, deps.events.events[0].eventType)
}

func TestPlaceOrder_UnknownProductRejected(t *testing.T) {
	svc, deps := newTestService(t, "")
	deps.inventory.addProduct("P-1", "10.00", 5)

	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		CustomerRef: "C-1",
		Lines: []OrderLineRequest{
			{ProductID: "P-1", Quantity: 1},
			{ProductID: "P-missing", Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StateFailed, result.Status)
	assert.Equal(t, FailureRejected, result.FailureKind)
	require.Len(t, result.FailedLines, 1)
	assert.Equal(t, "P-missing", result.FailedLines[0].ProductID)

	// 校验阶段就中断了，库存从未被动过，也不留审计记录
	assert.Equal(t, 5, deps.inventory.stockOf("P-1"))
	assert.Empty(t, deps.repo.orders)
	assert.Empty(t, deps.events.events)
}

func TestPlaceOrder_ReportsEveryFailedLine(t *testing.T) {
	svc, deps := newTestService(t, "")
	deps.inventory.addProduct("P-1", "10.00", 0)
	deps.inventory.addProduct("P-2", "4.00", 0)

	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		CustomerRef: "C-1",
		Lines: []OrderLineRequest{
			{ProductID: "P-1", Quantity: 1},
			{ProductID: "P-2", Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StateFailed, result.Status)
	assert.Equal(t, FailureRejected, result.FailureKind)

	// 两行都缺货，响应必须把两行都列出来，而不是只报第一个失败
	require.Len(t, result.FailedLines, 2)
	failed := make(map[string]string, len(result.FailedLines))
	for _, line := range result.FailedLines {
		failed[line.ProductID] = line.Reason
	}
	assert.Contains(t, failed, "P-1")
	assert.Contains(t, failed, "P-2")
	assert.Equal(t, domain.ErrStockRejected.Error(), failed["P-1"])
	assert.Equal(t, domain.ErrStockRejected.Error(), failed["P-2"])
}

func TestPlaceOrder_RuleRejectedBeforeReserving(t *testing.T) {
	svc, deps := newTestService(t, "total_quantity <= 2")
	deps.inventory.addProduct("P-1", "10.00", 100)

	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		CustomerRef: "C-1",
		Lines:       []OrderLineRequest{{ProductID: "P-1", Quantity: 3}},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StateFailed, result.Status)
	assert.Equal(t, FailureRejected, result.FailureKind)
	// 规则拒绝发生在预留之前，不动库存也不留审计记录
	assert.Equal(t, 100, deps.inventory.stockOf("P-1"))
	assert.Empty(t, deps.inventory.journal)
	assert.Empty(t, deps.repo.orders)
	assert.Empty(t, deps.events.events)
}

func TestPlaceOrder_PersistFailureReleasesStock(t *testing.T) {
	svc, deps := newTestService(t, "")
	deps.inventory.addProduct("P-1", "10.00", 5)
	deps.repo.failCreate = true

	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		CustomerRef: "C-1",
		Lines:       []OrderLineRequest{{ProductID: "P-1", Quantity: 2}},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StateFailed, result.Status)
	assert.Equal(t, FailureInternal, result.FailureKind)

	// 订单没写进去，库存必须完整归还
	assert.Len(t, deps.inventory.releaseCalls, 1)
	assert.Equal(t, 5, deps.inventory.stockOf("P-1"))
}

func TestPlaceOrder_InventoryUnavailable(t *testing.T) {
	svc, deps := newTestService(t, "")
	deps.inventory.addProduct("P-1", "10.00", 5)
	deps.inventory.reserveErr["P-1"] = fmt.Errorf("%w: connection refused", domain.ErrServiceDegraded)

	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		CustomerRef: "C-1",
		Lines:       []OrderLineRequest{{ProductID: "P-1", Quantity: 1}},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StateFailed, result.Status)
	assert.Equal(t, FailureUnavailable, result.FailureKind)
	// 结果未知的预留也要尝试释放
	assert.Len(t, deps.inventory.releaseCalls, 1)
}

func TestPlaceOrder_CapturesPriceAtPlacement(t *testing.T) {
	svc, deps := newTestService(t, "")
	deps.inventory.addProduct("P-1", "10.00", 5)

	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		CustomerRef: "C-1",
		Lines:       []OrderLineRequest{{ProductID: "P-1", Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, domain.StateConfirmed, result.Status)

	// 下单后改价，不影响已收单订单的金额
	deps.inventory.addProduct("P-1", "99.00", 5)

	stored, err := deps.repo.FindByID(context.Background(), result.OrderID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("10.00").Equal(stored.Lines[0].UnitPrice))
	assert.True(t, decimal.RequireFromString("10.00").Equal(stored.TotalAmount))
}

func TestPlaceOrder_LastUnitGoesToExactlyOneOrder(t *testing.T) {
	svc, deps := newTestService(t, "")
	deps.inventory.addProduct("P-1", "10.00", 1)

	var wg sync.WaitGroup
	results := make([]*PlaceOrderResult, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
				CustomerRef: fmt.Sprintf("C-%d", i),
				Lines:       []OrderLineRequest{{ProductID: "P-1", Quantity: 1}},
			})
			if err == nil {
				results[i] = result
			}
		}(i)
	}
	wg.Wait()

	confirmed := 0
	for _, result := range results {
		require.NotNil(t, result)
		if result.Status == domain.StateConfirmed {
			confirmed++
		}
	}
	assert.Equal(t, 1, confirmed)
	assert.Equal(t, 0, deps.inventory.stockOf("P-1"))
}

func TestPlaceOrder_ClientSuppliedOrderID(t *testing.T) {
	svc, deps := newTestService(t, "")
	deps.inventory.addProduct("P-1", "10.00", 5)

	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		OrderID:     "O-fixed",
		CustomerRef: "C-1",
		Lines:       []OrderLineRequest{{ProductID: "P-1", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "O-fixed", result.OrderID)
}

func TestGetOrder(t *testing.T) {
	svc, deps := newTestService(t, "")
	deps.inventory.addProduct("P-1", "10.00", 5)

	placed, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		CustomerRef: "C-1",
		Lines:       []OrderLineRequest{{ProductID: "P-1", Quantity: 1}},
	})
	require.NoError(t, err)

	t.Run("found", func(t *testing.T) {
		view, err := svc.GetOrder(context.Background(), placed.OrderID)
		require.NoError(t, err)
		assert.Equal(t, domain.StateConfirmed, view.Status)
	})

	t.Run("cache miss falls back to repository", func(t *testing.T) {
		deps.cache.orders = make(map[string]*domain.Order)
		view, err := svc.GetOrder(context.Background(), placed.OrderID)
		require.NoError(t, err)
		assert.Equal(t, placed.OrderID, view.OrderID)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := svc.GetOrder(context.Background(), "O-missing")
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})
}

func TestListOrders(t *testing.T) {
	svc, deps := newTestService(t, "")
	deps.inventory.addProduct("P-1", "10.00", 50)

	for i := 0; i < 3; i++ {
		_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
			CustomerRef: "C-list",
			Lines:       []OrderLineRequest{{ProductID: "P-1", Quantity: 1}},
		})
		require.NoError(t, err)
	}

	views, err := svc.ListOrders(context.Background(), "C-list", 0, 0)
	require.NoError(t, err)
	assert.Len(t, views, 3)

	views, err = svc.ListOrders(context.Background(), "C-list", 2, 0)
	require.NoError(t, err)
	assert.Len(t, views, 2)

	views, err = svc.ListOrders(context.Background(), "C-list", 0, 2)
	require.NoError(t, err)
	assert.Len(t, views, 1)

	views, err = svc.ListOrders(context.Background(), "C-other", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, views)
}
