// internal/service/order/infrastructure/adapter/inventory_http_adapter.go
package adapter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"mercury/internal/pkg/httpclient"
	"mercury/internal/pkg/logger"
	"mercury/internal/pkg/metrics"
	"mercury/internal/service/order/domain"
	"mercury/internal/service/order/domain/port"
)

// InventoryHTTPAdapter 实现 port.InventoryService，通过 HTTP 调用库存服务。
// 传输层故障会用同一幂等令牌重试，业务性拒绝直接透传给编排层。
type InventoryHTTPAdapter struct {
	client      *httpclient.Client
	baseURL     string
	maxAttempts int
}

func NewInventoryHTTPAdapter(client *httpclient.Client, baseURL string, maxAttempts int) *InventoryHTTPAdapter {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &InventoryHTTPAdapter{client: client, baseURL: baseURL, maxAttempts: maxAttempts}
}

type productResponse struct {
	ProductID         string          `json:"product_id"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	AvailableQuantity int             `json:"available_quantity"`
	Active            bool            `json:"active"`
}

type reserveRequest struct {
	Token    string `json:"token"`
	Quantity int    `json:"quantity"`
}

type reserveResponse struct {
	ProductID      string `json:"product_id"`
	Outcome        string `json:"outcome"`
	RemainingStock int    `json:"remaining_stock"`
}

type releaseRequest struct {
	Token string `json:"token"`
}

func (a *InventoryHTTPAdapter) GetProduct(ctx context.Context, productID string) (*port.ProductInfo, error) {
	var resp productResponse
	url := fmt.Sprintf("%s/products/%s", a.baseURL, productID)
	if err := a.client.GetJSON(ctx, "inventory.GetProduct", url, &resp); err != nil {
		if httpclient.IsStatus(err, http.StatusNotFound) {
			return nil, domain.ErrUnknownProduct
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrServiceDegraded, err)
	}
	return &port.ProductInfo{
		ProductID:         resp.ProductID,
		Name:              resp.Name,
		Price:             resp.Price,
		AvailableQuantity: resp.AvailableQuantity,
		Active:            resp.Active,
	}, nil
}

func (a *InventoryHTTPAdapter) Reserve(ctx context.Context, token, productID string, quantity int) (*port.ReserveOutcome, error) {
	url := fmt.Sprintf("%s/products/%s/reserve", a.baseURL, productID)
	payload := reserveRequest{Token: token, Quantity: quantity}

	var lastErr error
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		var resp reserveResponse
		err := a.client.PostJSON(ctx, "inventory.Reserve", url, payload, &resp)
		if err == nil {
			return toReserveOutcome(&resp), nil
		}

		// 404/409 是库存服务的明确表态，响应体里带着结果码
		if (httpclient.IsStatus(err, http.StatusNotFound) || httpclient.IsStatus(err, http.StatusConflict)) && resp.Outcome != "" {
			return toReserveOutcome(&resp), nil
		}
		if se, ok := err.(*httpclient.StatusError); ok && se.Code < http.StatusInternalServerError {
			return nil, fmt.Errorf("inventory rejected reserve request: %w", err)
		}

		// 传输层故障或 5xx：结果未知，用同一令牌重试是安全的
		lastErr = err
		logger.Ctx(ctx).Warn().Err(err).
			Str("product_id", productID).
			Str("token", token).
			Int("attempt", attempt).
			Msg("reserve attempt failed, retrying with same token")
		if attempt < a.maxAttempts {
			metrics.ReserveRetriesTotal.Inc()
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}
	}
	return nil, fmt.Errorf("%w: reserve failed after %d attempts: %v", domain.ErrServiceDegraded, a.maxAttempts, lastErr)
}

func (a *InventoryHTTPAdapter) Release(ctx context.Context, token, productID string) error {
	url := fmt.Sprintf("%s/products/%s/release", a.baseURL, productID)
	payload := releaseRequest{Token: token}

	var lastErr error
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		err := a.client.PostJSON(ctx, "inventory.Release", url, payload, nil)
		if err == nil {
			return nil
		}
		if se, ok := err.(*httpclient.StatusError); ok && se.Code < http.StatusInternalServerError {
			return fmt.Errorf("inventory rejected release request: %w", err)
		}
		lastErr = err
		if attempt < a.maxAttempts {
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}
	}
	return fmt.Errorf("%w: release failed after %d attempts: %v", domain.ErrServiceDegraded, a.maxAttempts, lastErr)
}

func toReserveOutcome(resp *reserveResponse) *port.ReserveOutcome {
	return &port.ReserveOutcome{
		ProductID:      resp.ProductID,
		Code:           port.ReserveCode(resp.Outcome),
		RemainingStock: resp.RemainingStock,
	}
}
