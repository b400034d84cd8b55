// internal/service/order/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"mercury/internal/pkg/logger"
	"mercury/internal/service/order/application"
	"mercury/internal/service/order/domain"
)

// OrderHandler 暴露订单服务的 REST 接口。
type OrderHandler struct {
	service *application.OrderApplicationService
}

func NewOrderHandler(service *application.OrderApplicationService) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /orders", h.placeOrderHandler)
	mux.HandleFunc("GET /orders/{id}", h.getOrderHandler)
	mux.HandleFunc("GET /orders", h.listOrdersHandler)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

type placeOrderRequest struct {
	OrderID     string           `json:"order_id,omitempty"`
	CustomerRef string           `json:"customer_ref"`
	Lines       []placeOrderLine `json:"lines"`
}

type placeOrderLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type orderLineResponse struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type placeOrderResponse struct {
	OrderID     string               `json:"order_id"`
	Status      string               `json:"status"`
	TotalAmount decimal.Decimal      `json:"total_amount"`
	Lines       []orderLineResponse  `json:"lines,omitempty"`
	FailureKind string               `json:"failure_kind,omitempty"`
	Reason      string               `json:"reason,omitempty"`
	FailedLines []failedLineResponse `json:"failed_lines,omitempty"`
}

type failedLineResponse struct {
	ProductID string `json:"product_id"`
	Reason    string `json:"reason"`
}

type orderViewResponse struct {
	OrderID     string              `json:"order_id"`
	CustomerRef string              `json:"customer_ref"`
	Status      string              `json:"status"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	Reason      string              `json:"reason,omitempty"`
	Lines       []orderLineResponse `json:"lines"`
}

func (h *OrderHandler) placeOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractContext(r)

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	appReq := application.PlaceOrderRequest{
		OrderID:     req.OrderID,
		CustomerRef: req.CustomerRef,
	}
	for _, line := range req.Lines {
		appReq.Lines = append(appReq.Lines, application.OrderLineRequest{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}

	result, err := h.service.PlaceOrder(ctx, appReq)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("order placement failed unexpectedly")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := placeOrderResponse{
		OrderID:     result.OrderID,
		Status:      string(result.Status),
		TotalAmount: result.TotalAmount,
		FailureKind: string(result.FailureKind),
		Reason:      result.Reason,
	}
	for _, line := range result.Lines {
		resp.Lines = append(resp.Lines, orderLineResponse{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	for _, line := range result.FailedLines {
		resp.FailedLines = append(resp.FailedLines, failedLineResponse{
			ProductID: line.ProductID,
			Reason:    line.Reason,
		})
	}

	writeJSON(w, statusForResult(result), resp)
}

// statusForResult 把用例结果映射到 HTTP 状态码。
func statusForResult(result *application.PlaceOrderResult) int {
	if result.Status == domain.StateConfirmed {
		return http.StatusCreated
	}
	switch result.FailureKind {
	case application.FailureValidation:
		return http.StatusBadRequest
	case application.FailureRejected:
		return http.StatusConflict
	case application.FailureUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *OrderHandler) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractContext(r)

	view, err := h.service.GetOrder(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		logger.Ctx(ctx).Error().Err(err).Msg("failed to query order")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, toOrderViewResponse(view))
}

func (h *OrderHandler) listOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx := extractContext(r)

	customerRef := r.URL.Query().Get("customer_ref")
	if customerRef == "" {
		writeError(w, http.StatusBadRequest, "customer_ref is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	views, err := h.service.ListOrders(ctx, customerRef, limit, offset)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("failed to list orders")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := make([]orderViewResponse, 0, len(views))
	for _, view := range views {
		resp = append(resp, toOrderViewResponse(view))
	}
	writeJSON(w, http.StatusOK, resp)
}

func toOrderViewResponse(view *application.OrderView) orderViewResponse {
	resp := orderViewResponse{
		OrderID:     view.OrderID,
		CustomerRef: view.CustomerRef,
		Status:      string(view.Status),
		TotalAmount: view.TotalAmount,
		Reason:      view.Reason,
	}
	for _, line := range view.Lines {
		resp.Lines = append(resp.Lines, orderLineResponse{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return resp
}

func extractContext(r *http.Request) context.Context {
	return otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
