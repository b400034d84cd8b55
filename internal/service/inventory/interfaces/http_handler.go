// internal/service/inventory/interfaces/http_handler.go
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
	"mercury/internal/service/inventory/application"
	"mercury/internal/service/inventory/domain"
)

// HTTPHandler 暴露库存服务的 REST 接口。
type HTTPHandler struct {
	service *application.Service
}

func NewHTTPHandler(service *application.Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /products", h.handleCreateProduct)
	mux.HandleFunc("GET /products/{id}", h.handleGetProduct)
	mux.HandleFunc("GET /products/{id}/stock", h.handleCheckStock)
	mux.HandleFunc("POST /products/{id}/reserve", h.handleReserve)
	mux.HandleFunc("POST /products/{id}/release", h.handleRelease)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

type createProductRequest struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type productResponse struct {
	ProductID         string          `json:"product_id"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	AvailableQuantity int             `json:"available_quantity"`
	Active            bool            `json:"active"`
}

type checkStockResponse struct {
	ProductID         string `json:"product_id"`
	AvailableQuantity int    `json:"available_quantity"`
	HasSufficient     bool   `json:"has_sufficient_stock"`
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

type releaseResponse struct {
	ProductID string `json:"product_id"`
	Outcome   string `json:"outcome"`
}

func (h *HTTPHandler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := extractContext(r)

	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.service.CreateProduct(ctx, req.ProductID, req.Name, req.Price, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidProduct):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrProductExists):
			writeError(w, http.StatusConflict, err.Error())
		default:
			logger.Ctx(ctx).Error().Err(err).Msg("failed to create product")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(product))
}

func (h *HTTPHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	ctx := extractContext(r)

	product, err := h.service.GetProduct(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		logger.Ctx(ctx).Error().Err(err).Msg("failed to query product")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

func (h *HTTPHandler) handleCheckStock(w http.ResponseWriter, r *http.Request) {
	ctx := extractContext(r)
	productID := r.PathValue("id")

	quantity := 1
	if q := r.URL.Query().Get("quantity"); q != "" {
		parsed, err := strconv.Atoi(q)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid quantity")
			return
		}
		quantity = parsed
	}

	sufficient, available, err := h.service.CheckStock(ctx, productID, quantity)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		logger.Ctx(ctx).Error().Err(err).Msg("failed to check stock")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, checkStockResponse{
		ProductID:         productID,
		AvailableQuantity: available,
		HasSufficient:     sufficient,
	})
}

func (h *HTTPHandler) handleReserve(w http.ResponseWriter, r *http.Request) {
	ctx := extractContext(r)
	productID := r.PathValue("id")

	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	result, err := h.service.Reserve(ctx, req.Token, productID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidQuantity):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrProductInactive):
			writeError(w, http.StatusConflict, err.Error())
		default:
			logger.Ctx(ctx).Error().Err(err).Msg("failed to reserve stock")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	resp := reserveResponse{
		ProductID:      result.ProductID,
		Outcome:        string(result.Outcome),
		RemainingStock: result.RemainingStock,
	}
	switch result.Outcome {
	case domain.OutcomeReserved:
		writeJSON(w, http.StatusOK, resp)
	case domain.OutcomeNotFound:
		writeJSON(w, http.StatusNotFound, resp)
	default:
		// INSUFFICIENT_STOCK / CANCELLED
		writeJSON(w, http.StatusConflict, resp)
	}
}

func (h *HTTPHandler) handleRelease(w http.ResponseWriter, r *http.Request) {
	ctx := extractContext(r)
	productID := r.PathValue("id")

	var req releaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	outcome, err := h.service.Release(ctx, req.Token, productID)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("failed to release stock")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, releaseResponse{ProductID: productID, Outcome: string(outcome)})
}

func toProductResponse(p *domain.Product) productResponse {
	return productResponse{
		ProductID:         p.ProductID,
		Name:              p.Name,
		Price:             p.Price,
		AvailableQuantity: p.AvailableQuantity,
		Active:            p.Active,
	}
}

// extractContext 从请求头恢复上游传入的链路上下文。
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
