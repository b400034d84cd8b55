package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercury/internal/pkg/httpclient"
	"mercury/internal/service/order/domain"
	"mercury/internal/service/order/domain/port"
)

func newAdapter(t *testing.T, handler http.Handler, maxAttempts int) *InventoryHTTPAdapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := httpclient.NewClient("order-service-test", 2*time.Second)
	return NewInventoryHTTPAdapter(client, server.URL, maxAttempts)
}

func TestReserve_Success(t *testing.T) {
	adapter := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tok-1", req["token"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"product_id":      "P-1",
			"outcome":         "RESERVED",
			"remaining_stock": 7,
		})
	}), 3)

	outcome, err := adapter.Reserve(context.Background(), "tok-1", "P-1", 3)
	require.NoError(t, err)
	assert.Equal(t, port.ReserveCodeReserved, outcome.Code)
	assert.Equal(t, 7, outcome.RemainingStock)
}

func TestReserve_ConflictIsBusinessOutcomeNotError(t *testing.T) {
	adapter := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"product_id":      "P-1",
			"outcome":         "INSUFFICIENT_STOCK",
			"remaining_stock": 2,
		})
	}), 3)

	outcome, err := adapter.Reserve(context.Background(), "tok-1", "P-1", 5)
	require.NoError(t, err)
	assert.Equal(t, port.ReserveCodeInsufficientStock, outcome.Code)
	assert.Equal(t, 2, outcome.RemainingStock)
}

func TestReserve_NotFoundIsBusinessOutcome(t *testing.T) {
	adapter := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"product_id": "P-missing",
			"outcome":    "NOT_FOUND",
		})
	}), 3)

	outcome, err := adapter.Reserve(context.Background(), "tok-1", "P-missing", 1)
	require.NoError(t, err)
	assert.Equal(t, port.ReserveCodeNotFound, outcome.Code)
}

func TestReserve_RetriesTransientFailureWithSameToken(t *testing.T) {
	var mu sync.Mutex
	var tokens []string
	attempts := 0

	adapter := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		json.NewDecoder(r.Body).Decode(&req)

		mu.Lock()
		tokens = append(tokens, req["token"].(string))
		attempts++
		failing := attempts <= 2
		mu.Unlock()

		if failing {
			http.Error(w, "temporarily unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"product_id":      "P-1",
			"outcome":         "RESERVED",
			"remaining_stock": 4,
		})
	}), 3)

	outcome, err := adapter.Reserve(context.Background(), "tok-stable", "P-1", 1)
	require.NoError(t, err)
	assert.Equal(t, port.ReserveCodeReserved, outcome.Code)

	// 每次重试都必须复用同一幂等令牌
	require.Len(t, tokens, 3)
	for _, token := range tokens {
		assert.Equal(t, "tok-stable", token)
	}
}

func TestReserve_ExhaustedRetriesReportDegradation(t *testing.T) {
	adapter := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}), 2)

	_, err := adapter.Reserve(context.Background(), "tok-1", "P-1", 1)
	assert.ErrorIs(t, err, domain.ErrServiceDegraded)
}

func TestGetProduct(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		adapter := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/products/P-1", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"product_id":         "P-1",
				"name":               "widget",
				"price":              "19.99",
				"available_quantity": 10,
				"active":             true,
			})
		}), 1)

		info, err := adapter.GetProduct(context.Background(), "P-1")
		require.NoError(t, err)
		assert.Equal(t, "P-1", info.ProductID)
		assert.Equal(t, "19.99", info.Price.StringFixed(2))
		assert.True(t, info.Active)
	})

	t.Run("not found", func(t *testing.T) {
		adapter := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}), 1)

		_, err := adapter.GetProduct(context.Background(), "P-missing")
		assert.ErrorIs(t, err, domain.ErrUnknownProduct)
	})
}

func TestRelease_RetriesThenSucceeds(t *testing.T) {
	var mu sync.Mutex
	attempts := 0

	adapter := newAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		failing := attempts == 1
		mu.Unlock()

		if failing {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"product_id": "P-1", "outcome": "RELEASED"})
	}), 3)

	err := adapter.Release(context.Background(), "tok-1", "P-1")
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}
