package interfaces

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercury/internal/service/inventory/application"
	"mercury/internal/service/inventory/infrastructure"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	repo := infrastructure.NewMemoryProductRepository()
	service := application.NewService(repo, infrastructure.NewLocalLockManager())
	handler := NewHTTPHandler(service)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func createProduct(t *testing.T, server *httptest.Server, productID string, quantity int) {
	t.Helper()
	body := fmt.Sprintf(`{"product_id":%q,"name":"widget","price":"9.99","quantity":%d}`, productID, quantity)
	resp, err := http.Post(server.URL+"/products", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestReserveEndpoint(t *testing.T) {
	server := newTestServer(t)
	createProduct(t, server, "P-1", 10)

	t.Run("reserved", func(t *testing.T) {
		resp, body := postJSON(t, server.URL+"/products/P-1/reserve", `{"token":"tok-1","quantity":3}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "RESERVED", body["outcome"])
		assert.Equal(t, float64(7), body["remaining_stock"])
	})

	t.Run("insufficient stock maps to conflict", func(t *testing.T) {
		resp, body := postJSON(t, server.URL+"/products/P-1/reserve", `{"token":"tok-2","quantity":100}`)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "INSUFFICIENT_STOCK", body["outcome"])
	})

	t.Run("unknown product maps to not found", func(t *testing.T) {
		resp, body := postJSON(t, server.URL+"/products/P-missing/reserve", `{"token":"tok-3","quantity":1}`)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", body["outcome"])
	})

	t.Run("missing token is a bad request", func(t *testing.T) {
		resp, _ := postJSON(t, server.URL+"/products/P-1/reserve", `{"quantity":1}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("replay returns recorded outcome", func(t *testing.T) {
		resp, body := postJSON(t, server.URL+"/products/P-1/reserve", `{"token":"tok-1","quantity":3}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "RESERVED", body["outcome"])
		assert.Equal(t, float64(7), body["remaining_stock"])
	})
}

func TestReleaseEndpoint(t *testing.T) {
	server := newTestServer(t)
	createProduct(t, server, "P-1", 10)

	_, _ = postJSON(t, server.URL+"/products/P-1/reserve", `{"token":"tok-1","quantity":4}`)

	t.Run("release restores stock", func(t *testing.T) {
		resp, body := postJSON(t, server.URL+"/products/P-1/release", `{"token":"tok-1"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "RELEASED", body["outcome"])
	})

	t.Run("unknown token is an acknowledged noop", func(t *testing.T) {
		resp, body := postJSON(t, server.URL+"/products/P-1/release", `{"token":"tok-unknown"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "NOOP", body["outcome"])
	})
}

func TestProductEndpoints(t *testing.T) {
	server := newTestServer(t)
	createProduct(t, server, "P-1", 5)

	t.Run("get product", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/products/P-1")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "P-1", body["product_id"])
		assert.Equal(t, float64(5), body["available_quantity"])
	})

	t.Run("get unknown product", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/products/P-missing")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("duplicate creation conflicts", func(t *testing.T) {
		body := `{"product_id":"P-1","name":"widget","price":"9.99","quantity":5}`
		resp, err := http.Post(server.URL+"/products", "application/json", bytes.NewBufferString(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("check stock", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/products/P-1/stock?quantity=5")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, true, body["has_sufficient_stock"])
	})
}
