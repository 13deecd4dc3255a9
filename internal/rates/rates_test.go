package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaticProvider(t *testing.T) {
	assert.Equal(t, 15500.0, StaticProvider{Rate: 15500}.USDToIDR(context.Background()))
	assert.Equal(t, float64(DefaultUSDToIDR), StaticProvider{}.USDToIDR(context.Background()))
}

func TestRestProvider(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/latest", r.URL.Path)
		assert.Equal(t, "USD", r.URL.Query().Get("base"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rates": {"IDR": 15750.5}}`))
	}))
	defer server.Close()

	provider := NewRestProvider(server.URL, 0)

	assert.Equal(t, 15750.5, provider.USDToIDR(context.Background()))

	// Second lookup is served from the cache.
	assert.Equal(t, 15750.5, provider.USDToIDR(context.Background()))
	assert.Equal(t, int32(1), calls.Load())
}

func TestRestProviderFallbackOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := NewRestProvider(server.URL, 15000)
	assert.Equal(t, 15000.0, provider.USDToIDR(context.Background()))
}

func TestRestProviderFallbackOnBadResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rates": {}}`))
	}))
	defer server.Close()

	provider := NewRestProvider(server.URL, 0)
	assert.Equal(t, float64(DefaultUSDToIDR), provider.USDToIDR(context.Background()))
}

func TestRestProviderFallbackOnUnreachableService(t *testing.T) {
	provider := NewRestProvider("http://127.0.0.1:1", 0)
	assert.Equal(t, float64(DefaultUSDToIDR), provider.USDToIDR(context.Background()))
}
