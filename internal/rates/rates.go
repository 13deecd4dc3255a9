package rates

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultUSDToIDR is used when no rate service is configured or the lookup
// fails, matching the fixed rate the dashboard charts were built around.
const DefaultUSDToIDR = 16000

const cacheTTL = time.Hour

// Provider returns the USD to IDR conversion rate.
type Provider interface {
	USDToIDR(ctx context.Context) float64
}

// StaticProvider always returns a fixed rate.
type StaticProvider struct {
	Rate float64
}

func (p StaticProvider) USDToIDR(ctx context.Context) float64 {
	if p.Rate <= 0 {
		return DefaultUSDToIDR
	}
	return p.Rate
}

// RestProvider fetches the rate from an exchange rate API and caches it. Any
// lookup failure falls back to the static default so workbook processing is
// never blocked on the rate service.
type RestProvider struct {
	client   *resty.Client
	fallback float64

	lock      sync.Mutex
	cached    float64
	fetchedAt time.Time
}

func NewRestProvider(baseURL string, fallback float64) *RestProvider {
	if fallback <= 0 {
		fallback = DefaultUSDToIDR
	}
	return &RestProvider{
		client:   resty.New().SetBaseURL(baseURL),
		fallback: fallback,
	}
}

type rateResponse struct {
	Rates map[string]float64 `json:"rates"`
}

func (p *RestProvider) USDToIDR(ctx context.Context) float64 {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.cached > 0 && time.Since(p.fetchedAt) < cacheTTL {
		return p.cached
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("base", "USD").
		SetQueryParam("symbols", "IDR").
		Get("/latest")

	if err != nil {
		slog.Error("unable to fetch exchange rate", "error", err)
		return p.fallback
	}

	if !res.IsSuccess() {
		slog.Error("exchange rate service returned error", "status_code", res.StatusCode(), "body", res.String())
		return p.fallback
	}

	var parsed rateResponse
	if err := json.Unmarshal(res.Body(), &parsed); err != nil {
		slog.Error("error parsing exchange rate response", "error", err)
		return p.fallback
	}

	rate, ok := parsed.Rates["IDR"]
	if !ok || rate <= 0 {
		slog.Error("exchange rate response missing IDR rate")
		return p.fallback
	}

	p.cached = rate
	p.fetchedAt = time.Now()

	return rate
}
