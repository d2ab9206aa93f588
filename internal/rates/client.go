// Package rates fetches base-anchored exchange rates from ExchangeRate-API.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"billflow/internal/core"

	"github.com/shopspring/decimal"
)

const DefaultBaseURL = "https://v6.exchangerate-api.com/v6"

// ErrNoAPIKey is returned when the client has no key to call the API with.
var ErrNoAPIKey = errors.New("exchange rate api key not configured")

// Client is an HTTP client for the ExchangeRate-API "latest" endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type latestResponse struct {
	Result          string                     `json:"result"`
	ErrorType       string                     `json:"error-type"`
	BaseCode        string                     `json:"base_code"`
	ConversionRates map[string]decimal.Decimal `json:"conversion_rates"`
}

// Latest returns base->X rates for every supported currency, plus the
// base->base identity row.
func (c *Client) Latest(ctx context.Context, base string) ([]core.ExchangeRate, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	url := fmt.Sprintf("%s/%s/latest/%s", c.baseURL, c.apiKey, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("exchange rate request failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var data latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if data.Result != "success" {
		return nil, fmt.Errorf("exchange rate response invalid: result %q %s", data.Result, data.ErrorType)
	}

	out := []core.ExchangeRate{{From: base, To: base, Rate: decimal.NewFromInt(1)}}
	for _, code := range core.CurrencyCodes(base) {
		if code == base {
			continue
		}
		rate, ok := data.ConversionRates[code]
		if !ok || !rate.IsPositive() {
			continue
		}
		out = append(out, core.ExchangeRate{From: base, To: code, Rate: rate})
	}
	return out, nil
}
