package alphavantage

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockticker/internal/provider"
)

type globalQuoteResponse struct {
	throttled
	ErrorMessage string            `json:"Error Message"`
	GlobalQuote  map[string]string `json:"Global Quote"`
}

// Fetch resolves each symbol with one GLOBAL_QUOTE request, sequentially.
func (c *Client) Fetch(ctx context.Context, symbols []string) ([]provider.Quote, error) {
	symbols = provider.NormalizeSymbols(symbols)
	out := make([]provider.Quote, 0, len(symbols))
	for _, s := range symbols {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out = append(out, c.quote(ctx, s))
	}
	return out, nil
}

func (c *Client) quote(ctx context.Context, symbol string) provider.Quote {
	c.log.Debug().Str("provider", name).Str("symbol", symbol).Msg("global quote request")

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function": "GLOBAL_QUOTE",
			"symbol":   symbol,
			"apikey":   c.apiKey,
		}).
		Get(c.baseURL + "/query")
	now := c.now()
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("global quote transport error")
		return provider.Failed(symbol, provider.StatusNetworkError, now)
	}
	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		return provider.Failed(symbol, provider.StatusRateLimited, now)
	case !resp.IsSuccess():
		c.log.Warn().Int("status", resp.StatusCode()).Str("symbol", symbol).Msg("global quote unexpected status")
		return provider.Failed(symbol, provider.StatusNetworkError, now)
	}

	var body globalQuoteResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("global quote decode")
		return provider.Failed(symbol, provider.StatusNetworkError, now)
	}
	return classifyQuote(symbol, body, now)
}

func classifyQuote(symbol string, body globalQuoteResponse, now time.Time) provider.Quote {
	if body.limited() {
		return provider.Failed(symbol, provider.StatusRateLimited, now)
	}
	raw := strings.TrimSpace(body.GlobalQuote["05. price"])
	if body.ErrorMessage != "" || raw == "" {
		return provider.Failed(symbol, provider.StatusInvalidSymbol, now)
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return provider.Failed(symbol, provider.StatusInvalidSymbol, now)
	}
	return provider.Quote{
		Symbol:        symbol,
		Status:        provider.StatusOK,
		Price:         price.StringFixed(2),
		Change:        orPlaceholder(body.GlobalQuote["09. change"]),
		ChangePercent: orPlaceholder(body.GlobalQuote["10. change percent"]),
		Source:        name,
		FetchedAt:     now,
	}
}

func orPlaceholder(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return provider.Placeholder
	}
	return s
}
