package alphavantage

import (
	"context"
	"encoding/json"
	"net/http"

	"stockticker/internal/history"
	"stockticker/internal/provider"
)

type dailyBar struct {
	Close *string `json:"4. close"`
}

type dailySeriesResponse struct {
	throttled
	ErrorMessage string              `json:"Error Message"`
	TimeSeries   map[string]dailyBar `json:"Time Series (Daily)"`
}

// History fetches TIME_SERIES_DAILY for symbol and normalizes it to at most
// history.MaxPoints closes, oldest first.
func (c *Client) History(ctx context.Context, symbol string) (provider.History, error) {
	symbol = provider.NormalizeSymbol(symbol)
	out := provider.History{Symbol: symbol}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	c.log.Debug().Str("provider", name).Str("symbol", symbol).Msg("daily series request")

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function":   "TIME_SERIES_DAILY",
			"symbol":     symbol,
			"outputsize": "compact",
			"apikey":     c.apiKey,
		}).
		Get(c.baseURL + "/query")
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("daily series transport error")
		out.Reason = provider.HistoryNetworkError
		return out, nil
	}
	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		out.Reason = provider.HistoryRateLimited
		return out, nil
	case !resp.IsSuccess():
		out.Reason = provider.HistoryNetworkError
		return out, nil
	}

	var body dailySeriesResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("daily series decode")
		out.Reason = provider.HistoryNetworkError
		return out, nil
	}
	if body.limited() {
		out.Reason = provider.HistoryRateLimited
		return out, nil
	}
	if body.TimeSeries == nil {
		out.Reason = provider.HistoryNoData
		return out, nil
	}

	closes := make(map[string]*string, len(body.TimeSeries))
	for date, bar := range body.TimeSeries {
		closes[date] = bar.Close
	}
	out.Points = history.FromDateKeyed(closes)
	if len(out.Points) == 0 {
		out.Reason = provider.HistoryNoData
	}
	return out, nil
}
