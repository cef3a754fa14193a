// Package yahoo reads quotes and daily closes from the Yahoo Finance v8
// chart endpoint. The history arrives index-aligned: one timestamp array and
// one close array per result, with nulls for rows that did not trade.
package yahoo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"stockticker/internal/history"
	"stockticker/internal/httpx"
	"stockticker/internal/provider"
)

const (
	defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	name           = "Yahoo"

	quoteRange   = "5d"
	historyRange = "3mo"
)

type Config struct {
	BaseURL string
	Now     func() time.Time
	Log     zerolog.Logger
}

type Provider struct {
	cfg    Config
	client *resty.Client
}

func New(cfg Config, hc *resty.Client) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if hc == nil {
		hc = httpx.New(10*time.Second, "")
	}
	return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) Name() string { return name }

type chartMeta struct {
	Symbol               string   `json:"symbol"`
	RegularMarketPrice   *float64 `json:"regularMarketPrice"`
	ChartPreviousClose   *float64 `json:"chartPreviousClose"`
	PreviousClose        *float64 `json:"previousClose"`
	ExchangeTimezoneName string   `json:"exchangeTimezoneName"`
}

type chartResult struct {
	Meta       chartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// outcome is the classified result of one chart request.
type outcome int

const (
	outcomeOK outcome = iota
	outcomeLimited
	outcomeNotFound
	outcomeFailed
)

func (p *Provider) chart(ctx context.Context, symbol, rng string) (*chartResult, outcome) {
	p.cfg.Log.Debug().Str("provider", name).Str("symbol", symbol).Str("range", rng).Msg("chart request")

	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"range":    rng,
			"interval": "1d",
		}).
		Get(p.cfg.BaseURL + "/" + url.PathEscape(symbol))
	if err != nil {
		p.cfg.Log.Warn().Err(err).Str("symbol", symbol).Msg("chart transport error")
		return nil, outcomeFailed
	}
	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		return nil, outcomeLimited
	case resp.StatusCode() == http.StatusNotFound:
		return nil, outcomeNotFound
	case !resp.IsSuccess():
		p.cfg.Log.Warn().Int("status", resp.StatusCode()).Str("symbol", symbol).Msg("chart unexpected status")
		return nil, outcomeFailed
	}

	var body chartResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		p.cfg.Log.Warn().Err(err).Str("symbol", symbol).Msg("chart decode")
		return nil, outcomeFailed
	}
	if body.Chart.Error != nil || len(body.Chart.Result) == 0 {
		return nil, outcomeNotFound
	}
	return &body.Chart.Result[0], outcomeOK
}

// Fetch issues one chart request per symbol, sequentially.
func (p *Provider) Fetch(ctx context.Context, symbols []string) ([]provider.Quote, error) {
	symbols = provider.NormalizeSymbols(symbols)
	out := make([]provider.Quote, 0, len(symbols))
	for _, s := range symbols {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res, oc := p.chart(ctx, s, quoteRange)
		now := p.cfg.Now()
		switch oc {
		case outcomeLimited:
			out = append(out, provider.Failed(s, provider.StatusRateLimited, now))
		case outcomeNotFound:
			out = append(out, provider.Failed(s, provider.StatusInvalidSymbol, now))
		case outcomeFailed:
			out = append(out, provider.Failed(s, provider.StatusNetworkError, now))
		default:
			out = append(out, quoteFromMeta(s, res.Meta, now))
		}
	}
	return out, nil
}

func quoteFromMeta(symbol string, m chartMeta, now time.Time) provider.Quote {
	if m.RegularMarketPrice == nil {
		return provider.Failed(symbol, provider.StatusInvalidSymbol, now)
	}
	price := decimal.NewFromFloat(*m.RegularMarketPrice)
	q := provider.Quote{
		Symbol:        symbol,
		Status:        provider.StatusOK,
		Price:         price.StringFixed(2),
		Change:        provider.Placeholder,
		ChangePercent: provider.Placeholder,
		Source:        name,
		FetchedAt:     now,
	}
	prev := m.ChartPreviousClose
	if prev == nil {
		prev = m.PreviousClose
	}
	if prev != nil && *prev != 0 {
		base := decimal.NewFromFloat(*prev)
		change := price.Sub(base)
		q.Change = change.StringFixed(4)
		q.ChangePercent = change.Div(base).Mul(decimal.NewFromInt(100)).StringFixed(4) + "%"
	}
	return q
}

// History fetches three months of daily closes and keeps the most recent
// history.MaxPoints.
func (p *Provider) History(ctx context.Context, symbol string) (provider.History, error) {
	symbol = provider.NormalizeSymbol(symbol)
	out := provider.History{Symbol: symbol}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	res, oc := p.chart(ctx, symbol, historyRange)
	switch oc {
	case outcomeLimited:
		out.Reason = provider.HistoryRateLimited
		return out, nil
	case outcomeNotFound:
		out.Reason = provider.HistoryNoData
		return out, nil
	case outcomeFailed:
		out.Reason = provider.HistoryNetworkError
		return out, nil
	}

	var closes []*float64
	if len(res.Indicators.Quote) > 0 {
		closes = res.Indicators.Quote[0].Close
	}
	out.Points = history.FromIndexed(res.Timestamp, closes, location(res.Meta.ExchangeTimezoneName))
	if len(out.Points) == 0 {
		out.Reason = provider.HistoryNoData
	}
	return out, nil
}

func location(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}
