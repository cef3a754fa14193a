package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"stockticker/internal/app"
	"stockticker/internal/chart"
	"stockticker/internal/provider"
)

const (
	maxSymbols     = 50
	handlerTimeout = 30 * time.Second
)

type quotesResponse struct {
	Quotes []provider.Quote `json:"quotes"`
}

type symbolsBody struct {
	Symbols []string `json:"symbols"`
}

type searchBody struct {
	Symbol string `json:"symbol"`
}

func routes(a *app.App) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/quote", allow(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		sym := provider.NormalizeSymbol(r.URL.Query().Get("symbol"))
		if sym == "" {
			http.Error(w, "missing symbol query param", http.StatusBadRequest)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()
		writeJSON(w, http.StatusOK, a.Quotes.Quote(ctx, sym))
	}))
	mux.HandleFunc("/api/quotes", func(w http.ResponseWriter, r *http.Request) {
		var symbols []string
		switch r.Method {
		case http.MethodGet:
			symbols = provider.NormalizeSymbols(strings.Split(r.URL.Query().Get("symbols"), ","))
		case http.MethodPost:
			var b symbolsBody
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&b); err != nil {
				http.Error(w, "invalid JSON body", http.StatusBadRequest)
				return
			}
			symbols = provider.NormalizeSymbols(b.Symbols)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if len(symbols) == 0 {
			http.Error(w, "symbols cannot be empty", http.StatusBadRequest)
			return
		}
		if len(symbols) > maxSymbols {
			http.Error(w, "too many symbols (max 50)", http.StatusBadRequest)
			return
		}
		writeQuotes(w, r.Context(), a, symbols)
	})
	mux.HandleFunc("/api/history", allow(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		sym := provider.NormalizeSymbol(r.URL.Query().Get("symbol"))
		if sym == "" {
			http.Error(w, "missing symbol query param", http.StatusBadRequest)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()
		h, err := a.Quotes.History(ctx, sym)
		if err != nil {
			http.Error(w, err.Error(), http.StatusGatewayTimeout)
			return
		}
		writeJSON(w, http.StatusOK, h)
	}))
	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		input := r.URL.Query().Get("symbol")
		switch r.Method {
		case http.MethodGet:
		case http.MethodPost:
			var b searchBody
			if err := json.NewDecoder(r.Body).Decode(&b); err != nil && !errors.Is(err, io.EOF) {
				http.Error(w, "invalid JSON body", http.StatusBadRequest)
				return
			}
			if b.Symbol != "" {
				input = b.Symbol
			}
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()
		writeJSON(w, http.StatusOK, a.Search.Search(ctx, input))
	})
	mux.HandleFunc("/api/search/view", allow(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, a.Search.View())
	}))
	mux.HandleFunc("/api/ticker", allow(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, a.Board.Snapshot())
	}))
	mux.HandleFunc("/api/chart", allow(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		data, ok := a.Chart.Data()
		if !ok {
			http.Error(w, chart.ErrNoChart.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, data)
	}))
	mux.HandleFunc("/chart", allow(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := a.Chart.WriteHTML(w); err != nil {
			if errors.Is(err, chart.ErrNoChart) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			log.Error().Err(err).Msg("chart page")
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	}))
	return mux
}

// allow rejects every method but m.
func allow(m string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != m {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func writeQuotes(w http.ResponseWriter, rctx context.Context, a *app.App, symbols []string) {
	ctx, cancel := context.WithTimeout(rctx, handlerTimeout)
	defer cancel()
	quotes, err := a.Quotes.Fetch(ctx, symbols)
	if err != nil && len(quotes) == 0 {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, quotesResponse{Quotes: quotes})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}
