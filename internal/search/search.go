// Package search runs a symbol lookup: quote first, then the price history
// that feeds the chart. Only the most recent submission may change what is
// displayed.
package search

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"stockticker/internal/chart"
	"stockticker/internal/history"
	"stockticker/internal/provider"
)

type Kind string

const (
	KindIdle          Kind = "idle"
	KindEmptyInput    Kind = "empty-input"
	KindLoading       Kind = "loading"
	KindRateLimited   Kind = "rate-limited"
	KindNetworkError  Kind = "network-error"
	KindInvalidSymbol Kind = "invalid-symbol"
	KindOK            Kind = "ok"
)

const (
	MsgEmptyInput    = "Please enter a stock symbol."
	MsgLoading       = "Loading..."
	MsgRateLimited   = "API limit reached. Please wait a minute and try again."
	MsgNetworkError  = "Error fetching data. Please try again."
	MsgInvalidSymbol = "Stock not found. Check ticker (try AAPL, MSFT, META)."

	NoteHistoryLimited = "(Historical data unavailable: API limit reached.)"
	NoteNoHistory      = "(No historical data.)"
	NoteChartFailed    = "(Failed to load chart.)"
)

// View is what the search area shows.
type View struct {
	Symbol        string    `json:"symbol,omitempty"`
	Kind          Kind      `json:"kind"`
	Message       string    `json:"message,omitempty"`
	Price         string    `json:"price,omitempty"`
	Change        string    `json:"change,omitempty"`
	ChangePercent string    `json:"change_percent,omitempty"`
	Notes         []string  `json:"notes,omitempty"`
	Points        int       `json:"points"`
	Generation    uint64    `json:"generation"`
	Superseded    bool      `json:"superseded,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type QuoteFetcher interface {
	Fetch(ctx context.Context, symbols []string) ([]provider.Quote, error)
}

type HistoryFetcher interface {
	History(ctx context.Context, symbol string) (provider.History, error)
}

type ChartRenderer interface {
	Render(labels []string, values []float64, title string) error
}

// Service serializes view updates behind a generation counter. Searches may
// run concurrently; a response whose generation is no longer the latest is
// dropped instead of overwriting a newer view.
type Service struct {
	Quotes  QuoteFetcher
	History HistoryFetcher
	Chart   ChartRenderer
	Log     zerolog.Logger
	Now     func() time.Time
	// OnChange is called with every view that reaches the display, one call
	// at a time and in the order the views were stamped. It must not start
	// another search.
	OnChange func(View)

	mu     sync.Mutex
	gen    uint64
	view   View
	issued uint64 // notification tickets handed out under mu

	notifyMu sync.Mutex
	turn     *sync.Cond
	served   uint64
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// View returns the currently displayed view.
func (s *Service) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.view
	if v.Kind == "" {
		v.Kind = KindIdle
	}
	v.Notes = append([]string(nil), v.Notes...)
	return v
}

func (s *Service) next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	return s.gen
}

// apply displays v if gen is still the latest submission and returns the
// stamped view. fn, when set, runs under the same lock so a chart render
// cannot interleave with a newer search.
func (s *Service) apply(gen uint64, v View, fn func()) (View, bool) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return v, false
	}
	if fn != nil {
		fn()
	}
	v.Generation = gen
	v.UpdatedAt = s.now()
	v.Notes = append([]string(nil), v.Notes...)
	s.view = v
	ticket := s.issued
	s.issued++
	s.mu.Unlock()

	s.notify(ticket, v)
	return v, true
}

// notify waits for every earlier ticket to be delivered, then hands v to
// OnChange.
func (s *Service) notify(ticket uint64, v View) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if s.turn == nil {
		s.turn = sync.NewCond(&s.notifyMu)
	}
	for s.served != ticket {
		s.turn.Wait()
	}
	if s.OnChange != nil {
		s.OnChange(v)
	}
	s.served++
	s.turn.Broadcast()
}

// Search looks up input and returns the resulting view. When a newer search
// was submitted meanwhile, the returned view has Superseded set and the
// display is left to the newer search.
func (s *Service) Search(ctx context.Context, input string) View {
	gen := s.next()
	sym := provider.NormalizeSymbol(input)
	log := s.Log.With().Str("symbol", sym).Uint64("generation", gen).Logger()

	if sym == "" {
		return s.finish(gen, View{Kind: KindEmptyInput, Message: MsgEmptyInput})
	}
	loading := View{Symbol: sym, Kind: KindLoading, Message: MsgLoading}
	if _, ok := s.apply(gen, loading, nil); !ok {
		return s.superseded(gen, loading)
	}

	q := s.quote(ctx, sym)
	v := viewForQuote(q)
	if v.Kind != KindOK {
		log.Warn().Str("status", string(q.Status)).Msg("search quote failed")
		return s.finish(gen, v)
	}
	if _, ok := s.apply(gen, v, nil); !ok {
		return s.superseded(gen, v)
	}

	h, err := s.History.History(ctx, sym)
	if err != nil {
		log.Warn().Err(err).Msg("search history failed")
		h = provider.History{Symbol: sym, Reason: provider.HistoryNetworkError}
	}
	if h.Reason == provider.HistoryOK && len(h.Points) == 0 {
		h.Reason = provider.HistoryNoData
	}
	if note := noteFor(h.Reason); note != "" {
		log.Warn().Str("reason", string(h.Reason)).Msg("search history unavailable")
		v.Notes = append(v.Notes, note)
		return s.finish(gen, v)
	}

	var renderErr error
	v.Points = len(h.Points)
	shown, ok := s.apply(gen, v, func() {
		renderErr = s.Chart.Render(history.Labels(h.Points), history.Values(h.Points), chart.Title(sym))
	})
	if !ok {
		return s.superseded(gen, v)
	}
	if renderErr != nil {
		log.Error().Err(renderErr).Msg("chart render failed")
		v.Points = 0
		v.Notes = append(v.Notes, NoteChartFailed)
		return s.finish(gen, v)
	}
	log.Debug().Int("points", v.Points).Msg("search done")
	return shown
}

func (s *Service) finish(gen uint64, v View) View {
	shown, ok := s.apply(gen, v, nil)
	if !ok {
		return s.superseded(gen, v)
	}
	return shown
}

func (s *Service) superseded(gen uint64, v View) View {
	s.Log.Debug().Str("symbol", v.Symbol).Uint64("generation", gen).Msg("search superseded")
	v.Generation = gen
	v.Superseded = true
	return v
}

func (s *Service) quote(ctx context.Context, sym string) provider.Quote {
	qs, err := s.Quotes.Fetch(ctx, []string{sym})
	for _, q := range qs {
		if q.Symbol == sym {
			return q
		}
	}
	if err != nil {
		s.Log.Warn().Err(err).Str("symbol", sym).Msg("quote fetch failed")
	}
	return provider.Failed(sym, provider.StatusNetworkError, s.now())
}

func viewForQuote(q provider.Quote) View {
	v := View{Symbol: q.Symbol}
	switch {
	case q.Status == provider.StatusRateLimited:
		v.Kind, v.Message = KindRateLimited, MsgRateLimited
	case q.Status == provider.StatusNetworkError:
		v.Kind, v.Message = KindNetworkError, MsgNetworkError
	case q.Status != provider.StatusOK || q.Price == "":
		v.Kind, v.Message = KindInvalidSymbol, MsgInvalidSymbol
	default:
		v.Kind = KindOK
		v.Price = q.Price
		v.Change = q.Change
		v.ChangePercent = q.ChangePercent
	}
	return v
}

func noteFor(r provider.HistoryReason) string {
	switch r {
	case provider.HistoryOK:
		return ""
	case provider.HistoryRateLimited:
		return NoteHistoryLimited
	case provider.HistoryNoData:
		return NoteNoHistory
	default:
		return NoteChartFailed
	}
}
