package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"stockticker/internal/app"
	"stockticker/internal/config"
	"stockticker/internal/provider"
	"stockticker/internal/search"
)

type stubProvider struct{}

func (stubProvider) Name() string { return "stub" }

func (stubProvider) Fetch(_ context.Context, symbols []string) ([]provider.Quote, error) {
	out := make([]provider.Quote, 0, len(symbols))
	for _, s := range symbols {
		if s == "LIMIT" {
			out = append(out, provider.Failed(s, provider.StatusRateLimited, time.Now()))
			continue
		}
		out = append(out, provider.Quote{Symbol: s, Status: provider.StatusOK, Price: "42.00", Change: "0.50", ChangePercent: "1.2048%", FetchedAt: time.Now()})
	}
	return out, nil
}

func (stubProvider) History(_ context.Context, symbol string) (provider.History, error) {
	return provider.History{Symbol: symbol, Points: []provider.HistoryPoint{
		{Date: "2025-05-29", Close: 41},
		{Date: "2025-05-30", Close: 42},
	}}, nil
}

// run executes the CLI against the stub provider with no real pauses.
func run(t *testing.T, c *cli, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	c.out = &out
	c.newApp = func(cfg config.Config, l zerolog.Logger) (*app.App, error) {
		a := app.NewWith(cfg, stubProvider{}, zerolog.Nop())
		a.Cycle.Sleep = func(context.Context, time.Duration) error { return nil }
		return a, nil
	}
	cmd := newRootCmd(c)
	cmd.SetArgs(args)
	cmd.SetErr(io.Discard)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestQuoteCmd(t *testing.T) {
	out := run(t, &cli{}, "quote", "aapl", "limit")

	require.Contains(t, out, "AAPL: $42.00  change 0.50  (1.2048%)")
	require.Contains(t, out, "LIMIT: API Limit")
}

func TestHistoryCmd(t *testing.T) {
	out := run(t, &cli{}, "history", "msft")
	require.Equal(t, "2025-05-29  41.00\n2025-05-30  42.00\n", out)

	out = run(t, &cli{}, "history", "msft", "--json")
	require.Contains(t, out, `"date": "2025-05-30"`)
}

func TestSearchCmd_WritesChart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.html")

	out := run(t, &cli{}, "search", "aapl", "--chart", path)

	require.Contains(t, out, "$42.00")
	require.Contains(t, out, search.MsgLoading)
	require.Less(t, strings.Index(out, search.MsgLoading), strings.Index(out, "$42.00"), "loading shown before the quote")
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), "AAPL Stock Price (Last 30 Days)")
}

func TestSearchCmd_PromptLoop(t *testing.T) {
	// Arrange: an empty entry, a symbol, then Ctrl-C
	inputs := []string{"  ", "meta"}
	c := &cli{prompt: func() (string, error) {
		if len(inputs) == 0 {
			return "", terminal.InterruptErr
		}
		in := inputs[0]
		inputs = inputs[1:]
		return in, nil
	}}

	// Act
	out := run(t, c, "search")

	// Assert
	require.Contains(t, out, "Enter a stock symbol.")
	require.Contains(t, out, "Please enter a stock symbol.")
	require.Contains(t, out, search.MsgLoading)
	require.Contains(t, out, "META")
	require.Empty(t, inputs)
}

func TestTickerCmd_Passes(t *testing.T) {
	out := run(t, &cli{}, "ticker", "--passes", "2")

	// five symbols per pass, the bar redrawn after each
	require.Equal(t, 10, strings.Count(out, "AAPL"))
	require.Contains(t, out, "META: $42.00")
}
