package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stockticker/internal/app"
	"stockticker/internal/config"
	"stockticker/internal/display"
	"stockticker/internal/logging"
	"stockticker/internal/provider"
	"stockticker/internal/search"
	"stockticker/internal/ticker"
)

type cli struct {
	out io.Writer

	configPath   string
	providerName string
	debug        bool

	// newApp builds the application; tests swap in a fake upstream.
	newApp func(config.Config, zerolog.Logger) (*app.App, error)
	// prompt reads one symbol; it returns terminal.InterruptErr on Ctrl-C.
	prompt func() (string, error)
}

func newCLI(out io.Writer) *cli {
	return &cli{out: out, newApp: app.New, prompt: promptSymbol}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:          "fetch",
		Short:        "Stock quotes, price history and a live watchlist ticker",
		SilenceUsage: true,
	}
	root.SetOut(c.out)
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to config.json (optional)")
	root.PersistentFlags().StringVar(&c.providerName, "provider", "", "quote provider: alphavantage or yahoo")
	root.PersistentFlags().BoolVar(&c.debug, "debug", false, "enable debug logging")

	root.AddCommand(newQuoteCmd(c), newHistoryCmd(c), newSearchCmd(c), newTickerCmd(c))
	return root
}

// build loads config, applies global flags and wires the application.
func (c *cli) build() (*app.App, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.providerName != "" {
		cfg.Provider.Name = strings.ToLower(c.providerName)
	}
	if c.debug {
		cfg.Log.Level = "debug"
	}
	logger := logging.Setup(cfg.Log.Level, true)
	return c.newApp(cfg, logger)
}

func newQuoteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "quote SYMBOL...",
		Short: "Print the latest quote for each symbol",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.build()
			if err != nil {
				return err
			}
			symbols := provider.NormalizeSymbols(args)
			if len(symbols) == 0 {
				return errors.New("no symbols given")
			}
			quotes, err := a.Quotes.Fetch(cmd.Context(), symbols)
			if err != nil && len(quotes) == 0 {
				return err
			}
			for _, q := range quotes {
				f := ticker.FragmentFor(q)
				if q.OK() {
					fmt.Fprintf(c.out, "%s  change %s  (%s)\n", f.Text, q.Change, q.ChangePercent)
					continue
				}
				fmt.Fprintln(c.out, f.Text)
			}
			return nil
		},
	}
}

func newHistoryCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history SYMBOL",
		Short: "Print up to 30 daily closes, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.build()
			if err != nil {
				return err
			}
			h, err := a.Quotes.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(c.out)
				enc.SetIndent("", "  ")
				return enc.Encode(h)
			}
			if !h.OK() {
				fmt.Fprintf(c.out, "%s: no history (%s)\n", h.Symbol, h.Reason)
				return nil
			}
			for _, p := range h.Points {
				fmt.Fprintf(c.out, "%s  %.2f\n", p.Date, p.Close)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the series as JSON")
	return cmd
}

func newSearchCmd(c *cli) *cobra.Command {
	var chartPath string
	cmd := &cobra.Command{
		Use:   "search [SYMBOL]",
		Short: "Look up a symbol and chart its recent closes; prompts when no symbol is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.build()
			if err != nil {
				return err
			}
			// every stage of a search is printed as it lands, "Loading..." first
			a.Search.OnChange = func(v search.View) {
				fmt.Fprintln(c.out, display.SearchView(v))
			}
			run := func(input string) error {
				v := a.Search.Search(cmd.Context(), input)
				if chartPath != "" && v.Kind == search.KindOK && v.Points > 0 {
					return writeChart(a, chartPath)
				}
				return nil
			}
			if len(args) == 1 {
				return run(args[0])
			}

			fmt.Fprintln(c.out, display.SearchView(a.Search.View()))
			for {
				input, err := c.prompt()
				if errors.Is(err, terminal.InterruptErr) || errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}
				if err := run(input); err != nil {
					return err
				}
			}
		},
	}
	cmd.Flags().StringVar(&chartPath, "chart", "", "write the chart page to this HTML file")
	return cmd
}

func writeChart(a *app.App, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	if err := a.Chart.WriteHTML(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write chart: %w", err)
	}
	return f.Close()
}

func promptSymbol() (string, error) {
	var input string
	err := survey.AskOne(&survey.Input{
		Message: "Symbol:",
		Help:    "Enter a stock ticker symbol such as AAPL, MSFT or META. Ctrl-C exits.",
	}, &input)
	return input, err
}

func newTickerCmd(c *cli) *cobra.Command {
	var passes int
	cmd := &cobra.Command{
		Use:   "ticker",
		Short: "Run the watchlist ticker and redraw the bar as quotes arrive",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.build()
			if err != nil {
				return err
			}
			a.Cycle.OnPublish = func(s ticker.Snapshot) {
				fmt.Fprintln(c.out, display.TickerBar(s))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if passes <= 0 {
				err := a.Cycle.Run(ctx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
			return runPasses(ctx, a.Cycle, passes)
		},
	}
	cmd.Flags().IntVar(&passes, "passes", 0, "stop after this many passes (0 runs until interrupted)")
	return cmd
}

// runPasses runs n passes with the cooldown between them but not after the
// last one.
func runPasses(ctx context.Context, cy *ticker.Cycle, n int) error {
	for i := 0; i < n; i++ {
		if _, err := cy.RunOnce(ctx); err != nil {
			return err
		}
		if i == n-1 {
			break
		}
		if err := cy.Sleep(ctx, cy.Cooldown); err != nil {
			return err
		}
	}
	return nil
}
