// Package chart owns the single price chart shown for the last searched
// symbol.
package chart

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

var (
	ErrNoChart        = errors.New("no chart rendered")
	ErrLengthMismatch = errors.New("labels and values differ in length")
)

// Title is the series caption for symbol.
func Title(symbol string) string {
	return fmt.Sprintf("%s Stock Price (Last 30 Days)", symbol)
}

// Data is the input of the current chart.
type Data struct {
	Title  string    `json:"title"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Renderer holds at most one chart. Each Render destroys the previous chart
// before building the next one.
type Renderer struct {
	mu        sync.Mutex
	current   *charts.Line
	data      Data
	created   int
	destroyed int
}

func New() *Renderer { return &Renderer{} }

// Render replaces the current chart with a line chart of values over labels.
// Mismatched inputs leave the current chart untouched.
func (r *Renderer) Render(labels []string, values []float64, title string) error {
	if len(labels) != len(values) {
		return fmt.Errorf("render %q: %w (%d labels, %d values)", title, ErrLengthMismatch, len(labels), len(values))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.destroyLocked()

	items := make([]opts.LineData, len(values))
	for i, v := range values {
		items[i] = opts.LineData{Value: v}
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Close"}),
	)
	line.SetXAxis(labels).AddSeries(title, items)

	r.current = line
	r.data = Data{
		Title:  title,
		Labels: append([]string(nil), labels...),
		Values: append([]float64(nil), values...),
	}
	r.created++
	return nil
}

// Destroy drops the current chart, if any.
func (r *Renderer) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroyLocked()
}

func (r *Renderer) destroyLocked() {
	if r.current == nil {
		return
	}
	r.current = nil
	r.data = Data{}
	r.destroyed++
}

// Live reports how many chart instances exist: zero or one.
func (r *Renderer) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.created - r.destroyed
}

// Data returns a copy of the current chart input.
func (r *Renderer) Data() (Data, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return Data{}, false
	}
	return Data{
		Title:  r.data.Title,
		Labels: append([]string(nil), r.data.Labels...),
		Values: append([]float64(nil), r.data.Values...),
	}, true
}

// WriteHTML renders the current chart as a standalone HTML page.
func (r *Renderer) WriteHTML(w io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return ErrNoChart
	}
	return r.current.Render(w)
}
