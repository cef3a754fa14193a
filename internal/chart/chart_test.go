package chart_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"stockticker/internal/chart"
)

func TestRender_ReplacesPreviousInstance(t *testing.T) {
	t.Parallel()

	// Arrange
	r := chart.New()

	// Act: two renders in succession
	require.NoError(t, r.Render([]string{"2025-01-02", "2025-01-03"}, []float64{1, 2}, chart.Title("AAPL")))
	require.NoError(t, r.Render([]string{"2025-01-02"}, []float64{3}, chart.Title("MSFT")))

	// Assert: exactly one live chart, holding the second render
	require.Equal(t, 1, r.Live())
	data, ok := r.Data()
	require.True(t, ok)
	require.Equal(t, "MSFT Stock Price (Last 30 Days)", data.Title)
	require.Equal(t, []float64{3}, data.Values)
}

func TestRender_MismatchKeepsCurrent(t *testing.T) {
	t.Parallel()

	r := chart.New()
	require.NoError(t, r.Render([]string{"a"}, []float64{1}, "first"))

	err := r.Render([]string{"a", "b"}, []float64{1}, "second")

	require.ErrorIs(t, err, chart.ErrLengthMismatch)
	require.Equal(t, 1, r.Live())
	data, ok := r.Data()
	require.True(t, ok)
	require.Equal(t, "first", data.Title)
}

func TestWriteHTML(t *testing.T) {
	t.Parallel()

	r := chart.New()
	var buf bytes.Buffer
	require.ErrorIs(t, r.WriteHTML(&buf), chart.ErrNoChart)

	require.NoError(t, r.Render([]string{"2025-01-02", "2025-01-03"}, []float64{100.5, 101.25}, chart.Title("AAPL")))
	require.NoError(t, r.WriteHTML(&buf))

	html := buf.String()
	require.Contains(t, html, "<html")
	require.Contains(t, html, "AAPL Stock Price (Last 30 Days)")
	require.Contains(t, html, "2025-01-03")
}

func TestDestroy(t *testing.T) {
	t.Parallel()

	r := chart.New()
	r.Destroy()
	require.Equal(t, 0, r.Live())

	require.NoError(t, r.Render(nil, nil, "empty"))
	require.Equal(t, 1, r.Live())
	r.Destroy()
	require.Equal(t, 0, r.Live())
	_, ok := r.Data()
	require.False(t, ok)
}

func TestData_IsACopy(t *testing.T) {
	t.Parallel()

	r := chart.New()
	labels := []string{"a"}
	values := []float64{1}
	require.NoError(t, r.Render(labels, values, "t"))
	labels[0] = "mutated"

	data, _ := r.Data()
	data.Values[0] = 99

	again, _ := r.Data()
	require.Equal(t, []string{"a"}, again.Labels)
	require.Equal(t, []float64{1}, again.Values)
}
