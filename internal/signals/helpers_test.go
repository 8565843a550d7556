package signals

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundata/pkg/domain"
	"fundata/pkg/frame"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// quarterEnd returns the last day of quarter q in year.
func quarterEnd(year, q int) time.Time {
	return time.Date(year, time.Month(3*q+1), 0, 0, 0, 0, 0, time.UTC)
}

type testRow struct {
	entity string
	date   time.Time
	values []float64
}

// statementFrame builds a canonical statement frame keyed by report date.
func statementFrame(t *testing.T, cols []domain.Column, rows []testRow) *frame.Frame {
	t.Helper()
	return buildFrame(t, domain.ReportDate, cols, rows)
}

// priceFrame builds a canonical share price frame keyed by trade date.
func priceFrame(t *testing.T, cols []domain.Column, rows []testRow) *frame.Frame {
	t.Helper()
	return buildFrame(t, domain.Date, cols, rows)
}

func buildFrame(t *testing.T, dateLabel domain.Column, cols []domain.Column, rows []testRow) *frame.Frame {
	t.Helper()
	f, err := frame.New(domain.Ticker, dateLabel, cols...)
	require.NoError(t, err)
	for _, r := range rows {
		require.NoError(t, f.AppendRow(r.entity, r.date, r.values))
	}
	f.SortCanonical()
	return f
}

// assertValues compares one output column against expectations, with
// NaN matching NaN.
func assertValues(t *testing.T, f *frame.Frame, c domain.Column, want []float64) {
	t.Helper()
	got, err := f.Column(c)
	require.NoError(t, err, "column %s", string(c))
	require.Len(t, got, len(want), "column %s", string(c))
	for i := range want {
		if math.IsNaN(want[i]) {
			assert.True(t, math.IsNaN(got[i]), "column %s row %d: want NaN, got %v", string(c), i, got[i])
			continue
		}
		assert.InDelta(t, want[i], got[i], 1e-9, "column %s row %d", string(c), i)
	}
}

var nan = math.NaN()
