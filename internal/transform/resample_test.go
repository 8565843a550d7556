package transform

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "fundata/internal/errors"
	"fundata/pkg/domain"
	"fundata/pkg/frame"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResampleQuarterlyForwardFill(t *testing.T) {
	f := frame.MustNew(domain.Ticker, domain.ReportDate, domain.Revenue)
	require.NoError(t, f.AppendRow("AAPL", day(2023, 3, 31), []float64{100}))
	require.NoError(t, f.AppendRow("AAPL", day(2023, 9, 30), []float64{130}))

	out, err := Resample(f, domain.FreqQuarterly, domain.FillForward)
	require.NoError(t, err)

	require.Equal(t, 3, out.Len())
	assert.Equal(t, day(2023, 3, 31), out.Date(0))
	assert.Equal(t, day(2023, 6, 30), out.Date(1))
	assert.Equal(t, day(2023, 9, 30), out.Date(2))

	// The missing June quarter carries March, never September.
	assert.Equal(t, 100.0, out.Value(0, domain.Revenue))
	assert.Equal(t, 100.0, out.Value(1, domain.Revenue))
	assert.Equal(t, 130.0, out.Value(2, domain.Revenue))
}

func TestResampleQuarterlyNoFill(t *testing.T) {
	f := frame.MustNew(domain.Ticker, domain.ReportDate, domain.Revenue)
	require.NoError(t, f.AppendRow("AAPL", day(2023, 3, 31), []float64{100}))
	require.NoError(t, f.AppendRow("AAPL", day(2023, 9, 30), []float64{130}))

	out, err := Resample(f, domain.FreqQuarterly, domain.FillNone)
	require.NoError(t, err)

	require.Equal(t, 3, out.Len())
	assert.Equal(t, 100.0, out.Value(0, domain.Revenue))
	assert.True(t, math.IsNaN(out.Value(1, domain.Revenue)))
	assert.Equal(t, 130.0, out.Value(2, domain.Revenue))
}

func TestResampleDailyLinear(t *testing.T) {
	f := frame.MustNew(domain.Ticker, domain.Date, domain.Close)
	require.NoError(t, f.AppendRow("AAPL", day(2023, 1, 1), []float64{10}))
	require.NoError(t, f.AppendRow("AAPL", day(2023, 1, 5), []float64{18}))

	out, err := Resample(f, domain.FreqDaily, domain.FillLinear)
	require.NoError(t, err)

	require.Equal(t, 5, out.Len())
	want := []float64{10, 12, 14, 16, 18}
	for i, w := range want {
		assert.InDelta(t, w, out.Value(i, domain.Close), delta, "row %d", i)
	}
}

func TestResampleLinearSkipsMissingKnots(t *testing.T) {
	f := frame.MustNew(domain.Ticker, domain.Date, domain.Close)
	require.NoError(t, f.AppendRow("AAPL", day(2023, 1, 1), []float64{math.NaN()}))
	require.NoError(t, f.AppendRow("AAPL", day(2023, 1, 3), []float64{30}))

	out, err := Resample(f, domain.FreqDaily, domain.FillLinear)
	require.NoError(t, err)

	// The NaN observation is not a knot: everything before the first
	// real value stays missing.
	require.Equal(t, 3, out.Len())
	assert.True(t, math.IsNaN(out.Value(0, domain.Close)))
	assert.True(t, math.IsNaN(out.Value(1, domain.Close)))
	assert.Equal(t, 30.0, out.Value(2, domain.Close))
}

func TestResampleNoLookAhead(t *testing.T) {
	// Dropping future rows must leave earlier output rows unchanged.
	f := frame.MustNew(domain.Ticker, domain.ReportDate, domain.Revenue)
	require.NoError(t, f.AppendRow("AAPL", day(2022, 12, 31), []float64{90}))
	require.NoError(t, f.AppendRow("AAPL", day(2023, 3, 31), []float64{100}))
	require.NoError(t, f.AppendRow("AAPL", day(2023, 12, 31), []float64{140}))

	full, err := Resample(f, domain.FreqQuarterly, domain.FillForward)
	require.NoError(t, err)

	truncated := frame.MustNew(domain.Ticker, domain.ReportDate, domain.Revenue)
	require.NoError(t, truncated.AppendRow("AAPL", day(2022, 12, 31), []float64{90}))
	require.NoError(t, truncated.AppendRow("AAPL", day(2023, 3, 31), []float64{100}))

	short, err := Resample(truncated, domain.FreqQuarterly, domain.FillForward)
	require.NoError(t, err)

	require.Equal(t, 5, full.Len())
	require.Equal(t, 2, short.Len())
	for i := 0; i < short.Len(); i++ {
		assert.Equal(t, short.Date(i), full.Date(i))
		assert.Equal(t, short.Value(i, domain.Revenue), full.Value(i, domain.Revenue), "row %d", i)
	}
}

func TestResampleMonthlyClampsShortMonths(t *testing.T) {
	f := frame.MustNew(domain.Ticker, domain.Date, domain.Close)
	require.NoError(t, f.AppendRow("AAPL", day(2023, 1, 31), []float64{10}))
	require.NoError(t, f.AppendRow("AAPL", day(2023, 3, 31), []float64{12}))

	out, err := Resample(f, domain.FreqMonthly, domain.FillForward)
	require.NoError(t, err)

	require.Equal(t, 3, out.Len())
	assert.Equal(t, day(2023, 1, 31), out.Date(0))
	assert.Equal(t, day(2023, 2, 28), out.Date(1))
	assert.Equal(t, day(2023, 3, 31), out.Date(2))
}

func TestResampleBusinessDailySkipsWeekends(t *testing.T) {
	// 2023-01-06 is a Friday, 2023-01-10 a Tuesday.
	f := frame.MustNew(domain.Ticker, domain.Date, domain.Close)
	require.NoError(t, f.AppendRow("AAPL", day(2023, 1, 6), []float64{10}))
	require.NoError(t, f.AppendRow("AAPL", day(2023, 1, 10), []float64{14}))

	out, err := Resample(f, domain.FreqBusinessDaily, domain.FillForward)
	require.NoError(t, err)

	require.Equal(t, 3, out.Len())
	assert.Equal(t, day(2023, 1, 6), out.Date(0))
	assert.Equal(t, day(2023, 1, 9), out.Date(1))
	assert.Equal(t, day(2023, 1, 10), out.Date(2))
	assert.Equal(t, 10.0, out.Value(1, domain.Close))
}

func TestResamplePerEntityGrids(t *testing.T) {
	f := frame.MustNew(domain.Ticker, domain.ReportDate, domain.Revenue)
	require.NoError(t, f.AppendRow("AAPL", day(2023, 3, 31), []float64{100}))
	require.NoError(t, f.AppendRow("AAPL", day(2023, 9, 30), []float64{130}))
	require.NoError(t, f.AppendRow("MSFT", day(2023, 6, 30), []float64{50}))
	require.NoError(t, f.AppendRow("MSFT", day(2023, 12, 31), []float64{65}))

	out, err := Resample(f, domain.FreqQuarterly, domain.FillForward)
	require.NoError(t, err)

	// Each entity spans its own first to last observation.
	aapl := out.FilterEntities("AAPL")
	msft := out.FilterEntities("MSFT")
	require.Equal(t, 3, aapl.Len())
	require.Equal(t, 3, msft.Len())
	assert.Equal(t, day(2023, 3, 31), aapl.Date(0))
	assert.Equal(t, day(2023, 6, 30), msft.Date(0))
	assert.Equal(t, day(2023, 12, 31), msft.Date(2))
}

func TestResampleInvalidParameters(t *testing.T) {
	f := frame.MustNew(domain.Ticker, domain.Date, domain.Close)

	_, err := Resample(f, domain.Frequency("fortnights"), domain.FillNone)
	require.Error(t, err)
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeValidation))

	_, err = Resample(f, domain.FreqDaily, domain.FillMethod("bfill"))
	require.Error(t, err)
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeValidation))
}

func TestReindexOntoPriceDates(t *testing.T) {
	fundamentals := frame.MustNew(domain.Ticker, domain.ReportDate, domain.Revenue)
	require.NoError(t, fundamentals.AppendRow("AAPL", day(2023, 3, 31), []float64{100}))
	require.NoError(t, fundamentals.AppendRow("AAPL", day(2023, 6, 30), []float64{110}))

	prices := frame.MustNew(domain.Ticker, domain.Date, domain.Close)
	for _, d := range []time.Time{
		day(2023, 3, 30), day(2023, 3, 31), day(2023, 4, 3),
		day(2023, 6, 30), day(2023, 7, 3),
	} {
		require.NoError(t, prices.AppendRow("AAPL", d, []float64{1}))
	}

	out, err := Reindex(fundamentals, prices, domain.FillForward)
	require.NoError(t, err)

	require.Equal(t, 5, out.Len())
	// Before the first report there is nothing to fill from.
	assert.True(t, math.IsNaN(out.Value(0, domain.Revenue)))
	assert.Equal(t, 100.0, out.Value(1, domain.Revenue))
	assert.Equal(t, 100.0, out.Value(2, domain.Revenue))
	assert.Equal(t, 110.0, out.Value(3, domain.Revenue))
	assert.Equal(t, 110.0, out.Value(4, domain.Revenue))
}

func TestReindexDropsEntitiesAbsentFromTarget(t *testing.T) {
	fundamentals := frame.MustNew(domain.Ticker, domain.ReportDate, domain.Revenue)
	require.NoError(t, fundamentals.AppendRow("AAPL", day(2023, 3, 31), []float64{100}))
	require.NoError(t, fundamentals.AppendRow("DELISTED", day(2023, 3, 31), []float64{5}))

	prices := frame.MustNew(domain.Ticker, domain.Date, domain.Close)
	require.NoError(t, prices.AppendRow("AAPL", day(2023, 4, 3), []float64{1}))

	out, err := Reindex(fundamentals, prices, domain.FillForward)
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL"}, out.EntityNames())
	assert.Equal(t, 1, out.Len())
}
