package signals

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

func closesSeries(t *testing.T, entity string, values []float64) *frame.Frame {
	t.Helper()
	rows := make([]testRow, len(values))
	start := day(2024, time.January, 2)
	for i, v := range values {
		rows[i] = testRow{entity, start.AddDate(0, 0, i), []float64{v}}
	}
	return priceFrame(t, []domain.Column{domain.Close}, rows)
}

func TestPriceMovingAverages(t *testing.T) {
	values := make([]float64, 25)
	for i := range values {
		values[i] = float64(i + 1)
	}
	prices := closesSeries(t, "AAPL", values)

	f, err := Price(prices)
	require.NoError(t, err)
	require.Equal(t, 25, f.Len())
	assert.ElementsMatch(t, []domain.Column{
		domain.MovAvg20, domain.MovAvg200, domain.EMA, domain.MACD, domain.MACDSignal,
	}, f.Columns())

	mavg, err := f.Column(domain.MovAvg20)
	require.NoError(t, err)
	for i := 0; i < 19; i++ {
		assert.True(t, math.IsNaN(mavg[i]), "row %d should lack 20 days of history", i)
	}
	assert.InDelta(t, 10.5, mavg[19], 1e-9, "mean of 1..20")
	assert.InDelta(t, 11.5, mavg[20], 1e-9, "mean of 2..21")

	long, err := f.Column(domain.MovAvg200)
	require.NoError(t, err)
	for i, v := range long {
		assert.True(t, math.IsNaN(v), "row %d cannot have 200 days of history", i)
	}
}

func TestPriceExponentialFamily(t *testing.T) {
	prices := closesSeries(t, "AAPL", []float64{1, 2})

	f, err := Price(prices)
	require.NoError(t, err)

	// Weighted averages with decay 1-2/(span+1) over two points.
	ema1 := (2.0 + 19.0/21.0) / (1.0 + 19.0/21.0)
	macd1 := (2.0+11.0/13.0)/(1.0+11.0/13.0) - (2.0+25.0/27.0)/(1.0+25.0/27.0)

	assertValues(t, f, domain.EMA, []float64{1, ema1})
	assertValues(t, f, domain.MACD, []float64{0, macd1})
	assertValues(t, f, domain.MACDSignal, []float64{0, macd1 / 1.8})
}

func TestPriceRequiresClose(t *testing.T) {
	prices := priceFrame(t, []domain.Column{domain.Volume}, []testRow{
		{"AAPL", day(2024, time.January, 2), []float64{100}},
	})

	_, err := Price(prices)
	require.Error(t, err)
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeValidation))
}
