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

func volumePrices(t *testing.T) *frame.Frame {
	t.Helper()
	cols := []domain.Column{domain.Close, domain.Volume}
	start := day(2024, time.January, 2)
	closes := []float64{10, 11, 12, 13}
	volumes := []float64{100, 200, 300, 400}
	rows := make([]testRow, len(closes))
	for i := range closes {
		rows[i] = testRow{"AAPL", start.AddDate(0, 0, i), []float64{closes[i], volumes[i]}}
	}
	return priceFrame(t, cols, rows)
}

func volumeShares(t *testing.T) *frame.Frame {
	t.Helper()
	return statementFrame(t,
		[]domain.Column{domain.SharesBasic, domain.SharesDiluted},
		[]testRow{{"AAPL", day(2023, time.December, 31), []float64{1000, 1010}}})
}

func TestVolumeSignals(t *testing.T) {
	out, err := Volume(volumePrices(t), volumeShares(t), VolumeOptions{Window: 2})
	require.NoError(t, err)
	require.Equal(t, 4, out.Len())

	assertValues(t, out, domain.RelVol, []float64{
		nan, math.Log(200.0 / 150.0), math.Log(300.0 / 250.0), math.Log(400.0 / 350.0),
	})
	assertValues(t, out, domain.VolumeMCap, []float64{nan, 1600, 2900, 4400})
	// Volume over 1000 basic shares, averaged pairwise.
	assertValues(t, out, domain.VolumeTurnover, []float64{nan, 0.15, 0.25, 0.35})
}

func TestVolumeSharesLagPushesCountsOutOfRange(t *testing.T) {
	out, err := Volume(volumePrices(t), volumeShares(t), VolumeOptions{
		Window:         2,
		DateOffsetDays: 30,
	})
	require.NoError(t, err)

	// The lagged share count only becomes visible after the last
	// price date, so turnover has no inputs.
	turnover, err := out.Column(domain.VolumeTurnover)
	require.NoError(t, err)
	for i, v := range turnover {
		assert.True(t, math.IsNaN(v), "row %d", i)
	}
	assertValues(t, out, domain.VolumeMCap, []float64{nan, 1600, 2900, 4400})
}

func TestVolumeDilutedFallback(t *testing.T) {
	shares := statementFrame(t,
		[]domain.Column{domain.SharesBasic, domain.SharesDiluted},
		[]testRow{{"AAPL", day(2023, time.December, 31), []float64{nan, 2000}}})

	out, err := Volume(volumePrices(t), shares, VolumeOptions{Window: 2})
	require.NoError(t, err)
	assertValues(t, out, domain.VolumeTurnover, []float64{nan, 0.075, 0.125, 0.175})
}

func TestVolumeRejectsBadWindow(t *testing.T) {
	_, err := Volume(volumePrices(t), volumeShares(t), VolumeOptions{Window: -1})
	require.Error(t, err)
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeValidation))
}
