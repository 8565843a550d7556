package signals

import (
	"fundata/internal/transform"
	"fundata/pkg/domain"
	"fundata/pkg/frame"
)

// Windows for the price signals, in trading days. These follow the
// usual charting conventions and are part of the signal definitions
// rather than knobs.
const (
	movAvgShortWindow = 20
	movAvgLongWindow  = 200
	emaSpan           = 20
	macdFastSpan      = 12
	macdSlowSpan      = 26
	macdSignalSpan    = 9
)

// Price computes the moving-average and MACD family from daily closing
// prices, per entity: 20 and 200 day simple averages, a 20 day
// exponential average, MACD as the 12 versus 26 day exponential
// spread, and the MACD signal line as its 9 day exponential average.
func Price(prices *frame.Frame) (*frame.Frame, error) {
	closes, err := sortedCopy(prices).Select(domain.Close)
	if err != nil {
		return nil, wrapInput("price signals", err)
	}
	out, err := indexOnly(closes)
	if err != nil {
		return nil, err
	}

	short, err := rollingColumn(closes, movAvgShortWindow)
	if err != nil {
		return nil, err
	}
	if err := addColumn(out, domain.MovAvg20, short); err != nil {
		return nil, err
	}

	long, err := rollingColumn(closes, movAvgLongWindow)
	if err != nil {
		return nil, err
	}
	if err := addColumn(out, domain.MovAvg200, long); err != nil {
		return nil, err
	}

	ema, err := emaColumn(closes, emaSpan)
	if err != nil {
		return nil, err
	}
	if err := addColumn(out, domain.EMA, ema); err != nil {
		return nil, err
	}

	fast, err := emaColumn(closes, macdFastSpan)
	if err != nil {
		return nil, err
	}
	slow, err := emaColumn(closes, macdSlowSpan)
	if err != nil {
		return nil, err
	}
	macd := sub(fast, slow)
	if err := addColumn(out, domain.MACD, macd); err != nil {
		return nil, err
	}

	// The signal line smooths the MACD series itself.
	macdFrame, err := indexOnly(closes)
	if err != nil {
		return nil, err
	}
	if err := addColumn(macdFrame, domain.MACD, macd); err != nil {
		return nil, err
	}
	smoothed, err := transform.EMA(macdFrame, macdSignalSpan)
	if err != nil {
		return nil, err
	}
	signal, err := column(smoothed, domain.MACD)
	if err != nil {
		return nil, err
	}
	if err := addColumn(out, domain.MACDSignal, signal); err != nil {
		return nil, err
	}

	return out, nil
}

// rollingColumn runs a rolling mean over the single-column frame and
// hands back the values.
func rollingColumn(closes *frame.Frame, window int) ([]float64, error) {
	f, err := transform.RollingMean(closes, window)
	if err != nil {
		return nil, err
	}
	return column(f, domain.Close)
}

func emaColumn(closes *frame.Frame, span int) ([]float64, error) {
	f, err := transform.EMA(closes, span)
	if err != nil {
		return nil, err
	}
	return column(f, domain.Close)
}
