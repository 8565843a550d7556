package signals

import (
	"fmt"

	apierrors "fundata/internal/errors"
	"fundata/internal/transform"
	"fundata/pkg/domain"
	"fundata/pkg/frame"
)

// VolumeOptions parameterizes Volume. Zero values pick the defaults:
// a 20 day window, forward fill, the basic share count, no lag.
type VolumeOptions struct {
	// Window is the length of the moving averages in trading days.
	Window int
	// Fill is how share counts are carried onto price dates.
	Fill domain.FillMethod
	// SharesCol is the primary share count column.
	SharesCol domain.Column
	// DateOffsetDays shifts the share count dates forward to model
	// publication lag.
	DateOffsetDays int
}

func (o VolumeOptions) withDefaults() VolumeOptions {
	if o.Window == 0 {
		o.Window = 20
	}
	if o.Fill == "" {
		o.Fill = domain.FillForward
	}
	if o.SharesCol == "" {
		o.SharesCol = domain.SharesBasic
	}
	return o
}

// Volume computes trading-volume signals from daily prices and
// reported share counts, per entity:
//
//	RelVol         = ln(Volume / mean_w(Volume))
//	VolumeMCap     = mean_w(Volume * Close)
//	VolumeTurnover = mean_w(Volume / shares)
//
// Share counts come from statement data and are carried onto the
// daily price dates without looking ahead.
func Volume(prices, shareSrc *frame.Frame, opts VolumeOptions) (*frame.Frame, error) {
	opts = opts.withDefaults()
	if opts.Window < 1 {
		return nil, apierrors.NewValidationError(
			fmt.Sprintf("volume window must be positive, got %d", opts.Window), nil)
	}

	counts, err := Shares(shareSrc, opts.SharesCol)
	if err != nil {
		return nil, err
	}
	if opts.DateOffsetDays != 0 {
		counts, err = transform.ShiftDates(counts, opts.DateOffsetDays)
		if err != nil {
			return nil, err
		}
	}

	px, err := sortedCopy(prices).Select(domain.Close, domain.Volume)
	if err != nil {
		return nil, wrapInput("volume signals", err)
	}
	daily, err := transform.Reindex(counts, px, opts.Fill)
	if err != nil {
		return nil, err
	}
	combined, err := px.Join(daily)
	if err != nil {
		return nil, apierrors.NewConflictError("joining share counts onto prices", err)
	}

	volume, err := column(combined, domain.Volume)
	if err != nil {
		return nil, err
	}
	closes, err := column(combined, domain.Close)
	if err != nil {
		return nil, err
	}
	shareCounts, err := column(combined, domain.Shares)
	if err != nil {
		return nil, err
	}

	volMean, err := rollingOver(combined, domain.Volume, volume, opts.Window)
	if err != nil {
		return nil, err
	}
	mcap, err := rollingOver(combined, domain.VolumeMCap, mul(volume, closes), opts.Window)
	if err != nil {
		return nil, err
	}
	turnover, err := rollingOver(combined, domain.VolumeTurnover, div(volume, shareCounts), opts.Window)
	if err != nil {
		return nil, err
	}

	out, err := indexOnly(combined)
	if err != nil {
		return nil, err
	}
	if err := addColumn(out, domain.RelVol, logs(div(volume, volMean))); err != nil {
		return nil, err
	}
	if err := addColumn(out, domain.VolumeMCap, mcap); err != nil {
		return nil, err
	}
	if err := addColumn(out, domain.VolumeTurnover, turnover); err != nil {
		return nil, err
	}
	return out, nil
}

// rollingOver computes the windowed mean of an ad hoc series per
// entity, using the frame's index to group rows.
func rollingOver(index *frame.Frame, c domain.Column, values []float64, window int) ([]float64, error) {
	tmp, err := indexOnly(index)
	if err != nil {
		return nil, err
	}
	if err := addColumn(tmp, c, values); err != nil {
		return nil, err
	}
	f, err := transform.RollingMean(tmp, window)
	if err != nil {
		return nil, err
	}
	return column(f, c)
}
