package transform

import (
	"fmt"
	"math"
	"sort"

	apierrors "fundata/internal/errors"
	"fundata/pkg/domain"
	"fundata/pkg/frame"
)

// RollingMean computes, per entity and column, the moving average over
// the trailing window. Rows without a full window are NaN, and a NaN
// inside the window makes the mean NaN.
func RollingMean(f *frame.Frame, window int) (*frame.Frame, error) {
	if window < 1 {
		return nil, apierrors.NewValidationError(
			fmt.Sprintf("rolling window must be positive, got %d", window), nil)
	}
	return mapGroups(f, func(values []float64, out []float64) {
		rollingMeanInto(values, window, out)
	})
}

func rollingMeanInto(values []float64, window int, out []float64) {
	for t := range values {
		if t-window+1 < 0 {
			out[t] = math.NaN()
			continue
		}
		sum := 0.0
		for i := t - window + 1; i <= t; i++ {
			sum += values[i]
		}
		out[t] = sum / float64(window)
	}
}

// EMA computes, per entity and column, the exponentially weighted
// moving average with span weighting: alpha = 2/(span+1), adjusted
// weights. Missing values contribute no weight but still decay the
// accumulated weights, so the average carries across gaps.
func EMA(f *frame.Frame, span int) (*frame.Frame, error) {
	if span < 1 {
		return nil, apierrors.NewValidationError(
			fmt.Sprintf("ema span must be positive, got %d", span), nil)
	}
	alpha := 2 / (float64(span) + 1)
	return mapGroups(f, func(values []float64, out []float64) {
		emaInto(values, alpha, out)
	})
}

func emaInto(values []float64, alpha float64, out []float64) {
	decay := 1 - alpha
	num, den := 0.0, 0.0
	for t, v := range values {
		if math.IsNaN(v) {
			num *= decay
			den *= decay
		} else {
			num = v + decay*num
			den = 1 + decay*den
		}
		if den > 0 {
			out[t] = num / den
		} else {
			out[t] = math.NaN()
		}
	}
}

// Clip bounds every value to [lo, hi]. NaN cells stay NaN.
func Clip(f *frame.Frame, lo, hi float64) (*frame.Frame, error) {
	if lo > hi {
		return nil, apierrors.NewValidationError(
			fmt.Sprintf("clip bounds inverted: lo %g > hi %g", lo, hi), nil)
	}
	return mapGroups(f, func(values []float64, out []float64) {
		for t, v := range values {
			out[t] = math.Min(math.Max(v, lo), hi)
		}
	})
}

// Winsorize clamps each column to its [q, 1-q] quantiles, computed
// over the whole frame rather than per entity so that outlier entities
// are pulled toward the cross section.
func Winsorize(f *frame.Frame, q float64) (*frame.Frame, error) {
	if q < 0 || q >= 0.5 {
		return nil, apierrors.NewValidationError(
			fmt.Sprintf("winsorize quantile must be in [0, 0.5), got %g", q), nil)
	}

	bounds := make(map[domain.Column][2]float64, len(f.Columns()))
	for _, c := range f.Columns() {
		col, err := f.Column(c)
		if err != nil {
			return nil, err
		}
		lo, hi, ok := quantileBounds(col, q)
		if !ok {
			lo, hi = math.Inf(-1), math.Inf(1)
		}
		bounds[c] = [2]float64{lo, hi}
	}

	out := f.Clone()
	for _, c := range out.Columns() {
		col, err := out.Column(c)
		if err != nil {
			return nil, err
		}
		b := bounds[c]
		for i, v := range col {
			col[i] = math.Min(math.Max(v, b[0]), b[1])
		}
	}
	return out, nil
}

// quantileBounds returns the q and 1-q quantiles of the non-NaN values
// using linear interpolation between order statistics.
func quantileBounds(values []float64, q float64) (lo, hi float64, ok bool) {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return 0, 0, false
	}
	sort.Float64s(clean)
	return quantileSorted(clean, q), quantileSorted(clean, 1-q), true
}

func quantileSorted(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	i := int(math.Floor(pos))
	if i >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(i)
	return sorted[i] + frac*(sorted[i+1]-sorted[i])
}

// AvgTTM averages trailing-twelve-month values sampled one year apart:
// out[t] = (v[t] + v[t-4] + ... + v[t-4(years-1)]) / years on quarterly
// TTM data. Rows missing any of the annual samples are NaN.
func AvgTTM(f *frame.Frame, years int) (*frame.Frame, error) {
	if years < 1 {
		return nil, apierrors.NewValidationError(
			fmt.Sprintf("avg ttm years must be positive, got %d", years), nil)
	}
	return mapGroups(f, func(values []float64, out []float64) {
		for t := range values {
			if t-4*(years-1) < 0 {
				out[t] = math.NaN()
				continue
			}
			sum := 0.0
			for i := 0; i < years; i++ {
				sum += values[t-4*i]
			}
			out[t] = sum / float64(years)
		}
	})
}

// MaxDrawdown computes, per entity and column, the drawdown from the
// running maximum: v[t]/cummax[t] - 1, which is 0 at new highs and
// negative below them.
func MaxDrawdown(f *frame.Frame) (*frame.Frame, error) {
	return mapGroups(f, func(values []float64, out []float64) {
		peak := math.NaN()
		for t, v := range values {
			if math.IsNaN(v) {
				out[t] = math.NaN()
				continue
			}
			if math.IsNaN(peak) || v > peak {
				peak = v
			}
			if peak == 0 {
				out[t] = math.NaN()
			} else {
				out[t] = v/peak - 1
			}
		}
	})
}

// MovingZScore standardizes each value against its trailing window:
// (v[t] - mean) / std with the sample standard deviation. Rows without
// a full window, or whose window has zero variance, are NaN.
func MovingZScore(f *frame.Frame, window int) (*frame.Frame, error) {
	if window < 2 {
		return nil, apierrors.NewValidationError(
			fmt.Sprintf("z-score window must be at least 2, got %d", window), nil)
	}
	return mapGroups(f, func(values []float64, out []float64) {
		for t := range values {
			if t-window+1 < 0 {
				out[t] = math.NaN()
				continue
			}
			mean, std := meanStd(values[t-window+1 : t+1])
			if std == 0 || math.IsNaN(std) {
				out[t] = math.NaN()
			} else {
				out[t] = (values[t] - mean) / std
			}
		}
	})
}

func meanStd(window []float64) (mean, std float64) {
	sum := 0.0
	for _, v := range window {
		sum += v
	}
	mean = sum / float64(len(window))
	varSum := 0.0
	for _, v := range window {
		d := v - mean
		varSum += d * d
	}
	return mean, math.Sqrt(varSum / float64(len(window)-1))
}

// mapGroups runs a per-column kernel over each entity's series and
// reassembles the result with the input's column names. The kernel
// writes its output into out, one slot per input row.
func mapGroups(f *frame.Frame, kernel func(values []float64, out []float64)) (*frame.Frame, error) {
	cols := f.Columns()
	return Apply(f, func(g frame.Group) (*frame.Frame, error) {
		out, err := frame.New(f.EntityLabel(), f.DateLabel(), cols...)
		if err != nil {
			return nil, err
		}
		results := make([][]float64, len(cols))
		for k, c := range cols {
			values, err := g.Values(c)
			if err != nil {
				return nil, err
			}
			results[k] = make([]float64, len(values))
			kernel(values, results[k])
		}
		row := make([]float64, len(cols))
		for t := 0; t < g.Len(); t++ {
			for k := range cols {
				row[k] = results[k][t]
			}
			if err := out.AppendRow(g.Entity, g.Date(t), row); err != nil {
				return nil, err
			}
		}
		return out, nil
	})
}
