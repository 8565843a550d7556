package transform

import (
	"fmt"
	"math"

	apierrors "fundata/internal/errors"
	"fundata/pkg/domain"
	"fundata/pkg/frame"
)

// ChangeOptions parameterizes RelChange. The span is converted to a
// whole number of periods at Freq before any computation; a span that
// rounds to zero periods is rejected. Rename maps input column names
// to output names, e.g. Revenue to RevenueGrowth.
type ChangeOptions struct {
	Freq       domain.Frequency
	Span       domain.Span
	Future     bool
	Annualized bool
	Rename     map[domain.Column]domain.Column
}

// RelChange computes, per entity and column, the relative change over
// the lookback window: v[t]/v[t-p] - 1, or v[t+p]/v[t] - 1 when
// Future is set. Annualized raises the ratio to 1/years before
// subtracting one. Rows without enough history in the entity's series
// are NaN, as are rows whose divisor operand is missing or zero.
func RelChange(f *frame.Frame, opts ChangeOptions) (*frame.Frame, error) {
	periods, years, err := opts.Span.Periods(opts.Freq)
	if err != nil {
		return nil, apierrors.NewValidationError("relative change window", err)
	}

	inCols, outCols, err := outputColumns(f, opts.Rename)
	if err != nil {
		return nil, wrapColumnsErr("relative change output columns", err)
	}

	exponent := 0.0
	if opts.Annualized {
		exponent = 1 / years
	}

	return Apply(f, func(g frame.Group) (*frame.Frame, error) {
		out, err := frame.New(f.EntityLabel(), f.DateLabel(), outCols...)
		if err != nil {
			return nil, err
		}
		row := make([]float64, len(inCols))
		for t := 0; t < g.Len(); t++ {
			for k, c := range inCols {
				row[k] = relChangeAt(g, c, t, periods, opts.Future, exponent)
			}
			if err := out.AppendRow(g.Entity, g.Date(t), row); err != nil {
				return nil, err
			}
		}
		return out, nil
	})
}

func relChangeAt(g frame.Group, c domain.Column, t, periods int, future bool, exponent float64) float64 {
	var numer, denom float64
	if future {
		if t+periods >= g.Len() {
			return math.NaN()
		}
		numer, denom = g.Value(t+periods, c), g.Value(t, c)
	} else {
		if t-periods < 0 {
			return math.NaN()
		}
		numer, denom = g.Value(t, c), g.Value(t-periods, c)
	}
	if denom == 0 || math.IsNaN(denom) || math.IsNaN(numer) {
		return math.NaN()
	}
	ratio := numer / denom
	if exponent != 0 {
		ratio = math.Pow(ratio, exponent)
	}
	return ratio - 1
}

// MeanLogOptions parameterizes MeanLogChange. Each window converts to
// its own period count and year span at Freq; windows that collapse to
// the same period count are duplicates and rejected.
type MeanLogOptions struct {
	Freq       domain.Frequency
	Windows    []domain.Span
	Future     bool
	Annualized bool
	Rename     map[domain.Column]domain.Column
}

// MeanLogChange computes, per entity and column, the mean logarithmic
// change across the windows: for window w with p periods spanning y
// years, chg_w[t] = (ln v[t] - ln v[t-p]) * e_w with e_w = 1/y when
// annualized and 1/p otherwise (the geometric mean change per period).
// Future flips the direction to ln v[t+p] - ln v[t].
//
// The cell value is the arithmetic mean of chg_w over the windows that
// have sufficient history at t. A window without enough history is
// left out of the average rather than zero-filled; when no window
// qualifies the cell is NaN. Non-positive or missing operands make the
// cell NaN through the logarithm.
func MeanLogChange(f *frame.Frame, opts MeanLogOptions) (*frame.Frame, error) {
	if len(opts.Windows) == 0 {
		return nil, apierrors.NewValidationError("mean log change requires at least one window", nil)
	}

	type window struct {
		periods  int
		exponent float64
	}
	windows := make([]window, 0, len(opts.Windows))
	seen := make(map[int]bool, len(opts.Windows))
	for _, span := range opts.Windows {
		periods, years, err := span.Periods(opts.Freq)
		if err != nil {
			return nil, apierrors.NewValidationError("mean log change window", err)
		}
		if seen[periods] {
			return nil, apierrors.NewValidationError(
				fmt.Sprintf("mean log change windows duplicate %d periods", periods), nil)
		}
		seen[periods] = true
		exponent := 1 / float64(periods)
		if opts.Annualized {
			exponent = 1 / years
		}
		windows = append(windows, window{periods: periods, exponent: exponent})
	}

	inCols, outCols, err := outputColumns(f, opts.Rename)
	if err != nil {
		return nil, wrapColumnsErr("mean log change output columns", err)
	}

	return Apply(f, func(g frame.Group) (*frame.Frame, error) {
		out, err := frame.New(f.EntityLabel(), f.DateLabel(), outCols...)
		if err != nil {
			return nil, err
		}
		row := make([]float64, len(inCols))
		for t := 0; t < g.Len(); t++ {
			for k, c := range inCols {
				sum, count := 0.0, 0
				for _, w := range windows {
					var a, b float64
					if opts.Future {
						if t+w.periods >= g.Len() {
							continue
						}
						a, b = g.Value(t+w.periods, c), g.Value(t, c)
					} else {
						if t-w.periods < 0 {
							continue
						}
						a, b = g.Value(t, c), g.Value(t-w.periods, c)
					}
					// Log of zero is -Inf, not NaN, so guard both.
					chg := (math.Log(a) - math.Log(b)) * w.exponent
					if math.IsNaN(chg) || math.IsInf(chg, 0) {
						sum, count = math.NaN(), 1
						break
					}
					sum += chg
					count++
				}
				if count == 0 {
					row[k] = math.NaN()
				} else {
					row[k] = sum / float64(count)
				}
			}
			if err := out.AppendRow(g.Entity, g.Date(t), row); err != nil {
				return nil, err
			}
		}
		return out, nil
	})
}
