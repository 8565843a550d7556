package transform

import (
	"math"
	"sort"
	"time"

	apierrors "fundata/internal/errors"
	"fundata/pkg/domain"
	"fundata/pkg/frame"
)

// Resample aligns each entity onto a regular calendar grid at freq,
// spanning that entity's first to last observation. Grid dates carry
// the observed row when one exists and otherwise a cell per the fill
// method. Forward fill only ever looks backward in time; linear
// interpolation leaves the edges missing.
func Resample(f *frame.Frame, freq domain.Frequency, fill domain.FillMethod) (*frame.Frame, error) {
	if err := freq.Validate(); err != nil {
		return nil, apierrors.NewValidationError("resample frequency", err)
	}
	if err := fill.Validate(); err != nil {
		return nil, apierrors.NewValidationError("resample fill method", err)
	}

	cols := f.Columns()
	return Apply(f, func(g frame.Group) (*frame.Frame, error) {
		if g.Len() == 0 {
			return frame.New(f.EntityLabel(), f.DateLabel(), cols...)
		}
		grid := gridDates(g.Date(0), g.Date(g.Len()-1), freq)
		return alignGroup(g, f, cols, grid, fill)
	})
}

// Reindex aligns each entity of f onto the date set the same entity has
// in target. Entities absent from target produce no rows. A target
// date before an entity's first observation yields missing values
// regardless of fill method.
func Reindex(f *frame.Frame, target *frame.Frame, fill domain.FillMethod) (*frame.Frame, error) {
	if err := fill.Validate(); err != nil {
		return nil, apierrors.NewValidationError("reindex fill method", err)
	}

	targetDates := make(map[string][]time.Time)
	for _, g := range target.Groups() {
		dates := make([]time.Time, g.Len())
		copy(dates, g.Dates())
		targetDates[g.Entity] = dates
	}

	cols := f.Columns()
	return Apply(f, func(g frame.Group) (*frame.Frame, error) {
		grid := targetDates[g.Entity]
		return alignGroup(g, f, cols, grid, fill)
	})
}

// alignGroup places one entity's observations onto the given date grid.
// Observations and grid must both be ascending.
func alignGroup(g frame.Group, f *frame.Frame, cols []domain.Column, grid []time.Time, fill domain.FillMethod) (*frame.Frame, error) {
	out, err := frame.New(f.EntityLabel(), f.DateLabel(), cols...)
	if err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		return out, nil
	}

	switch fill {
	case domain.FillLinear:
		return alignLinear(out, g, cols, grid)
	default:
		return alignStep(out, g, cols, grid, fill)
	}
}

// alignStep handles FillNone and FillForward with a single walk over
// the observations. last holds, per column, the most recent non-NaN
// value at or before the grid date.
func alignStep(out *frame.Frame, g frame.Group, cols []domain.Column, grid []time.Time, fill domain.FillMethod) (*frame.Frame, error) {
	last := make([]float64, len(cols))
	row := make([]float64, len(cols))
	for i := range last {
		last[i] = math.NaN()
	}

	j := 0
	for _, d := range grid {
		exact := -1
		for j < g.Len() && !g.Date(j).After(d) {
			if g.Date(j).Equal(d) {
				exact = j
			}
			for k, c := range cols {
				if v := g.Value(j, c); !math.IsNaN(v) {
					last[k] = v
				}
			}
			j++
		}

		for k, c := range cols {
			switch {
			case fill == domain.FillForward:
				row[k] = last[k]
			case exact >= 0:
				row[k] = g.Value(exact, c)
			default:
				row[k] = math.NaN()
			}
		}
		if err := out.AppendRow(g.Entity, d, row); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// alignLinear interpolates each column between its surrounding non-NaN
// observations on the time axis. Grid dates outside the observed range
// of a column stay missing.
func alignLinear(out *frame.Frame, g frame.Group, cols []domain.Column, grid []time.Time) (*frame.Frame, error) {
	type series struct {
		xs []int64 // unix seconds, ascending
		ys []float64
	}
	knots := make([]series, len(cols))
	for k, c := range cols {
		for j := 0; j < g.Len(); j++ {
			if v := g.Value(j, c); !math.IsNaN(v) {
				knots[k].xs = append(knots[k].xs, g.Date(j).Unix())
				knots[k].ys = append(knots[k].ys, v)
			}
		}
	}

	row := make([]float64, len(cols))
	for _, d := range grid {
		x := d.Unix()
		for k := range cols {
			row[k] = interpolate(knots[k].xs, knots[k].ys, x)
		}
		if err := out.AppendRow(g.Entity, d, row); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func interpolate(xs []int64, ys []float64, x int64) float64 {
	n := len(xs)
	if n == 0 || x < xs[0] || x > xs[n-1] {
		return math.NaN()
	}
	i := sort.Search(n, func(i int) bool { return xs[i] >= x })
	if xs[i] == x {
		return ys[i]
	}
	x0, x1 := xs[i-1], xs[i]
	y0, y1 := ys[i-1], ys[i]
	frac := float64(x-x0) / float64(x1-x0)
	return y0 + frac*(y1-y0)
}

// gridDates generates the calendar grid from first to last inclusive.
// Month-based frequencies keep the anchor's day of month, clamped to
// shorter months, so a Jan 31 anchor steps to Feb 28 rather than Mar 3.
// A month-end anchor stays on month ends, so Jun 30 steps through
// Sep 30 to Dec 31; report dates are month ends in practice.
func gridDates(first, last time.Time, freq domain.Frequency) []time.Time {
	var out []time.Time
	switch freq {
	case domain.FreqDaily:
		for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
			out = append(out, d)
		}
	case domain.FreqBusinessDaily:
		for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
			if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
				out = append(out, d)
			}
		}
	case domain.FreqWeekly:
		for d := first; !d.After(last); d = d.AddDate(0, 0, 7) {
			out = append(out, d)
		}
	default:
		months := map[domain.Frequency]int{
			domain.FreqMonthly:   1,
			domain.FreqQuarterly: 3,
			domain.FreqAnnual:    12,
		}[freq]
		for i := 0; ; i++ {
			d := stepMonths(first, i*months)
			if d.After(last) {
				break
			}
			out = append(out, d)
		}
	}
	return out
}

func stepMonths(anchor time.Time, months int) time.Time {
	y, m, day := anchor.Date()
	total := int(m) - 1 + months
	y += total / 12
	month := time.Month(total%12 + 1)
	if day == daysInMonth(anchor.Year(), m) || day > daysInMonth(y, month) {
		day = daysInMonth(y, month)
	}
	return time.Date(y, month, day, 0, 0, 0, 0, anchor.Location())
}

func daysInMonth(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
