package signals

import (
	"fmt"
	"math"

	apierrors "fundata/internal/errors"
	"fundata/internal/transform"
	"fundata/pkg/domain"
	"fundata/pkg/frame"
)

// Trade derives Buy, Sell and Hold flags from two signal columns,
// per entity. Hold is set while s1 sits at or above s2, Buy marks the
// row where s1 crosses above s2, Sell the row where it crosses below.
// Flags are 1 or 0; rows where either input is missing carry NaN in
// all three. The first row of an entity can never be a crossing.
func Trade(f *frame.Frame, s1, s2 domain.Column) (*frame.Frame, error) {
	if s1 == s2 {
		return nil, apierrors.NewValidationError(
			fmt.Sprintf("trade signals need two distinct columns, got %s twice", string(s1)), nil)
	}
	for _, c := range []domain.Column{s1, s2} {
		if !f.HasColumn(c) {
			return nil, apierrors.NewValidationError(
				fmt.Sprintf("input column %s", string(c)), frame.ErrColumnMissing)
		}
	}

	outCols := []domain.Column{domain.Buy, domain.Sell, domain.Hold}
	return transform.Apply(f, func(g frame.Group) (*frame.Frame, error) {
		out, err := frame.New(f.EntityLabel(), f.DateLabel(), outCols...)
		if err != nil {
			return nil, err
		}
		a, err := g.Values(s1)
		if err != nil {
			return nil, err
		}
		b, err := g.Values(s2)
		if err != nil {
			return nil, err
		}

		// A row with missing inputs counts as "not above" for its
		// successor, so a gap resets the crossing state.
		prevAbove := false
		for i := range a {
			valid := !math.IsNaN(a[i]) && !math.IsNaN(b[i])
			above := valid && a[i] >= b[i]

			var row [3]float64
			switch {
			case !valid:
				row = [3]float64{math.NaN(), math.NaN(), math.NaN()}
			case i == 0:
				row = [3]float64{0, 0, flag(above)}
			default:
				row = [3]float64{flag(above && !prevAbove), flag(!above && prevAbove), flag(above)}
			}
			if err := out.AppendRow(g.Entity, g.Date(i), row[:]); err != nil {
				return nil, err
			}
			prevAbove = above
		}
		return out, nil
	})
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
