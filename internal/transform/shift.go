package transform

import (
	apierrors "fundata/internal/errors"
	"fundata/pkg/frame"
)

// ShiftDates moves every row's date by a fixed number of days and
// returns the result as a new frame. Signal pipelines shift report
// dates forward to model publication lag, so a figure only becomes
// visible once the market could have seen it.
//
// A constant shift preserves canonical order, so no re-sort happens.
func ShiftDates(f *frame.Frame, days int) (*frame.Frame, error) {
	if days == 0 {
		return f.Clone(), nil
	}
	out, err := frame.New(f.EntityLabel(), f.DateLabel(), f.Columns()...)
	if err != nil {
		return nil, apierrors.NewValidationError("shifting dates", err)
	}
	cols := f.Columns()
	values := make([]float64, len(cols))
	for i := 0; i < f.Len(); i++ {
		for j, c := range cols {
			values[j] = f.Value(i, c)
		}
		if err := out.AppendRow(f.Entity(i), f.Date(i).AddDate(0, 0, days), values); err != nil {
			return nil, apierrors.NewValidationError("shifting dates", err)
		}
	}
	return out, nil
}
