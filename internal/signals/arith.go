package signals

import (
	"fmt"
	"math"

	apierrors "fundata/internal/errors"
	"fundata/pkg/domain"
	"fundata/pkg/frame"
)

// Vector helpers behind the per-row formulas. They all allocate fresh
// slices and treat NaN as missing: arithmetic propagates it, and a
// ratio with a missing or zero denominator is missing.

func column(f *frame.Frame, c domain.Column) ([]float64, error) {
	v, err := f.Column(c)
	if err != nil {
		return nil, apierrors.NewValidationError(fmt.Sprintf("input column %s", string(c)), err)
	}
	return v, nil
}

// filled copies a with NaN replaced by zero, for formulas where a
// missing operand counts as nothing rather than poisoning the result.
func filled(a []float64) []float64 {
	out := make([]float64, len(a))
	for i, v := range a {
		if math.IsNaN(v) {
			v = 0
		}
		out[i] = v
	}
	return out
}

func add(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

func sub(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

func mul(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] * b[i]
	}
	return out
}

func div(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		if b[i] == 0 || math.IsNaN(b[i]) || math.IsNaN(a[i]) {
			out[i] = math.NaN()
			continue
		}
		out[i] = a[i] / b[i]
	}
	return out
}

func neg(a []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = -a[i]
	}
	return out
}

func scale(a []float64, k float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] * k
	}
	return out
}

// logs takes the natural logarithm, with non-positive values missing
// so infinities never enter a frame.
func logs(a []float64) []float64 {
	out := make([]float64, len(a))
	for i, v := range a {
		if v <= 0 || math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		out[i] = math.Log(v)
	}
	return out
}

// log10s is the base-10 counterpart, used for revenue scale.
func log10s(a []float64) []float64 {
	out := make([]float64, len(a))
	for i, v := range a {
		if v <= 0 || math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		out[i] = math.Log10(v)
	}
	return out
}

// indexOnly returns a frame with f's index rows and no columns, the
// starting point for every signal output.
func indexOnly(f *frame.Frame) (*frame.Frame, error) {
	out, err := f.Select()
	if err != nil {
		return nil, apierrors.NewValidationError("building signal frame", err)
	}
	return out, nil
}

// wrapInput marks a frame-level failure on a family's inputs, such as
// a missing column, as a validation error.
func wrapInput(op string, err error) error {
	return apierrors.NewValidationError(op, err)
}

// addColumn attaches a computed signal, naming the column in the
// conflict error when the name is already taken.
func addColumn(out *frame.Frame, c domain.Column, values []float64) error {
	if err := out.AddColumn(c, values); err != nil {
		return apierrors.NewConflictError(fmt.Sprintf("signal column %s", string(c)), err)
	}
	return nil
}

// sortedCopy gives a canonically ordered deep copy, so columns computed
// through the group-wise transforms line up with the output index.
func sortedCopy(f *frame.Frame) *frame.Frame {
	out := f.Clone()
	out.SortCanonical()
	return out
}
