package transform

import (
	"errors"
	"fmt"

	apierrors "fundata/internal/errors"
	"fundata/pkg/domain"
	"fundata/pkg/frame"
)

// GroupFunc transforms one entity's date-sorted rows into a new frame.
// Implementations never see rows of other entities.
type GroupFunc func(g frame.Group) (*frame.Frame, error)

// Apply partitions f by entity, runs fn on each entity's rows
// independently, and reassembles the results in canonical order. Every
// other engine operation is built on this primitive, which is what
// guarantees entity isolation: adding or removing one entity's rows
// cannot change another entity's results.
func Apply(f *frame.Frame, fn GroupFunc) (*frame.Frame, error) {
	groups := f.Groups()
	if len(groups) == 0 {
		return f.Clone(), nil
	}

	parts := make([]*frame.Frame, 0, len(groups))
	for _, g := range groups {
		part, err := fn(g)
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", g.Entity, err)
		}
		parts = append(parts, part)
	}

	out, err := frame.Concat(parts...)
	if err != nil {
		return nil, err
	}
	out.SortCanonical()
	return out, nil
}

// outputColumns resolves the output column names for an operation that
// recomputes every value column, applying the optional rename map. A
// rename source must exist in the input; a resolved name may not
// collide with another output column or an index label.
func outputColumns(f *frame.Frame, rename map[domain.Column]domain.Column) ([]domain.Column, []domain.Column, error) {
	in := f.Columns()
	for src := range rename {
		if !f.HasColumn(src) {
			return nil, nil, fmt.Errorf("%w: rename source %q", frame.ErrColumnMissing, string(src))
		}
	}

	out := make([]domain.Column, len(in))
	seen := make(map[domain.Column]bool, len(in))
	for i, c := range in {
		name := c
		if renamed, ok := rename[c]; ok {
			name = renamed
		}
		if name == f.EntityLabel() || name == f.DateLabel() {
			return nil, nil, fmt.Errorf("%w: %q collides with index", frame.ErrColumnExists, string(name))
		}
		if seen[name] {
			return nil, nil, fmt.Errorf("%w: %q", frame.ErrColumnExists, string(name))
		}
		seen[name] = true
		out[i] = name
	}
	return in, out, nil
}

// wrapColumnsErr classifies an outputColumns failure: a missing rename
// source is a parameter mistake, a collision is a naming conflict.
func wrapColumnsErr(op string, err error) error {
	if errors.Is(err, frame.ErrColumnMissing) {
		return apierrors.NewValidationError(op, err)
	}
	return apierrors.NewConflictError(op, err)
}
