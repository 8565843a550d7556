package frame

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"fundata/pkg/domain"
)

// Sentinel errors for structural misuse. Callers match with errors.Is.
var (
	ErrColumnExists   = errors.New("column already exists")
	ErrColumnMissing  = errors.New("column not found")
	ErrLengthMismatch = errors.New("column length does not match row count")
	ErrColumnCount    = errors.New("value count does not match column count")
)

// Frame is a table of float64 values indexed by (entity, date). Rows are
// kept in canonical order: entity ascending, then date ascending. Cells use
// NaN as the missing-value marker; per-cell numeric failures never surface
// as errors, only structural misuse does.
//
// Frames are treated as immutable once built: transforms return new frames
// and never modify their inputs.
type Frame struct {
	entityLabel domain.Column
	dateLabel   domain.Column

	entities []string
	dates    []time.Time
	order    []domain.Column
	cols     map[domain.Column][]float64
}

// New creates an empty frame with the given index labels and value columns.
// Duplicate or index-colliding column names are rejected.
func New(entityLabel, dateLabel domain.Column, cols ...domain.Column) (*Frame, error) {
	f := &Frame{
		entityLabel: entityLabel,
		dateLabel:   dateLabel,
		order:       make([]domain.Column, 0, len(cols)),
		cols:        make(map[domain.Column][]float64, len(cols)),
	}
	for _, c := range cols {
		if c == entityLabel || c == dateLabel {
			return nil, fmt.Errorf("%w: %q collides with index", ErrColumnExists, string(c))
		}
		if _, ok := f.cols[c]; ok {
			return nil, fmt.Errorf("%w: %q", ErrColumnExists, string(c))
		}
		f.order = append(f.order, c)
		f.cols[c] = nil
	}
	return f, nil
}

// MustNew is New for statically known column sets, mainly tests and signal
// builders whose catalogs cannot collide.
func MustNew(entityLabel, dateLabel domain.Column, cols ...domain.Column) *Frame {
	f, err := New(entityLabel, dateLabel, cols...)
	if err != nil {
		panic(err)
	}
	return f
}

// EntityLabel returns the name of the entity index column.
func (f *Frame) EntityLabel() domain.Column { return f.entityLabel }

// DateLabel returns the name of the date index column.
func (f *Frame) DateLabel() domain.Column { return f.dateLabel }

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.entities) }

// Columns returns the value column names in order.
func (f *Frame) Columns() []domain.Column {
	out := make([]domain.Column, len(f.order))
	copy(out, f.order)
	return out
}

// HasColumn reports whether the frame carries column c.
func (f *Frame) HasColumn(c domain.Column) bool {
	_, ok := f.cols[c]
	return ok
}

// Entity returns the entity of row i.
func (f *Frame) Entity(i int) string { return f.entities[i] }

// Date returns the date of row i.
func (f *Frame) Date(i int) time.Time { return f.dates[i] }

// Value returns the cell at row i, column c. Unknown columns return NaN;
// use HasColumn or Column when the distinction matters.
func (f *Frame) Value(i int, c domain.Column) float64 {
	col, ok := f.cols[c]
	if !ok {
		return math.NaN()
	}
	return col[i]
}

// Column returns a read-only view of column c.
func (f *Frame) Column(c domain.Column) ([]float64, error) {
	col, ok := f.cols[c]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnMissing, string(c))
	}
	return col, nil
}

// AppendRow adds one row. Values are given in column order and NaN marks
// missing cells. The frame must be re-sorted (SortCanonical) before group
// operations if rows were appended out of order.
func (f *Frame) AppendRow(entity string, date time.Time, values []float64) error {
	if len(values) != len(f.order) {
		return fmt.Errorf("%w: got %d values for %d columns", ErrColumnCount, len(values), len(f.order))
	}
	f.entities = append(f.entities, entity)
	f.dates = append(f.dates, date)
	for i, c := range f.order {
		f.cols[c] = append(f.cols[c], values[i])
	}
	return nil
}

// AddColumn attaches a fully populated column to the frame. A name that
// collides with an existing column or an index label is a conflict error,
// fatal to the call; the frame is left unchanged.
func (f *Frame) AddColumn(c domain.Column, values []float64) error {
	if c == f.entityLabel || c == f.dateLabel {
		return fmt.Errorf("%w: %q collides with index", ErrColumnExists, string(c))
	}
	if _, ok := f.cols[c]; ok {
		return fmt.Errorf("%w: %q", ErrColumnExists, string(c))
	}
	if len(values) != f.Len() {
		return fmt.Errorf("%w: %d values for %d rows", ErrLengthMismatch, len(values), f.Len())
	}
	owned := make([]float64, len(values))
	copy(owned, values)
	f.order = append(f.order, c)
	f.cols[c] = owned
	return nil
}

// Select returns a new frame with the same index and only the given columns.
func (f *Frame) Select(cols ...domain.Column) (*Frame, error) {
	out, err := New(f.entityLabel, f.dateLabel, cols...)
	if err != nil {
		return nil, err
	}
	for _, c := range cols {
		src, ok := f.cols[c]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrColumnMissing, string(c))
		}
		dst := make([]float64, len(src))
		copy(dst, src)
		out.cols[c] = dst
	}
	out.entities = append([]string(nil), f.entities...)
	out.dates = append([]time.Time(nil), f.dates...)
	return out, nil
}

// FilterEntities returns a new frame holding only rows whose entity appears
// in keep. Row order is preserved.
func (f *Frame) FilterEntities(keep ...string) *Frame {
	set := make(map[string]struct{}, len(keep))
	for _, e := range keep {
		set[e] = struct{}{}
	}
	out := f.emptyLike()
	for i := range f.entities {
		if _, ok := set[f.entities[i]]; ok {
			out.appendFrom(f, i)
		}
	}
	return out
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	out := f.emptyLike()
	out.entities = append([]string(nil), f.entities...)
	out.dates = append([]time.Time(nil), f.dates...)
	for _, c := range f.order {
		out.cols[c] = append([]float64(nil), f.cols[c]...)
	}
	return out
}

func (f *Frame) emptyLike() *Frame {
	out := &Frame{
		entityLabel: f.entityLabel,
		dateLabel:   f.dateLabel,
		order:       append([]domain.Column(nil), f.order...),
		cols:        make(map[domain.Column][]float64, len(f.order)),
	}
	for _, c := range f.order {
		out.cols[c] = nil
	}
	return out
}

func (f *Frame) appendFrom(src *Frame, i int) {
	f.entities = append(f.entities, src.entities[i])
	f.dates = append(f.dates, src.dates[i])
	for _, c := range f.order {
		f.cols[c] = append(f.cols[c], src.cols[c][i])
	}
}

// IsSorted reports whether rows are in canonical (entity, date) order.
func (f *Frame) IsSorted() bool {
	for i := 1; i < f.Len(); i++ {
		if f.entities[i] < f.entities[i-1] {
			return false
		}
		if f.entities[i] == f.entities[i-1] && f.dates[i].Before(f.dates[i-1]) {
			return false
		}
	}
	return true
}

// SortCanonical sorts rows in place into canonical (entity, date) order.
// The sort is stable so duplicate (entity, date) rows keep their relative
// order.
func (f *Frame) SortCanonical() {
	if f.IsSorted() {
		return
	}
	idx := make([]int, f.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := idx[a], idx[b]
		if f.entities[ia] != f.entities[ib] {
			return f.entities[ia] < f.entities[ib]
		}
		return f.dates[ia].Before(f.dates[ib])
	})

	f.entities = permuteStrings(f.entities, idx)
	f.dates = permuteTimes(f.dates, idx)
	for _, c := range f.order {
		f.cols[c] = permuteFloats(f.cols[c], idx)
	}
}

func permuteStrings(src []string, idx []int) []string {
	out := make([]string, len(src))
	for i, j := range idx {
		out[i] = src[j]
	}
	return out
}

func permuteTimes(src []time.Time, idx []int) []time.Time {
	out := make([]time.Time, len(src))
	for i, j := range idx {
		out[i] = src[j]
	}
	return out
}

func permuteFloats(src []float64, idx []int) []float64 {
	out := make([]float64, len(src))
	for i, j := range idx {
		out[i] = src[j]
	}
	return out
}

// Group is one entity's contiguous run of rows within a sorted frame.
type Group struct {
	Entity string
	frame  *Frame
	start  int
	end    int
}

// Len returns the number of rows in the group.
func (g Group) Len() int { return g.end - g.start }

// Date returns the date of row i within the group.
func (g Group) Date(i int) time.Time { return g.frame.dates[g.start+i] }

// Dates returns a read-only view of the group's dates.
func (g Group) Dates() []time.Time { return g.frame.dates[g.start:g.end] }

// Value returns the cell at group row i, column c.
func (g Group) Value(i int, c domain.Column) float64 {
	return g.frame.Value(g.start+i, c)
}

// Values returns a read-only view of column c within the group.
func (g Group) Values(c domain.Column) ([]float64, error) {
	col, err := g.frame.Column(c)
	if err != nil {
		return nil, err
	}
	return col[g.start:g.end], nil
}

// Groups partitions a canonically sorted frame into per-entity groups, in
// entity order. The frame must be sorted; Groups sorts it first when it is
// not, which is the only mutation group operations ever perform.
func (f *Frame) Groups() []Group {
	f.SortCanonical()
	var out []Group
	start := 0
	for i := 1; i <= f.Len(); i++ {
		if i == f.Len() || f.entities[i] != f.entities[start] {
			out = append(out, Group{Entity: f.entities[start], frame: f, start: start, end: i})
			start = i
		}
	}
	return out
}

// EntityNames returns the distinct entities of a sorted frame in order.
func (f *Frame) EntityNames() []string {
	groups := f.Groups()
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Entity
	}
	return out
}

// Concat appends rows of frames that share index labels and column sets.
// Used by group-wise transforms to reassemble per-entity results.
func Concat(frames ...*Frame) (*Frame, error) {
	if len(frames) == 0 {
		return nil, errors.New("concat of zero frames")
	}
	first := frames[0]
	out := first.emptyLike()
	for _, f := range frames {
		if f.entityLabel != first.entityLabel || f.dateLabel != first.dateLabel {
			return nil, fmt.Errorf("concat: index labels differ (%q vs %q)",
				string(first.entityLabel), string(f.entityLabel))
		}
		if len(f.order) != len(first.order) {
			return nil, fmt.Errorf("concat: column sets differ")
		}
		for i, c := range f.order {
			if c != first.order[i] {
				return nil, fmt.Errorf("concat: column sets differ at %q", string(c))
			}
		}
		for i := 0; i < f.Len(); i++ {
			out.appendFrom(f, i)
		}
	}
	return out, nil
}

// Join returns a new frame with f's rows and columns plus the given columns
// of other, matched by (entity, date). Rows of f with no match in other get
// NaN in the joined columns. Column name collisions are conflict errors.
func (f *Frame) Join(other *Frame, cols ...domain.Column) (*Frame, error) {
	if len(cols) == 0 {
		cols = other.Columns()
	}
	out := f.Clone()

	lookup := make(map[string]map[int64]int, 64)
	for i := range other.entities {
		byDate, ok := lookup[other.entities[i]]
		if !ok {
			byDate = make(map[int64]int)
			lookup[other.entities[i]] = byDate
		}
		byDate[other.dates[i].Unix()] = i
	}

	for _, c := range cols {
		src, err := other.Column(c)
		if err != nil {
			return nil, err
		}
		joined := make([]float64, f.Len())
		for i := range joined {
			joined[i] = math.NaN()
			if byDate, ok := lookup[f.entities[i]]; ok {
				if j, ok := byDate[f.dates[i].Unix()]; ok {
					joined[i] = src[j]
				}
			}
		}
		if err := out.AddColumn(c, joined); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Rename returns a copy of the frame with columns renamed per the mapping.
// A target name that collides with a surviving column is a conflict error.
func (f *Frame) Rename(names map[domain.Column]domain.Column) (*Frame, error) {
	out := f.emptyLike()
	out.entities = append([]string(nil), f.entities...)
	out.dates = append([]time.Time(nil), f.dates...)
	out.order = nil
	out.cols = make(map[domain.Column][]float64, len(f.order))
	for _, c := range f.order {
		name := c
		if to, ok := names[c]; ok {
			name = to
		}
		if name == f.entityLabel || name == f.dateLabel {
			return nil, fmt.Errorf("%w: %q collides with index", ErrColumnExists, string(name))
		}
		if _, ok := out.cols[name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrColumnExists, string(name))
		}
		out.order = append(out.order, name)
		out.cols[name] = append([]float64(nil), f.cols[c]...)
	}
	return out, nil
}

// Equal reports whether two frames have identical labels, columns, index
// rows, and cell values, treating NaN cells as equal to NaN cells.
func (f *Frame) Equal(other *Frame) bool {
	if other == nil || f.entityLabel != other.entityLabel || f.dateLabel != other.dateLabel {
		return false
	}
	if f.Len() != other.Len() || len(f.order) != len(other.order) {
		return false
	}
	for i, c := range f.order {
		if other.order[i] != c {
			return false
		}
	}
	for i := range f.entities {
		if f.entities[i] != other.entities[i] || !f.dates[i].Equal(other.dates[i]) {
			return false
		}
	}
	for _, c := range f.order {
		a, b := f.cols[c], other.cols[c]
		for i := range a {
			if a[i] != b[i] && !(math.IsNaN(a[i]) && math.IsNaN(b[i])) {
				return false
			}
		}
	}
	return true
}
