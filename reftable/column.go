package reftable

import "fmt"

// Scalar is the closed set of element types a column can hold.
type Scalar interface {
	int32 | int64 | float32 | float64
}

// Column is the type-erased handle for a single named, typed, shaped buffer
// within a table. Exactly one TypedColumn[T] backs each handle; the runtime
// tag is fixed at construction.
type Column interface {
	// Name returns the column name, unique within a table.
	Name() string

	// Shape returns the dimension sizes. The row count is always Shape()[0].
	Shape() []uint64

	// DType returns the runtime type tag.
	DType() DType

	// RowCount returns Shape()[0], or 0 for an empty column.
	RowCount() uint64

	// cloneFiltered returns a new column containing only the selected rows.
	cloneFiltered(rows []uint64) (Column, error)
}

// TypedColumn holds one (name, shape, buffer) triple for a single scalar
// type. The flat buffer is stored row-major; its length always equals the
// product of the shape.
type TypedColumn[T Scalar] struct {
	name  string
	shape []uint64
	data  []T
}

// NewTypedColumn creates a column from a flat buffer and shape.
// len(data) must equal the product of shape.
func NewTypedColumn[T Scalar](name string, shape []uint64, data []T) (*TypedColumn[T], error) {
	if len(shape) == 0 {
		return nil, fmt.Errorf("column %q: %w: empty shape", name, ErrInvalidShape)
	}
	n := uint64(1)
	for _, d := range shape {
		n *= d
	}
	if uint64(len(data)) != n {
		return nil, fmt.Errorf("column %q: %w: have %d values, shape %v needs %d",
			name, ErrLengthMismatch, len(data), shape, n)
	}
	return &TypedColumn[T]{
		name:  name,
		shape: append([]uint64(nil), shape...),
		data:  data,
	}, nil
}

// Name returns the column name.
func (c *TypedColumn[T]) Name() string {
	return c.name
}

// Shape returns the dimension sizes.
func (c *TypedColumn[T]) Shape() []uint64 {
	return c.shape
}

// DType returns the runtime type tag for T.
func (c *TypedColumn[T]) DType() DType {
	return dtypeOf[T]()
}

// RowCount returns the number of rows.
func (c *TypedColumn[T]) RowCount() uint64 {
	if len(c.shape) == 0 {
		return 0
	}
	return c.shape[0]
}

// Components returns the number of values per row (1 for a rank-1 column).
func (c *TypedColumn[T]) Components() uint64 {
	n := uint64(1)
	for _, d := range c.shape[1:] {
		n *= d
	}
	return n
}

// Data returns the flat row-major buffer.
func (c *TypedColumn[T]) Data() []T {
	return c.data
}

// Row returns the per-row view for row i, a slice of Components() values.
func (c *TypedColumn[T]) Row(i uint64) []T {
	w := c.Components()
	return c.data[i*w : (i+1)*w]
}

// At returns the value at row i, component j.
func (c *TypedColumn[T]) At(i, j uint64) T {
	return c.data[i*c.Components()+j]
}

// cloneFiltered returns a new column containing only the selected rows, in
// the given order. Duplicate and reordered indices are permitted; an index
// >= RowCount is an error.
func (c *TypedColumn[T]) cloneFiltered(rows []uint64) (Column, error) {
	w := c.Components()
	nrows := c.RowCount()

	out := make([]T, 0, uint64(len(rows))*w)
	for _, r := range rows {
		if r >= nrows {
			return nil, fmt.Errorf("column %q: %w: %d >= %d", c.name, ErrRowOutOfRange, r, nrows)
		}
		out = append(out, c.data[r*w:(r+1)*w]...)
	}

	shape := append([]uint64(nil), c.shape...)
	shape[0] = uint64(len(rows))

	return &TypedColumn[T]{
		name:  c.name,
		shape: shape,
		data:  out,
	}, nil
}

// ColumnAs returns the typed view of col if its runtime tag matches T.
// A mismatched type reports false; the buffer is never reinterpreted.
func ColumnAs[T Scalar](col Column) (*TypedColumn[T], bool) {
	typed, ok := col.(*TypedColumn[T])
	return typed, ok
}
