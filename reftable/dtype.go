package reftable

import (
	"fmt"
	"reflect"

	"github.com/robert-malhotra/go-reftable/hdf5"
)

// DType identifies one of the supported column element types.
type DType int

// Supported column element types.
const (
	Int32 DType = iota
	Int64
	Float32
	Float64
)

// String returns the dtype name.
func (d DType) String() string {
	switch d {
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return fmt.Sprintf("DType(%d)", int(d))
	}
}

// dtypeOf maps a compile-time scalar type to its runtime tag.
func dtypeOf[T Scalar]() DType {
	var zero T
	switch any(zero).(type) {
	case int32:
		return Int32
	case int64:
		return Int64
	case float32:
		return Float32
	default:
		return Float64
	}
}

// dtypeForDataset resolves an on-disk dataset to a supported tag.
// Reports false for anything outside the closed set (unsigned integers,
// strings, compounds, sub-byte or oversized types).
func dtypeForDataset(ds *hdf5.Dataset) (DType, bool) {
	goType, err := ds.GoType()
	if err != nil {
		return 0, false
	}
	switch goType.Kind() {
	case reflect.Int32:
		return Int32, true
	case reflect.Int64:
		return Int64, true
	case reflect.Float32:
		return Float32, true
	case reflect.Float64:
		return Float64, true
	default:
		return 0, false
	}
}

// readColumn reads the dataset at datasetPath into a column named name,
// dispatching on the resolved tag. This is the single point where an on-disk
// type meets a compile-time type; call sites never branch on the tag.
func readColumn(f *hdf5.File, datasetPath, name string, dt DType) (Column, error) {
	switch dt {
	case Int32:
		return readTypedColumn[int32](f, datasetPath, name)
	case Int64:
		return readTypedColumn[int64](f, datasetPath, name)
	case Float32:
		return readTypedColumn[float32](f, datasetPath, name)
	case Float64:
		return readTypedColumn[float64](f, datasetPath, name)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedDType, dt)
	}
}

func readTypedColumn[T Scalar](f *hdf5.File, datasetPath, name string) (Column, error) {
	data, shape, err := ReadTyped[T](f, datasetPath)
	if err != nil {
		return nil, err
	}
	return NewTypedColumn[T](name, shape, data)
}

// writeColumn writes col into group g, dispatching on its runtime tag.
// An unrecognized tag here means the registry is inconsistent; it is
// reported as an error rather than a silent skip.
func writeColumn(g *hdf5.Group, col Column) error {
	switch col.DType() {
	case Int32:
		return writeTypedColumn[int32](g, col)
	case Int64:
		return writeTypedColumn[int64](g, col)
	case Float32:
		return writeTypedColumn[float32](g, col)
	case Float64:
		return writeTypedColumn[float64](g, col)
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedDType, col.DType())
	}
}

func writeTypedColumn[T Scalar](g *hdf5.Group, col Column) error {
	typed, ok := ColumnAs[T](col)
	if !ok {
		return fmt.Errorf("column %q: %w: tag %v does not match storage",
			col.Name(), ErrTypeMismatch, col.DType())
	}
	return WriteTyped(g, typed.Name(), typed.Data(), typed.Shape())
}
