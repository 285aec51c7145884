// Package reftable implements a typed, columnar reflection table persisted
// in an HDF5 container, used as an interchange format between stages of a
// diffraction-data processing pipeline.
package reftable

import "errors"

// Common errors
var (
	ErrColumnNotFound   = errors.New("column not found")
	ErrTypeMismatch     = errors.New("column type mismatch")
	ErrRowOutOfRange    = errors.New("row index out of range")
	ErrLengthMismatch   = errors.New("buffer length does not match shape")
	ErrEmptyMetadata    = errors.New("experiment ids and identifiers must not be empty")
	ErrUnsupportedDType = errors.New("unsupported column type")
	ErrInvalidShape     = errors.New("invalid column shape")
)
