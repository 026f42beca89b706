package fluid

import "errors"

var (
	ErrInvalidConfig     = errors.New("invalid simulation config")
	ErrAllocation        = errors.New("field allocation failed")
	ErrDimensionMismatch = errors.New("field dimensions do not match domain")
	ErrOutOfBounds       = errors.New("cell index out of range")
	ErrNonFinite         = errors.New("impulse is not a finite number")
	ErrUnknownKernel     = errors.New("unknown kernel")
	ErrMissingBinding    = errors.New("missing kernel binding")
	ErrMissingParam      = errors.New("missing kernel parameter")
	ErrAliasedBinding    = errors.New("kernel output aliases an input")
)
