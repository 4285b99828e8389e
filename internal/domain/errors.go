package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData means the filtered, merged and aggregated result for a series is
	// empty for the requested window and point.
	ErrNoData = errors.New("no data")

	// ErrInvalidRequest marks caller mistakes: bad coordinates, unparsable or
	// inverted dates, unknown source names.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrSchemaMismatch means a sensor cannot present the uniform band schema.
	ErrSchemaMismatch = errors.New("band schema mismatch")
)

// ExternalQueryError wraps a failure of the zonal reduction service itself
// (credentials, quota, backend fault). It is never retried.
type ExternalQueryError struct {
	Op  string
	Err error
}

func (e *ExternalQueryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExternalQueryError) Unwrap() error { return e.Err }

// IsExternal reports whether err originated in the reduction service.
func IsExternal(err error) bool {
	var eq *ExternalQueryError
	return errors.As(err, &eq)
}
