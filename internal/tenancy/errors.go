package tenancy

import "errors"

var (
	ErrNotFound            = errors.New("tenancy: not found")
	ErrForbidden           = errors.New("tenancy: forbidden")
	ErrConflict            = errors.New("tenancy: conflict")
	ErrInvalidState        = errors.New("tenancy: invalid state")
	ErrUpstreamUnavailable = errors.New("tenancy: upstream unavailable")
)
