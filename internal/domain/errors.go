package domain

import "errors"

// Error taxonomy for the order book core. Validation and parse errors are
// raised at value-object construction boundaries; lookup errors surface from
// queries against the projection map and from empty-book accessors; I/O and
// shutdown errors are surfaced by repository implementations.
var (
	ErrValidation = errors.New("validation error")
	ErrParse      = errors.New("parse error")
	ErrLookup     = errors.New("lookup error")
	ErrIO         = errors.New("io error")
	ErrShutdown   = errors.New("shutdown error")
)
