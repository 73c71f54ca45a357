package sim

import "errors"

var (
	// ErrConfig marks missing, conflicting, or out-of-range configuration.
	ErrConfig = errors.New("invalid configuration")
	// ErrLocusOverflow marks a locus coordinate that cannot be stored in a slot.
	ErrLocusOverflow = errors.New("locus exceeds largest storable allele")
	// ErrInvalidCoefficient marks a coefficient source that returned an
	// empty or non-numeric value.
	ErrInvalidCoefficient = errors.New("invalid selection coefficient")
)
