package achievement

import "errors"

// Catalog errors.
var (
	ErrUnknownType     = errors.New("unknown achievement type")
	ErrDuplicateName   = errors.New("duplicate achievement name")
	ErrNotBootstrapped = errors.New("achievement catalog not bootstrapped")
	ErrNilStore        = errors.New("achievement store is nil")
)
