package discovery

import "errors"

// Orchestrator errors.
var (
	// ErrValidation wraps every field error of a rejected event. Nothing is
	// persisted for a rejected event.
	ErrValidation = errors.New("invalid discovery event")
	ErrNilStore   = errors.New("progress store is nil")
	ErrNilCatalog = errors.New("achievement catalog is nil")
)
