// internal/oracle/errors.go
package oracle

import "errors"

var (
	// ErrInvalidConsensus rejects a consensus threshold outside 1..10.
	ErrInvalidConsensus = errors.New("oracle: consensus threshold must be between 1 and 10")

	// ErrTooManyProviders rejects registration past the registry cap.
	ErrTooManyProviders = errors.New("oracle: registry is full")

	// ErrProviderExists rejects a second registration of the same provider.
	ErrProviderExists = errors.New("oracle: provider already registered")

	// ErrUnknownProviderType rejects a provider type outside the known set.
	ErrUnknownProviderType = errors.New("oracle: unknown provider type")

	// ErrInvalidReliability rejects reliability scores above the scale.
	ErrInvalidReliability = errors.New("oracle: reliability score exceeds maximum")

	// ErrInvalidConfidence rejects confidence scores above the scale.
	ErrInvalidConfidence = errors.New("oracle: confidence score exceeds maximum")

	// ErrAlreadyDisputed rejects a second dispute on the same data.
	ErrAlreadyDisputed = errors.New("oracle: data already disputed")

	// ErrNoFallback is returned when no eligible fallback provider exists.
	ErrNoFallback = errors.New("oracle: no fallback provider available")
)
