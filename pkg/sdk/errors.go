package laudos

import (
	"errors"

	"github.com/kailas-cloud/laudos/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrValidation = domain.ErrValidation
	ErrProvider   = domain.ErrProvider
)

// ErrReadOnly is returned by Import when the configured driver does not accept writes.
var ErrReadOnly = errors.New("laudos: driver is read-only")

// ProviderError carries the upstream status of a candidate provider failure.
// Use errors.As() to inspect it.
type ProviderError = domain.ProviderError
