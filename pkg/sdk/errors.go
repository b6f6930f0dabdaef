package vecrec

import "github.com/kailas-cloud/vecrec/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound            = domain.ErrNotFound
	ErrStoreUnavailable    = domain.ErrStoreUnavailable
	ErrMetadataUnavailable = domain.ErrMetadataUnavailable
)
