package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers
// return these (optionally wrapped) so services can translate them into domain
// errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: a uniqueness or state conflict was detected by the store
// - ErrLocked: entity is frozen and rejects mutation
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrSerialization: the transactional store reported a concurrent-write
//   conflict; the operation may be retried
// - ErrUnavailable: service or resource temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors
// directly.
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrLocked        = errors.New("locked")
	ErrInvalidState  = errors.New("invalid state")
	ErrSerialization = errors.New("serialization conflict")
	ErrUnavailable   = errors.New("unavailable")
)
