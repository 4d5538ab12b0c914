package storage

import dErrors "attest/pkg/domain-errors"

var (
	// ErrBucketMissing keeps storage-specific failures consistent across
	// in-memory and future implementations.
	ErrBucketMissing = dErrors.New(dErrors.CodeNotFound, "artifact bucket does not exist")
)
