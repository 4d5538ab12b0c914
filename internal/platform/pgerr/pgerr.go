// Package pgerr classifies PostgreSQL driver errors so stores can translate
// them into sentinel errors without sprinkling SQLSTATE literals around.
package pgerr

import (
	"errors"

	"github.com/lib/pq"
)

const (
	uniqueViolation      = "23505"
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
)

// IsUniqueViolation reports whether err is a unique-constraint violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

// IsSerializationFailure reports whether err is a concurrent-write conflict
// the caller may retry (serialization failure or deadlock).
func IsSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	code := string(pqErr.Code)
	return code == serializationFailure || code == deadlockDetected
}
