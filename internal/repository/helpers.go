package repository

import (
	"errors"

	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether the error is a PostgreSQL unique
// index violation. Service-level duplicate checks are fast-path
// rejections only; the unique indexes are the hard guarantee, and this
// lets callers translate races into conflicts.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}
	return false
}
