package service

import "github.com/harmonia-mx/campus-api/internal/repository"

// isConflict translates storage-level unique violations into domain
// conflicts. Service checks are fast-path rejections; the database
// indexes are the hard guarantee under races.
func isConflict(err error) bool {
	return repository.IsUniqueViolation(err)
}
