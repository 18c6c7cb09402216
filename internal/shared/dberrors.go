package shared

import "github.com/carecrm/carecrm/internal/platform/db"

// MapDBError converts storage errors that carry business meaning into the
// domain taxonomy. Other errors pass through untouched.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}
	if constraint, ok := db.UniqueViolation(err); ok {
		return DuplicateKey(constraint)
	}
	return err
}
