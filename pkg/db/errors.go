package db

import "strings"

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation. With a constraintName it matches that constraint specifically,
// which lets callers distinguish the intent-per-order index from any other
// duplicate. Matching is on the message text so it works through gorm's
// error wrapping on both the pgx and sqlite paths.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
