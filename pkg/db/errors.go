package db

import (
	"strings"

	pkgerrors "github.com/angelmondragon/shopora-backend/pkg/errors"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether the provided error references a unique
// constraint violation. When constraintName is provided, the violation must
// name that constraint (or index).
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	if pg, ok := pkgerrors.Postgres(err); ok {
		return pg.Code == pgUniqueViolation && (constraintName == "" || pg.Constraint == constraintName)
	}

	// sqlite reports violations only through the message text.
	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value") && !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return true
}
