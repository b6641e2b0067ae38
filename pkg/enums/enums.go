// Package enums holds the closed string sets stored in the database and
// carried over the wire. Every set is text in Postgres with a CHECK
// constraint matching the values listed here.
package enums

import (
	"fmt"
	"slices"
)

func parseEnum[T ~string](known []T, label, value string) (T, error) {
	if slices.Contains(known, T(value)) {
		return T(value), nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", label, value)
}
