// Package env reads the few settings that must be known before config.Load runs,
// such as the log format of the bootstrap logger.
package env

import (
	"os"
	"strconv"
	"strings"
)

// String returns the trimmed value of key, or fallback when unset or blank.
func String(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// Bool parses key with strconv.ParseBool, returning fallback on absence or garbage.
func Bool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}
