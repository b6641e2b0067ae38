package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by every collector.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

// register adds c to reg, returning the already registered collector when an
// identical one exists so constructors can be called more than once per process.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
