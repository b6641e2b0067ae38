package instance

import (
	"os"

	"github.com/angelmondragon/shopora-backend/pkg/env"
)

const fallbackID = "shopora-0"

// ID names this process in logs and broker client IDs. SHOPORA_INSTANCE_ID
// wins, then the hostname.
func ID() string {
	if id := env.String("SHOPORA_INSTANCE_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
