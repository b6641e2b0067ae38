package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/shopora-backend/api/responses"
	"github.com/angelmondragon/shopora-backend/pkg/config"
)

// sessionTokenHeader carries the rotated access token on refresh responses.
const sessionTokenHeader = "X-Shop-Token"

// CORS applies the storefront origin policy from configuration.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", sessionTokenHeader, idempotencyHeader, responses.RequestIDHeader},
		ExposedHeaders:   []string{sessionTokenHeader, responses.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
