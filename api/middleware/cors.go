package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/resellr-backend/api/validators"
)

// CORS returns middleware that applies the configured origin policy.
func CORS(origins []string) func(http.Handler) http.Handler {
	credentials := true
	for _, origin := range origins {
		if origin == "*" {
			credentials = false
		}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", validators.SessionTokenHeader, "Idempotency-Key", "X-Requested-With", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: credentials,
		MaxAge:           300,
	}).Handler
}
