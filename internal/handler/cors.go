package handler

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows GET requests from any origin and exposes the given response headers
func CORS(exposedHeaders []string, next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: exposedHeaders,
	}).Handler(next)
}
