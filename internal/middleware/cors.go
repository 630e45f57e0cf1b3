package middleware

import (
	"net/http"

	"github.com/Dan9191/social-auth/internal/config"
	"github.com/go-chi/cors"
)

// CORS builds the process-wide cross-origin handler from cfg. Origins not in
// cfg.AllowedOrigins receive no Access-Control-Allow-Origin header.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   cfg.ExposedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           600,
	})
}
