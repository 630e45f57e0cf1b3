package handler

import (
	"net/http"

	"github.com/Dan9191/social-auth/internal/config"
	"github.com/Dan9191/social-auth/internal/middleware"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// NewRouter wires the routes. The CORS policy wraps the whole router so it
// also covers preflight requests for paths that have no OPTIONS route.
func NewRouter(h *Handler, tokens middleware.TokenParser, corsCfg config.CORSConfig, log *logrus.Logger) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	r.Use(middleware.RequestLogger(log))

	// Public routes
	r.HandleFunc("/auth/login/", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/auth/register/", h.Register).Methods(http.MethodPost)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	// Protected routes
	requireAuth := middleware.AuthMiddleware(tokens)
	r.Handle("/auth/me/", requireAuth(http.HandlerFunc(h.Me))).Methods(http.MethodGet)

	// The slashless forms redirect with 307 so the method and body survive.
	for _, path := range []string{"/auth/login", "/auth/register", "/auth/me"} {
		r.Handle(path, addSlash())
	}

	return middleware.CORS(corsCfg)(r)
}

func addSlash() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := *r.URL
		target.Path += "/"
		http.Redirect(w, r, target.RequestURI(), http.StatusTemporaryRedirect)
	})
}
