package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/Dan9191/social-auth/internal/middleware"
	"github.com/Dan9191/social-auth/internal/models"
	"github.com/Dan9191/social-auth/internal/repository"
	"github.com/Dan9191/social-auth/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxBodyBytes = 1 << 20

	detailInvalidLogin = "Incorrect email/username or password"
	detailInvalidToken = "Could not validate credentials"
	detailInternal     = "Internal server error"
)

// Pinger reports database health
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	svc      *service.Service
	db       Pinger
	log      *logrus.Logger
	validate *validator.Validate
}

func NewHandler(svc *service.Service, db Pinger, log *logrus.Logger) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// bcrypt caps passwords at 72 bytes, while max counts runes.
	v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= limit
	})
	return &Handler{svc: svc, db: db, log: log, validate: v}
}

type errorResponse struct {
	Detail string       `json:"detail"`
	Errors []fieldError `json:"errors,omitempty"`
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// Login handles the password-grant form and returns a bearer token
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeError(w, http.StatusUnprocessableEntity, "Invalid form body")
		return
	}

	username, hasUsername := formValue(r, "username")
	password, hasPassword := formValue(r, "password")
	if !hasUsername || username == "" || !hasPassword || password == "" {
		writeError(w, http.StatusUnprocessableEntity, "Fields username and password are required")
		return
	}
	if grantType, ok := formValue(r, "grant_type"); ok && grantType != "" && grantType != "password" {
		writeError(w, http.StatusUnprocessableEntity, "grant_type must be password")
		return
	}

	token, err := h.svc.Login(r.Context(), username, password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, detailInvalidLogin)
		return
	}
	if err != nil {
		h.log.Errorf("Login failed: %v", err)
		writeError(w, http.StatusInternalServerError, detailInternal)
		return
	}

	writeJSON(w, http.StatusOK, token)
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)

	if err := h.validate.Struct(req); err != nil {
		resp := errorResponse{Detail: "Validation failed"}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				resp.Errors = append(resp.Errors, fieldError{Field: fe.Field(), Rule: fe.Tag()})
			}
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	reg, err := h.svc.Register(r.Context(), req)
	switch {
	case errors.Is(err, bcrypt.ErrPasswordTooLong):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Detail: "Validation failed",
			Errors: []fieldError{{Field: "password", Rule: "maxbytes"}},
		})
		return
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusBadRequest, "Email already registered")
		return
	case errors.Is(err, service.ErrUsernameTaken):
		writeError(w, http.StatusBadRequest, "Username already taken")
		return
	case err != nil:
		h.log.Errorf("Registration failed: %v", err)
		writeError(w, http.StatusInternalServerError, detailInternal)
		return
	}

	writeJSON(w, http.StatusCreated, reg)
}

// Me returns the user identified by the bearer token
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	subject, ok := middleware.SubjectFromContext(r.Context())
	if !ok {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, detailInvalidToken)
		return
	}

	user, err := h.svc.CurrentUser(r.Context(), subject)
	if errors.Is(err, repository.ErrUserNotFound) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, detailInvalidToken)
		return
	}
	if err != nil {
		h.log.Errorf("Failed to load current user: %v", err)
		writeError(w, http.StatusInternalServerError, detailInternal)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// Health reports whether the database is reachable
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			h.log.Errorf("Health check failed: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func formValue(r *http.Request, key string) (string, bool) {
	values, ok := r.PostForm[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
