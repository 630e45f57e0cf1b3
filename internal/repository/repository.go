package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dan9191/social-auth/internal/models"
	"github.com/lib/pq"
)

var (
	// ErrUserNotFound is returned by lookups that match no row
	ErrUserNotFound   = errors.New("user not found")
	ErrEmailExists    = errors.New("email already exists")
	ErrUsernameExists = errors.New("username already exists")
)

// uniqueViolation is the Postgres SQLSTATE for a unique index conflict.
const uniqueViolation = "23505"

// DBTX is the subset of database/sql used by the queries below.
// *sql.DB, *sql.Conn and *sql.Tx all satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Ping checks that the database is reachable
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Session pins a single pooled connection for the lifetime of one request.
// The caller must Close it.
func (r *Repository) Session(ctx context.Context) (*Session, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &Session{db: conn, close: conn.Close}, nil
}

// Session runs user queries on one connection
type Session struct {
	db    DBTX
	close func() error
}

// NewSession wraps an arbitrary DBTX. Close is a no-op.
func NewSession(db DBTX) *Session {
	return &Session{db: db, close: func() error { return nil }}
}

// Close returns the connection to the pool
func (s *Session) Close() error {
	return s.close()
}

// CreateUser creates a new user in the database
func (s *Session) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, email, name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	err := s.db.QueryRowContext(ctx, query, user.Username, user.Email, user.Name, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		if strings.Contains(pqErr.Constraint, "email") {
			return ErrEmailExists
		}
		return ErrUsernameExists
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByEmail retrieves a user by exact email match
func (s *Session) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, "email = $1", email)
}

// FindUserByUsername retrieves a user by exact username match
func (s *Session) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, "username = $1", username)
}

// FindUserByID retrieves a user by primary key
func (s *Session) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.findUser(ctx, "id = $1", id)
}

func (s *Session) findUser(ctx context.Context, where string, arg any) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, email, name, password_hash, created_at
		FROM users
		WHERE ` + where + `
		LIMIT 1`
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Username, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}
