package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Dan9191/social-auth/internal/auth"
	"github.com/Dan9191/social-auth/internal/models"
	"github.com/Dan9191/social-auth/internal/repository"
	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidCredentials is returned for both an unknown identifier and a wrong password
	ErrInvalidCredentials = errors.New("incorrect email/username or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
)

// UserSession is a per-request handle on the user store
type UserSession interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByID(ctx context.Context, id int64) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	Close() error
}

// SessionFunc opens a UserSession at the start of a request
type SessionFunc func(ctx context.Context) (UserSession, error)

// RepositorySessions adapts a repository to SessionFunc
func RepositorySessions(repo *repository.Repository) SessionFunc {
	return func(ctx context.Context) (UserSession, error) {
		sess, err := repo.Session(ctx)
		if err != nil {
			return nil, err
		}
		return sess, nil
	}
}

// MemorySessions adapts an in-memory store to SessionFunc
func MemorySessions(store *repository.MemoryStore) SessionFunc {
	return func(ctx context.Context) (UserSession, error) {
		sess, err := store.Session(ctx)
		if err != nil {
			return nil, err
		}
		return sess, nil
	}
}

// PasswordHasher hashes new passwords and verifies stored ones
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// TokenIssuer creates access tokens
type TokenIssuer interface {
	CreateAccessToken(claims auth.Claims) (string, error)
}

// Service handles business logic
type Service struct {
	sessions SessionFunc
	hasher   PasswordHasher
	tokens   TokenIssuer
	log      *logrus.Logger
}

// NewService initializes a new service
func NewService(sessions SessionFunc, hasher PasswordHasher, tokens TokenIssuer, log *logrus.Logger) *Service {
	return &Service{sessions: sessions, hasher: hasher, tokens: tokens, log: log}
}

// withSession runs fn on a fresh session and always releases it
func (s *Service) withSession(ctx context.Context, fn func(UserSession) error) error {
	sess, err := s.sessions(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			s.log.Warnf("Failed to release session: %v", cerr)
		}
	}()
	return fn(sess)
}

// Login resolves identifier as an email first, then as a username, verifies
// the password and returns a bearer token whose subject is the user id.
func (s *Service) Login(ctx context.Context, identifier, password string) (*models.Token, error) {
	var user *models.User
	err := s.withSession(ctx, func(sess UserSession) error {
		var err error
		user, err = lookupOptional(sess.FindUserByEmail(ctx, identifier))
		if err != nil {
			return err
		}
		if user == nil {
			user, err = lookupOptional(sess.FindUserByUsername(ctx, identifier))
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if user == nil || !s.hasher.Verify(password, user.PasswordHash) {
		s.log.Warnf("Failed login attempt for %q", identifier)
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.tokens.CreateAccessToken(auth.Claims{Subject: strconv.FormatInt(user.ID, 10)})
	if err != nil {
		return nil, err
	}

	s.log.Infof("User logged in: %d", user.ID)
	return &models.Token{AccessToken: accessToken, TokenType: models.TokenTypeBearer}, nil
}

// Register creates a new user with hashed password and issues an access
// token for it
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.Registration, error) {
	hashedPassword, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hashedPassword,
	}

	err = s.withSession(ctx, func(sess UserSession) error {
		existing, err := lookupOptional(sess.FindUserByEmail(ctx, req.Email))
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrEmailTaken
		}
		existing, err = lookupOptional(sess.FindUserByUsername(ctx, req.Username))
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrUsernameTaken
		}
		err = sess.CreateUser(ctx, user)
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return ErrEmailTaken
		case errors.Is(err, repository.ErrUsernameExists):
			return ErrUsernameTaken
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	accessToken, err := s.tokens.CreateAccessToken(auth.Claims{Subject: strconv.FormatInt(user.ID, 10)})
	if err != nil {
		return nil, err
	}

	s.log.Infof("User registered: %d", user.ID)
	return &models.Registration{
		Message: "User registered successfully",
		User:    user,
		Token:   accessToken,
	}, nil
}

// CurrentUser resolves the subject of a verified token to its user
func (s *Service) CurrentUser(ctx context.Context, subject string) (*models.User, error) {
	id, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid subject %q: %w", subject, repository.ErrUserNotFound)
	}

	var user *models.User
	err = s.withSession(ctx, func(sess UserSession) error {
		user, err = sess.FindUserByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// lookupOptional turns ErrUserNotFound into a nil user
func lookupOptional(user *models.User, err error) (*models.User, error) {
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, nil
	}
	return user, err
}
