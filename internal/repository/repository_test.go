package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dan9191/social-auth/internal/models"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const selectUserQuery = `(?s)^\s*SELECT\s+id,\s*username,\s*email,\s*name,\s*password_hash,\s*created_at\s+FROM\s+users\s+WHERE\s+%s\s*=\s*\$1\s+LIMIT\s+1\s*$`

var userColumns = []string{"id", "username", "email", "name", "password_hash", "created_at"}

func newSessionWithMock(t *testing.T) (*Session, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sess, err := NewRepository(db).Session(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close() })
	return sess, mock
}

func selectBy(column string) string {
	return fmt.Sprintf(selectUserQuery, column)
}

func TestFindUserByEmail_Found(t *testing.T) {
	sess, mock := newSessionWithMock(t)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(selectBy("email")).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(int64(7), "alice", "alice@example.com", "Alice", "hash", created))

	user, err := sess.FindUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "hash", user.PasswordHash)
	assert.Equal(t, created, user.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUserByUsername_NotFound(t *testing.T) {
	sess, mock := newSessionWithMock(t)

	mock.ExpectQuery(selectBy("username")).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := sess.FindUserByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUserByID_DBError(t *testing.T) {
	sess, mock := newSessionWithMock(t)

	mock.ExpectQuery(selectBy("id")).
		WithArgs(int64(3)).
		WillReturnError(errors.New("db down"))

	_, err := sess.FindUserByID(context.Background(), 3)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserNotFound)
	assert.Contains(t, err.Error(), "db down")
}

func TestCreateUser(t *testing.T) {
	sess, mock := newSessionWithMock(t)
	created := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+users\s*\(username,\s*email,\s*name,\s*password_hash\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*RETURNING\s+id,\s*created_at`).
		WithArgs("bob", "bob@example.com", "Bob", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), created))

	user := &models.User{Username: "bob", Email: "bob@example.com", Name: "Bob", PasswordHash: "hash"}
	require.NoError(t, sess.CreateUser(context.Background(), user))
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, created, user.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_DBError(t *testing.T) {
	sess, mock := newSessionWithMock(t)

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WillReturnError(errors.New("unique violation"))

	err := sess.CreateUser(context.Background(), &models.User{Username: "bob"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create user")
}

func TestCreateUser_UniqueViolation(t *testing.T) {
	tests := []struct {
		constraint string
		want       error
	}{
		{"users_email_key", ErrEmailExists},
		{"users_username_key", ErrUsernameExists},
	}
	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			sess, mock := newSessionWithMock(t)
			mock.ExpectQuery(`INSERT\s+INTO\s+users`).
				WillReturnError(&pq.Error{Code: "23505", Constraint: tt.constraint})

			err := sess.CreateUser(context.Background(), &models.User{Username: "bob"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	assert.NoError(t, NewRepository(db).Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUp
	defer func() { gooseUp = orig }()

	var gotDir string
	gooseUp = func(ctx context.Context, _ *sql.DB, dir string) error {
		gotDir = dir
		return nil
	}
	require.NoError(t, Migrate(context.Background(), db))
	assert.Equal(t, "migrations", gotDir)

	gooseUp = func(context.Context, *sql.DB, string) error { return errors.New("boom") }
	err = Migrate(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestMigrationsEmbedded(t *testing.T) {
	data, err := migrations.ReadFile("migrations/00001_create_users.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), "CREATE TABLE IF NOT EXISTS users")
}
