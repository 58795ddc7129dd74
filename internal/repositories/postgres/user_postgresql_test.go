package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/auth-service/internal/cache"
	"github.com/SAP-F-2025/auth-service/internal/models"
	"github.com/SAP-F-2025/auth-service/internal/repositories"
)

var userColumns = []string{"id", "email", "password_hash", "role", "status", "profile", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (*UserPostgreSQL, sqlmock.Sqlmock) {
	t.Helper()
	return newMockRepoWithMatcher(t, sqlmock.QueryMatcherRegexp)
}

func newMockRepoWithMatcher(t *testing.T, matcher sqlmock.QueryMatcher) (*UserPostgreSQL, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(matcher))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	return NewUserPostgreSQL(db, cache.NewCacheManager(nil), time.Minute), mock
}

func TestUserPostgreSQL_GetByEmail(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	rows := sqlmock.NewRows(userColumns).
		AddRow("u-1", "a@x.com", "hash", "student", "active", []byte(`{"firstName":"A","lastName":"B"}`), now, now)
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).WillReturnRows(rows)

	user, err := repo.GetByEmail(context.Background(), "  A@X.com ")
	require.NoError(t, err)

	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, "hash", user.PasswordHash)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.Equal(t, "A", user.Profile.Data().FirstName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserPostgreSQL_GetByEmailNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := repo.GetByEmail(context.Background(), "missing@x.com")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestUserPostgreSQL_GetByIDDriverError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).
		WillReturnError(errors.New("connection refused"))

	_, err := repo.GetByID(context.Background(), "u-1")
	assert.ErrorIs(t, err, repositories.ErrUnavailable)
}

func TestUserPostgreSQL_CountActiveByRole(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := repo.CountActiveByRole(context.Background(), models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestUserPostgreSQL_DeleteNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "users"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), "u-1")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

// excludingColumns matches by regexp and rejects any statement naming one of the columns.
func excludingColumns(columns ...string) sqlmock.QueryMatcher {
	return sqlmock.QueryMatcherFunc(func(expectedSQL, actualSQL string) error {
		for _, col := range columns {
			if strings.Contains(actualSQL, col) {
				return fmt.Errorf("statement writes %s: %s", col, actualSQL)
			}
		}
		return sqlmock.QueryMatcherRegexp.Match(expectedSQL, actualSQL)
	})
}

func TestUserPostgreSQL_Create(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "users"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	user := &models.User{ID: "u-1", Email: " New@X.com ", PasswordHash: "hash", Role: models.RoleStudent, Status: models.StatusActive}
	require.NoError(t, repo.Create(context.Background(), user))

	assert.Equal(t, "new@x.com", user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserPostgreSQL_CreateDuplicateEmail(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "unique violation", err: &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}},
		{name: "translated by gorm", err: gorm.ErrDuplicatedKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)

			mock.ExpectBegin()
			mock.ExpectExec(`INSERT INTO "users"`).WillReturnError(tt.err)
			mock.ExpectRollback()

			err := repo.Create(context.Background(), &models.User{ID: "u-1", Email: "a@x.com", PasswordHash: "hash", Role: models.RoleStudent, Status: models.StatusActive})
			assert.ErrorIs(t, err, repositories.ErrDuplicate)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserPostgreSQL_UpdateLeavesCredentialsAlone(t *testing.T) {
	tests := []struct {
		name    string
		rows    int64
		wantErr error
	}{
		{name: "updated", rows: 1},
		{name: "missing row", rows: 0, wantErr: repositories.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepoWithMatcher(t, excludingColumns("password_hash", `"email"`))

			mock.ExpectBegin()
			mock.ExpectExec(`UPDATE "users" SET "role"=\$1,"status"=\$2,"profile"=\$3,"last_login_at"=\$4,"updated_at"=\$5 WHERE`).
				WillReturnResult(sqlmock.NewResult(0, tt.rows))
			mock.ExpectCommit()

			user := &models.User{ID: "u-1", Email: "a@x.com", PasswordHash: "must-not-be-written", Role: models.RoleEducator, Status: models.StatusSuspended}
			err := repo.Update(context.Background(), user)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserPostgreSQL_List(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	role := models.RoleStudent

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users" WHERE role = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE role = \$1 ORDER BY created_at DESC LIMIT`).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("u-3", "c@x.com", "hash", "student", "active", []byte(`{}`), now, now))

	users, total, err := repo.List(context.Background(), repositories.UserFilters{Role: &role, Limit: 2, Offset: 2})
	require.NoError(t, err)

	assert.Equal(t, int64(3), total)
	require.Len(t, users, 1)
	assert.Equal(t, "u-3", users[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserPostgreSQL_ListCountError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).WillReturnError(errors.New("connection reset"))

	_, _, err := repo.List(context.Background(), repositories.UserFilters{})
	assert.ErrorIs(t, err, repositories.ErrUnavailable)
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "not found", in: gorm.ErrRecordNotFound, want: repositories.ErrNotFound},
		{name: "duplicate", in: gorm.ErrDuplicatedKey, want: repositories.ErrDuplicate},
		{name: "timeout", in: context.DeadlineExceeded, want: repositories.ErrUnavailable},
		{name: "driver", in: errors.New("broken pipe"), want: repositories.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, translateError(tt.in), tt.want)
		})
	}

	assert.NoError(t, translateError(nil))
}
