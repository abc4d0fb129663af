package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/harmonia-mx/campus-api/internal/models"
)

func newUserRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func userRow(id, email string, role models.UserRole) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "first_name", "last_name", "email", "password_hash", "phone", "role", "selected_campus_id", "archived", "created_by", "updated_by", "created_at", "updated_at"}).
		AddRow(id, "Maria", "Torres", email, "$2a$10$hash", "", role, nil, false, nil, nil, time.Now(), time.Now())
}

func TestUserRepositoryFindByEmail(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = LOWER($1)")).
		WithArgs("maria@harmonia.mx").
		WillReturnRows(userRow("user-1", "maria@harmonia.mx", models.RoleCoordinator))

	user, err := repo.FindByEmail(context.Background(), "maria@harmonia.mx")
	require.NoError(t, err)
	require.Equal(t, "user-1", user.ID)
	require.Equal(t, models.RoleCoordinator, user.Role)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = LOWER($1)")).
		WithArgs("ghost@harmonia.mx").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.FindByEmail(context.Background(), "ghost@harmonia.mx")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCampusGrants(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	rows := sqlmock.NewRows([]string{"campus_id"}).AddRow("campus-a").AddRow("campus-b")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT campus_id FROM user_campuses")).
		WithArgs("user-1").
		WillReturnRows(rows)

	ids, err := repo.CampusGrants(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, []string{"campus-a", "campus-b"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpdateSelectedCampus(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	campusID := "campus-a"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET selected_campus_id = $2")).
		WithArgs("user-1", campusID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateSelectedCampus(context.Background(), "user-1", &campusID))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET selected_campus_id = $2")).
		WithArgs("user-1", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateSelectedCampus(context.Background(), "user-1", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryReplaceCampusGrants(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_campuses")).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_campuses")).
		WithArgs("user-1", "campus-a").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_campuses")).
		WithArgs("user-1", "campus-b").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceCampusGrants(context.Background(), "user-1", []string{"campus-a", "campus-b"}))
	require.NoError(t, mock.ExpectationsWereMet())
}
