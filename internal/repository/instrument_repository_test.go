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

func newInstrumentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func instrumentRow(id, internalID string, studentID *string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "internal_id", "name", "student_id", "tutor_id", "campus_id", "assignment_date", "created_by", "updated_by", "created_at", "updated_at"}).
		AddRow(id, internalID, "Violin 4/4", studentID, nil, "campus-a", nil, "user-1", nil, time.Now(), time.Now())
}

func TestInstrumentRepositoryFindByStudentID(t *testing.T) {
	db, mock, cleanup := newInstrumentRepoMock(t)
	defer cleanup()

	repo := NewInstrumentRepository(db)
	studentID := "student-1"
	mock.ExpectQuery(regexp.QuoteMeta("FROM instruments WHERE student_id = $1")).
		WithArgs("student-1").
		WillReturnRows(instrumentRow("inst-1", "VLN-001", &studentID))

	inst, err := repo.FindByStudentID(context.Background(), "student-1")
	require.NoError(t, err)
	require.Equal(t, "inst-1", inst.ID)
	require.Equal(t, "VLN-001", inst.InternalID)

	mock.ExpectQuery(regexp.QuoteMeta("FROM instruments WHERE student_id = $1")).
		WithArgs("student-2").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.FindByStudentID(context.Background(), "student-2")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInstrumentRepositoryExistsByInternalID(t *testing.T) {
	db, mock, cleanup := newInstrumentRepoMock(t)
	defer cleanup()

	repo := NewInstrumentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("VLN-001", "inst-2").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByInternalID(context.Background(), "VLN-001", "inst-2")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInstrumentRepositoryCreateAndDelete(t *testing.T) {
	db, mock, cleanup := newInstrumentRepoMock(t)
	defer cleanup()

	repo := NewInstrumentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO instruments")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	inst := &models.Instrument{InternalID: "VLN-001", Name: "Violin 4/4", CampusID: "campus-a", CreatedBy: "user-1"}
	require.NoError(t, repo.Create(context.Background(), inst))
	require.NotEmpty(t, inst.ID)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM instruments")).
		WithArgs(inst.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), inst.ID))
	require.NoError(t, mock.ExpectationsWereMet())
}
