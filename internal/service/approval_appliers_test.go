package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/campus-insight/student-records-api/internal/models"
	"github.com/campus-insight/student-records-api/internal/repository"
	appErrors "github.com/campus-insight/student-records-api/pkg/errors"
)

func applierFixture(t *testing.T) (*repository.StudentRepository, sqlmock.Sqlmock, *sqlx.Tx, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	mock.ExpectBegin()
	tx, err := sqlxDB.Beginx()
	require.NoError(t, err)
	return repository.NewStudentRepository(sqlxDB), mock, tx, func() { db.Close() }
}

func TestCreateStudentApplier(t *testing.T) {
	students, mock, tx, cleanup := applierFixture(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students")).
		WithArgs("S-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	request := &models.ApprovalRequest{
		RequestType: models.RequestCreateStudent,
		RequestData: json.RawMessage(`{"name":"Ana","student_id":"S-1","department":"CS","gpa":3.5,"year":2,"risk_level":"medium"}`),
	}
	err := createStudentApplier(students).Apply(context.Background(), tx, request)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateStudentApplierRejectsDuplicate(t *testing.T) {
	students, mock, tx, cleanup := applierFixture(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students")).
		WithArgs("S-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))

	request := &models.ApprovalRequest{
		RequestType: models.RequestCreateStudent,
		RequestData: json.RawMessage(`{"name":"Ana","student_id":"S-1","department":"CS"}`),
	}
	err := createStudentApplier(students).Apply(context.Background(), tx, request)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStudentApplierMissingTarget(t *testing.T) {
	students, mock, tx, cleanup := applierFixture(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id")).
		WithArgs("gone").
		WillReturnError(sql.ErrNoRows)

	target := "gone"
	request := &models.ApprovalRequest{
		RequestType: models.RequestUpdateStudent,
		RequestData: json.RawMessage(`{"name":"Ana","student_id":"S-1","department":"CS"}`),
		StudentID:   &target,
	}
	err := updateStudentApplier(students).Apply(context.Background(), tx, request)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteStudentApplier(t *testing.T) {
	students, mock, tx, cleanup := applierFixture(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id = $1")).
		WithArgs("student-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	target := "student-1"
	request := &models.ApprovalRequest{RequestType: models.RequestDeleteStudent, StudentID: &target}
	err := deleteStudentApplier(students).Apply(context.Background(), tx, request)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id = $1")).
		WithArgs("student-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = deleteStudentApplier(students).Apply(context.Background(), tx, request)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
