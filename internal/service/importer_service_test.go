package service

import (
	"context"
	"regexp"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/campus-insight/student-records-api/internal/repository"
	"github.com/campus-insight/student-records-api/pkg/config"
	appErrors "github.com/campus-insight/student-records-api/pkg/errors"
)

func newImporter(t *testing.T) (*ImporterService, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	svc := NewImporterService(sqlxDB, repository.NewStudentRepository(sqlxDB), &auditStub{}, nil, config.ImportsConfig{Enabled: true, MaxRows: 1000}, nil)
	return svc, mock, func() { db.Close() }
}

func TestImporterParseHeaderDriven(t *testing.T) {
	svc, _, cleanup := newImporter(t)
	defer cleanup()

	// Columns in arbitrary order, arbitrary header casing.
	csv := strings.Join([]string{
		`Department,GPA,Name,STUDENT_ID,year`,
		`CS,3.8,Ana Silva,S-100,2`,
		`Math,3.1,Bruno Reis,S-101,3`,
	}, "\n")

	preview, err := svc.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, preview.Students, 2)
	require.Zero(t, preview.Rejected)
	require.Equal(t, "S-100", preview.Students[0].StudentID)
	require.Equal(t, "Ana Silva", preview.Students[0].Name)
	require.Equal(t, "CS", preview.Students[0].Department)
	require.Equal(t, 2, preview.Students[0].Year)
	require.Equal(t, 3.8, *preview.Students[0].GPA)
}

func TestImporterParseNumericCoercion(t *testing.T) {
	svc, _, cleanup := newImporter(t)
	defer cleanup()

	csv := strings.Join([]string{
		`student_id,name,department,year,gpa,attendance_rate,risk_level`,
		`S-1,Ana,CS,abc,abc,92.5,HIGH`,
		`S-2,Bruno,Math,,3.0,,unknown`,
	}, "\n")

	preview, err := svc.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, preview.Students, 2)

	first := preview.Students[0]
	require.Equal(t, 1, first.Year)
	require.Nil(t, first.GPA)
	require.Equal(t, 92.5, *first.AttendanceRate)
	require.Equal(t, "high", string(first.RiskLevel))

	second := preview.Students[1]
	require.Equal(t, 1, second.Year)
	require.Equal(t, 3.0, *second.GPA)
	require.Nil(t, second.AttendanceRate)
	require.Equal(t, "low", string(second.RiskLevel))
}

func TestImporterParseRejectsIncompleteRows(t *testing.T) {
	svc, _, cleanup := newImporter(t)
	defer cleanup()

	csv := strings.Join([]string{
		`student_id,name,department`,
		`S-1,Ana,CS`,
		`,Bruno,Math`,
		`S-3,,Math`,
		`S-4,Dora,`,
		`S-5,Eva,Physics`,
	}, "\n")

	preview, err := svc.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, preview.Students, 2)
	require.Equal(t, 3, preview.Rejected)
}

func TestImporterParseQuotedCells(t *testing.T) {
	svc, _, cleanup := newImporter(t)
	defer cleanup()

	csv := strings.Join([]string{
		`"student_id","name","department"`,
		`"S-1","Silva, Ana","CS"`,
	}, "\n")

	preview, err := svc.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, preview.Students, 1)
	require.Equal(t, "Silva, Ana", preview.Students[0].Name)
}

func TestImporterParseMissingRequiredColumn(t *testing.T) {
	svc, _, cleanup := newImporter(t)
	defer cleanup()

	_, err := svc.Parse(strings.NewReader("name,department\nAna,CS\n"))
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Parse(strings.NewReader(""))
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestImporterImportCommitsOneTransaction(t *testing.T) {
	svc, mock, cleanup := newImporter(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	csv := strings.Join([]string{
		`student_id,name,department`,
		`S-1,Ana,CS`,
		`,missing,CS`,
		`S-2,Bruno,Math`,
	}, "\n")

	result, _, err := svc.Import(context.Background(), "admin-1", strings.NewReader(csv), false)
	require.NoError(t, err)
	require.Equal(t, 2, result.Inserted)
	require.Equal(t, 1, result.Rejected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImporterImportRollsBackOnFailure(t *testing.T) {
	svc, mock, cleanup := newImporter(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	csv := "student_id,name,department\nS-1,Ana,CS\n"
	_, _, err := svc.Import(context.Background(), "admin-1", strings.NewReader(csv), false)
	require.Equal(t, appErrors.ErrPersistence.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImporterImportDryRunSkipsDatabase(t *testing.T) {
	svc, mock, cleanup := newImporter(t)
	defer cleanup()

	csv := "student_id,name,department\nS-1,Ana,CS\n"
	result, preview, err := svc.Import(context.Background(), "admin-1", strings.NewReader(csv), true)
	require.NoError(t, err)
	require.Nil(t, result)
	require.Len(t, preview.Students, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImporterImportDisabled(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	svc := NewImporterService(sqlxDB, repository.NewStudentRepository(sqlxDB), nil, nil, config.ImportsConfig{Enabled: false}, nil)

	_, _, err = svc.Import(context.Background(), "admin-1", strings.NewReader("student_id\nS-1\n"), false)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestImporterParseRowLimit(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	svc := NewImporterService(sqlxDB, repository.NewStudentRepository(sqlxDB), nil, nil, config.ImportsConfig{Enabled: true, MaxRows: 1}, nil)

	csv := "student_id,name,department\nS-1,Ana,CS\nS-2,Bruno,Math\n"
	_, err = svc.Parse(strings.NewReader(csv))
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
