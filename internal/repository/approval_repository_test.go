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

	"github.com/campus-insight/student-records-api/internal/models"
)

func newApprovalRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func approvalRows(id string, status models.RequestStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "request_type", "request_data", "student_id", "status", "admin_message", "reviewed_by", "created_at", "updated_at"}).
		AddRow(id, "user-1", "create_student", []byte(`{"name":"Ana"}`), nil, status, nil, nil, time.Now(), time.Now())
}

func TestApprovalRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newApprovalRepoMock(t)
	defer cleanup()

	repo := NewApprovalRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO approval_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	request := &models.ApprovalRequest{
		UserID:      "user-1",
		RequestType: models.RequestCreateStudent,
		RequestData: []byte(`{"name":"Ana"}`),
	}
	require.NoError(t, repo.Create(context.Background(), request))
	require.NotEmpty(t, request.ID)
	require.Equal(t, models.RequestStatusPending, request.Status)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, request_type")).
		WithArgs(request.ID).
		WillReturnRows(approvalRows(request.ID, models.RequestStatusPending))

	found, err := repo.GetByID(context.Background(), request.ID)
	require.NoError(t, err)
	require.Equal(t, request.ID, found.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovalRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newApprovalRepoMock(t)
	defer cleanup()

	repo := NewApprovalRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("status IN ($1)")).
		WithArgs("pending", "user-1").
		WillReturnRows(approvalRows("req-1", models.RequestStatusPending))

	found, err := repo.List(context.Background(), models.ApprovalFilter{
		Status: []models.RequestStatus{models.RequestStatusPending},
		UserID: "user-1",
	})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovalRepositoryDecideRequiresPending(t *testing.T) {
	db, mock, cleanup := newApprovalRepoMock(t)
	defer cleanup()

	repo := NewApprovalRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE approval_requests")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Decide(context.Background(), DecideParams{
		ID:         "req-1",
		Status:     models.RequestStatusApproved,
		ReviewedBy: "admin-1",
		DecidedAt:  time.Now().UTC(),
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovalRepositoryReviewCommitsEffectAndDecision(t *testing.T) {
	db, mock, cleanup := newApprovalRepoMock(t)
	defer cleanup()

	repo := NewApprovalRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("req-1").
		WillReturnRows(approvalRows("req-1", models.RequestStatusPending))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE approval_requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	effect := func(ctx context.Context, tx *sqlx.Tx, request *models.ApprovalRequest) error {
		student := &models.Student{StudentID: "S-1", Name: "Ana", Department: "CS"}
		return NewStudentRepository(db).WithTx(tx).Create(ctx, student)
	}

	reviewed, err := repo.Review(context.Background(), DecideParams{
		ID:         "req-1",
		Status:     models.RequestStatusApproved,
		ReviewedBy: "admin-1",
		DecidedAt:  time.Now().UTC(),
	}, effect)
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusApproved, reviewed.Status)
	require.Equal(t, "admin-1", *reviewed.ReviewedBy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovalRepositoryReviewRejectsDecided(t *testing.T) {
	db, mock, cleanup := newApprovalRepoMock(t)
	defer cleanup()

	repo := NewApprovalRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("req-1").
		WillReturnRows(approvalRows("req-1", models.RequestStatusApproved))
	mock.ExpectRollback()

	_, err := repo.Review(context.Background(), DecideParams{
		ID:         "req-1",
		Status:     models.RequestStatusRejected,
		ReviewedBy: "admin-2",
		DecidedAt:  time.Now().UTC(),
	}, nil)
	require.ErrorIs(t, err, ErrAlreadyDecided)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovalRepositoryReviewRollsBackOnEffectFailure(t *testing.T) {
	db, mock, cleanup := newApprovalRepoMock(t)
	defer cleanup()

	repo := NewApprovalRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("req-1").
		WillReturnRows(approvalRows("req-1", models.RequestStatusPending))
	mock.ExpectRollback()

	effect := func(ctx context.Context, tx *sqlx.Tx, request *models.ApprovalRequest) error {
		return context.DeadlineExceeded
	}

	_, err := repo.Review(context.Background(), DecideParams{
		ID:         "req-1",
		Status:     models.RequestStatusApproved,
		ReviewedBy: "admin-1",
		DecidedAt:  time.Now().UTC(),
	}, effect)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NoError(t, mock.ExpectationsWereMet())
}
