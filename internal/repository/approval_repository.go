package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-insight/student-records-api/internal/models"
)

// ErrAlreadyDecided signals a transition attempt on a request that already
// reached a terminal state.
var ErrAlreadyDecided = errors.New("approval request already decided")

// ApprovalRepository persists approval-request workflow data.
type ApprovalRepository struct {
	db   sqlx.ExtContext
	pool *sqlx.DB
}

// NewApprovalRepository constructs the repository.
func NewApprovalRepository(db *sqlx.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db, pool: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *ApprovalRepository) WithTx(tx *sqlx.Tx) *ApprovalRepository {
	return &ApprovalRepository{db: tx}
}

const approvalColumns = `id, user_id, request_type, request_data, student_id, status, admin_message, reviewed_by, created_at, updated_at`

// Create inserts a new pending request.
func (r *ApprovalRepository) Create(ctx context.Context, request *models.ApprovalRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.Status == "" {
		request.Status = models.RequestStatusPending
	}
	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = now
	const query = `INSERT INTO approval_requests
        (id, user_id, request_type, request_data, student_id, status, admin_message, reviewed_by, created_at, updated_at)
        VALUES (:id, :user_id, :request_type, :request_data, :student_id, :status, :admin_message, :reviewed_by, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, request); err != nil {
		return fmt.Errorf("create approval request: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *ApprovalRepository) GetByID(ctx context.Context, id string) (*models.ApprovalRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM approval_requests WHERE id = $1", approvalColumns)
	var request models.ApprovalRequest
	if err := sqlx.GetContext(ctx, r.db, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// GetByIDForUpdate locks the request row for the duration of the enclosing
// transaction. Only meaningful on a repository bound via WithTx.
func (r *ApprovalRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.ApprovalRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM approval_requests WHERE id = $1 FOR UPDATE", approvalColumns)
	var request models.ApprovalRequest
	if err := sqlx.GetContext(ctx, r.db, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns requests matching the filter, latest first.
func (r *ApprovalRepository) List(ctx context.Context, filter models.ApprovalFilter) ([]models.ApprovalRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(fmt.Sprintf("SELECT %s FROM approval_requests", approvalColumns))

	conditions := make([]string, 0, 3)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("request_type = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var requests []models.ApprovalRequest
	if err := sqlx.SelectContext(ctx, r.db, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list approval requests: %w", err)
	}
	return requests, nil
}

// DecideParams groups the columns written by a review decision.
type DecideParams struct {
	ID         string
	Status     models.RequestStatus
	ReviewedBy string
	DecidedAt  time.Time
	Message    *string
}

// Decide flips a pending request to a terminal state. The update is
// conditional on the row still being pending; sql.ErrNoRows signals the
// request was already decided by a concurrent reviewer.
func (r *ApprovalRepository) Decide(ctx context.Context, params DecideParams) error {
	query := fmt.Sprintf(`UPDATE approval_requests
        SET status = :status, admin_message = :admin_message, reviewed_by = :reviewed_by, updated_at = :updated_at
        WHERE id = :id AND status = '%s'`, models.RequestStatusPending)
	result, err := sqlx.NamedExecContext(ctx, r.db, query, map[string]interface{}{
		"id":            params.ID,
		"status":        params.Status,
		"admin_message": params.Message,
		"reviewed_by":   params.ReviewedBy,
		"updated_at":    params.DecidedAt,
	})
	if err != nil {
		return fmt.Errorf("decide approval request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check decide rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SideEffect applies the approved change inside the review transaction.
type SideEffect func(ctx context.Context, tx *sqlx.Tx, request *models.ApprovalRequest) error

// Review performs the terminal transition as one transaction: lock the row,
// reject non-pending requests, run the side effect, then flip the status
// conditionally. Either everything commits or nothing does.
func (r *ApprovalRepository) Review(ctx context.Context, params DecideParams, effect SideEffect) (*models.ApprovalRequest, error) {
	if r.pool == nil {
		return nil, errors.New("review requires a pool-bound repository")
	}
	tx, err := r.pool.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin review tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	scoped := r.WithTx(tx)
	request, err := scoped.GetByIDForUpdate(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.RequestStatusPending {
		return nil, ErrAlreadyDecided
	}

	if effect != nil {
		if err := effect(ctx, tx, request); err != nil {
			return nil, err
		}
	}

	if err := scoped.Decide(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlreadyDecided
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit review tx: %w", err)
	}

	request.Status = params.Status
	request.AdminMessage = params.Message
	request.ReviewedBy = &params.ReviewedBy
	request.UpdatedAt = params.DecidedAt
	return request, nil
}
