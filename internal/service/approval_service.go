package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campus-insight/student-records-api/internal/dto"
	"github.com/campus-insight/student-records-api/internal/models"
	"github.com/campus-insight/student-records-api/internal/notify"
	"github.com/campus-insight/student-records-api/internal/repository"
	appErrors "github.com/campus-insight/student-records-api/pkg/errors"
)

type approvalStore interface {
	Create(ctx context.Context, request *models.ApprovalRequest) error
	GetByID(ctx context.Context, id string) (*models.ApprovalRequest, error)
	List(ctx context.Context, filter models.ApprovalFilter) ([]models.ApprovalRequest, error)
	Review(ctx context.Context, params repository.DecideParams, effect repository.SideEffect) (*models.ApprovalRequest, error)
}

type changePublisher interface {
	Publish(ctx context.Context, topic string)
}

// SideEffectApplier executes the record-store mutation for an approved
// request inside the review transaction.
type SideEffectApplier interface {
	Apply(ctx context.Context, tx *sqlx.Tx, request *models.ApprovalRequest) error
}

// SideEffectApplierFunc allows using plain functions.
type SideEffectApplierFunc func(ctx context.Context, tx *sqlx.Tx, request *models.ApprovalRequest) error

// Apply implements SideEffectApplier.
func (f SideEffectApplierFunc) Apply(ctx context.Context, tx *sqlx.Tx, request *models.ApprovalRequest) error {
	return f(ctx, tx, request)
}

// ApprovalService orchestrates the approval-request lifecycle: submit,
// review, and the approved side effect against the student store.
type ApprovalService struct {
	repo     approvalStore
	audit    auditLogger
	notifier changePublisher
	appliers map[models.RequestType]SideEffectApplier
	logger   *zap.Logger
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ApprovalServiceOption configures the service.
type ApprovalServiceOption func(*ApprovalService)

// WithAppliers sets the side-effect applier map keyed by request type.
func WithAppliers(appliers map[models.RequestType]SideEffectApplier) ApprovalServiceOption {
	return func(s *ApprovalService) {
		for k, v := range appliers {
			s.appliers[k] = v
		}
	}
}

// NewApprovalService constructs the service. When a student repository is
// provided the default appliers for the three request types are installed.
func NewApprovalService(repo approvalStore, students *repository.StudentRepository, audit auditLogger, notifier changePublisher, logger *zap.Logger, opts ...ApprovalServiceOption) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ApprovalService{
		repo:     repo,
		audit:    audit,
		notifier: notifier,
		appliers: make(map[models.RequestType]SideEffectApplier),
		logger:   logger,
	}
	if students != nil {
		svc.appliers[models.RequestCreateStudent] = createStudentApplier(students)
		svc.appliers[models.RequestUpdateStudent] = updateStudentApplier(students)
		svc.appliers[models.RequestDeleteStudent] = deleteStudentApplier(students)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Submit validates and stores a new pending request.
func (s *ApprovalService) Submit(ctx context.Context, userID string, req dto.CreateApprovalRequest) (*models.ApprovalRequest, error) {
	normalized, targetID, err := validateSubmit(req)
	if err != nil {
		return nil, err
	}

	request := &models.ApprovalRequest{
		UserID:      userID,
		RequestType: req.RequestType,
		RequestData: normalized,
		StudentID:   targetID,
		Status:      models.RequestStatusPending,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to create approval request")
	}

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionRequestSubmit,
		Resource:   "approval_request",
		ResourceID: &request.ID,
		NewValues:  request.RequestData,
	})
	s.notify(ctx, notify.TopicApprovalRequests)
	return request, nil
}

// List returns accessible requests respecting the actor's role: users see
// only their own submissions.
func (s *ApprovalService) List(ctx context.Context, query dto.ApprovalQuery, actor *models.JWTClaims) ([]models.ApprovalRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.ApprovalFilter{
		Status: query.Status,
		Type:   query.Type,
		Limit:  query.Limit,
		Offset: query.Offset,
	}
	if actor.Role != models.RoleAdmin {
		filter.UserID = actor.UserID
	}
	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list approval requests")
	}
	return requests, nil
}

// Get returns a request enforcing ownership for non-admin actors.
func (s *ApprovalService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.ApprovalRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load approval request")
	}
	if actor.Role != models.RoleAdmin && request.UserID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return request, nil
}

// Transition applies a reviewer decision. The status flip and the approved
// side effect share one transaction: a request reaches a terminal state
// exactly once, and only together with its mutation.
func (s *ApprovalService) Transition(ctx context.Context, id string, req dto.ReviewApprovalRequest, reviewerID string) (*models.ApprovalRequest, error) {
	if req.Decision != models.RequestStatusApproved && req.Decision != models.RequestStatusRejected {
		return nil, appErrors.Clone(appErrors.ErrValidation, "decision must be approved or rejected")
	}

	params := repository.DecideParams{
		ID:         id,
		Status:     req.Decision,
		ReviewedBy: reviewerID,
		DecidedAt:  time.Now().UTC(),
		Message:    optionalString(req.Message),
	}

	var effect repository.SideEffect
	var applied models.RequestType
	if req.Decision == models.RequestStatusApproved {
		effect = func(ctx context.Context, tx *sqlx.Tx, request *models.ApprovalRequest) error {
			applier := s.appliers[request.RequestType]
			if applier == nil {
				return appErrors.Clone(appErrors.ErrValidation, "unsupported request type: "+string(request.RequestType))
			}
			applied = request.RequestType
			return applier.Apply(ctx, tx, request)
		}
	}

	request, err := s.repo.Review(ctx, params, effect)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.ErrNotFound
		case errors.Is(err, repository.ErrAlreadyDecided):
			return nil, appErrors.Clone(appErrors.ErrConflict, "request already reviewed")
		default:
			var typed *appErrors.Error
			if errors.As(err, &typed) && typed.Code == appErrors.ErrValidation.Code {
				return nil, err
			}
			if req.Decision == models.RequestStatusApproved {
				return nil, appErrors.Wrap(err, appErrors.ErrSideEffect.Code, appErrors.ErrSideEffect.Status, "approved change could not be applied; request left pending")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to update approval request")
		}
	}

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &reviewerID,
		Action:     models.AuditActionRequestReview,
		Resource:   "approval_request",
		ResourceID: &request.ID,
		NewValues:  request.RequestData,
	})
	s.notify(ctx, notify.TopicApprovalRequests)
	if applied != "" {
		s.notify(ctx, notify.TopicStudents)
	}
	return request, nil
}

func (s *ApprovalService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func (s *ApprovalService) notify(ctx context.Context, topic string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(ctx, topic)
}

// validateSubmit enforces the type/target consistency rules and returns the
// normalized payload plus the target reference.
func validateSubmit(req dto.CreateApprovalRequest) (json.RawMessage, *string, error) {
	target := strings.TrimSpace(req.StudentID)

	switch req.RequestType {
	case models.RequestCreateStudent:
		if target != "" {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "create_student must not reference an existing student")
		}
	case models.RequestUpdateStudent, models.RequestDeleteStudent:
		if target == "" {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "student_id target is required for "+string(req.RequestType))
		}
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unsupported request type")
	}

	if req.RequestType == models.RequestDeleteStudent {
		data := req.RequestData
		if len(data) == 0 {
			data = json.RawMessage("{}")
		} else if !json.Valid(data) {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "request_data must be valid JSON")
		}
		return data, &target, nil
	}

	payload, err := parseStudentPayload(req.RequestData)
	if err != nil {
		return nil, nil, err
	}
	if payload.Name == "" || payload.StudentID == "" || payload.Department == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "request_data requires name, student_id, and department")
	}

	normalized, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to normalize request_data")
	}

	if req.RequestType == models.RequestCreateStudent {
		return normalized, nil, nil
	}
	return normalized, &target, nil
}

func parseStudentPayload(raw json.RawMessage) (*dto.StudentPayload, error) {
	if len(raw) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request_data is required")
	}
	var payload dto.StudentPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request_data must be a field mapping")
	}
	payload.StudentID = strings.TrimSpace(payload.StudentID)
	payload.Name = strings.TrimSpace(payload.Name)
	payload.Department = strings.TrimSpace(payload.Department)
	payload.RiskLevel = strings.ToLower(strings.TrimSpace(payload.RiskLevel))
	return &payload, nil
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
