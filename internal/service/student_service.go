package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-insight/student-records-api/internal/dto"
	"github.com/campus-insight/student-records-api/internal/models"
	"github.com/campus-insight/student-records-api/internal/notify"
	appErrors "github.com/campus-insight/student-records-api/pkg/errors"
)

type studentStore interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByStudentID(ctx context.Context, studentID, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

// StudentService covers the direct admin mutation path and the read views.
type StudentService struct {
	repo      studentStore
	audit     auditLogger
	notifier  changePublisher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentStore, audit auditLogger, notifier changePublisher, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{repo: repo, audit: audit, notifier: notifier, validator: validate, logger: logger}
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get fetches one student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load student")
	}
	return student, nil
}

// Create inserts a student via the direct admin path.
func (s *StudentService) Create(ctx context.Context, actorID string, req dto.CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	exists, err := s.repo.ExistsByStudentID(ctx, req.StudentID, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to check student_id")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student_id already in use")
	}

	student := &models.Student{
		StudentID:       strings.TrimSpace(req.StudentID),
		Name:            strings.TrimSpace(req.Name),
		Department:      strings.TrimSpace(req.Department),
		Year:            req.Year,
		GPA:             req.GPA,
		AttendanceRate:  req.AttendanceRate,
		EngagementScore: req.EngagementScore,
		RiskLevel:       models.RiskLevel(req.RiskLevel),
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		student.Email = &email
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to create student")
	}

	s.emitAudit(ctx, actorID, models.AuditActionStudentCreate, student)
	s.notify(ctx, notify.TopicStudents)
	return student, nil
}

// Update applies the provided fields to an existing student.
func (s *StudentService) Update(ctx context.Context, actorID, id string, req dto.UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.StudentID != nil && *req.StudentID != student.StudentID {
		exists, err := s.repo.ExistsByStudentID(ctx, *req.StudentID, student.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to check student_id")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student_id already in use")
		}
		student.StudentID = *req.StudentID
	}
	if req.Name != nil {
		student.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		student.Email = req.Email
	}
	if req.Department != nil {
		student.Department = strings.TrimSpace(*req.Department)
	}
	if req.Year != nil {
		student.Year = *req.Year
	}
	if req.GPA != nil {
		student.GPA = req.GPA
	}
	if req.AttendanceRate != nil {
		student.AttendanceRate = req.AttendanceRate
	}
	if req.EngagementScore != nil {
		student.EngagementScore = req.EngagementScore
	}
	if req.RiskLevel != nil {
		student.RiskLevel = models.RiskLevel(*req.RiskLevel)
	}

	if err := s.repo.Update(ctx, student); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to update student")
	}

	s.emitAudit(ctx, actorID, models.AuditActionStudentUpdate, student)
	s.notify(ctx, notify.TopicStudents)
	return student, nil
}

// Delete removes a student via the direct admin path.
func (s *StudentService) Delete(ctx context.Context, actorID, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to delete student")
	}

	s.emitAudit(ctx, actorID, models.AuditActionStudentDelete, map[string]string{"id": id})
	s.notify(ctx, notify.TopicStudents)
	return nil
}

func (s *StudentService) emitAudit(ctx context.Context, actorID string, action models.AuditAction, payload interface{}) {
	if s.audit == nil {
		return
	}
	values, err := json.Marshal(payload)
	if err != nil {
		values = []byte("{}")
	}
	log := &models.AuditLog{
		Action:    action,
		Resource:  "student",
		NewValues: values,
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func (s *StudentService) notify(ctx context.Context, topic string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(ctx, topic)
}
