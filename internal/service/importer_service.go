package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campus-insight/student-records-api/internal/dto"
	"github.com/campus-insight/student-records-api/internal/models"
	"github.com/campus-insight/student-records-api/internal/notify"
	"github.com/campus-insight/student-records-api/internal/repository"
	"github.com/campus-insight/student-records-api/pkg/config"
	appErrors "github.com/campus-insight/student-records-api/pkg/errors"
)

// Columns recognized in an upload header. Header matching is
// case-insensitive; unknown columns are ignored.
const (
	colStudentID       = "student_id"
	colName            = "name"
	colEmail           = "email"
	colDepartment      = "department"
	colYear            = "year"
	colGPA             = "gpa"
	colAttendanceRate  = "attendance_rate"
	colEngagementScore = "engagement_score"
	colRiskLevel       = "risk_level"
)

// ImporterService parses CSV uploads into student records and commits them
// in a single transaction.
type ImporterService struct {
	pool     *sqlx.DB
	students *repository.StudentRepository
	audit    auditLogger
	notifier changePublisher
	cfg      config.ImportsConfig
	logger   *zap.Logger
}

// NewImporterService constructs an ImporterService.
func NewImporterService(pool *sqlx.DB, students *repository.StudentRepository, audit auditLogger, notifier changePublisher, cfg config.ImportsConfig, logger *zap.Logger) *ImporterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImporterService{pool: pool, students: students, audit: audit, notifier: notifier, cfg: cfg, logger: logger}
}

// Parse reads CSV content and returns the accepted students plus the number
// of rejected rows. A row is rejected when student_id, name, or department is
// blank. Malformed numeric cells never reject a row: year falls back to 1 and
// the score columns fall back to null.
func (s *ImporterService) Parse(r io.Reader) (*dto.ImportPreview, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read header row")
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(stripQuotes(name)))] = i
	}
	if _, ok := index[colStudentID]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "missing required column: student_id")
	}

	preview := &dto.ImportPreview{Students: []models.Student{}}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			preview.Rejected++
			continue
		}

		cell := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(stripQuotes(record[i]))
		}

		studentID := cell(colStudentID)
		name := cell(colName)
		department := cell(colDepartment)
		if studentID == "" || name == "" || department == "" {
			preview.Rejected++
			continue
		}

		student := models.Student{
			StudentID:       studentID,
			Name:            name,
			Department:      department,
			Year:            parseYear(cell(colYear)),
			GPA:             parseScore(cell(colGPA)),
			AttendanceRate:  parseScore(cell(colAttendanceRate)),
			EngagementScore: parseScore(cell(colEngagementScore)),
			RiskLevel:       parseRiskLevel(cell(colRiskLevel)),
		}
		if email := cell(colEmail); email != "" {
			student.Email = &email
		}
		preview.Students = append(preview.Students, student)
	}

	if s.cfg.MaxRows > 0 && len(preview.Students) > s.cfg.MaxRows {
		return nil, appErrors.Clone(appErrors.ErrValidation, "too many rows in upload")
	}
	return preview, nil
}

// Import parses the upload and, unless dryRun is set, inserts every accepted
// row in one transaction. A commit failure leaves the table untouched.
func (s *ImporterService) Import(ctx context.Context, actorID string, r io.Reader, dryRun bool) (*dto.ImportResult, *dto.ImportPreview, error) {
	if !s.cfg.Enabled {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "imports are disabled")
	}

	preview, err := s.Parse(r)
	if err != nil {
		return nil, nil, err
	}
	if dryRun {
		return nil, preview, nil
	}

	tx, err := s.pool.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to begin import transaction")
	}
	defer tx.Rollback()

	if err := s.students.WithTx(tx).BatchInsert(ctx, preview.Students); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to insert imported students")
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to commit import")
	}

	result := &dto.ImportResult{Inserted: len(preview.Students), Rejected: preview.Rejected}
	s.emitAudit(ctx, actorID, result)
	if s.notifier != nil && result.Inserted > 0 {
		s.notifier.Publish(ctx, notify.TopicStudents)
	}
	return result, preview, nil
}

func (s *ImporterService) emitAudit(ctx context.Context, actorID string, result *dto.ImportResult) {
	if s.audit == nil {
		return
	}
	values, _ := json.Marshal(result)
	log := &models.AuditLog{
		Action:    models.AuditActionStudentImport,
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

func stripQuotes(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		v = v[1 : len(v)-1]
	}
	return v
}

func parseYear(v string) int {
	year, err := strconv.Atoi(v)
	if err != nil || year < 1 {
		return 1
	}
	return year
}

func parseScore(v string) *float64 {
	if v == "" {
		return nil
	}
	score, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &score
}

func parseRiskLevel(v string) models.RiskLevel {
	switch models.RiskLevel(strings.ToLower(v)) {
	case models.RiskMedium:
		return models.RiskMedium
	case models.RiskHigh:
		return models.RiskHigh
	default:
		return models.RiskLow
	}
}
