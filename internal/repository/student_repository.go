package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-insight/student-records-api/internal/models"
)

// StudentRepository manages persistence for student records. It runs against
// either the shared pool or a transaction obtained via WithTx, which is how
// approval side effects join the transition transaction.
type StudentRepository struct {
	db sqlx.ExtContext
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *StudentRepository) WithTx(tx *sqlx.Tx) *StudentRepository {
	return &StudentRepository{db: tx}
}

const studentColumns = `id, student_id, name, email, department, year, gpa, attendance_rate, engagement_score, risk_level, created_at, updated_at`

// List returns students matching the provided filters plus a total count.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	args := make([]interface{}, 0, 4)
	conditions := []string{"1=1"}

	if filter.Department != "" {
		args = append(args, filter.Department)
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)))
	}
	if filter.RiskLevel != "" {
		args = append(args, filter.RiskLevel)
		conditions = append(conditions, fmt.Sprintf("risk_level = $%d", len(args)))
	}
	if filter.Year > 0 {
		args = append(args, filter.Year)
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(student_id) LIKE $%d)", len(args), len(args)))
	}

	where := strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"name":       "name",
		"student_id": "student_id",
		"gpa":        "gpa",
		"created_at": "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	query := fmt.Sprintf("SELECT %s FROM students WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d",
		studentColumns, where, column, order, size, (page-1)*size)

	var students []models.Student
	if err := sqlx.SelectContext(ctx, r.db, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM students WHERE %s", where)
	if err := sqlx.GetContext(ctx, r.db, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student by primary key.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := sqlx.GetContext(ctx, r.db, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsByStudentID checks whether the human-readable key is already taken,
// optionally excluding a row.
func (r *StudentRepository) ExistsByStudentID(ctx context.Context, studentID, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE student_id = $1"
	args := []interface{}{studentID}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := sqlx.GetContext(ctx, r.db, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student_id: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	prepareStudent(student)
	const query = `INSERT INTO students (id, student_id, name, email, department, year, gpa, attendance_rate, engagement_score, risk_level, created_at, updated_at)
        VALUES (:id, :student_id, :name, :email, :department, :year, :gpa, :attendance_rate, :engagement_score, :risk_level, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// BatchInsert inserts all records in one statement. Callers wanting
// atomicity run it inside a transaction via WithTx.
func (r *StudentRepository) BatchInsert(ctx context.Context, students []models.Student) error {
	if len(students) == 0 {
		return nil
	}
	for i := range students {
		prepareStudent(&students[i])
	}
	const query = `INSERT INTO students (id, student_id, name, email, department, year, gpa, attendance_rate, engagement_score, risk_level, created_at, updated_at)
        VALUES (:id, :student_id, :name, :email, :department, :year, :gpa, :attendance_rate, :engagement_score, :risk_level, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, students); err != nil {
		return fmt.Errorf("batch insert students: %w", err)
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET student_id = :student_id, name = :name, email = :email, department = :department,
        year = :year, gpa = :gpa, attendance_rate = :attendance_rate, engagement_score = :engagement_score,
        risk_level = :risk_level, updated_at = :updated_at WHERE id = :id`
	result, err := sqlx.NamedExecContext(ctx, r.db, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return requireRow(result)
}

// Delete removes a student row.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM students WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return requireRow(result)
}

func prepareStudent(student *models.Student) {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.Year == 0 {
		student.Year = 1
	}
	if student.RiskLevel == "" {
		student.RiskLevel = models.RiskLow
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
