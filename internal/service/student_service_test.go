package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campus-insight/student-records-api/internal/dto"
	"github.com/campus-insight/student-records-api/internal/models"
	"github.com/campus-insight/student-records-api/internal/notify"
	appErrors "github.com/campus-insight/student-records-api/pkg/errors"
)

type studentRepoStub struct {
	students map[string]*models.Student
	filter   models.StudentFilter
}

func newStudentRepoStub() *studentRepoStub {
	return &studentRepoStub{students: make(map[string]*models.Student)}
}

func (r *studentRepoStub) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	r.filter = filter
	result := make([]models.Student, 0, len(r.students))
	for _, student := range r.students {
		result = append(result, *student)
	}
	return result, len(result), nil
}

func (r *studentRepoStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if student, ok := r.students[id]; ok {
		copy := *student
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (r *studentRepoStub) ExistsByStudentID(ctx context.Context, studentID, excludeID string) (bool, error) {
	for _, student := range r.students {
		if student.StudentID == studentID && student.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *studentRepoStub) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = fmt.Sprintf("student-%d", len(r.students)+1)
	}
	stored := *student
	r.students[student.ID] = &stored
	return nil
}

func (r *studentRepoStub) Update(ctx context.Context, student *models.Student) error {
	if _, ok := r.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *student
	r.students[student.ID] = &stored
	return nil
}

func (r *studentRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := r.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.students, id)
	return nil
}

func TestStudentServiceCreate(t *testing.T) {
	repo := newStudentRepoStub()
	notifier := &notifierStub{}
	svc := NewStudentService(repo, &auditStub{}, notifier, nil, nil)

	student, err := svc.Create(context.Background(), "admin-1", dto.CreateStudentRequest{
		StudentID:  "S-100",
		Name:       "Ana Silva",
		Department: "CS",
		Year:       2,
		RiskLevel:  "medium",
	})
	require.NoError(t, err)
	require.Equal(t, models.RiskMedium, student.RiskLevel)
	require.Contains(t, notifier.topics, notify.TopicStudents)

	_, err = svc.Create(context.Background(), "admin-1", dto.CreateStudentRequest{
		StudentID:  "S-100",
		Name:       "Duplicate",
		Department: "CS",
	})
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceCreateValidation(t *testing.T) {
	svc := NewStudentService(newStudentRepoStub(), nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), "admin-1", dto.CreateStudentRequest{
		StudentID:  "S-1",
		Name:       "Ana",
		Department: "CS",
		Year:       9,
	})
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceUpdatePartial(t *testing.T) {
	repo := newStudentRepoStub()
	gpa := 3.2
	repo.students["student-1"] = &models.Student{
		ID:         "student-1",
		StudentID:  "S-1",
		Name:       "Ana",
		Department: "CS",
		Year:       1,
		GPA:        &gpa,
		RiskLevel:  models.RiskLow,
	}
	svc := NewStudentService(repo, &auditStub{}, nil, nil, nil)

	name := "Ana Silva"
	risk := "high"
	updated, err := svc.Update(context.Background(), "admin-1", "student-1", dto.UpdateStudentRequest{
		Name:      &name,
		RiskLevel: &risk,
	})
	require.NoError(t, err)
	require.Equal(t, "Ana Silva", updated.Name)
	require.Equal(t, models.RiskHigh, updated.RiskLevel)
	require.Equal(t, 3.2, *updated.GPA)
	require.Equal(t, "S-1", updated.StudentID)
}

func TestStudentServiceDelete(t *testing.T) {
	repo := newStudentRepoStub()
	repo.students["student-1"] = &models.Student{ID: "student-1", StudentID: "S-1"}
	notifier := &notifierStub{}
	svc := NewStudentService(repo, &auditStub{}, notifier, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "admin-1", "student-1"))
	require.Empty(t, repo.students)
	require.Contains(t, notifier.topics, notify.TopicStudents)

	err := svc.Delete(context.Background(), "admin-1", "student-1")
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceListClampsPagination(t *testing.T) {
	repo := newStudentRepoStub()
	svc := NewStudentService(repo, nil, nil, nil, nil)

	_, pagination, err := svc.List(context.Background(), models.StudentFilter{Page: 0, PageSize: 500})
	require.NoError(t, err)
	require.Equal(t, 1, pagination.Page)
	require.Equal(t, 20, pagination.PageSize)
}
