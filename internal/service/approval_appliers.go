package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/campus-insight/student-records-api/internal/models"
	"github.com/campus-insight/student-records-api/internal/repository"
	appErrors "github.com/campus-insight/student-records-api/pkg/errors"
)

// createStudentApplier inserts a new student built from request_data.
func createStudentApplier(students *repository.StudentRepository) SideEffectApplier {
	return SideEffectApplierFunc(func(ctx context.Context, tx *sqlx.Tx, request *models.ApprovalRequest) error {
		payload, err := parseStudentPayload(request.RequestData)
		if err != nil {
			return err
		}
		repo := students.WithTx(tx)

		exists, err := repo.ExistsByStudentID(ctx, payload.StudentID, "")
		if err != nil {
			return err
		}
		if exists {
			return appErrors.Clone(appErrors.ErrConflict, "student_id already in use")
		}

		student := models.Student{
			StudentID:  payload.StudentID,
			Name:       payload.Name,
			Department: payload.Department,
			RiskLevel:  models.RiskLevel(payload.RiskLevel),
		}
		if payload.Email != "" {
			email := payload.Email
			student.Email = &email
		}
		if payload.Year.Value != nil {
			student.Year = int(*payload.Year.Value)
		}
		student.GPA = payload.GPA.Value
		student.AttendanceRate = payload.AttendanceRate.Value
		student.EngagementScore = payload.EngagementScore.Value

		return repo.Create(ctx, &student)
	})
}

// updateStudentApplier applies the fields present in request_data to the
// target student.
func updateStudentApplier(students *repository.StudentRepository) SideEffectApplier {
	return SideEffectApplierFunc(func(ctx context.Context, tx *sqlx.Tx, request *models.ApprovalRequest) error {
		if request.StudentID == nil {
			return appErrors.Clone(appErrors.ErrValidation, "update_student has no target")
		}
		payload, err := parseStudentPayload(request.RequestData)
		if err != nil {
			return err
		}
		repo := students.WithTx(tx)

		student, err := repo.FindByID(ctx, *request.StudentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "target student not found")
			}
			return err
		}

		if payload.StudentID != student.StudentID {
			exists, err := repo.ExistsByStudentID(ctx, payload.StudentID, student.ID)
			if err != nil {
				return err
			}
			if exists {
				return appErrors.Clone(appErrors.ErrConflict, "student_id already in use")
			}
			student.StudentID = payload.StudentID
		}
		student.Name = payload.Name
		student.Department = payload.Department
		if payload.Email != "" {
			email := payload.Email
			student.Email = &email
		}
		if payload.RiskLevel != "" {
			student.RiskLevel = models.RiskLevel(payload.RiskLevel)
		}
		if payload.Year.Set && payload.Year.Value != nil {
			student.Year = int(*payload.Year.Value)
		}
		if payload.GPA.Set {
			student.GPA = payload.GPA.Value
		}
		if payload.AttendanceRate.Set {
			student.AttendanceRate = payload.AttendanceRate.Value
		}
		if payload.EngagementScore.Set {
			student.EngagementScore = payload.EngagementScore.Value
		}

		return repo.Update(ctx, student)
	})
}

// deleteStudentApplier removes the target student.
func deleteStudentApplier(students *repository.StudentRepository) SideEffectApplier {
	return SideEffectApplierFunc(func(ctx context.Context, tx *sqlx.Tx, request *models.ApprovalRequest) error {
		if request.StudentID == nil {
			return appErrors.Clone(appErrors.ErrValidation, "delete_student has no target")
		}
		if err := students.WithTx(tx).Delete(ctx, *request.StudentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "target student not found")
			}
			return err
		}
		return nil
	})
}
