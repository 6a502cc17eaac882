package dto

import "github.com/campus-insight/student-records-api/internal/models"

// CreateStudentRequest is the direct admin create payload.
type CreateStudentRequest struct {
	StudentID       string   `json:"student_id" validate:"required"`
	Name            string   `json:"name" validate:"required"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Department      string   `json:"department" validate:"required"`
	Year            int      `json:"year" validate:"omitempty,gte=1,lte=4"`
	GPA             *float64 `json:"gpa"`
	AttendanceRate  *float64 `json:"attendance_rate"`
	EngagementScore *float64 `json:"engagement_score"`
	RiskLevel       string   `json:"risk_level" validate:"omitempty,oneof=low medium high"`
}

// UpdateStudentRequest is the direct admin update payload. Nil fields are
// left untouched.
type UpdateStudentRequest struct {
	StudentID       *string  `json:"student_id"`
	Name            *string  `json:"name"`
	Email           *string  `json:"email" validate:"omitempty,email"`
	Department      *string  `json:"department"`
	Year            *int     `json:"year" validate:"omitempty,gte=1,lte=4"`
	GPA             *float64 `json:"gpa"`
	AttendanceRate  *float64 `json:"attendance_rate"`
	EngagementScore *float64 `json:"engagement_score"`
	RiskLevel       *string  `json:"risk_level" validate:"omitempty,oneof=low medium high"`
}

// PublicStudent is the reduced projection served to unauthenticated callers.
type PublicStudent struct {
	StudentID  string           `json:"student_id"`
	Name       string           `json:"name"`
	Department string           `json:"department"`
	Year       int              `json:"year"`
	RiskLevel  models.RiskLevel `json:"risk_level"`
}

// PublicStudentFromModel strips fields not exposed on the public view.
func PublicStudentFromModel(s models.Student) PublicStudent {
	return PublicStudent{
		StudentID:  s.StudentID,
		Name:       s.Name,
		Department: s.Department,
		Year:       s.Year,
		RiskLevel:  s.RiskLevel,
	}
}
