package models

import "time"

// RiskLevel buckets a student's academic risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Student represents a student record.
type Student struct {
	ID              string    `db:"id" json:"id"`
	StudentID       string    `db:"student_id" json:"student_id"`
	Name            string    `db:"name" json:"name"`
	Email           *string   `db:"email" json:"email,omitempty"`
	Department      string    `db:"department" json:"department"`
	Year            int       `db:"year" json:"year"`
	GPA             *float64  `db:"gpa" json:"gpa"`
	AttendanceRate  *float64  `db:"attendance_rate" json:"attendance_rate"`
	EngagementScore *float64  `db:"engagement_score" json:"engagement_score"`
	RiskLevel       RiskLevel `db:"risk_level" json:"risk_level"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search     string
	Department string
	RiskLevel  RiskLevel
	Year       int
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
