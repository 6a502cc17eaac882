package models

import "time"

// AuditAction labels an audited operation.
type AuditAction string

const (
	AuditActionLogin         AuditAction = "LOGIN"
	AuditActionAdminLogin    AuditAction = "ADMIN_LOGIN"
	AuditActionRequestSubmit AuditAction = "REQUEST_SUBMIT"
	AuditActionRequestReview AuditAction = "REQUEST_REVIEW"
	AuditActionStudentCreate AuditAction = "STUDENT_CREATE"
	AuditActionStudentUpdate AuditAction = "STUDENT_UPDATE"
	AuditActionStudentDelete AuditAction = "STUDENT_DELETE"
	AuditActionStudentImport AuditAction = "STUDENT_IMPORT"
	AuditActionUserCreate    AuditAction = "USER_CREATE"
	AuditActionProfileUpdate AuditAction = "PROFILE_UPDATE"
)

// AuditLog is an append-only record of privileged operations.
type AuditLog struct {
	ID         string      `db:"id" json:"id"`
	UserID     *string     `db:"user_id" json:"user_id,omitempty"`
	Action     AuditAction `db:"action" json:"action"`
	Resource   string      `db:"resource" json:"resource"`
	ResourceID *string     `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte      `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte      `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string      `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent  string      `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}
