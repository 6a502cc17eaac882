package models

import (
	"encoding/json"
	"time"
)

// RequestType enumerates the supported approval request kinds.
type RequestType string

const (
	RequestCreateStudent RequestType = "create_student"
	RequestUpdateStudent RequestType = "update_student"
	RequestDeleteStudent RequestType = "delete_student"
)

// RequestStatus captures the approval workflow states. A request starts
// pending and reaches exactly one terminal state.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// ApprovalRequest is a proposal to change a student record awaiting an
// administrator decision.
type ApprovalRequest struct {
	ID           string          `db:"id" json:"id"`
	UserID       string          `db:"user_id" json:"user_id"`
	RequestType  RequestType     `db:"request_type" json:"request_type"`
	RequestData  json.RawMessage `db:"request_data" json:"request_data"`
	StudentID    *string         `db:"student_id" json:"student_id,omitempty"`
	Status       RequestStatus   `db:"status" json:"status"`
	AdminMessage *string         `db:"admin_message" json:"admin_message,omitempty"`
	ReviewedBy   *string         `db:"reviewed_by" json:"reviewed_by,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// Terminal reports whether the request has been decided.
func (r ApprovalRequest) Terminal() bool {
	return r.Status == RequestStatusApproved || r.Status == RequestStatusRejected
}

// ApprovalFilter constrains listing queries.
type ApprovalFilter struct {
	Status []RequestStatus
	Type   RequestType
	UserID string
	Limit  int
	Offset int
}
