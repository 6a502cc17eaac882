package dto

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/campus-insight/student-records-api/internal/models"
)

// CreateApprovalRequest is the submit payload for an approval request.
type CreateApprovalRequest struct {
	RequestType models.RequestType `json:"request_type" validate:"required"`
	RequestData json.RawMessage    `json:"request_data"`
	StudentID   string             `json:"student_id"`
}

// ReviewApprovalRequest carries the administrator decision.
type ReviewApprovalRequest struct {
	Decision models.RequestStatus `json:"decision" validate:"required"`
	Message  string               `json:"message"`
}

// ApprovalQuery filters request listings.
type ApprovalQuery struct {
	Status []models.RequestStatus
	Type   models.RequestType
	Limit  int
	Offset int
}

// Number is a numeric field tolerant of form input: it accepts a JSON
// number, a numeric string, or anything else as null. Unparsable values are
// coerced to null rather than rejected. Set records whether the key was
// present at all, so updates can distinguish "clear" from "leave alone".
type Number struct {
	Value *float64
	Set   bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	n.Value = nil
	n.Set = true
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		n.Value = &f
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if parsed, perr := strconv.ParseFloat(strings.TrimSpace(s), 64); perr == nil {
			n.Value = &parsed
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

// StudentPayload is the validated shape of request_data for create_student
// and update_student requests. Numeric fields go through Number coercion.
type StudentPayload struct {
	StudentID       string `json:"student_id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Department      string `json:"department"`
	Year            Number `json:"year"`
	GPA             Number `json:"gpa"`
	AttendanceRate  Number `json:"attendance_rate"`
	EngagementScore Number `json:"engagement_score"`
	RiskLevel       string `json:"risk_level"`
}
