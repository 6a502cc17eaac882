package dto

import "github.com/campus-insight/student-records-api/internal/models"

// ImportPreview is the parse outcome before commit.
type ImportPreview struct {
	Students []models.Student `json:"students"`
	Rejected int              `json:"rejected"`
}

// ImportResult reports a committed bulk import.
type ImportResult struct {
	Inserted int `json:"inserted"`
	Rejected int `json:"rejected"`
}
