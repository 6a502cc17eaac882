package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-insight/student-records-api/internal/service"
	appErrors "github.com/campus-insight/student-records-api/pkg/errors"
	"github.com/campus-insight/student-records-api/pkg/response"
)

// ImportHandler accepts CSV uploads of student records.
type ImportHandler struct {
	service *service.ImporterService
	metrics *service.MetricsService
}

// NewImportHandler creates a new handler.
func NewImportHandler(svc *service.ImporterService, metrics *service.MetricsService) *ImportHandler {
	return &ImportHandler{service: svc, metrics: metrics}
}

// Upload godoc
// @Summary Bulk import students from CSV
// @Description Parses the uploaded file and inserts accepted rows in one transaction. Pass dry_run=true to preview without committing.
// @Tags Administration
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV file"
// @Param dry_run query bool false "Preview only"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/students/import [post]
func (h *ImportHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file field is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to open upload"))
		return
	}
	defer file.Close()

	dryRun := c.Query("dry_run") == "true"
	result, preview, err := h.service.Import(c.Request.Context(), reviewerID(c), file, dryRun)
	if err != nil {
		response.Error(c, err)
		return
	}

	if dryRun {
		response.JSON(c, http.StatusOK, preview, nil)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordImportedRows(result.Inserted)
	}
	response.JSON(c, http.StatusOK, result, nil)
}
