package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"scriba/internal/store"
)

// JobHandler serves single-job endpoints.
type JobHandler struct {
	store *store.Store
}

// NewJobHandler creates a JobHandler.
func NewJobHandler(jobStore *store.Store) *JobHandler {
	return &JobHandler{store: jobStore}
}

// Get handles GET /jobs/:job_id: the full metadata document plus links to
// the artifacts that exist so far.
func (h *JobHandler) Get(c echo.Context) error {
	jobID := c.Param("job_id")
	meta, err := h.store.LoadMeta(jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errorResponse(c, http.StatusNotFound, "job not found")
		}
		return errorResponse(c, http.StatusInternalServerError, err.Error())
	}

	downloads := map[string]string{}
	for _, format := range meta.ExportFormats {
		if h.store.HasArtifact(meta.BatchID, jobID, format) {
			downloads[string(format)] = fmt.Sprintf("/jobs/%s/download?format=%s", jobID, format)
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"meta":      meta,
		"downloads": downloads,
	})
}

// Download handles GET /jobs/:job_id/download?format=.
func (h *JobHandler) Download(c echo.Context) error {
	jobID := c.Param("job_id")
	raw := c.QueryParam("format")
	if raw == "" {
		return errorResponse(c, http.StatusBadRequest, "format query parameter is required")
	}
	format, err := parseSingleFormat(raw, "")
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}

	content, err := h.store.ReadExport(jobID, format)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errorResponse(c, http.StatusNotFound, fmt.Sprintf("result '%s' not available", format))
		}
		return errorResponse(c, http.StatusInternalServerError, err.Error())
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s.%s"`, jobID, format))
	return c.Blob(http.StatusOK, format.MediaType(), content)
}
