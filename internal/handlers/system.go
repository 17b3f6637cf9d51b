package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"scriba/internal/asr"
	"scriba/internal/config"
	"scriba/internal/export"
	"scriba/internal/storage"
	"scriba/internal/version"
)

// SystemHandler serves the service index, health and settings endpoints.
type SystemHandler struct {
	cfg   config.Config
	queue *storage.QueueRepository
}

// NewSystemHandler creates a SystemHandler.
func NewSystemHandler(cfg config.Config, queue *storage.QueueRepository) *SystemHandler {
	return &SystemHandler{cfg: cfg, queue: queue}
}

// Root handles GET / with a short endpoint index.
func (h *SystemHandler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"service": "scriba",
		"version": version.Version,
		"endpoints": map[string]string{
			"transcribe":         "POST /transcribe",
			"transcribe_export":  "POST /transcribe/export",
			"create_batch":       "POST /transcribe/batch",
			"batch_from_folder":  "POST /transcribe/batch/folder",
			"preview_folder":     "POST /transcribe/batch/folder/preview",
			"batch_status":       "GET /batches/:batch_id",
			"batch_zip":          "GET /batches/:batch_id/download",
			"batch_combined_txt": "GET /batches/:batch_id/download/txt",
			"job_status":         "GET /jobs/:job_id",
			"job_download":       "GET /jobs/:job_id/download",
			"create_group":       "POST /batch-groups",
			"group_status":       "GET /batch-groups/:group_id",
			"group_zip":          "GET /batch-groups/:group_id/download",
			"group_combined_txt": "GET /batch-groups/:group_id/download/txt",
			"health":             "GET /health",
			"settings":           "GET /settings",
		},
	})
}

// Health handles GET /health.
func (h *SystemHandler) Health(c echo.Context) error {
	pending, err := h.queue.PendingCount(c.Request().Context())
	if err != nil {
		return errorResponse(c, http.StatusServiceUnavailable, "queue unavailable: "+err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":       "ok",
		"version":      version.Version,
		"model_dir":    h.cfg.ModelDir,
		"num_threads":  h.cfg.NumThreads,
		"pending_jobs": pending,
	})
}

// Settings handles GET /settings, exposing the effective service limits.
func (h *SystemHandler) Settings(c echo.Context) error {
	formats := make([]string, 0, len(export.AllFormats))
	for _, f := range export.AllFormats {
		formats = append(formats, string(f))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"supported_extensions": asr.SupportedExtensions,
		"export_formats":       formats,
		"max_batch_files":      h.cfg.MaxBatchFiles,
		"default_beam_size":    defaultBeamSize,
		"model_dir":            h.cfg.ModelDir,
		"vad_model_path":       h.cfg.VADModelPath,
	})
}
