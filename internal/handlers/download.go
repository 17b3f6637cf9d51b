package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"scriba/internal/batch"
	"scriba/internal/download"
	"scriba/internal/export"
	"scriba/internal/storage"
	"scriba/internal/store"
)

// DownloadHandler serves aggregated result downloads for batches and
// batch groups, as ZIP archives or combined text documents.
type DownloadHandler struct {
	store   *store.Store
	batches *batch.Manager
	groups  *batch.GroupManager
}

// NewDownloadHandler creates a DownloadHandler.
func NewDownloadHandler(jobStore *store.Store, batches *batch.Manager, groups *batch.GroupManager) *DownloadHandler {
	return &DownloadHandler{store: jobStore, batches: batches, groups: groups}
}

// BatchZip handles GET /batches/:batch_id/download.
func (h *DownloadHandler) BatchZip(c echo.Context) error {
	jobs, err := h.batchJobs(c)
	if err != nil {
		return writeError(c, err)
	}
	return h.serveZip(c, jobs, c.Param("batch_id"), false)
}

// BatchCombined handles GET /batches/:batch_id/download/txt.
func (h *DownloadHandler) BatchCombined(c echo.Context) error {
	jobs, err := h.batchJobs(c)
	if err != nil {
		return writeError(c, err)
	}
	return h.serveCombined(c, jobs, c.Param("batch_id"), false)
}

// GroupZip handles GET /batch-groups/:group_id/download.
func (h *DownloadHandler) GroupZip(c echo.Context) error {
	jobs, err := h.groupJobs(c)
	if err != nil {
		return writeError(c, err)
	}
	return h.serveZip(c, jobs, c.Param("group_id"), true)
}

// GroupCombined handles GET /batch-groups/:group_id/download/txt.
func (h *DownloadHandler) GroupCombined(c echo.Context) error {
	jobs, err := h.groupJobs(c)
	if err != nil {
		return writeError(c, err)
	}
	return h.serveCombined(c, jobs, c.Param("group_id"), true)
}

func (h *DownloadHandler) batchJobs(c echo.Context) ([]storage.BatchJob, error) {
	jobs, err := h.batches.Jobs(c.Request().Context(), c.Param("batch_id"))
	if err != nil {
		if errors.Is(err, batch.ErrNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "batch not found")
		}
		return nil, err
	}
	return jobs, nil
}

func (h *DownloadHandler) groupJobs(c echo.Context) ([]storage.BatchJob, error) {
	jobs, err := h.groups.Jobs(c.Request().Context(), c.Param("group_id"))
	if err != nil {
		if errors.Is(err, batch.ErrNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "batch group not found")
		}
		return nil, err
	}
	return jobs, nil
}

func (h *DownloadHandler) serveZip(c echo.Context, jobs []storage.BatchJob, id string, prefixBatch bool) error {
	formats, err := zipFormats(c.QueryParam("format"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}

	archive, _, err := download.BuildZip(h.store, jobs, formats, prefixBatch)
	if err != nil {
		return errorResponse(c, http.StatusInternalServerError, err.Error())
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s-results.zip"`, id))
	return c.Blob(http.StatusOK, "application/zip", archive)
}

func (h *DownloadHandler) serveCombined(c echo.Context, jobs []storage.BatchJob, id string, prefixBatch bool) error {
	opts, err := combinedOptions(c, prefixBatch)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}

	doc, err := download.BuildCombinedText(h.store, jobs, opts)
	if err != nil {
		return errorResponse(c, http.StatusInternalServerError, err.Error())
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s-combined.txt"`, id))
	return c.Blob(http.StatusOK, "text/plain; charset=utf-8", []byte(doc))
}

// zipFormats parses the format query parameter. Empty or "all" selects every
// export format; comma lists select a subset.
func zipFormats(raw string) ([]export.Format, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" || raw == "all" {
		return nil, nil
	}
	return export.ParseFormats(strings.Split(raw, ","))
}

func combinedOptions(c echo.Context, prefixBatch bool) (download.CombinedOptions, error) {
	opts := download.CombinedOptions{
		Label:             download.LabelJobID,
		IncludeTimestamps: boolParam(c, "include_timestamps", false),
		IncludeMetrics:    boolParam(c, "include_metrics", true),
		IncludeEmptyJobs:  boolParam(c, "include_empty_jobs", false),
		EmptyPlaceholder:  download.SanitizePlaceholder(c.QueryParam("empty_placeholder")),
		Separator:         download.SeparatorRule,
		PrefixBatch:       prefixBatch,
	}

	switch label := c.QueryParam("label"); label {
	case "", download.LabelJobID:
	case download.LabelFilename:
		opts.Label = download.LabelFilename
	default:
		return opts, fmt.Errorf("invalid label %q: expected %s or %s", label, download.LabelJobID, download.LabelFilename)
	}

	switch separator := c.QueryParam("separator"); separator {
	case "", download.SeparatorRule:
	case download.SeparatorBlank:
		opts.Separator = download.SeparatorBlank
	default:
		return opts, fmt.Errorf("invalid separator %q: expected %s or %s", separator, download.SeparatorRule, download.SeparatorBlank)
	}

	return opts, nil
}
