package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"scriba/internal/batch"
	"scriba/internal/export"
)

// BatchHandler serves batch creation and status endpoints.
type BatchHandler struct {
	manager *batch.Manager
}

// NewBatchHandler creates a BatchHandler.
func NewBatchHandler(manager *batch.Manager) *BatchHandler {
	return &BatchHandler{manager: manager}
}

// Create handles POST /transcribe/batch: multipart files plus shared
// options; one queued job per file.
func (h *BatchHandler) Create(c echo.Context) error {
	opts, err := parseOptions(c.FormValue)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}

	form, err := c.MultipartForm()
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "failed to parse form")
	}
	files := form.File["files"]
	if len(files) == 0 {
		return errorResponse(c, http.StatusBadRequest, "at least one file is required in 'files'")
	}

	formats, err := export.ParseFormats(form.Value["export_formats"])
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}

	inputs := make([]batch.Input, 0, len(files))
	for _, fileHeader := range files {
		src, err := fileHeader.Open()
		if err != nil {
			return errorResponse(c, http.StatusInternalServerError, "failed to open upload")
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return errorResponse(c, http.StatusInternalServerError, "failed to read upload")
		}
		inputs = append(inputs, batch.Input{Filename: fileHeader.Filename, Data: data})
	}

	status, err := h.manager.Create(c.Request().Context(), inputs, opts, formats)
	if err != nil {
		return errorResponse(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, createBatchResponse(status))
}

// CreateFromFolder handles POST /transcribe/batch/folder: batch built from a
// server-side folder scan.
func (h *BatchHandler) CreateFromFolder(c echo.Context) error {
	opts, err := parseOptions(c.FormValue)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	folder, recursive, maxFiles, err := folderParams(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}
	formats, err := export.ParseFormats(formValues(c, "export_formats"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}

	status, err := h.manager.CreateFromFolder(c.Request().Context(), folder, recursive, maxFiles, opts, formats)
	if err != nil {
		var tooMany *batch.TooManyFilesError
		switch {
		case errors.As(err, &tooMany):
			return c.JSON(http.StatusBadRequest, map[string]any{
				"error":       tooMany.Error(),
				"total_files": tooMany.Found,
				"max_files":   tooMany.Limit,
			})
		case errors.Is(err, batch.ErrFolderNotFound):
			return errorResponse(c, http.StatusBadRequest, err.Error())
		}
		return errorResponse(c, http.StatusInternalServerError, err.Error())
	}

	response := createBatchResponse(status)
	response["source_folder"] = status.SourceFolder
	return c.JSON(http.StatusOK, response)
}

// PreviewFolder handles POST /transcribe/batch/folder/preview: the same scan
// with nothing created.
func (h *BatchHandler) PreviewFolder(c echo.Context) error {
	folder, recursive, maxFiles, err := folderParams(c)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}

	preview, err := h.manager.PreviewFolder(folder, recursive, maxFiles)
	if err != nil {
		if errors.Is(err, batch.ErrFolderNotFound) {
			return errorResponse(c, http.StatusBadRequest, err.Error())
		}
		return errorResponse(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, preview)
}

// Get handles GET /batches/:batch_id.
func (h *BatchHandler) Get(c echo.Context) error {
	status, err := h.manager.Get(c.Request().Context(), c.Param("batch_id"))
	if err != nil {
		if errors.Is(err, batch.ErrNotFound) {
			return errorResponse(c, http.StatusNotFound, "batch not found")
		}
		return errorResponse(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, status)
}

func folderParams(c echo.Context) (folder string, recursive bool, maxFiles int, err error) {
	folder = c.FormValue("folder_path")
	if folder == "" {
		return "", false, 0, fmt.Errorf("folder_path is required")
	}
	if raw := c.FormValue("recursive"); raw != "" {
		recursive, err = strconv.ParseBool(raw)
		if err != nil {
			return "", false, 0, fmt.Errorf("recursive must be a boolean")
		}
	}
	if raw := c.FormValue("max_files"); raw != "" {
		maxFiles, err = strconv.Atoi(raw)
		if err != nil || maxFiles < 1 {
			return "", false, 0, fmt.Errorf("max_files must be >= 1")
		}
	}
	return folder, recursive, maxFiles, nil
}

func formValues(c echo.Context, name string) []string {
	form, err := c.MultipartForm()
	if err == nil && form != nil {
		if values, ok := form.Value[name]; ok {
			return values
		}
	}
	if value := c.FormValue(name); value != "" {
		return []string{value}
	}
	return nil
}

func createBatchResponse(status *batch.Status) map[string]any {
	return map[string]any{
		"batch_id":   status.BatchID,
		"status":     status.Status,
		"total_jobs": status.TotalJobs,
		"jobs":       status.Jobs,
		"links": map[string]string{
			"batch":        "/batches/" + status.BatchID,
			"download_zip": "/batches/" + status.BatchID + "/download?format=all",
			"download_txt": "/batches/" + status.BatchID + "/download/txt",
		},
	}
}
