package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"scriba/internal/asr"
	"scriba/internal/export"
)

// EngineProvider returns the shared transcription engine, initializing it on
// first use so the server starts without loading model weights.
type EngineProvider func() (asr.Engine, error)

// TranscribeHandler serves the synchronous transcription endpoints.
type TranscribeHandler struct {
	engine EngineProvider
}

// NewTranscribeHandler creates a TranscribeHandler.
func NewTranscribeHandler(engine EngineProvider) *TranscribeHandler {
	return &TranscribeHandler{engine: engine}
}

// Transcribe handles POST /transcribe: one file, transcribed inline.
func (h *TranscribeHandler) Transcribe(c echo.Context) error {
	result, err := h.transcribeUpload(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// TranscribeExport handles POST /transcribe/export: one file, transcribed
// inline and rendered in the requested format.
func (h *TranscribeHandler) TranscribeExport(c echo.Context) error {
	format, err := parseSingleFormat(c.QueryParam("format"), string(export.FormatTXT))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err.Error())
	}

	result, err := h.transcribeUpload(c)
	if err != nil {
		return writeError(c, err)
	}

	content, err := export.Render(result, format)
	if err != nil {
		return errorResponse(c, http.StatusInternalServerError, err.Error())
	}
	return c.Blob(http.StatusOK, format.MediaType(), content)
}

// transcribeUpload runs the shared sync path. It returns echo HTTP errors so
// callers map them to the service's error body shape.
func (h *TranscribeHandler) transcribeUpload(c echo.Context) (*asr.Result, error) {
	opts, err := parseOptions(c.QueryParam)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "file field is required")
	}

	tempPath, cleanup, err := saveUploadToTemp(fileHeader)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	engine, err := h.engine()
	if err != nil {
		return nil, fmt.Errorf("engine unavailable: %w", err)
	}

	result, err := engine.Transcribe(c.Request().Context(), tempPath, opts)
	if err != nil {
		if errors.Is(err, asr.ErrUnsupportedFormat) {
			return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return nil, fmt.Errorf("transcription failed: %w", err)
	}
	return result, nil
}

// writeError renders an error as the JSON error body, defaulting to 500 for
// anything without an HTTP status.
func writeError(c echo.Context, err error) error {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return errorResponse(c, httpErr.Code, fmt.Sprint(httpErr.Message))
	}
	return errorResponse(c, http.StatusInternalServerError, err.Error())
}

// saveUploadToTemp writes an uploaded file to a temp path preserving the
// original extension, which the engine uses for format detection.
func saveUploadToTemp(fileHeader *multipart.FileHeader) (string, func(), error) {
	src, err := fileHeader.Open()
	if err != nil {
		return "", nil, err
	}
	defer src.Close()

	ext := filepath.Ext(fileHeader.Filename)
	if ext == "" {
		ext = ".tmp"
	}
	temp, err := os.CreateTemp("", "upload-*"+ext)
	if err != nil {
		return "", nil, err
	}
	if _, err := io.Copy(temp, src); err != nil {
		temp.Close()
		os.Remove(temp.Name())
		return "", nil, err
	}
	if err := temp.Close(); err != nil {
		os.Remove(temp.Name())
		return "", nil, err
	}
	return temp.Name(), func() { os.Remove(temp.Name()) }, nil
}
