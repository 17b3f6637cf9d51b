package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"scriba/internal/batch"
	"scriba/internal/storage"
)

// GroupHandler serves batch group endpoints.
type GroupHandler struct {
	groups *batch.GroupManager
}

// NewGroupHandler creates a GroupHandler.
func NewGroupHandler(groups *batch.GroupManager) *GroupHandler {
	return &GroupHandler{groups: groups}
}

type createGroupRequest struct {
	BatchIDs []string `json:"batch_ids"`
	Name     string   `json:"name"`
}

// Create handles POST /batch-groups.
func (h *GroupHandler) Create(c echo.Context) error {
	var request createGroupRequest
	if err := c.Bind(&request); err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid request body")
	}
	if len(request.BatchIDs) == 0 {
		return errorResponse(c, http.StatusBadRequest, "at least one batch_id is required")
	}

	group, batchIDs, err := h.groups.Create(c.Request().Context(), request.BatchIDs, request.Name)
	if err != nil {
		var unknown *storage.UnknownBatchError
		if errors.As(err, &unknown) {
			return errorResponse(c, http.StatusNotFound, unknown.Error())
		}
		return errorResponse(c, http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"group_id":      group.ID,
		"name":          group.Name,
		"batch_ids":     batchIDs,
		"total_batches": len(batchIDs),
		"links": map[string]string{
			"group":        "/batch-groups/" + group.ID,
			"download_zip": "/batch-groups/" + group.ID + "/download?format=all",
			"download_txt": "/batch-groups/" + group.ID + "/download/txt",
		},
	})
}

// Get handles GET /batch-groups/:group_id.
func (h *GroupHandler) Get(c echo.Context) error {
	status, err := h.groups.Get(c.Request().Context(), c.Param("group_id"))
	if err != nil {
		if errors.Is(err, batch.ErrNotFound) {
			return errorResponse(c, http.StatusNotFound, "group not found")
		}
		return errorResponse(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, status)
}
