package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/cohort-api/internal/taskreg"
)

// TaskHandler handles task polling HTTP requests.
type TaskHandler struct {
	service DeploymentService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(service DeploymentService) *TaskHandler {
	return &TaskHandler{service: service}
}

// GetTask handles GET /api/tasks/{taskID} requests: the polling read
// for callers who cannot hold a connection for the whole run.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	if taskID == "" {
		RespondWithError(w, r, http.StatusBadRequest, "Task ID is required", nil)
		return
	}

	task, err := h.service.TaskProgress(taskID)
	if err != nil {
		if errors.Is(err, taskreg.ErrTaskNotFound) {
			RespondWithError(w, r, http.StatusNotFound, "Task not found", err)
			return
		}

		slog.Error("failed to look up task", "error", err, "task_id", taskID)
		RespondWithError(w, r, http.StatusInternalServerError, "Failed to look up task", err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, taskToProgressResponse(task))
}
