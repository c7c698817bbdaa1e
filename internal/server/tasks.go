package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/verdantiq/esgcopilot/internal/assistant"
	"github.com/verdantiq/esgcopilot/internal/store"
)

// AutofillService runs the ingestion and summarization pipeline for a task.
type AutofillService interface {
	Autofill(ctx context.Context, taskID, sessionID, userID string) (assistant.AutofillResult, error)
}

type TasksHandler struct {
	Store    *store.Store
	Autofill AutofillService
}

func (h *TasksHandler) Register(api *echo.Group) {
	companies := api.Group("/companies")
	companies.POST("/:id/tasks", h.create)
	companies.GET("/:id/tasks", h.list)

	tasks := api.Group("/tasks")
	tasks.PUT("/:id/value", h.updateValue)
	tasks.PUT("/:id/assign", h.assign)
	tasks.POST("/:id/files", h.addFile)
	tasks.GET("/:id/files", h.listFiles)
	tasks.POST("/:id/milestones", h.createMilestone)
	tasks.GET("/:id/milestones", h.listMilestones)
	tasks.POST("/:id/autofill", h.autofill)
}

func (h *TasksHandler) create(c echo.Context) error {
	companyID := c.Param("id")
	var req struct {
		Title    string `json:"title"`
		Category string `json:"category"`
		OwnerID  string `json:"owner_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title required")
	}
	id, err := h.Store.CreateTask(c.Request().Context(), companyID, req.Title, req.Category, req.OwnerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}

func (h *TasksHandler) list(c echo.Context) error {
	items, err := h.Store.ListTasks(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []store.Task{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *TasksHandler) updateValue(c echo.Context) error {
	var req struct {
		Value string `json:"value"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.Store.UpdateTaskValue(c.Request().Context(), c.Param("id"), req.Value); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "task not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *TasksHandler) assign(c echo.Context) error {
	var req struct {
		OwnerID string `json:"owner_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.OwnerID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "owner_id required")
	}
	if err := h.Store.AssignTask(c.Request().Context(), c.Param("id"), req.OwnerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "task not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *TasksHandler) addFile(c echo.Context) error {
	var req struct {
		FilePath string `json:"file_path"`
		FileURL  string `json:"file_url"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.FilePath == "" || req.FileURL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "file_path and file_url required")
	}
	id, err := h.Store.AddTaskFile(c.Request().Context(), c.Param("id"), req.FilePath, req.FileURL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}

func (h *TasksHandler) listFiles(c echo.Context) error {
	files, err := h.Store.ListTaskFiles(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if files == nil {
		files = []store.TaskFile{}
	}
	return c.JSON(http.StatusOK, files)
}

func (h *TasksHandler) createMilestone(c echo.Context) error {
	var req struct {
		Title   string    `json:"title"`
		DueDate time.Time `json:"due_date"`
		Target  string    `json:"target"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title required")
	}
	id, err := h.Store.CreateMilestone(c.Request().Context(), c.Param("id"), req.Title, req.DueDate, req.Target)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}

func (h *TasksHandler) listMilestones(c echo.Context) error {
	items, err := h.Store.ListMilestones(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []store.Milestone{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *TasksHandler) autofill(c echo.Context) error {
	var req struct {
		SessionID string `json:"sessionId"`
		UserID    string `json:"userId"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	autofillRequests.Inc()

	result, err := h.Autofill.Autofill(c.Request().Context(), c.Param("id"), req.SessionID, req.UserID)
	chunksIngested.Add(float64(result.ChunksIngested))
	if err != nil {
		autofillFailures.Inc()
		switch {
		case errors.Is(err, assistant.ErrNoFiles):
			return echo.NewHTTPError(http.StatusNotFound, "no files attached to this task")
		case errors.Is(err, assistant.ErrNoChunks):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "no document content could be extracted")
		default:
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		}
	}
	if result.Files == nil {
		result.Files = []assistant.FileStatus{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"value": result.Value,
		"files": result.Files,
	})
}
