package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"nought/app/codec"
	"nought/app/models"
	"nought/app/services"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// TaskController handles HTTP requests for tasks.
type TaskController struct {
	Service *services.TaskService
	Logger  *log.Logger
}

// NewTaskController creates a new TaskController.
func NewTaskController(service *services.TaskService, logger *log.Logger) *TaskController {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &TaskController{Service: service, Logger: logger}
}

// GetTasks handles GET /tasks. With ?roots=true only top-level tasks are
// listed.
func (c *TaskController) GetTasks(w http.ResponseWriter, r *http.Request) {
	list := c.Service.GetTasks
	if r.URL.Query().Get("roots") == "true" {
		list = c.Service.Roots
	}
	tasks, err := list(r.Context())
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// CreateTask handles POST /tasks.
func (c *TaskController) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req services.NewTask
	if err := decodeValidated(r, createTask, &req); err != nil {
		c.fail(w, r, err)
		return
	}

	task, err := c.Service.CreateTask(r.Context(), req)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// GetTaskByID handles GET /tasks/{taskID}.
func (c *TaskController) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	task, err := c.Service.GetTaskByID(r.Context(), id)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// UpdateTask handles PUT /tasks/{taskID}.
func (c *TaskController) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	var updates services.TaskUpdate
	if err := decodeValidated(r, updateTask, &updates); err != nil {
		c.fail(w, r, err)
		return
	}

	task, err := c.Service.UpdateTask(r.Context(), id, updates)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// DeleteTask handles DELETE /tasks/{taskID}. With ?tree=true the task's
// descendants are removed as well.
func (c *TaskController) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		c.fail(w, r, err)
		return
	}

	if r.URL.Query().Get("tree") == "true" {
		removed, err := c.Service.DeleteTree(r.Context(), id)
		if err != nil {
			c.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
		return
	}

	if err := c.Service.DeleteTask(r.Context(), id); err != nil {
		c.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportTasks handles GET /export.
func (c *TaskController) ExportTasks(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	if err := c.Service.Export(r.Context(), w); err != nil {
		c.fail(w, r, err)
	}
}

// ImportTasks handles POST /import. The body replaces the current store.
func (c *TaskController) ImportTasks(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	n, err := c.Service.Import(r.Context(), http.MaxBytesReader(w, r.Body, 16*maxBodyBytes))
	if err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}

// SaveTasks handles POST /save.
func (c *TaskController) SaveTasks(w http.ResponseWriter, r *http.Request) {
	if err := c.Service.Save(r.Context()); err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"saved": c.Service.Path()})
}

func taskID(r *http.Request) (uuid.UUID, error) {
	raw := mux.Vars(r)["taskID"]
	id, err := codec.ParseID(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid todo id %q", models.ErrIllegalArgument, raw)
	}
	return id, nil
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var (
		parseErr  *codec.ParseError
		schemaErr *SchemaError
		maxErr    *http.MaxBytesError
	)
	switch {
	case errors.As(err, &parseErr), errors.As(err, &schemaErr), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvariantViolation):
		return http.StatusConflict
	case errors.Is(err, models.ErrIllegalArgument), errors.Is(err, models.ErrFormat),
		errors.Is(err, services.ErrAmbiguousID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (c *TaskController) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		c.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, status, "internal error")
		return
	}
	c.Logger.Warn("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
