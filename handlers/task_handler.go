package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"taskQuestAPI/internal/task"
	"taskQuestAPI/services"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	tasks, err := h.taskService.ListTasks(ctx)
	if err != nil {
		log.Printf("ListTasks Handler: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch tasks")
		return
	}

	respondWithData(w, http.StatusOK, tasks)
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := taskIDFromRequest(w, r)
	if !ok {
		return
	}

	t, err := h.taskService.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			respondWithError(w, http.StatusNotFound, "Task not found")
			return
		}
		log.Printf("GetTask Handler: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch task")
		return
	}

	respondWithData(w, http.StatusOK, t)
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req task.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	t, err := h.taskService.CreateTask(ctx, &req)
	if err != nil {
		if task.IsValidationError(err) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("CreateTask Handler: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to create task")
		return
	}

	respondWithData(w, http.StatusCreated, t)
}

func (h *TaskHandler) ReplaceTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := taskIDFromRequest(w, r)
	if !ok {
		return
	}

	var req task.ReplaceTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	t, err := h.taskService.ReplaceTask(ctx, id, &req)
	if err != nil {
		h.respondTaskMutationError(w, "ReplaceTask", err)
		return
	}

	respondWithData(w, http.StatusOK, t)
}

func (h *TaskHandler) PatchTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := taskIDFromRequest(w, r)
	if !ok {
		return
	}

	var req task.PatchTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	t, err := h.taskService.PatchTask(ctx, id, &req)
	if err != nil {
		h.respondTaskMutationError(w, "PatchTask", err)
		return
	}

	respondWithData(w, http.StatusOK, t)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, ok := taskIDFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(ctx, id); err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			respondWithError(w, http.StatusNotFound, "Task not found")
			return
		}
		log.Printf("DeleteTask Handler: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to delete task")
		return
	}

	respondWithData(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}

func (h *TaskHandler) respondTaskMutationError(w http.ResponseWriter, op string, err error) {
	switch {
	case task.IsValidationError(err):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrTaskNotFound):
		respondWithError(w, http.StatusNotFound, "Task not found")
	default:
		log.Printf("%s Handler: %v", op, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to update task")
	}
}

// taskIDFromRequest parses the {id} path variable; an unparseable ID is
// indistinguishable from an absent task, so it answers 404.
func taskIDFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Task not found")
		return uuid.Nil, false
	}
	return id, true
}
