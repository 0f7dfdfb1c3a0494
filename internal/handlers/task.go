package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"goaltracker/internal/models"
	"goaltracker/internal/wire"
)

// ListTasks returns the caller's tasks, narrowed by query parameters.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.TaskFilter{
		Status:           models.TaskStatus(q.Get("status")),
		Priority:         models.Priority(q.Get("priority")),
		GoalID:           q.Get("goal_id"),
		ParentTemplateID: q.Get("parent_task_id"),
	}
	if v := q.Get("is_template"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "is_template must be true or false")
			return
		}
		filter.IsTemplate = &b
	}

	tasks, err := h.userStore(r).ListTasks(r.Context(), filter)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, wire.TasksToRecords(tasks))
}

// GetTask returns one task.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.userStore(r).GetTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, wire.TaskToRecord(*task))
}

// CreateTask creates a new task.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	var rec wire.TaskRecord
	if err := decodeJSON(w, r, &rec); err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	task := wire.TaskFromRecord(rec)
	created, err := h.userStore(r).CreateTask(r.Context(), &task)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, wire.TaskToRecord(*created))
}

// UpdateTask applies the allow-listed fields of the body to a task.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := decodeJSON(w, r, &body); err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	patch, err := wire.ParseTaskPatch(body)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	task, err := h.userStore(r).UpdateTask(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, wire.TaskToRecord(*task))
}

// DeleteTask deletes a task.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.userStore(r).DeleteTask(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}
