package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"goaltracker/internal/models"
	"goaltracker/internal/wire"
)

// ListGoals returns the caller's goals, optionally filtered by status.
func (h *Handlers) ListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.userStore(r).ListGoals(r.Context())
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	if status := models.GoalStatus(r.URL.Query().Get("status")); status != "" {
		filtered := goals[:0]
		for _, g := range goals {
			if g.Status == status {
				filtered = append(filtered, g)
			}
		}
		goals = filtered
	}
	respondJSON(w, http.StatusOK, wire.GoalsToRecords(goals))
}

// GetGoal returns one goal.
func (h *Handlers) GetGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := h.userStore(r).GetGoal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, wire.GoalToRecord(*goal))
}

// CreateGoal creates a new goal.
func (h *Handlers) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var rec wire.GoalRecord
	if err := decodeJSON(w, r, &rec); err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	goal := wire.GoalFromRecord(rec)
	created, err := h.userStore(r).CreateGoal(r.Context(), &goal)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, wire.GoalToRecord(*created))
}

// UpdateGoal applies the allow-listed fields of the body to a goal.
func (h *Handlers) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := decodeJSON(w, r, &body); err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	patch, err := wire.ParseGoalPatch(body)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	goal, err := h.userStore(r).UpdateGoal(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, wire.GoalToRecord(*goal))
}

// DeleteGoal deletes a goal.
func (h *Handlers) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := h.userStore(r).DeleteGoal(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}
