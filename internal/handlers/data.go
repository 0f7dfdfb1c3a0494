package handlers

import (
	"encoding/json"
	"net/http"

	"goaltracker/internal/models"
	"goaltracker/internal/wire"
)

// GetSettings returns the settings merged over their defaults.
func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.userStore(r).GetSettings(r.Context())
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

// PutSetting stores one setting.
func (h *Handlers) PutSetting(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Key   string `json:"setting_key"`
		Value any    `json:"setting_value"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	if err := h.userStore(r).PutSetting(r.Context(), body.Key, body.Value); err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

// GetStatistics returns the usage counters.
func (h *Handlers) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.userStore(r).GetStatistics(r.Context())
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, wire.StatisticsToRecord(*stats))
}

// UpdateStatistics overwrites the counters present in the body.
func (h *Handlers) UpdateStatistics(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := decodeJSON(w, r, &body); err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	patch, err := wire.ParseStatisticsPatch(body)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	stats, err := h.userStore(r).UpdateStatistics(r.Context(), patch)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, wire.StatisticsToRecord(*stats))
}

// Export returns the caller's full snapshot.
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	snap, err := h.userStore(r).ExportAll(r.Context())
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, wire.SnapshotToRecord(*snap))
}

// Import replaces the caller's data with the posted snapshot.
func (h *Handlers) Import(w http.ResponseWriter, r *http.Request) {
	var rec wire.SnapshotRecord
	if err := decodeJSON(w, r, &rec); err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	snap := wire.SnapshotFromRecord(rec)
	if snap.Settings == nil {
		snap.Settings = models.Settings{}
	}
	if err := h.userStore(r).ImportAll(r.Context(), &snap); err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	h.logger.Infow("snapshot imported", "tasks", len(snap.Tasks), "goals", len(snap.Goals))
	respondJSON(w, http.StatusOK, map[string]int{"tasks": len(snap.Tasks), "goals": len(snap.Goals)})
}
