package handlers

import (
	"net/http"
	"strings"

	"attendance-ledger/logger"
	"attendance-ledger/models"

	"go.uber.org/zap"
)

// keyTaken reports whether an active leaf entity already uses key
func (h *Handler) keyTaken(key string) bool {
	for _, e := range h.Manager.LeafEntities() {
		if !strings.EqualFold(e.ExternalKey(), key) {
			continue
		}
		if st := e.CurrentState(); st != nil && !st.Deleted() {
			return true
		}
	}
	return false
}

// AddLeafEntity handles POST requests to add a leaf entity under a sub-unit.
// External keys are unique among active leaf entities.
func (h *Handler) AddLeafEntity(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLeafEntityRequest
	if !decode(w, r, &req, false) {
		return
	}

	h.leafMu.Lock()
	defer h.leafMu.Unlock()

	if h.keyTaken(req.ExternalKey) {
		logger.Logger.Info("Duplicate external key", zap.String("external_key", req.ExternalKey))
		writeError(w, http.StatusConflict, "leaf entity with external key "+req.ExternalKey+" already exists")
		return
	}
	e, err := h.Manager.AddLeafEntity(req.Name, req.ExternalKey, req.SubUnitID, req.Metadata)
	if err != nil {
		writeFailure(w, "Failed to add leaf entity", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":    "Leaf entity added successfully",
		"leafEntity": e.CurrentState(),
	})
}

// ListLeafEntities handles GET requests for every active leaf entity with its event stats
func (h *Handler) ListLeafEntities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Manager.SearchLeafEntities(""))
}

// SearchLeafEntities handles GET requests matching ?q= against names and external keys
func (h *Handler) SearchLeafEntities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Manager.SearchLeafEntities(r.URL.Query().Get("q")))
}

// GetLeafEntity handles GET requests for one leaf entity, its history and event stats
func (h *Handler) GetLeafEntity(w http.ResponseWriter, r *http.Request) {
	e, err := h.Manager.LeafEntity(idVar(r))
	if err != nil {
		writeFailure(w, "Failed to get leaf entity", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entity": viewOf(e),
		"stats":  e.EventStats(),
	})
}

// UpdateLeafEntity handles PUT requests renaming or re-describing a leaf entity
func (h *Handler) UpdateLeafEntity(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateRequest
	if !decode(w, r, &req, false) {
		return
	}
	delta := req.Delta()
	if len(delta) == 0 {
		writeError(w, http.StatusBadRequest, "name or description is required")
		return
	}
	b, err := h.Manager.UpdateLeafEntity(idVar(r), delta)
	if err != nil {
		writeFailure(w, "Failed to update leaf entity", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Leaf entity updated", "block": b})
}

// RemoveLeafEntity handles DELETE requests for one leaf entity
func (h *Handler) RemoveLeafEntity(w http.ResponseWriter, r *http.Request) {
	var req models.DeleteRequest
	if !decode(w, r, &req, true) {
		return
	}
	if err := h.Manager.RemoveLeafEntity(idVar(r), req.Reason); err != nil {
		writeFailure(w, "Failed to remove leaf entity", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Leaf entity removed"})
}

// RecordEvent appends an EVENT block to the leaf entity's ledger
func (h *Handler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	var req models.RecordEventRequest
	if !decode(w, r, &req, false) {
		return
	}
	id := idVar(r)
	b, err := h.Manager.RecordEvent(id, req.Status, req.Date, req.Metadata)
	if err != nil {
		writeFailure(w, "Failed to record event", err)
		return
	}
	logger.Logger.Info("Event recorded",
		zap.String("entity_id", id),
		zap.String("status", string(req.Status)),
		zap.Int64("block_index", b.Index))
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Event recorded", "block": b})
}

// EventHistory handles GET requests for the EVENT blocks of a leaf entity
func (h *Handler) EventHistory(w http.ResponseWriter, r *http.Request) {
	out, err := h.Manager.EventHistory(idVar(r))
	if err != nil {
		writeFailure(w, "Failed to get event history", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// EventStats handles GET requests for the event counters of a leaf entity
func (h *Handler) EventStats(w http.ResponseWriter, r *http.Request) {
	out, err := h.Manager.EventStats(idVar(r))
	if err != nil {
		writeFailure(w, "Failed to get event stats", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// CompleteLedger handles GET requests dumping every block of a leaf entity
func (h *Handler) CompleteLedger(w http.ResponseWriter, r *http.Request) {
	out, err := h.Manager.CompleteLedger(idVar(r))
	if err != nil {
		writeFailure(w, "Failed to get ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
