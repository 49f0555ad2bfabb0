package handlers

import (
	"net/http"

	"attendance-ledger/manager"
	"attendance-ledger/models"
)

// CreateSubUnit handles POST requests to create a sub-unit linked to its org unit's tip
func (h *Handler) CreateSubUnit(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSubUnitRequest
	if !decode(w, r, &req, false) {
		return
	}
	e, err := h.Manager.CreateSubUnit(req.Name, req.OrgUnitID, req.Metadata)
	if err != nil {
		writeFailure(w, "Failed to create sub-unit", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Sub-unit created successfully",
		"subUnit": e.CurrentState(),
	})
}

// ListSubUnits handles GET requests for every active sub-unit
func (h *Handler) ListSubUnits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, manager.ActiveStates(h.Manager.SubUnits()))
}

// SearchSubUnits handles GET requests matching ?q= against sub-unit names
func (h *Handler) SearchSubUnits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Manager.SearchSubUnits(r.URL.Query().Get("q")))
}

// GetSubUnit handles GET requests for one sub-unit and its history
func (h *Handler) GetSubUnit(w http.ResponseWriter, r *http.Request) {
	e, err := h.Manager.SubUnit(idVar(r))
	if err != nil {
		writeFailure(w, "Failed to get sub-unit", err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(e))
}

// UpdateSubUnit handles PUT requests renaming or re-describing a sub-unit
func (h *Handler) UpdateSubUnit(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateRequest
	if !decode(w, r, &req, false) {
		return
	}
	delta := req.Delta()
	if len(delta) == 0 {
		writeError(w, http.StatusBadRequest, "name or description is required")
		return
	}
	b, err := h.Manager.UpdateSubUnit(idVar(r), delta)
	if err != nil {
		writeFailure(w, "Failed to update sub-unit", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Sub-unit updated", "block": b})
}

// DeleteSubUnit soft-deletes the sub-unit and its leaf entities
func (h *Handler) DeleteSubUnit(w http.ResponseWriter, r *http.Request) {
	var req models.DeleteRequest
	if !decode(w, r, &req, true) {
		return
	}
	if err := h.Manager.DeleteSubUnit(idVar(r), req.Reason); err != nil {
		writeFailure(w, "Failed to delete sub-unit", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Sub-unit deleted"})
}

// SubUnitLeafEntities handles GET requests for the active leaf entities of a sub-unit
func (h *Handler) SubUnitLeafEntities(w http.ResponseWriter, r *http.Request) {
	id := idVar(r)
	if _, err := h.Manager.SubUnit(id); err != nil {
		writeFailure(w, "Failed to list leaf entities", err)
		return
	}
	writeJSON(w, http.StatusOK, manager.ActiveStates(h.Manager.LeafEntitiesBySubUnit(id)))
}

// SubUnitAttendance returns the events recorded on ?date= by the sub-unit's leaf entities
func (h *Handler) SubUnitAttendance(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	out, err := h.Manager.SubUnitAttendance(idVar(r), date)
	if err != nil {
		writeFailure(w, "Failed to get sub-unit attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
