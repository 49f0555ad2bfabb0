package handlers

import (
	"net/http"

	"attendance-ledger/manager"
	"attendance-ledger/models"
)

// CreateOrgUnit handles POST requests to create a root chain
func (h *Handler) CreateOrgUnit(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrgUnitRequest
	if !decode(w, r, &req, false) {
		return
	}
	e, err := h.Manager.CreateOrgUnit(req.Name, req.Metadata)
	if err != nil {
		writeFailure(w, "Failed to create org unit", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Org unit created successfully",
		"orgUnit": e.CurrentState(),
	})
}

// ListOrgUnits handles GET requests for every active org unit
func (h *Handler) ListOrgUnits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, manager.ActiveStates(h.Manager.OrgUnits()))
}

// SearchOrgUnits handles GET requests matching ?q= against org unit names
func (h *Handler) SearchOrgUnits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Manager.SearchOrgUnits(r.URL.Query().Get("q")))
}

// GetOrgUnit handles GET requests for one org unit and its history
func (h *Handler) GetOrgUnit(w http.ResponseWriter, r *http.Request) {
	e, err := h.Manager.OrgUnit(idVar(r))
	if err != nil {
		writeFailure(w, "Failed to get org unit", err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(e))
}

// UpdateOrgUnit appends an UPDATE record carrying the request body
func (h *Handler) UpdateOrgUnit(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateRequest
	if !decode(w, r, &req, false) {
		return
	}
	delta := req.Delta()
	if len(delta) == 0 {
		writeError(w, http.StatusBadRequest, "name or description is required")
		return
	}
	b, err := h.Manager.UpdateOrgUnit(idVar(r), delta)
	if err != nil {
		writeFailure(w, "Failed to update org unit", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Org unit updated", "block": b})
}

// DeleteOrgUnit soft-deletes the org unit and everything below it
func (h *Handler) DeleteOrgUnit(w http.ResponseWriter, r *http.Request) {
	var req models.DeleteRequest
	if !decode(w, r, &req, true) {
		return
	}
	if err := h.Manager.DeleteOrgUnit(idVar(r), req.Reason); err != nil {
		writeFailure(w, "Failed to delete org unit", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Org unit deleted"})
}

// OrgUnitSubUnits handles GET requests for the active sub-units of an org unit
func (h *Handler) OrgUnitSubUnits(w http.ResponseWriter, r *http.Request) {
	id := idVar(r)
	if _, err := h.Manager.OrgUnit(id); err != nil {
		writeFailure(w, "Failed to list sub-units", err)
		return
	}
	writeJSON(w, http.StatusOK, manager.ActiveStates(h.Manager.SubUnitsByOrgUnit(id)))
}

// OrgUnitLeafEntities handles GET requests for the active leaf entities under an org unit
func (h *Handler) OrgUnitLeafEntities(w http.ResponseWriter, r *http.Request) {
	id := idVar(r)
	if _, err := h.Manager.OrgUnit(id); err != nil {
		writeFailure(w, "Failed to list leaf entities", err)
		return
	}
	writeJSON(w, http.StatusOK, manager.ActiveStates(h.Manager.LeafEntitiesByOrgUnit(id)))
}

// OrgUnitAttendance returns the events recorded on ?date= across the org unit
func (h *Handler) OrgUnitAttendance(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	out, err := h.Manager.OrgUnitAttendance(idVar(r), date)
	if err != nil {
		writeFailure(w, "Failed to get org unit attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
