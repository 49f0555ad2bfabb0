package routers

import (
	"attendance-ledger/handlers"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes sets up all the HTTP routes for the ledger.
// Fixed paths are registered before {id} paths so they win the match.
func RegisterRoutes(r *mux.Router, h *handlers.Handler) {

	// Org units: root chains
	r.HandleFunc("/org-units", h.CreateOrgUnit).Methods("POST")
	r.HandleFunc("/org-units", h.ListOrgUnits).Methods("GET")
	r.HandleFunc("/org-units/search", h.SearchOrgUnits).Methods("GET")
	r.HandleFunc("/org-units/{id}", h.GetOrgUnit).Methods("GET")
	r.HandleFunc("/org-units/{id}", h.UpdateOrgUnit).Methods("PUT")
	r.HandleFunc("/org-units/{id}", h.DeleteOrgUnit).Methods("DELETE")
	r.HandleFunc("/org-units/{id}/sub-units", h.OrgUnitSubUnits).Methods("GET")
	r.HandleFunc("/org-units/{id}/leaf-entities", h.OrgUnitLeafEntities).Methods("GET")
	r.HandleFunc("/org-units/{id}/attendance", h.OrgUnitAttendance).Methods("GET")

	// Sub-units: linked to an org unit tip
	r.HandleFunc("/sub-units", h.CreateSubUnit).Methods("POST")
	r.HandleFunc("/sub-units", h.ListSubUnits).Methods("GET")
	r.HandleFunc("/sub-units/search", h.SearchSubUnits).Methods("GET")
	r.HandleFunc("/sub-units/{id}", h.GetSubUnit).Methods("GET")
	r.HandleFunc("/sub-units/{id}", h.UpdateSubUnit).Methods("PUT")
	r.HandleFunc("/sub-units/{id}", h.DeleteSubUnit).Methods("DELETE")
	r.HandleFunc("/sub-units/{id}/leaf-entities", h.SubUnitLeafEntities).Methods("GET")
	r.HandleFunc("/sub-units/{id}/attendance", h.SubUnitAttendance).Methods("GET")

	// Leaf entities and their events
	r.HandleFunc("/leaf-entities", h.AddLeafEntity).Methods("POST")
	r.HandleFunc("/leaf-entities", h.ListLeafEntities).Methods("GET")
	r.HandleFunc("/leaf-entities/search", h.SearchLeafEntities).Methods("GET")
	r.HandleFunc("/leaf-entities/{id}", h.GetLeafEntity).Methods("GET")
	r.HandleFunc("/leaf-entities/{id}", h.UpdateLeafEntity).Methods("PUT")
	r.HandleFunc("/leaf-entities/{id}", h.RemoveLeafEntity).Methods("DELETE")
	r.HandleFunc("/leaf-entities/{id}/events", h.RecordEvent).Methods("POST")
	r.HandleFunc("/leaf-entities/{id}/events", h.EventHistory).Methods("GET")
	r.HandleFunc("/leaf-entities/{id}/stats", h.EventStats).Methods("GET")
	r.HandleFunc("/leaf-entities/{id}/ledger", h.CompleteLedger).Methods("GET")

	// Explorer: system-wide audit views
	r.HandleFunc("/explorer/state", h.SystemState).Methods("GET")
	r.HandleFunc("/explorer/stats", h.SystemStats).Methods("GET")
	r.HandleFunc("/explorer/validate", h.ValidateSystem).Methods("GET")
	r.HandleFunc("/explorer/report", h.ValidationReport).Methods("GET")
	r.HandleFunc("/explorer/export", h.Export).Methods("GET")
	r.HandleFunc("/explorer/impact/org-units/{id}", h.OrgUnitImpact).Methods("GET")
	r.HandleFunc("/explorer/impact/sub-units/{id}", h.SubUnitImpact).Methods("GET")
	r.HandleFunc("/explorer/checkpoint", h.LatestCheckpoint).Methods("GET")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/health", h.Health).Methods("GET")
}
