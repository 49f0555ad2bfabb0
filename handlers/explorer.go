package handlers

import (
	"net/http"

	"attendance-ledger/ledger"
	"attendance-ledger/logger"
	"attendance-ledger/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SystemState handles GET requests for the current state of every chain
func (h *Handler) SystemState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Manager.SystemState())
}

// SystemStats handles GET requests for chain and block counts
func (h *Handler) SystemStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Manager.Stats())
}

// ValidateSystem audits every chain and stores the outcome as a checkpoint
func (h *Handler) ValidateSystem(w http.ResponseWriter, r *http.Request) {
	res := h.Manager.ValidateSystem()

	if h.Repo != nil {
		stats := h.Manager.Stats()
		invalid := res.InvalidCount()
		cp := &models.Checkpoint{
			ID:                  uuid.NewString(),
			Timestamp:           res.Timestamp,
			IsValid:             res.IsValid,
			OrgUnits:            len(res.OrgUnits),
			SubUnits:            len(res.SubUnits),
			LeafEntities:        len(res.LeafEntities),
			InvalidOrgUnits:     invalid[ledger.TierOrgUnit],
			InvalidSubUnits:     invalid[ledger.TierSubUnit],
			InvalidLeafEntities: invalid[ledger.TierLeafEntity],
			TotalBlocks:         stats.TotalBlocks,
		}
		if err := h.Repo.PutCheckpoint(cp); err != nil {
			logger.Logger.Error("Failed to store checkpoint", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, res)
}

// ValidationReport renders the audit as markdown
func (h *Handler) ValidationReport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(h.Manager.ValidationReport()))
}

// Export handles GET requests for every chain document with a validation summary
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Manager.Export())
}

// OrgUnitImpact handles GET requests listing the chains affected by tampering an org unit
func (h *Handler) OrgUnitImpact(w http.ResponseWriter, r *http.Request) {
	out, err := h.Manager.TamperImpactOrgUnit(idVar(r))
	if err != nil {
		writeFailure(w, "Failed to check org unit impact", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// SubUnitImpact handles GET requests listing the leaf entities affected by tampering a sub-unit
func (h *Handler) SubUnitImpact(w http.ResponseWriter, r *http.Request) {
	out, err := h.Manager.TamperImpactSubUnit(idVar(r))
	if err != nil {
		writeFailure(w, "Failed to check sub-unit impact", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// LatestCheckpoint returns the most recent stored audit outcome
func (h *Handler) LatestCheckpoint(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		writeError(w, http.StatusNotFound, "no checkpoint store configured")
		return
	}
	cp, err := h.Repo.GetLatestCheckpoint()
	if err != nil {
		writeFailure(w, "Failed to load checkpoint", err)
		return
	}
	if cp == nil {
		writeError(w, http.StatusNotFound, "no checkpoint recorded")
		return
	}
	writeJSON(w, http.StatusOK, cp)
}
