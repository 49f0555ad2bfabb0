package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"sync"

	"attendance-ledger/ledger"
	"attendance-ledger/logger"
	"attendance-ledger/manager"
	"attendance-ledger/repository"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Handler contains the HTTP handlers for the ledger API endpoints
type Handler struct {
	Manager *manager.Manager
	Repo    repository.ChainRepositoryInterface

	// serializes the externalKey uniqueness check with creation
	leafMu sync.Mutex
}

// NewHandler creates and returns a new Handler instance. repo may be nil,
// in which case checkpoints are not stored.
func NewHandler(m *manager.Manager, repo repository.ChainRepositoryInterface) *Handler {
	return &Handler{Manager: m, Repo: repo}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Logger.Error("Failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeFailure maps ledger errors to HTTP status codes
func writeFailure(w http.ResponseWriter, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidArgument):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		logger.Logger.Error(msg, zap.Error(err))
	} else {
		logger.Logger.Debug(msg, zap.Error(err))
	}
	writeError(w, status, err.Error())
}

// decode reads a JSON body. An empty body is accepted when optional is set.
func decode(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	logger.Logger.Error("Failed to decode request", zap.String("path", r.URL.Path), zap.Error(err))
	writeError(w, http.StatusBadRequest, "Invalid request payload")
	return false
}

// entityView is the detail response for a single chain
type entityView struct {
	State   *ledger.State         `json:"state"`
	Stats   ledger.ChainStats     `json:"chain"`
	History []ledger.HistoryEntry `json:"history"`
}

func viewOf(e *ledger.Entity) entityView {
	return entityView{
		State:   e.CurrentState(),
		Stats:   e.Stats(),
		History: slices.Collect(e.History()),
	}
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"difficulty": h.Manager.Difficulty(),
	})
}

func idVar(r *http.Request) string {
	return mux.Vars(r)["id"]
}
