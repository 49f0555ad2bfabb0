package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"attendance-ledger/handlers"
	"attendance-ledger/ledger"
	"attendance-ledger/logger"
	"attendance-ledger/manager"
	"attendance-ledger/models"
	"attendance-ledger/repository"
	"attendance-ledger/routers"
)

type mockRepo struct {
	mu          sync.Mutex
	chains      map[string]*ledger.Document
	checkpoints []*models.Checkpoint
}

func newMockRepo() *mockRepo {
	return &mockRepo{chains: make(map[string]*ledger.Document)}
}

func (m *mockRepo) PutChain(doc *ledger.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chains[string(doc.Tier)+":"+doc.ChainID] = doc
	return nil
}

func (m *mockRepo) GetChain(tier ledger.Tier, id string) (*ledger.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.chains[string(tier)+":"+id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ledger.ErrNotFound, id)
	}
	return doc, nil
}

func (m *mockRepo) GetAllChains(tier ledger.Tier) ([]*ledger.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []*ledger.Document
	for _, doc := range m.chains {
		if doc.Tier == tier {
			res = append(res, doc)
		}
	}
	return res, nil
}

func (m *mockRepo) PutCheckpoint(cp *models.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoints = append(m.checkpoints, cp)
	return nil
}

func (m *mockRepo) GetLatestCheckpoint() (*models.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.checkpoints) == 0 {
		return nil, nil
	}
	return m.checkpoints[len(m.checkpoints)-1], nil
}

func testServer() (*mux.Router, *mockRepo) {
	logger.Logger = zap.NewNop()

	mockRepo := newMockRepo()
	var repoInterface repository.ChainRepositoryInterface = mockRepo
	m := manager.New(1, manager.WithObserver(repository.PersistChain(repoInterface)))
	handler := handlers.NewHandler(m, repoInterface)
	router := mux.NewRouter()
	routers.RegisterRoutes(router, handler)
	return router, mockRepo
}

func do(router *mux.Router, method, path string, body any) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		bodyJSON, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(bodyJSON))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

// create posts body and returns the id of the created entity under key
func create(t *testing.T, router *mux.Router, path, key string, body any) string {
	t.Helper()
	res := do(router, http.MethodPost, path, body)
	if res.Code != http.StatusCreated {
		t.Fatalf("POST %s: expected 201, got %d, body: %s", path, res.Code, res.Body.String())
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(res.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	entity, _ := resp[key].(map[string]interface{})
	id, ok := entity["id"].(string)
	if !ok || id == "" {
		t.Fatalf("missing %s id in response: %s", key, res.Body.String())
	}
	return id
}

func hierarchy(t *testing.T, router *mux.Router) (orgID, subID, leafID string) {
	t.Helper()
	orgID = create(t, router, "/org-units", "orgUnit", map[string]interface{}{"name": "Science"})
	subID = create(t, router, "/sub-units", "subUnit", map[string]interface{}{"name": "Physics", "orgUnitId": orgID})
	leafID = create(t, router, "/leaf-entities", "leafEntity", map[string]interface{}{
		"name": "Ada", "externalKey": "R-1", "subUnitId": subID,
	})
	return orgID, subID, leafID
}

func TestCreateHierarchy_Persisted(t *testing.T) {
	router, mockRepo := testServer()
	orgID, subID, leafID := hierarchy(t, router)

	doc, err := mockRepo.GetChain(ledger.TierSubUnit, subID)
	if err != nil {
		t.Fatalf("expected sub-unit stored, got error: %v", err)
	}
	if doc.ParentID != orgID {
		t.Fatalf("expected parent %s, got %s", orgID, doc.ParentID)
	}
	if _, err := mockRepo.GetChain(ledger.TierLeafEntity, leafID); err != nil {
		t.Fatalf("expected leaf entity stored, got error: %v", err)
	}

	res := do(router, http.MethodGet, "/org-units/"+orgID, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body: %s", res.Code, res.Body.String())
	}
}

func TestCreateSubUnit_MissingOrgUnit(t *testing.T) {
	router, _ := testServer()

	res := do(router, http.MethodPost, "/sub-units", map[string]interface{}{"name": "Physics", "orgUnitId": "NOPE"})
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d, body: %s", res.Code, res.Body.String())
	}
}

func TestCreateOrgUnit_InvalidPayload(t *testing.T) {
	router, _ := testServer()

	req := httptest.NewRequest(http.MethodPost, "/org-units", strings.NewReader("{not json"))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}

	res = do(router, http.MethodPost, "/org-units", map[string]interface{}{"name": ""})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty name, got %d", res.Code)
	}
}

func TestAddLeafEntity_DuplicateKey(t *testing.T) {
	router, _ := testServer()
	_, subID, leafID := hierarchy(t, router)

	body := map[string]interface{}{"name": "Ada Again", "externalKey": "r-1", "subUnitId": subID}
	res := do(router, http.MethodPost, "/leaf-entities", body)
	if res.Code != http.StatusConflict {
		t.Fatalf("expected duplicate 409, got %d, body: %s", res.Code, res.Body.String())
	}

	// a removed entity frees its key
	res = do(router, http.MethodDelete, "/leaf-entities/"+leafID, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body: %s", res.Code, res.Body.String())
	}
	res = do(router, http.MethodPost, "/leaf-entities", body)
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201 after removal, got %d, body: %s", res.Code, res.Body.String())
	}
}

func TestRecordEvent_StatsAndAttendance(t *testing.T) {
	router, _ := testServer()
	orgID, subID, leafID := hierarchy(t, router)

	res := do(router, http.MethodPost, "/leaf-entities/"+leafID+"/events",
		map[string]interface{}{"status": "Present", "date": "2024-01-10"})
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d, body: %s", res.Code, res.Body.String())
	}

	res = do(router, http.MethodPost, "/leaf-entities/"+leafID+"/events",
		map[string]interface{}{"status": "Late", "date": "2024-01-10"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid status, got %d", res.Code)
	}

	res = do(router, http.MethodGet, "/leaf-entities/"+leafID+"/stats", nil)
	var stats ledger.EventStats
	if err := json.Unmarshal(res.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if stats.Total != 1 || stats.Counts[ledger.StatusPresent] != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	res = do(router, http.MethodGet, "/sub-units/"+subID+"/attendance?date=2024-01-10", nil)
	var records []manager.AttendanceRecord
	if err := json.Unmarshal(res.Body.Bytes(), &records); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if len(records) != 1 || records[0].EntityID != leafID {
		t.Fatalf("unexpected attendance: %s", res.Body.String())
	}

	res = do(router, http.MethodGet, "/org-units/"+orgID+"/attendance", nil)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without date, got %d", res.Code)
	}

	res = do(router, http.MethodGet, "/leaf-entities/"+leafID+"/ledger", nil)
	var entries []ledger.LedgerEntry
	if err := json.Unmarshal(res.Body.Bytes(), &entries); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(entries))
	}
}

func TestDeleteOrgUnit_Cascade(t *testing.T) {
	router, _ := testServer()
	orgID, _, leafID := hierarchy(t, router)

	res := do(router, http.MethodDelete, "/org-units/"+orgID, map[string]interface{}{"reason": "closed"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body: %s", res.Code, res.Body.String())
	}

	res = do(router, http.MethodGet, "/leaf-entities/search?q=ada", nil)
	var found []manager.LeafSummary
	if err := json.Unmarshal(res.Body.Bytes(), &found); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("expected deleted leaf excluded from search, got %d", len(found))
	}

	res = do(router, http.MethodGet, "/leaf-entities/"+leafID, nil)
	if !strings.Contains(res.Body.String(), "closed") {
		t.Fatalf("expected cascade reason in state, body: %s", res.Body.String())
	}

	res = do(router, http.MethodDelete, "/org-units/NOPE", nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestValidate_StoresCheckpoint(t *testing.T) {
	router, mockRepo := testServer()
	hierarchy(t, router)

	res := do(router, http.MethodGet, "/explorer/checkpoint", nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any audit, got %d", res.Code)
	}

	res = do(router, http.MethodGet, "/explorer/validate", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body: %s", res.Code, res.Body.String())
	}
	var result map[string]interface{}
	if err := json.Unmarshal(res.Body.Bytes(), &result); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if result["isValid"] != true {
		t.Fatalf("expected valid system, body: %s", res.Body.String())
	}

	cp, _ := mockRepo.GetLatestCheckpoint()
	if cp == nil || !cp.IsValid || cp.TotalBlocks != 3 {
		t.Fatalf("unexpected checkpoint: %+v", cp)
	}

	res = do(router, http.MethodGet, "/explorer/checkpoint", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestReportAndImpact(t *testing.T) {
	router, _ := testServer()
	orgID, subID, _ := hierarchy(t, router)

	res := do(router, http.MethodGet, "/explorer/report", nil)
	if !strings.HasPrefix(res.Header().Get("Content-Type"), "text/markdown") {
		t.Fatalf("unexpected content type %q", res.Header().Get("Content-Type"))
	}
	if !strings.Contains(res.Body.String(), "**System Valid:** YES") {
		t.Fatalf("unexpected report: %s", res.Body.String())
	}

	res = do(router, http.MethodGet, "/explorer/impact/org-units/"+orgID, nil)
	if !strings.Contains(res.Body.String(), subID) {
		t.Fatalf("expected sub-unit in impact, body: %s", res.Body.String())
	}

	res = do(router, http.MethodGet, "/explorer/impact/sub-units/NOPE", nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestUpdateSubUnit_Rename(t *testing.T) {
	router, _ := testServer()
	_, subID, _ := hierarchy(t, router)

	res := do(router, http.MethodPut, "/sub-units/"+subID, map[string]interface{}{"name": "Applied Physics"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body: %s", res.Code, res.Body.String())
	}

	res = do(router, http.MethodGet, "/sub-units/search?q=applied", nil)
	var found []ledger.State
	if err := json.Unmarshal(res.Body.Bytes(), &found); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if len(found) != 1 || found[0].Name != "Applied Physics" {
		t.Fatalf("unexpected search result: %s", res.Body.String())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	router, _ := testServer()

	if res := do(router, http.MethodGet, "/health", nil); res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res := do(router, http.MethodGet, "/metrics", nil); res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestUpdateOrgUnit_CannotDelete(t *testing.T) {
	router, _ := testServer()
	orgID, subID, _ := hierarchy(t, router)

	res := do(router, http.MethodPut, "/org-units/"+orgID, map[string]interface{}{"status": "deleted", "reason": "x"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for status-only update, got %d, body: %s", res.Code, res.Body.String())
	}

	res = do(router, http.MethodPut, "/org-units/"+orgID, map[string]interface{}{"description": "labs", "status": "deleted"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body: %s", res.Code, res.Body.String())
	}

	for _, path := range []string{"/org-units/" + orgID, "/sub-units/" + subID} {
		res = do(router, http.MethodGet, path, nil)
		var view map[string]interface{}
		if err := json.Unmarshal(res.Body.Bytes(), &view); err != nil {
			t.Fatalf("Invalid JSON response: %v", err)
		}
		state, _ := view["state"].(map[string]interface{})
		if state["status"] != "active" {
			t.Fatalf("expected %s to stay active, body: %s", path, res.Body.String())
		}
	}

	res = do(router, http.MethodGet, "/org-units/"+orgID, nil)
	if !strings.Contains(res.Body.String(), "labs") {
		t.Fatalf("expected description update recorded, body: %s", res.Body.String())
	}
}
