package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/detectivedex/evidencegraph/internal/adapters/db/sqlite"
	"github.com/detectivedex/evidencegraph/internal/application"
	"github.com/detectivedex/evidencegraph/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "evidencegraph_test.db")

	db, err := sqlite.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, sqlite.RunMigrations(context.Background(), db))

	repo := sqlite.NewGraphRepository(db)
	service := application.NewEvidenceService(repo)
	reports := report.NewGenerator(repo)

	server := httptest.NewServer(NewRouter(service, reports, zap.NewNop(), nil))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, payload any) *http.Response {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req, err := http.NewRequest(method, url, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func createNode(t *testing.T, server *httptest.Server, name string) uint {
	t.Helper()
	resp := doJSON(t, http.MethodPost, server.URL+"/api/nodes", map[string]any{
		"name":     name,
		"nodeType": "BUG",
		"severity": "HIGH",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	return uint(body["id"].(float64))
}

func TestNodeLifecycle(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/nodes", map[string]any{
		"name":     "Use-after-free in parser",
		"nodeType": "vulnerability",
		"severity": "critical",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody(t, resp)
	assert.Equal(t, "VULNERABILITY", created["nodeType"])
	assert.Equal(t, "CRITICAL", created["severity"])
	assert.Equal(t, "OPEN", created["status"])
	id := uint(created["id"].(float64))

	resp = doJSON(t, http.MethodGet, server.URL+"/api/nodes/"+itoa(id), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fetched := decodeBody(t, resp)
	assert.Equal(t, "Use-after-free in parser", fetched["name"])

	resp = doJSON(t, http.MethodPut, server.URL+"/api/nodes/"+itoa(id), map[string]any{"status": "RESOLVED"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeBody(t, resp)
	assert.Equal(t, "RESOLVED", updated["status"])
	assert.Equal(t, "Use-after-free in parser", updated["name"])

	resp = doJSON(t, http.MethodDelete, server.URL+"/api/nodes/"+itoa(id), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, server.URL+"/api/nodes/"+itoa(id), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Node not found", decodeBody(t, resp)["error"])
}

func TestCreateNodeRejectsInvalidEnums(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/nodes", map[string]any{
		"name": "x", "nodeType": "SPACESHIP", "severity": "HIGH",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid node type", decodeBody(t, resp)["error"])

	resp = doJSON(t, http.MethodPost, server.URL+"/api/nodes", map[string]any{
		"name": "x", "nodeType": "BUG", "severity": "EXTREME",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid severity level", decodeBody(t, resp)["error"])
}

func TestFilterWithUnknownEnumIsBadRequest(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/nodes/type/SPACESHIP", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, server.URL+"/api/nodes/severity/EXTREME", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestRelationEndpointsEnforceReferentialIntegrity(t *testing.T) {
	server := newTestServer(t)
	a := createNode(t, server, "A")

	resp := doJSON(t, http.MethodPost, server.URL+"/api/relations", map[string]any{
		"sourceNodeId": a, "targetNodeId": 9999, "relationType": "CAUSES",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	b := createNode(t, server, "B")
	resp = doJSON(t, http.MethodPost, server.URL+"/api/relations", map[string]any{
		"sourceNodeId": a, "targetNodeId": b, "relationType": "causes",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody(t, resp)
	assert.Equal(t, "causes", created["relationType"])
	relID := uint(created["id"].(float64))

	// deleting the source node cascades to the relation
	resp = doJSON(t, http.MethodDelete, server.URL+"/api/nodes/"+itoa(a), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, server.URL+"/api/relations/"+itoa(relID), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Relation not found", decodeBody(t, resp)["error"])
}

func TestTimelineForMissingNodeIs404(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/timeline/node/424242", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Node not found", decodeBody(t, resp)["error"])
}

func TestTimelineLifecycle(t *testing.T) {
	server := newTestServer(t)
	node := createNode(t, server, "incident")

	resp := doJSON(t, http.MethodPost, server.URL+"/api/timeline", map[string]any{
		"nodeId":    node,
		"title":     "first detection",
		"eventDate": "2025-03-01T10:00:00Z",
		"eventType": "detection",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody(t, resp)
	assert.Equal(t, "detection", created["eventType"])

	resp = doJSON(t, http.MethodGet, server.URL+"/api/timeline/node/"+itoa(node), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()
	var events []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	require.Len(t, events, 1)
	assert.Equal(t, "first detection", events[0]["title"])
}

func TestReportEndpoints(t *testing.T) {
	server := newTestServer(t)
	createNode(t, server, "finding")

	resp := doJSON(t, http.MethodGet, server.URL+"/api/reports/statistics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decodeBody(t, resp)
	assert.Equal(t, float64(1), stats["totalNodes"])
	severity := stats["nodesBySeverity"].(map[string]any)
	assert.Equal(t, float64(1), severity["HIGH"])
	assert.Equal(t, float64(0), severity["CRITICAL"])

	resp = doJSON(t, http.MethodGet, server.URL+"/api/reports/export/json", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "evidencegraph-export.json")
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, server.URL+"/api/reports/export/html", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "evidencegraph-report.html")
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	resp.Body.Close()
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
