package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/mycelicmemory/docstore/pkg/config"
	"github.com/mycelicmemory/docstore/pkg/docstore"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Store.Path = filepath.Join(t.TempDir(), "data")
	cfg.Store.VectorDimension = 4
	cfg.Logging.Level = "error"

	store, err := docstore.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return NewServer(store, cfg)
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCreateAndGetNode(t *testing.T) {
	s := newTestServer(t)

	createRec := doRequest(t, s, http.MethodPost, "/api/v1/nodes", NodeRequest{
		Type:    "text",
		Content: "hello world",
	})
	if createRec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", createRec.Code, createRec.Body.String())
	}

	var created Response
	if err := json.Unmarshal(createRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	data := created.Data.(map[string]any)
	id := data["id"].(string)

	getRec := doRequest(t, s, http.MethodGet, "/api/v1/nodes/"+id, nil)
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", getRec.Code)
	}
}

func TestGetNodeNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/v1/nodes/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCreateNodeRequiresType(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodPost, "/api/v1/nodes", map[string]any{"content": "no type"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHierarchyEndpoints(t *testing.T) {
	s := newTestServer(t)

	parentRec := doRequest(t, s, http.MethodPost, "/api/v1/nodes", NodeRequest{ID: "parent-1", Type: "project", Content: "root"})
	if parentRec.Code != http.StatusCreated {
		t.Fatalf("create parent: %d", parentRec.Code)
	}
	childRec := doRequest(t, s, http.MethodPost, "/api/v1/nodes", NodeRequest{ID: "child-1", Type: "task", Content: "leaf", ParentID: "parent-1"})
	if childRec.Code != http.StatusCreated {
		t.Fatalf("create child: %d", childRec.Code)
	}

	rec := doRequest(t, s, http.MethodGet, "/api/v1/nodes/parent-1/children", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	children := resp.Data.([]any)
	if len(children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(children))
	}
}

func TestRelationshipEndpoints(t *testing.T) {
	s := newTestServer(t)

	doRequest(t, s, http.MethodPost, "/api/v1/nodes", NodeRequest{ID: "a", Type: "text", Content: "a"})
	doRequest(t, s, http.MethodPost, "/api/v1/nodes", NodeRequest{ID: "b", Type: "text", Content: "b"})

	rec := doRequest(t, s, http.MethodPost, "/api/v1/relationships", CreateRelationshipRequest{
		SourceID: "a", TargetID: "b", RelationshipType: "references",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	findRec := doRequest(t, s, http.MethodGet, "/api/v1/relationships/a", nil)
	if findRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", findRec.Code)
	}
}

func TestAPIKeyAuthRejectsMissingKey(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Store.Path = filepath.Join(t.TempDir(), "data")
	cfg.Store.VectorDimension = 4
	cfg.RestAPI.APIKey = "secret"

	store, err := docstore.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	s := NewServer(store, cfg)
	rec := doRequest(t, s, http.MethodGet, "/api/v1/nodes/anything", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	healthRec := doRequest(t, s, http.MethodGet, "/api/v1/health", nil)
	if healthRec.Code != http.StatusOK {
		t.Fatalf("health should bypass auth, got %d", healthRec.Code)
	}
}
