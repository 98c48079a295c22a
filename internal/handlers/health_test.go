package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeChecker struct {
	exists bool
	err    error
}

func (f *fakeChecker) CollectionExists(context.Context, string) (bool, error) {
	return f.exists, f.err
}

func doHealthCheck(t *testing.T, handler *HealthHandler) (int, HealthResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	return rec.Code, resp
}

func TestHealthHandler_NoVectorStore(t *testing.T) {
	code, resp := doHealthCheck(t, NewHealthHandler(nil, ""))
	if code != http.StatusOK {
		t.Errorf("status = %d, want %d", code, http.StatusOK)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q, want healthy", resp.Status)
	}
	if resp.Checks["vector_store"] != "disabled" {
		t.Errorf("vector_store check = %q, want disabled", resp.Checks["vector_store"])
	}
}

func TestHealthHandler_VectorStoreOK(t *testing.T) {
	code, resp := doHealthCheck(t, NewHealthHandler(&fakeChecker{exists: true}, "documents"))
	if code != http.StatusOK {
		t.Errorf("status = %d, want %d", code, http.StatusOK)
	}
	if resp.Checks["vector_store"] != "ok" {
		t.Errorf("vector_store check = %q, want ok", resp.Checks["vector_store"])
	}
}

func TestHealthHandler_VectorStoreDown(t *testing.T) {
	code, resp := doHealthCheck(t, NewHealthHandler(&fakeChecker{err: errors.New("unreachable")}, "documents"))
	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", code, http.StatusServiceUnavailable)
	}
	if resp.Status != "unhealthy" {
		t.Errorf("status = %q, want unhealthy", resp.Status)
	}
}

func TestHealthHandler_MissingCollection(t *testing.T) {
	code, _ := doHealthCheck(t, NewHealthHandler(&fakeChecker{exists: false}, "documents"))
	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", code, http.StatusServiceUnavailable)
	}
}
