package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func stubHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
}

func testRouter() http.Handler {
	return NewRouter(&Deps{
		Chat:      stubHandler(http.StatusOK),
		Documents: stubHandler(http.StatusOK),
		Summary:   stubHandler(http.StatusOK),
		Health:    stubHandler(http.StatusOK),
	})
}

func TestRouter_Routes(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodPost, "/api/chat", http.StatusOK},
		{http.MethodGet, "/api/documents", http.StatusOK},
		{http.MethodPost, "/api/documents", http.StatusOK},
		{http.MethodGet, "/api/documents/abc123/summary", http.StatusOK},
		{http.MethodGet, "/api/nope", http.StatusNotFound},
		{http.MethodGet, "/api/chat", http.StatusMethodNotAllowed},
	}

	router := testRouter()
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			require.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRouter_RequestIDHeader(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
