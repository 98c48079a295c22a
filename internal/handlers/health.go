package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"doctutor/internal/contextutil"
)

// CollectionChecker reports whether a vector collection exists. Satisfied by
// *vectorstore.QdrantStore.
type CollectionChecker interface {
	CollectionExists(ctx context.Context, collection string) (bool, error)
}

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	vectorStore        CollectionChecker // nil when remote retrieval is not configured
	collectionName     string
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler. vectorStore may be nil.
func NewHealthHandler(vectorStore CollectionChecker, collectionName string) *HealthHandler {
	return &HealthHandler{
		vectorStore:        vectorStore,
		collectionName:     collectionName,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Issues    []string          `json:"issues,omitempty"`
}

// ServeHTTP handles GET /healthz. Returns 200 when healthy and 503 when a
// configured dependency is unavailable.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string

	if h.vectorStore == nil {
		checks["vector_store"] = "disabled"
	} else if h.checkVectorStore(checkCtx) {
		checks["vector_store"] = "ok"
	} else {
		checks["vector_store"] = "error"
		issues = append(issues, "vector_store_unavailable")
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if len(issues) > 0 {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Issues:    issues,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.ErrorContext(ctx, "failed to encode health response", "error", err)
	}
}

func (h *HealthHandler) checkVectorStore(ctx context.Context) bool {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := h.vectorStore.CollectionExists(ctx, h.collectionName)
	if err != nil {
		logger.WarnContext(ctx, "vector store health check failed", "error", err)
		return false
	}
	if !exists {
		logger.WarnContext(ctx, "vector store collection does not exist", "collection", h.collectionName)
		return false
	}
	return true
}
