package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/yndnr/capsule/internal/infra/buildinfo"
	"github.com/yndnr/capsule/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Metrics is exposed at /metrics. Nil disables the route.
	Metrics *metric.Registry

	// MetricsToken, when set, is required as a bearer token on /metrics.
	MetricsToken string

	// Logger for panic reports.
	Logger *slog.Logger
}

// NewRouter creates the operator endpoint handler:
//
//	GET /metrics  Prometheus exposition
//	GET /health   liveness
//	GET /version  build information
func NewRouter(cfg *RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", MetricsAuth(cfg.MetricsToken)(cfg.Metrics.Handler()))
	}
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /version", handleVersion)

	return Chain(mux, Recover(logger))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Get())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
