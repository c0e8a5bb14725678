package api

import (
	"encoding/json"
	"net/http"
	"time"

	gh "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/wonny/twscan/internal/api/handlers"
	"github.com/wonny/twscan/pkg/logger"
)

// Routes groups the handlers mounted by NewRouter. Nil members are not mounted.
type Routes struct {
	Config  *handlers.ConfigHandler
	Report  *handlers.ReportHandler
	Jobs    *handlers.JobsHandler
	Stream  http.HandlerFunc // websocket scan stream
	Metrics http.Handler     // prometheus exposition
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(routes Routes, corsOrigins []string, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	if routes.Metrics != nil {
		r.Handle("/metrics", routes.Metrics).Methods("GET")
	}
	if routes.Stream != nil {
		r.HandleFunc("/ws/scan", routes.Stream).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Config endpoints
	if h := routes.Config; h != nil {
		api.HandleFunc("/config", h.GetConfig).Methods("GET")
		api.HandleFunc("/save_stock_list", h.SaveStockList).Methods("POST")
		api.HandleFunc("/save_strategy", h.SaveStrategy).Methods("POST")
	}

	// Report endpoints
	if h := routes.Report; h != nil {
		api.HandleFunc("/reports/latest", h.GetLatest).Methods("GET")
		api.HandleFunc("/scan", h.TriggerScan).Methods("POST")
		api.HandleFunc("/inspect/{code}", h.Inspect).Methods("GET")
	}

	// Job endpoints
	if h := routes.Jobs; h != nil {
		api.HandleFunc("/jobs", h.GetJobs).Methods("GET")
		api.HandleFunc("/jobs/{name}", h.GetHistory).Methods("GET")
		api.HandleFunc("/jobs/{name}/run", h.RunJob).Methods("POST")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return gh.CORS(
		gh.AllowedOrigins(corsOrigins),
		gh.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		gh.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(r)
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "twscan-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Call next handler
			next.ServeHTTP(w, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
