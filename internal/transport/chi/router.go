package chi

import (
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kailas-cloud/laudos/internal/metrics"
)

// NewRouter wires the middleware stack and mounts the server's routes.
// The import and proxy routes exist only when their services were provided.
func NewRouter(s *Server, cors CORSConfig) http.Handler {
	r := gochi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(CORSMiddleware(cors))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed")
	})

	r.Post("/search", s.SearchReports)
	r.Get("/search", s.SearchReportsQuery)
	r.Post("/generate", s.Generate)
	if s.archive != nil {
		r.Post("/reports", s.ImportReports)
	}
	if s.proxy != nil {
		r.Get("/db", s.ProxyDB)
		r.Post("/db", s.ProxyDB)
		r.Patch("/db", s.ProxyDB)
		r.Delete("/db", s.ProxyDB)
	}
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	return r
}
