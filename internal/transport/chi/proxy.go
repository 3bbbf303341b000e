package chi

import (
	"context"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/laudos/internal/domain"
	"github.com/kailas-cloud/laudos/internal/logger"
	"github.com/kailas-cloud/laudos/internal/transport/supabase"
)

// DBProxy forwards database calls to the hosted REST API.
type DBProxy interface {
	Proxy(ctx context.Context, method, path string, body []byte) (supabase.ProxyResponse, error)
}

type proxyError struct {
	Error string `json:"error"`
}

// ProxyDB handles GET/POST/PATCH/DELETE /db?path=/rest/v1/....
// Errors use the {error} body the browser client expects.
func (s *Server) ProxyDB(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Header().Set("Pragma", "no-cache")

	var body []byte
	if r.Method == http.MethodPost || r.Method == http.MethodPatch {
		var err error
		body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, proxyError{Error: "Invalid request body: " + err.Error()})
			return
		}
	}

	resp, err := s.proxy.Proxy(r.Context(), r.Method, r.URL.Query().Get("path"), body)
	if err != nil {
		status, msg := proxyFailure(err)
		logger.FromContext(r.Context()).Warn("db proxy failed", zap.Int("status", status), zap.Error(err))
		writeJSON(w, status, proxyError{Error: msg})
		return
	}

	if resp.Status == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

func proxyFailure(err error) (int, string) {
	if errors.Is(err, domain.ErrValidation) {
		return http.StatusBadRequest, err.Error()
	}
	var pe *domain.ProviderError
	if errors.As(err, &pe) && pe.Status >= 400 && pe.Status < 600 {
		return pe.Status, pe.Message
	}
	return http.StatusBadGateway, "proxy request failed"
}
