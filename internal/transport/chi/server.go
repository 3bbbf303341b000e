package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/laudos/internal/domain"
	dombatch "github.com/kailas-cloud/laudos/internal/domain/batch"
	"github.com/kailas-cloud/laudos/internal/domain/search/result"
	"github.com/kailas-cloud/laudos/internal/logger"
	archiveuc "github.com/kailas-cloud/laudos/internal/usecase/archive"
	generateuc "github.com/kailas-cloud/laudos/internal/usecase/generate"
	healthuc "github.com/kailas-cloud/laudos/internal/usecase/health"
	searchuc "github.com/kailas-cloud/laudos/internal/usecase/search"
)

// maxBodyBytes bounds request bodies; generation prompts carry base64 images.
const maxBodyBytes = 20 << 20

// Error codes returned in {code, message} bodies.
const (
	CodeBadRequest            = "bad_request"
	CodeValidationFailed      = "validation_failed"
	CodeProviderError         = "provider_error"
	CodeGenerationError       = "generation_provider_error"
	CodeUnsupportedAttachment = "unsupported_attachment"
	CodeNotImplemented        = "not_implemented"
	CodeNotFound              = "not_found"
	CodeMethodNotAllowed      = "method_not_allowed"
	CodeInternalError         = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the search, generation, import and proxy endpoints.
type Server struct {
	search        *searchuc.Service
	generate      *generateuc.Service
	archive       *archiveuc.Service
	health        *healthuc.Service
	proxy         DBProxy
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. archive and proxy can be nil: their routes are
// not mounted then.
func NewServer(
	search *searchuc.Service,
	generate *generateuc.Service,
	archive *archiveuc.Service,
	health *healthuc.Service,
	proxy DBProxy,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:   search,
		generate: generate,
		archive:  archive,
		health:   health,
		proxy:    proxy,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrUnsupportedAttachment, http.StatusUnsupportedMediaType, CodeUnsupportedAttachment),
		sentinelHandler(domain.ErrNotImplemented, http.StatusNotImplemented, CodeNotImplemented),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		providerErrorHandler,
	}
	return s
}

type searchRequest struct {
	Query string       `json:"query"`
	Exam  string       `json:"exam"`
	Limit *searchLimit `json:"limit,omitempty"`
}

// searchLimit accepts a JSON number or a numeric string such as "10".
// Fractions are truncated toward zero.
type searchLimit int

func (l *searchLimit) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("limit must be a number, got %s", data)
	}
	f = math.Trunc(math.Max(math.Min(f, math.MaxInt32), math.MinInt32))
	*l = searchLimit(f)
	return nil
}

type searchResultItem struct {
	ID             string    `json:"id"`
	Exam           string    `json:"exam"`
	Classification *string   `json:"classification"`
	Observation    *string   `json:"observation"`
	ReportText     *string   `json:"report_text"`
	CreatedAt      time.Time `json:"created_at"`
	Score          float64   `json:"score"`
}

type searchResponse struct {
	Results []searchResultItem `json:"results"`
}

// SearchReports handles POST /search.
func (s *Server) SearchReports(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	s.runSearch(w, r, req)
}

// SearchReportsQuery handles GET /search?query=&exam=&limit=.
func (s *Server) SearchReportsQuery(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "query", q, &req.Query); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "exam", q, &req.Exam); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	var limit *int
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &limit); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if limit != nil {
		l := searchLimit(*limit)
		req.Limit = &l
	}
	s.runSearch(w, r, req)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, req searchRequest) {
	limit := 0
	if req.Limit != nil {
		limit = int(*req.Limit)
	}

	results, err := s.search.Search(r.Context(), req.Query, req.Exam, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]searchResultItem, len(results))
	for i := range results {
		items[i] = searchResultToItem(&results[i])
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: items})
}

func searchResultToItem(res *result.Result) searchResultItem {
	rep := res.Report()
	item := searchResultItem{
		ID:        rep.ID(),
		Exam:      rep.Exam(),
		CreatedAt: rep.CreatedAt().UTC(),
		Score:     res.Score(),
	}
	if v, ok := rep.Classification(); ok {
		item.Classification = &v
	}
	if v, ok := rep.Observation(); ok {
		item.Observation = &v
	}
	if v, ok := rep.Text(); ok {
		item.ReportText = &v
	}
	return item
}

type generateImage struct {
	Type   string `json:"type"`
	Base64 string `json:"base64"`
}

type generateRequest struct {
	System  string          `json:"system"`
	UserMsg string          `json:"userMsg"`
	Images  []generateImage `json:"images"`
}

type generateResponse struct {
	Content string `json:"content"`
}

// Generate handles POST /generate.
func (s *Server) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	images := make([]generateuc.Image, len(req.Images))
	for i, img := range req.Images {
		images[i] = generateuc.Image{Type: img.Type, Base64: img.Base64}
	}

	content, err := s.generate.Generate(r.Context(), req.System, req.UserMsg, images)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{Content: content})
}

type importItem struct {
	ID             string     `json:"id"`
	Exam           string     `json:"exam"`
	Classification *string    `json:"classification,omitempty"`
	Observation    *string    `json:"observation,omitempty"`
	ReportText     string     `json:"report_text"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
}

type importRequest struct {
	Reports []importItem `json:"reports"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type importResultItem struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Error  *errorResponse `json:"error,omitempty"`
}

type importResponse struct {
	Items     []importResultItem `json:"items"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
}

// ImportReports handles POST /reports.
func (s *Server) ImportReports(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Reports) == 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "reports must not be empty")
		return
	}

	drafts := make([]archiveuc.Draft, len(req.Reports))
	for i, item := range req.Reports {
		drafts[i] = draftFromItem(item.ID, item.Exam, item.Classification, item.Observation, item.ReportText, item.CreatedAt)
	}

	results := s.archive.Import(r.Context(), drafts)
	sum := dombatch.Summarize(results)

	items := make([]importResultItem, len(results))
	for i, res := range results {
		items[i] = importResultItem{ID: res.ID(), Status: string(res.Status())}
		if res.Err() != nil {
			code, msg := batchError(res.Err())
			items[i].Error = &errorResponse{Code: code, Message: msg}
		}
	}

	writeJSON(w, http.StatusOK, importResponse{Items: items, Succeeded: sum.OK, Failed: sum.Failed})
}

// draftFromItem converts wire fields into an import draft; a nil timestamp is left zero.
func draftFromItem(id, exam string, classification, observation *string, text string, createdAt *time.Time) archiveuc.Draft {
	d := archiveuc.Draft{
		ID:             id,
		Exam:           exam,
		Classification: classification,
		Observation:    observation,
		Text:           text,
	}
	if createdAt != nil {
		d.CreatedAt = *createdAt
	}
	return d
}

func batchError(err error) (code, message string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return CodeValidationFailed, err.Error()
	case errors.Is(err, domain.ErrProvider):
		return CodeProviderError, domain.ErrProvider.Error()
	default:
		return CodeInternalError, "internal error"
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err //nolint:wrapcheck // surfaced to the client as-is
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

// validationHandler surfaces the full validation message: it names the offending field.
func validationHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrValidation) {
		return false
	}
	writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
	return true
}

// providerErrorHandler relays the upstream status and message of a provider failure.
// Failures that never reached the upstream become 502.
func providerErrorHandler(w http.ResponseWriter, err error) bool {
	var pe *domain.ProviderError
	if !errors.As(err, &pe) {
		return false
	}
	code, sentinel := CodeProviderError, domain.ErrProvider
	if errors.Is(err, domain.ErrGenerationProvider) {
		code, sentinel = CodeGenerationError, domain.ErrGenerationProvider
	}
	status := http.StatusBadGateway
	if pe.Status >= 400 && pe.Status < 600 {
		status = pe.Status
	}
	msg := pe.Message
	if msg == "" {
		msg = sentinel.Error()
	}
	writeError(w, status, code, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
