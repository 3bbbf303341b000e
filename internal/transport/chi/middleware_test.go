package chi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		origins       []string
		origin        string
		method        string
		requestMethod string // Access-Control-Request-Method
		wantOrigin    string
		wantMethods   string
		wantStatus    int
		wantNext      bool
	}{
		{name: "wildcard", origins: []string{"*"}, origin: "https://app.example", method: http.MethodGet,
			wantOrigin: "*", wantStatus: http.StatusTeapot, wantNext: true},
		{name: "listed origin", origins: []string{"https://app.example"}, origin: "https://app.example", method: http.MethodPost,
			wantOrigin: "https://app.example", wantStatus: http.StatusTeapot, wantNext: true},
		{name: "unlisted origin", origins: []string{"https://app.example"}, origin: "https://evil.example", method: http.MethodGet,
			wantStatus: http.StatusTeapot, wantNext: true},
		{name: "preflight", origins: []string{"*"}, origin: "https://app.example", method: http.MethodOptions, requestMethod: http.MethodPost,
			wantOrigin: "*", wantMethods: http.MethodPost, wantStatus: http.StatusOK},
		{name: "bare options", origins: []string{"*"}, method: http.MethodOptions,
			wantStatus: http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			h := CORSMiddleware(CORSConfig{
				AllowedOrigins: tc.origins,
				AllowedMethods: []string{"GET", "POST"},
				AllowedHeaders: []string{"Content-Type"},
			})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				called = true
				w.WriteHeader(http.StatusTeapot)
			}))

			req := httptest.NewRequest(tc.method, "/search", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if tc.requestMethod != "" {
				req.Header.Set("Access-Control-Request-Method", tc.requestMethod)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("expected %d, got %d", tc.wantStatus, rec.Code)
			}
			if called != tc.wantNext {
				t.Errorf("next called = %v, want %v", called, tc.wantNext)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Errorf("allow-origin = %q, want %q", got, tc.wantOrigin)
			}
			if got := rec.Header().Get("Access-Control-Allow-Methods"); got != tc.wantMethods {
				t.Errorf("allow-methods = %q, want %q", got, tc.wantMethods)
			}
		})
	}
}
