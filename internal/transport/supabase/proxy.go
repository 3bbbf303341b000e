package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kailas-cloud/laudos/internal/domain"
)

// ProxyPathPrefix restricts forwarded paths to the REST API.
const ProxyPathPrefix = "/rest/v1/"

// ProxyResponse is the upstream answer to a forwarded call.
type ProxyResponse struct {
	Status int
	Body   []byte
}

// Proxy forwards a database call to PostgREST with the service credentials.
// POST asks for the created representation; GET widens the default page to 1000 rows.
// Non-2xx answers return a *domain.ProviderError carrying the upstream status
// and its message, hint or raw body.
func (c *Client) Proxy(ctx context.Context, method, path string, body []byte) (ProxyResponse, error) {
	if !strings.HasPrefix(path, ProxyPathPrefix) {
		return ProxyResponse{}, fmt.Errorf("path must start with %s: %w", ProxyPathPrefix, domain.ErrValidation)
	}

	var payload []byte
	if (method == http.MethodPost || method == http.MethodPatch) && len(body) > 0 {
		payload = body
	}

	req, err := c.newRequest(ctx, method, path, payload)
	if err != nil {
		return ProxyResponse{}, err
	}
	req.Header.Set("Cache-Control", "no-cache")
	switch method {
	case http.MethodPost:
		req.Header.Set("Prefer", "return=representation")
	case http.MethodGet:
		req.Header.Set("Range", "0-999")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return ProxyResponse{}, domain.NewProviderError(0, "", fmt.Errorf("proxy %s %s: %w", method, path, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNoContent {
		return ProxyResponse{Status: http.StatusNoContent}, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ProxyResponse{}, domain.NewProviderError(0, "", fmt.Errorf("read proxy response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := proxyErrorMessage(data)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return ProxyResponse{}, domain.NewProviderError(resp.StatusCode, msg, nil)
	}

	return ProxyResponse{Status: http.StatusOK, Body: data}, nil
}

func proxyErrorMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	var obj map[string]any
	if len(trimmed) > 0 && trimmed[0] == '{' && json.Unmarshal(trimmed, &obj) == nil {
		for _, k := range []string{"message", "hint"} {
			if s, ok := obj[k].(string); ok && s != "" {
				return s
			}
		}
		return string(trimmed)
	}
	return string(trimmed)
}
