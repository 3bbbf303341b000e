package search

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/laudos/internal/domain"
	"github.com/kailas-cloud/laudos/internal/metrics"
)

type mockPingProvider struct {
	mockProvider
	pingErr error
}

func (m *mockPingProvider) Ping(_ context.Context) error { return m.pingErr }

func TestInstrumentedProvider_Success(t *testing.T) {
	inner := &mockProvider{reports: newest("pneumonia")}
	p := NewInstrumentedProvider(inner, "test-ok", zap.NewNop())

	reports, err := p.Fetch(context.Background(), "raio-x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	if v := testutil.ToFloat64(metrics.ProviderFetchTotal.WithLabelValues("test-ok", "ok")); v < 1 {
		t.Errorf("expected fetch counter >= 1, got %f", v)
	}
}

func TestInstrumentedProvider_ErrorKeepsStatus(t *testing.T) {
	inner := &mockProvider{err: domain.NewProviderError(401, "invalid api key", nil)}
	p := NewInstrumentedProvider(inner, "test-err", zap.NewNop())

	_, err := p.Fetch(context.Background(), "raio-x")
	var pe *domain.ProviderError
	if !errors.As(err, &pe) || pe.Status != 401 {
		t.Fatalf("expected ProviderError 401, got %v", err)
	}
	if v := testutil.ToFloat64(metrics.ProviderFetchTotal.WithLabelValues("test-err", "401")); v < 1 {
		t.Errorf("expected error counter >= 1, got %f", v)
	}
}

func TestInstrumentedProvider_Ping(t *testing.T) {
	plain := NewInstrumentedProvider(&mockProvider{}, "plain", zap.NewNop())
	if err := plain.Ping(context.Background()); err != nil {
		t.Errorf("provider without Ping should be healthy, got %v", err)
	}

	down := NewInstrumentedProvider(&mockPingProvider{pingErr: errors.New("down")}, "pinger", zap.NewNop())
	if err := down.Ping(context.Background()); err == nil {
		t.Error("expected ping error")
	}
}
