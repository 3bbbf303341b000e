package backend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/laudos/internal/config"
	domreport "github.com/kailas-cloud/laudos/internal/domain/report"
	"github.com/kailas-cloud/laudos/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterSearchMetrics()
	os.Exit(m.Run())
}

func boltConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{HTTP: config.HTTPConfig{Port: 8080}}
	cfg.Provider.Driver = config.DriverBolt
	cfg.Provider.Bolt.Path = filepath.Join(t.TempDir(), "laudos.db")
	cfg.ApplyDefaults()
	return cfg
}

func TestOpen_BoltRoundTrip(t *testing.T) {
	b, err := Open(context.Background(), boltConfig(t), zap.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer b.Close()

	if b.Writer == nil {
		t.Fatal("bolt driver should be writable")
	}
	if b.Supabase != nil || b.Cache != nil || b.Invalidator() != nil {
		t.Error("unexpected optional components")
	}

	r, err := domreport.New("r-1", "raio-x", nil, nil, "pneumonia lobar", time.Now())
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if _, err := b.Writer.PutMany(context.Background(), []domreport.Report{r}); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := b.Provider.Fetch(context.Background(), "raio-x")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 1 || got[0].ID() != "r-1" {
		t.Errorf("unexpected candidates: %v", got)
	}
	if err := b.Provider.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
}

func TestOpen_SupabaseIsReadOnly(t *testing.T) {
	cfg := &config.Config{HTTP: config.HTTPConfig{Port: 8080}}
	cfg.Provider.Supabase.URL = "http://localhost:54321"
	cfg.Provider.Supabase.Key = "anon"
	cfg.ApplyDefaults()

	b, err := Open(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer b.Close()

	if b.Writer != nil {
		t.Error("supabase driver must not be writable")
	}
	if b.Supabase == nil {
		t.Error("expected supabase client for the proxy")
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	cfg := boltConfig(t)
	cfg.Provider.Driver = "mongo"
	if _, err := Open(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

type slowProvider struct{}

func (slowProvider) Fetch(ctx context.Context, _ string) ([]domreport.Report, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestWithTimeout(t *testing.T) {
	p := withTimeout(slowProvider{}, 10*time.Millisecond)
	if _, err := p.Fetch(context.Background(), "tc"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	if withTimeout(slowProvider{}, 0) != (slowProvider{}) {
		t.Error("zero timeout should return the inner provider")
	}
}
