package laudos

import (
	"context"

	healthuc "github.com/kailas-cloud/laudos/internal/usecase/health"
)

// HealthStatus reports whether the report store can serve searches.
// Status is "ok" or "error"; Checks has a single "provider" entry.
type HealthStatus struct {
	Status string
	Checks map[string]string
}

// Healthy reports whether searches can currently reach the store.
func (h HealthStatus) Healthy() bool { return h.Status == string(healthuc.Healthy) }

// Health pings the configured report store. The SDK has no generation relay,
// so a client is never "degraded".
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	out := HealthStatus{
		Status: string(report.Status),
		Checks: make(map[string]string, len(report.Checks)),
	}
	for name, res := range report.Checks {
		out.Checks[name] = string(res)
	}
	return out
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
