package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	provider   ProviderPinger
	generation GenerationChecker
}

// New creates a Service. generation can be nil.
func New(provider ProviderPinger, generation GenerationChecker) *Service {
	return &Service{provider: provider, generation: generation}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks["provider"] = result(s.provider.Ping(ctx))
	if s.generation != nil {
		checks["generation"] = result(s.generation.HealthCheck(ctx))
	}

	status := Healthy
	switch {
	case checks["provider"] == CheckError:
		status = Unhealthy
	case checks["generation"] == CheckError:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
