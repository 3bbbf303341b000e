package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search and collaborator Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "laudos",
			Name:      "search_requests_total",
			Help:      "Total number of similarity searches by outcome",
		},
		[]string{"outcome"}, // ok / invalid / provider_error
	)

	SearchCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "laudos",
			Name:      "search_candidates",
			Help:      "Candidates fetched per search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 150, 250, 500},
		},
	)

	SearchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "laudos",
			Name:      "search_results",
			Help:      "Results returned per search",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20, 50},
		},
	)

	ProviderFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "laudos",
			Name:      "provider_fetch_total",
			Help:      "Candidate provider fetches by driver and status",
		},
		[]string{"driver", "status"},
	)

	ProviderFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "laudos",
			Name:      "provider_fetch_duration_seconds",
			Help:      "Candidate provider fetch duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"driver"},
	)

	CandidateCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "laudos",
			Name:      "candidate_cache_total",
			Help:      "Candidate cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "laudos",
			Name:      "generation_requests_total",
			Help:      "Total number of text-generation requests",
		},
		[]string{"model", "status"},
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "laudos",
			Name:      "generation_request_duration_seconds",
			Help:      "Text-generation request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		},
		[]string{"model"},
	)

	GenerationTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "laudos",
			Name:      "generation_tokens_total",
			Help:      "Total text-generation tokens consumed",
		},
		[]string{"model", "type"},
	)

	ImportItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "laudos",
			Name:      "import_items_total",
			Help:      "Reports processed by the importer",
		},
		[]string{"status"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search, provider and generation metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchCandidates)
	prometheus.MustRegister(SearchResults)
	prometheus.MustRegister(ProviderFetchTotal)
	prometheus.MustRegister(ProviderFetchDuration)
	prometheus.MustRegister(CandidateCacheTotal)
	prometheus.MustRegister(GenerationRequestsTotal)
	prometheus.MustRegister(GenerationRequestDuration)
	prometheus.MustRegister(GenerationTokensTotal)
	prometheus.MustRegister(ImportItemsTotal)
	searchMetricsRegistered = true
}
