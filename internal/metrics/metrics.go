package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the pipeline's collectors. A nil *Registry is valid and
// records nothing, so components can be built without metrics in tests.
type Registry struct {
	reg              *prometheus.Registry
	RecordsCompleted prometheus.Counter
	RecordsDropped   prometheus.Counter
	CacheLookups     *prometheus.CounterVec
	ProviderCalls    *prometheus.CounterVec
	FetchAttempts    *prometheus.CounterVec
	FetchRetries     *prometheus.CounterVec
	BreakerState     *prometheus.GaugeVec
	RecordSeconds    prometheus.Histogram
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	completed := prometheus.NewCounter(prometheus.CounterOpts{Name: "enrich_records_completed_total"})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{Name: "enrich_records_dropped_total"})
	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "enrich_cache_lookups_total"}, []string{"result"})
	providerCalls := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "enrich_provider_calls_total"}, []string{"provider", "mode", "outcome"})
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "enrich_fetch_attempts_total"}, []string{"client", "status"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "enrich_fetch_retries_total"}, []string{"client"})
	breaker := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "enrich_breaker_state"}, []string{"client"})
	recordSeconds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "enrich_record_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(completed, dropped, cacheLookups, providerCalls, attempts, retries, breaker, recordSeconds)
	return &Registry{
		reg:              r,
		RecordsCompleted: completed,
		RecordsDropped:   dropped,
		CacheLookups:     cacheLookups,
		ProviderCalls:    providerCalls,
		FetchAttempts:    attempts,
		FetchRetries:     retries,
		BreakerState:     breaker,
		RecordSeconds:    recordSeconds,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) CacheHit() {
	if r != nil {
		r.CacheLookups.WithLabelValues("hit").Inc()
	}
}

func (r *Registry) CacheMiss() {
	if r != nil {
		r.CacheLookups.WithLabelValues("miss").Inc()
	}
}

func (r *Registry) ProviderCall(provider, mode, outcome string) {
	if r != nil {
		r.ProviderCalls.WithLabelValues(provider, mode, outcome).Inc()
	}
}

func (r *Registry) FetchAttempt(client, status string) {
	if r != nil {
		r.FetchAttempts.WithLabelValues(client, status).Inc()
	}
}

func (r *Registry) FetchRetry(client string) {
	if r != nil {
		r.FetchRetries.WithLabelValues(client).Inc()
	}
}

// SetBreakerState records 0 closed, 1 half-open, 2 open.
func (r *Registry) SetBreakerState(client string, v float64) {
	if r != nil {
		r.BreakerState.WithLabelValues(client).Set(v)
	}
}

func (r *Registry) RecordDone(seconds float64) {
	if r != nil {
		r.RecordsCompleted.Inc()
		r.RecordSeconds.Observe(seconds)
	}
}

func (r *Registry) Dropped(n int) {
	if r != nil {
		r.RecordsDropped.Add(float64(n))
	}
}
