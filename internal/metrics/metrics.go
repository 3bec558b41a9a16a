// Package metrics holds the Prometheus instrumentation for promgen's
// import, render and write paths.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EntitiesTotal counts entities touched by imports, by kind and result
	// ("created" or "skipped").
	EntitiesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promgen_import_entities_total",
		Help: "Entities touched by imports, by kind and result",
	}, []string{"kind", "result"})

	// ProjectRelinksTotal counts projects moved to a different farm.
	ProjectRelinksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promgen_project_relinks_total",
		Help: "Projects relinked to a different farm during target import",
	})

	// ImportErrorsTotal counts failed imports by source ("targets", "rules").
	ImportErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promgen_import_errors_total",
		Help: "Failed imports by source",
	}, []string{"source"})

	// RuleChecksTotal counts rule validations by result.
	RuleChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promgen_rule_checks_total",
		Help: "Rule file validations by result",
	}, []string{"result"})

	// FileWritesTotal counts generated file writes by file and result.
	FileWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promgen_file_writes_total",
		Help: "Generated file writes by file and result",
	}, []string{"file", "result"})

	// FileWriteDuration tracks render+write latency per file.
	FileWriteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "promgen_file_write_duration_seconds",
		Help:    "Render and write duration per generated file",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
	}, []string{"file"})

	// UpstreamRequestsTotal counts calls to Prometheus and Alertmanager by
	// operation and result.
	UpstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promgen_upstream_requests_total",
		Help: "Requests to Prometheus and Alertmanager by operation and result",
	}, []string{"operation", "result"})
)

// Result maps an error to the "ok"/"error" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveWrite records one file write.
func ObserveWrite(file string, start time.Time, err error) {
	FileWriteDuration.WithLabelValues(file).Observe(time.Since(start).Seconds())
	FileWritesTotal.WithLabelValues(file, Result(err)).Inc()
}

// CountEntities adds per-kind created and skipped totals.
func CountEntities(created, skipped map[string]int) {
	for kind, n := range created {
		EntitiesTotal.WithLabelValues(kind, "created").Add(float64(n))
	}
	for kind, n := range skipped {
		EntitiesTotal.WithLabelValues(kind, "skipped").Add(float64(n))
	}
}
