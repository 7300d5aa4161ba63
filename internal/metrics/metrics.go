// Package metrics exposes Prometheus instrumentation for the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MappingsCreated counts successful short URL allocations.
	MappingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shortly_mappings_created_total",
		Help: "Total number of short URL mappings created.",
	})

	// Redirects counts successfully served redirects.
	Redirects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shortly_redirects_total",
		Help: "Total number of redirects served.",
	})

	// RedirectMisses counts redirect lookups that resolved to nothing
	// (missing, inactive or expired codes).
	RedirectMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shortly_redirect_misses_total",
		Help: "Total number of redirect lookups that found no active mapping.",
	})

	// AccessWritesFailed counts access-log writes dropped after all retries.
	AccessWritesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shortly_access_writes_failed_total",
		Help: "Total number of access records dropped after exhausting retries.",
	})

	// AccessQueueDepth tracks the async recorder's queue occupancy.
	AccessQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shortly_access_queue_depth",
		Help: "Current number of access records waiting to be written.",
	})
)
