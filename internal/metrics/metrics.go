// Package metrics collects prometheus metrics for publishing transitions,
// recurrence expansion and the calendar feed.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector is nil-safe: every method on a nil *Collector is a no-op, so
// packages can take one optionally.
type Collector struct {
	transitions    *prometheus.CounterVec
	expansion      prometheus.Histogram
	occurrences    prometheus.Counter
	excludedEvents *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpLatency    prometheus.Histogram
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "almanac_publishing_transitions_total",
			Help: "Publishing transitions by action and outcome.",
		}, []string{"action", "outcome"}),
		expansion: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "almanac_recurrence_expansion_seconds",
			Help:    "Time spent expanding recurrence rules.",
			Buckets: prometheus.DefBuckets,
		}),
		occurrences: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "almanac_recurrence_occurrences_total",
			Help: "Occurrences produced by recurrence expansion.",
		}),
		excludedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "almanac_calendar_excluded_events_total",
			Help: "Events left out of calendar feeds because their type has no registered plugin.",
		}, []string{"type_id"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "almanac_calendar_cache_lookups_total",
			Help: "Calendar feed cache lookups by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "almanac_http_requests_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "almanac_http_request_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.transitions,
		c.expansion,
		c.occurrences,
		c.excludedEvents,
		c.cacheLookups,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

func (c *Collector) ObserveTransition(action, outcome string) {
	if c == nil {
		return
	}
	c.transitions.WithLabelValues(action, outcome).Inc()
}

func (c *Collector) ObserveExpansion(d time.Duration, produced int) {
	if c == nil {
		return
	}
	c.expansion.Observe(d.Seconds())
	c.occurrences.Add(float64(produced))
}

func (c *Collector) AddExcludedEvents(typeID, count int) {
	if c == nil {
		return
	}
	c.excludedEvents.WithLabelValues(strconv.Itoa(typeID)).Add(float64(count))
}

func (c *Collector) ObserveCacheLookup(hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}

func (c *Collector) ObserveHTTP(statusCode int, d time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	c.httpLatency.Observe(d.Seconds())
}

// Handler serves the gatherer's metrics for prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
