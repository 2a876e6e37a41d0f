// Package metrics collects Prometheus counters for the API and serves them.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by services and middleware
type Recorder interface {
	RecordLikeCreated()
	RecordDuplicateLike()
	RecordMessageSent()
	RecordMessagePurged()
	RecordDiscoveryQuery()
	RecordHTTPStatus(statusCode int)
	RecordRequestDuration(route string, d time.Duration)
}

// Nop discards every observation
type Nop struct{}

func (Nop) RecordLikeCreated() {}
func (Nop) RecordDuplicateLike() {}
func (Nop) RecordMessageSent() {}
func (Nop) RecordMessagePurged() {}
func (Nop) RecordDiscoveryQuery() {}
func (Nop) RecordHTTPStatus(int) {}
func (Nop) RecordRequestDuration(string, time.Duration) {}

// Collector records metrics into a Prometheus registry
type Collector struct {
	likesCreated    prometheus.Counter
	duplicateLikes  prometheus.Counter
	messagesSent    prometheus.Counter
	messagesPurged  prometheus.Counter
	discoveryQuery  prometheus.Counter
	httpStatus      *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics on reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		likesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dating_likes_created_total",
			Help: "Number of likes created",
		}),
		duplicateLikes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dating_likes_duplicate_total",
			Help: "Number of rejected duplicate likes",
		}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dating_messages_sent_total",
			Help: "Number of messages sent",
		}),
		messagesPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dating_messages_purged_total",
			Help: "Number of messages removed after both sides deleted them",
		}),
		discoveryQuery: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dating_discovery_queries_total",
			Help: "Number of discovery feed queries",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dating_http_responses_total",
			Help: "HTTP responses by status code",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dating_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		c.likesCreated,
		c.duplicateLikes,
		c.messagesSent,
		c.messagesPurged,
		c.discoveryQuery,
		c.httpStatus,
		c.requestDuration,
	)
	return c
}

func (c *Collector) RecordLikeCreated() { c.likesCreated.Inc() }
func (c *Collector) RecordDuplicateLike() { c.duplicateLikes.Inc() }
func (c *Collector) RecordMessageSent() { c.messagesSent.Inc() }
func (c *Collector) RecordMessagePurged() { c.messagesPurged.Inc() }
func (c *Collector) RecordDiscoveryQuery() { c.discoveryQuery.Inc() }

// RecordHTTPStatus counts one response with the given status
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestDuration observes the latency of one request
func (c *Collector) RecordRequestDuration(route string, d time.Duration) {
	c.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Handler returns the scrape handler for gatherer
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
