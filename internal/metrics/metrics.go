// Package metrics collects Prometheus metrics for the API, the outbound
// clients and the expiry notifier.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the rest of the code depends on. Tests pass Noop{}.
type Recorder interface {
	RecordHTTPRequest(method, route string, status int, d time.Duration)
	RecordRecipeAPICall(endpoint string, status int, d time.Duration)
	RecordRecipeCache(hit bool)
	RecordFunctionCall(function string, ok bool, d time.Duration)
	RecordPush(sent, failed int)
	RecordExpiryNotified(count int)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
	recipeCalls     *prometheus.CounterVec
	recipeLatency   *prometheus.HistogramVec
	recipeCache     *prometheus.CounterVec
	functionCalls   *prometheus.CounterVec
	functionLatency *prometheus.HistogramVec
	pushSent        prometheus.Counter
	pushFailed      prometheus.Counter
	expiryNotified  prometheus.Counter
}

// NewCollector creates the metrics and registers them on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kitchi_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kitchi_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		recipeCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kitchi_recipe_api_requests_total",
			Help: "Recipe API calls by endpoint and status code (0 = transport error).",
		}, []string{"endpoint", "status"}),
		recipeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kitchi_recipe_api_latency_seconds",
			Help:    "Recipe API latency by endpoint.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		recipeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kitchi_recipe_cache_lookups_total",
			Help: "Recipe detail cache lookups by result.",
		}, []string{"result"}),
		functionCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kitchi_function_calls_total",
			Help: "Serverless function calls by function and outcome.",
		}, []string{"function", "outcome"}),
		functionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kitchi_function_latency_seconds",
			Help:    "Serverless function latency.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60},
		}, []string{"function"}),
		pushSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kitchi_push_sent_total",
			Help: "Push messages accepted by the push service.",
		}),
		pushFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kitchi_push_failed_total",
			Help: "Push messages rejected by the push service.",
		}),
		expiryNotified: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kitchi_expiry_items_notified_total",
			Help: "Pantry items users were notified about.",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.recipeCalls,
		c.recipeLatency,
		c.recipeCache,
		c.functionCalls,
		c.functionLatency,
		c.pushSent,
		c.pushFailed,
		c.expiryNotified,
	)
	return c
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(route).Observe(d.Seconds())
}

func (c *Collector) RecordRecipeAPICall(endpoint string, status int, d time.Duration) {
	c.recipeCalls.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	c.recipeLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (c *Collector) RecordRecipeCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.recipeCache.WithLabelValues(result).Inc()
}

func (c *Collector) RecordFunctionCall(function string, ok bool, d time.Duration) {
	outcome := "error"
	if ok {
		outcome = "ok"
	}
	c.functionCalls.WithLabelValues(function, outcome).Inc()
	c.functionLatency.WithLabelValues(function).Observe(d.Seconds())
}

func (c *Collector) RecordPush(sent, failed int) {
	c.pushSent.Add(float64(sent))
	c.pushFailed.Add(float64(failed))
}

func (c *Collector) RecordExpiryNotified(count int) {
	c.expiryNotified.Add(float64(count))
}

// Handler serves the registry in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Noop discards everything.
type Noop struct{}

func (Noop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (Noop) RecordRecipeAPICall(string, int, time.Duration) {}
func (Noop) RecordRecipeCache(bool) {}
func (Noop) RecordFunctionCall(string, bool, time.Duration) {}
func (Noop) RecordPush(int, int) {}
func (Noop) RecordExpiryNotified(int) {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Noop{}
)
