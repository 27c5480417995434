package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "perks"

// PrometheusRecorder implements Recorder on a dedicated Prometheus registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	rateLimited   *prometheus.CounterVec
	logins        *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	transactions  *prometheus.CounterVec
	points        *prometheus.CounterVec
	promotions    *prometheus.CounterVec
	eventsCreated prometheus.Counter
	guestsAdded   prometheus.Counter
}

// NewPrometheus creates a recorder with its own registry, including Go and process collectors.
func NewPrometheus() *PrometheusRecorder {
	p := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),

		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "route", "status"},
		),

		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
			},
			[]string{"method", "route"},
		),

		rateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "rate_limited_total",
				Help:      "Requests rejected by rate limiting.",
			},
			[]string{"scope"},
		),

		logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "logins_total",
				Help:      "Login attempts by result.",
			},
			[]string{"result"},
		),

		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Cache lookups by cache and result.",
			},
			[]string{"cache", "result"},
		),

		transactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "points",
				Name:      "transactions_total",
				Help:      "Transactions created by type.",
			},
			[]string{"type"},
		),

		points: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "points",
				Name:      "moved_total",
				Help:      "Absolute points moved by transaction type.",
			},
			[]string{"type"},
		),

		promotions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "promotions",
				Name:      "changes_total",
				Help:      "Promotion lifecycle changes.",
			},
			[]string{"action"},
		),

		eventsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "created_total",
				Help:      "Events created.",
			},
		),

		guestsAdded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "guests_added_total",
				Help:      "Guests added to events.",
			},
		),
	}

	p.registry.MustRegister(
		p.httpRequests,
		p.httpDuration,
		p.rateLimited,
		p.logins,
		p.cacheLookups,
		p.transactions,
		p.points,
		p.promotions,
		p.eventsCreated,
		p.guestsAdded,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	return p
}

// Handler returns an HTTP handler exposing the registered metrics.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

// ObserveRequest records a handled HTTP request.
func (p *PrometheusRecorder) ObserveRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncRateLimited counts a rejected request.
func (p *PrometheusRecorder) IncRateLimited(scope string) {
	p.rateLimited.WithLabelValues(scope).Inc()
}

// IncLogin counts a login attempt.
func (p *PrometheusRecorder) IncLogin(result string) {
	p.logins.WithLabelValues(result).Inc()
}

// IncAuthCacheHit counts an auth cache hit.
func (p *PrometheusRecorder) IncAuthCacheHit() {
	p.cacheLookups.WithLabelValues("auth", "hit").Inc()
}

// IncAuthCacheMiss counts an auth cache miss.
func (p *PrometheusRecorder) IncAuthCacheMiss() {
	p.cacheLookups.WithLabelValues("auth", "miss").Inc()
}

// IncTransaction counts a created transaction.
func (p *PrometheusRecorder) IncTransaction(txType string) {
	p.transactions.WithLabelValues(txType).Inc()
}

// AddPoints adds the absolute value of points to the moved counter.
func (p *PrometheusRecorder) AddPoints(txType string, points int64) {
	if points < 0 {
		points = -points
	}
	p.points.WithLabelValues(txType).Add(float64(points))
}

// IncPromotionCacheHit counts a promotion cache hit.
func (p *PrometheusRecorder) IncPromotionCacheHit() {
	p.cacheLookups.WithLabelValues("promotion", "hit").Inc()
}

// IncPromotionCacheMiss counts a promotion cache miss.
func (p *PrometheusRecorder) IncPromotionCacheMiss() {
	p.cacheLookups.WithLabelValues("promotion", "miss").Inc()
}

// IncPromotionCreated counts a created promotion.
func (p *PrometheusRecorder) IncPromotionCreated() {
	p.promotions.WithLabelValues("created").Inc()
}

// IncPromotionDeleted counts a deleted promotion.
func (p *PrometheusRecorder) IncPromotionDeleted() {
	p.promotions.WithLabelValues("deleted").Inc()
}

// IncEventCreated counts a created event.
func (p *PrometheusRecorder) IncEventCreated() {
	p.eventsCreated.Inc()
}

// IncEventGuestAdded counts a guest added to an event.
func (p *PrometheusRecorder) IncEventGuestAdded() {
	p.guestsAdded.Inc()
}
