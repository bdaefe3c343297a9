package providers

import (
	"cgd/internal/guard"
	"cgd/internal/structures"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	AddEventsAccepted(n int)
	AddEventsDropped(n int)
	IncConsentWrites()
	IncCaptchaVerifications(provider, outcome string)
	IncRateLimited(endpoint string)
	AddEventsArchived(n int)
}

type MetricsProvider struct {
	requestsTotal        *prometheus.CounterVec
	requestDuration      *prometheus.HistogramVec
	cacheHits            prometheus.Counter
	cacheMisses          prometheus.Counter
	eventsAccepted       prometheus.Counter
	eventsDropped        prometheus.Counter
	consentWrites        prometheus.Counter
	captchaVerifications *prometheus.CounterVec
	rateLimited          *prometheus.CounterVec
	eventsArchived       prometheus.Counter
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits()   { m.cacheHits.Inc() }
func (m *MetricsProvider) IncCacheMisses() { m.cacheMisses.Inc() }

func (m *MetricsProvider) AddEventsAccepted(n int) { m.eventsAccepted.Add(float64(n)) }
func (m *MetricsProvider) AddEventsDropped(n int)  { m.eventsDropped.Add(float64(n)) }
func (m *MetricsProvider) IncConsentWrites()       { m.consentWrites.Inc() }

func (m *MetricsProvider) IncCaptchaVerifications(provider, outcome string) {
	m.captchaVerifications.WithLabelValues(provider, outcome).Inc()
}

func (m *MetricsProvider) IncRateLimited(endpoint string) {
	m.rateLimited.WithLabelValues(endpoint).Inc()
}

func (m *MetricsProvider) AddEventsArchived(n int) { m.eventsArchived.Add(float64(n)) }

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config, limiter guard.LimiterInterface) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	m := &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cgd_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cgd_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cgd_site_cache_hits_total",
			Help: "Total number of site lookup cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cgd_site_cache_misses_total",
			Help: "Total number of site lookup cache misses",
		}),

		eventsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cgd_events_accepted_total",
			Help: "Telemetry events admitted by the consent filter",
		}),

		eventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cgd_events_dropped_total",
			Help: "Telemetry events dropped by the consent filter",
		}),

		consentWrites: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cgd_consent_writes_total",
			Help: "Consent records written",
		}),

		captchaVerifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cgd_captcha_verifications_total",
			Help: "Captcha verification attempts by provider and outcome",
		}, []string{"provider", "outcome"}),

		rateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cgd_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}, []string{"endpoint"}),

		eventsArchived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cgd_events_archived_total",
			Help: "Events moved to cold storage by the archiver",
		}),
	}

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "cgd_rate_buckets",
		Help: "Current number of live rate limit buckets",
	}, func() float64 {
		return float64(limiter.Len())
	})

	return m
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) AddEventsAccepted(_ int)                          {}
func (n *noopMetrics) AddEventsDropped(_ int)                           {}
func (n *noopMetrics) IncConsentWrites()                                {}
func (n *noopMetrics) IncCaptchaVerifications(_, _ string)              {}
func (n *noopMetrics) IncRateLimited(_ string)                          {}
func (n *noopMetrics) AddEventsArchived(_ int)                          {}
