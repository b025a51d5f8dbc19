// Package metrics exposes Prometheus collectors for zipline.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesTotal                 *prometheus.CounterVec
	pageBytesTotal             *prometheus.CounterVec
	extractionsTotal           *prometheus.CounterVec
	headlessPromotionsTotal    *prometheus.CounterVec
	judgeUpdatesTotal          *prometheus.CounterVec
	judgeOutcomesTotal         *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	rateLimitDelaysSeconds     *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zipline_pages_total",
				Help: "Total number of pages fetched, labeled by page kind and status.",
			},
			[]string{"kind", "status"},
		)

		pageBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zipline_page_bytes_total",
				Help: "Total number of bytes fetched, labeled by page kind.",
			},
			[]string{"kind"},
		)

		extractionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zipline_extractions_total",
				Help: "Total number of record extractions, labeled by page kind and error class.",
			},
			[]string{"kind", "class"},
		)

		headlessPromotionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zipline_headless_promotions_total",
				Help: "Total number of pages re-fetched through the headless browser.",
			},
			[]string{"kind"},
		)

		judgeUpdatesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zipline_judge_updates_total",
				Help: "Total number of judge progress updates merged, labeled by result.",
			},
			[]string{"result"},
		)

		judgeOutcomesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zipline_judge_outcomes_total",
				Help: "Total number of terminal judge outcomes, labeled by result.",
			},
			[]string{"result"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "zipline_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage counts one page fetch.
func ObservePage(kind, status string, bytesFetched int) {
	Init()
	pagesTotal.WithLabelValues(kind, status).Inc()
	if bytesFetched > 0 {
		pageBytesTotal.WithLabelValues(kind).Add(float64(bytesFetched))
	}
}

// ObserveExtraction counts one extraction attempt by error class.
func ObserveExtraction(kind, class string) {
	Init()
	extractionsTotal.WithLabelValues(kind, class).Inc()
}

// ObserveHeadlessPromotion counts a headless re-fetch.
func ObserveHeadlessPromotion(kind string) {
	Init()
	headlessPromotionsTotal.WithLabelValues(kind).Inc()
}

// ObserveJudgeUpdate counts a merged progress update.
func ObserveJudgeUpdate(result string) {
	Init()
	judgeUpdatesTotal.WithLabelValues(result).Inc()
}

// ObserveJudgeOutcome counts a terminal result.
func ObserveJudgeOutcome(result string) {
	Init()
	judgeOutcomesTotal.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}
