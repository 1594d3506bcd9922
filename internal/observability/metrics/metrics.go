package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "serverhub_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "serverhub_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	routerDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "serverhub_router_decisions_total",
		Help: "Gatekeeper decisions by disposition",
	}, []string{"disposition"})

	pageRenders = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "serverhub_page_renders_total",
		Help: "Public page lookups by result",
	}, []string{"result"})

	sectionRenders = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "serverhub_section_renders_total",
		Help: "Section render attempts by type and result",
	}, []string{"type", "result"})

	sectionRenderFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "serverhub_section_render_failures_total",
		Help: "Sections dropped because their renderer failed",
	}, []string{"type"})

	authEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "serverhub_auth_events_total",
		Help: "Authentication events by action and result",
	}, []string{"action", "result"})

	serversTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "serverhub_servers",
		Help: "Number of servers in the tenant directory",
	})

	serversPublished = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "serverhub_servers_published",
		Help: "Number of servers with a published page",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// ObserveRouterDecision counts one gatekeeper decision.
func ObserveRouterDecision(disposition string) {
	routerDecisions.WithLabelValues(disposition).Inc()
}

// ObservePageRender counts a public page lookup: ok, not_found, unavailable or error.
func ObservePageRender(result string) {
	pageRenders.WithLabelValues(result).Inc()
}

// ObserveSectionRender counts a section render attempt. sectionType must be
// a registered renderer key or render.UnknownType.
func ObserveSectionRender(sectionType, result string) {
	sectionRenders.WithLabelValues(sectionType, result).Inc()
	if result == "error" {
		sectionRenderFailures.WithLabelValues(sectionType).Inc()
	}
}

// ObserveAuth counts a register, login or logout outcome.
func ObserveAuth(action, result string) {
	authEvents.WithLabelValues(action, result).Inc()
}

// SetServerCounts updates the tenant directory gauges
func SetServerCounts(total, published int) {
	serversTotal.Set(float64(total))
	serversPublished.Set(float64(published))
}
