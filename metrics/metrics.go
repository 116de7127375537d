// Package metrics 定義服務的 Prometheus 指標
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry 本服務專用的 registry，避免測試間重複註冊
var Registry = prometheus.NewRegistry()

var (
	FeedEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parking",
		Name:      "feed_events_total",
		Help:      "Change-feed events received, by type.",
	}, []string{"type"})

	FeedEventsRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "parking",
		Name:      "feed_events_rejected_total",
		Help:      "Change-feed events ignored because the row failed validation.",
	})

	SnapshotRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parking",
		Name:      "snapshot_refreshes_total",
		Help:      "Full list re-fetches, by result.",
	}, []string{"result"})

	SnapshotLots = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "parking",
		Name:      "snapshot_lots",
		Help:      "Number of lots in the current live snapshot.",
	})

	WebSocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "parking",
		Name:      "websocket_clients",
		Help:      "Connected live-list WebSocket clients.",
	})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parking",
		Name:      "http_requests_total",
		Help:      "HTTP requests, by route and status code.",
	}, []string{"route", "method", "status"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		FeedEvents,
		FeedEventsRejected,
		SnapshotRefreshes,
		SnapshotLots,
		WebSocketClients,
		HTTPRequests,
	)
}

// Handler /metrics endpoint
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
