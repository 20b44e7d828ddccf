// Package observability holds domain metrics and OpenTelemetry tracing setup.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RelationToggles counts membership changes by relation and outcome (added, removed, rejected).
	RelationToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcade_relation_toggles_total",
		Help: "Total number of relation membership changes",
	}, []string{"relation", "outcome"})

	// RelationRetries counts toggle attempts repeated after losing a concurrent race.
	RelationRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcade_relation_retries_total",
		Help: "Total number of relation toggle retries caused by concurrent writers",
	}, []string{"relation"})

	// CatalogRequests counts game catalog lookups by endpoint and result (hit, miss, error).
	CatalogRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcade_catalog_requests_total",
		Help: "Total number of game catalog lookups",
	}, []string{"endpoint", "result"})

	// CatalogLatency records upstream catalog latency.
	CatalogLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arcade_catalog_upstream_latency_seconds",
		Help:    "Latency of upstream game catalog requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	// AvatarUploads counts avatar uploads by result.
	AvatarUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcade_avatar_uploads_total",
		Help: "Total number of avatar uploads",
	}, []string{"result"})

	// WebSocketEventsTotal counts feed events fanned out to clients by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcade_websocket_events_total",
		Help: "Total feed events delivered to WebSocket hubs by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arcade_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)
