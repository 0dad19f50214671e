package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsActive tracks live WebSocket connections.
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chitchat_connections_active",
		Help: "Number of live WebSocket connections.",
	})

	// MessagesDispatched counts messages persisted and broadcast.
	MessagesDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chitchat_messages_dispatched_total",
		Help: "Total messages persisted and broadcast to rooms.",
	})

	// DeliveryStatusFailures counts delivery-status rows that could not be
	// written after a successful dispatch.
	DeliveryStatusFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chitchat_delivery_status_failures_total",
		Help: "Total delivery-status writes that failed after dispatch.",
	})

	// RateLimitedFrames counts inbound frames dropped by the per-connection limiter.
	RateLimitedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chitchat_rate_limited_frames_total",
		Help: "Total inbound frames dropped by the per-connection rate limiter.",
	})

	// PresenceTransitions counts online/offline transitions by state.
	PresenceTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chitchat_presence_transitions_total",
		Help: "Total presence transitions grouped by resulting state.",
	}, []string{"state"})
)
