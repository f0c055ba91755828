package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "connect4",
		Name:      "queue_depth",
		Help:      "Players waiting in the matchmaking queue.",
	})
	PendingConfirmations = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "connect4",
		Name:      "pending_confirmations",
		Help:      "Pairings waiting for both players to confirm.",
	})
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "connect4",
		Name:      "active_sessions",
		Help:      "Games currently in progress.",
	})
	PendingRematches = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "connect4",
		Name:      "pending_rematches",
		Help:      "Finished games waiting for a rematch decision.",
	})
	KnownPlayers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "connect4",
		Name:      "known_players",
		Help:      "Players seen by the engine since start.",
	})
	ActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "connect4",
		Name:      "actions_total",
		Help:      "Inbound player actions by kind.",
	}, []string{"kind"})
	EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "connect4",
		Name:      "events_total",
		Help:      "Outbound events by kind.",
	}, []string{"kind"})
	RateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "connect4",
		Name:      "rate_limited_total",
		Help:      "Inbound actions dropped by the rate limiter.",
	}, []string{"transport"})
	DeliveryErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "connect4",
		Name:      "delivery_errors_total",
		Help:      "Failed outbound deliveries.",
	}, []string{"transport"})
)

func init() {
	prometheus.MustRegister(
		QueueDepth,
		PendingConfirmations,
		ActiveSessions,
		PendingRematches,
		KnownPlayers,
		ActionsTotal,
		EventsTotal,
		RateLimited,
		DeliveryErrors,
	)
}
