package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ChallengeEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenge_events_total",
			Help: "Challenge state transitions by event",
		},
		[]string{"event"},
	)
	NotificationsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dispatched_total",
			Help: "Notification dispatch attempts by outcome",
		},
		[]string{"outcome"},
	)
	ChatConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_connections",
			Help: "Open chat websocket connections",
		},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(ChallengeEvents, NotificationsDispatched, ChatConnections)
}
