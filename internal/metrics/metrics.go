package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chattwins_messages_inserted_total",
		Help: "Messages written to the messages table.",
	})

	RealtimeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chattwins_realtime_connections",
		Help: "Currently open realtime websocket connections.",
	})

	RealtimeDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chattwins_realtime_dropped_total",
		Help: "Realtime clients dropped for not keeping up.",
	})

	HeartbeatsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chattwins_heartbeats_written_total",
		Help: "Presence heartbeat upserts to user_status.",
	})
)
