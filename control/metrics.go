// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus collectors for the game loop.

package control

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "arena"

// Metrics groups the collectors updated by the loop goroutine.
type Metrics struct {
	Sessions        prometheus.Gauge
	Alive           prometheus.Gauge
	Messages        *prometheus.CounterVec
	ProtocolErrors  *prometheus.CounterVec
	BroadcastSent   *prometheus.CounterVec
	BroadcastFailed *prometheus.CounterVec
	Kills           prometheus.Counter
	Annihilations   prometheus.Counter
	Accepted        prometheus.Counter
	AcceptFailures  prometheus.Counter
	Refused         prometheus.Counter
	Disconnects     prometheus.Counter
	Ticks           prometheus.Counter
	PollErrors      prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "sessions",
			Help:      "Occupied session slots.",
		}),
		Alive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "alive_players",
			Help:      "Players currently spawned and alive.",
		}),
		Messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "messages_total",
			Help:      "Client frames dispatched, by kind.",
		}, []string{"kind"}),
		ProtocolErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "protocol_errors_total",
			Help:      "Inbound frames rejected, by reason.",
		}, []string{"reason"}),
		BroadcastSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "broadcast_deliveries_total",
			Help:      "Frames fully written to a target, by kind.",
		}, []string{"kind"}),
		BroadcastFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "broadcast_failures_total",
			Help:      "Targets that did not take a frame within the retry budget, by kind.",
		}, []string{"kind"}),
		Kills: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "kills_total",
			Help:      "Players eliminated by chain reactions.",
		}),
		Annihilations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "annihilations_total",
			Help:      "Self-annihilations triggered.",
		}),
		Accepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "connections_accepted_total",
			Help:      "Connections given a session slot.",
		}),
		AcceptFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "accept_failures_total",
			Help:      "Accept attempts abandoned after retries.",
		}),
		Refused: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "connections_refused_total",
			Help:      "Connections closed because the table was full.",
		}),
		Disconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "disconnects_total",
			Help:      "Sessions released after hangup or read failure.",
		}),
		Ticks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "map_updates_total",
			Help:      "Server map updates broadcast.",
		}),
		PollErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "poll_errors_total",
			Help:      "Readiness waits that failed and were retried.",
		}),
	}
}
