package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Turn metrics
	TurnsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steuerpilot_turns_total",
			Help: "Total number of processed conversation turns",
		},
		[]string{"status"}, // status: success|error
	)

	TurnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "steuerpilot_turn_duration_seconds",
			Help:    "End-to-end turn processing duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"agent_type"},
	)

	// Router metrics
	RouterPicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steuerpilot_router_picks_total",
			Help: "Total number of router agent picks",
		},
		[]string{"agent", "source"}, // source: rule|llm|fallback
	)

	// Agent metrics
	AgentCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steuerpilot_agent_calls_total",
			Help: "Total number of specialist agent executions",
		},
		[]string{"agent", "status"}, // status: success|error|timeout
	)

	AgentLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "steuerpilot_agent_latency_seconds",
			Help:    "Specialist agent execution latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"agent"},
	)

	// LLM gateway metrics
	ProviderCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steuerpilot_provider_calls_total",
			Help: "Total number of language model provider calls",
		},
		[]string{"provider", "status"},
	)

	// Synthesis metrics
	SynthesisFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "steuerpilot_synthesis_fallbacks_total",
			Help: "Total number of deterministic synthesis fallbacks",
		},
	)

	// Pending-expense metrics
	PendingExpenses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steuerpilot_pending_expenses_total",
			Help: "Pending expense slot transitions",
		},
		[]string{"transition"}, // transition: opened|confirmed|overwritten
	)
)

// Init registers all metrics with Prometheus
func Init() {
	prometheus.MustRegister(TurnsProcessed)
	prometheus.MustRegister(TurnDuration)
	prometheus.MustRegister(RouterPicks)
	prometheus.MustRegister(AgentCalls)
	prometheus.MustRegister(AgentLatency)
	prometheus.MustRegister(ProviderCalls)
	prometheus.MustRegister(SynthesisFallbacks)
	prometheus.MustRegister(PendingExpenses)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAgentCall records one specialist execution
func RecordAgentCall(agent string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	AgentCalls.WithLabelValues(agent, status).Inc()
	AgentLatency.WithLabelValues(agent).Observe(duration.Seconds())
}

// RecordTurn records one processed turn
func RecordTurn(agentType string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	TurnsProcessed.WithLabelValues(status).Inc()
	TurnDuration.WithLabelValues(agentType).Observe(duration.Seconds())
}
