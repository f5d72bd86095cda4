// Package metrics registers the daemon's Prometheus collectors. All
// counters are registered once at package init; callers record through the
// exported helpers so the rest of the code never touches prometheus types.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aiva",
		Name:      "turns_total",
		Help:      "Conversation turns handled, by outcome.",
	}, []string{"outcome"})

	llmCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aiva",
		Name:      "llm_calls_total",
		Help:      "Language model calls, by purpose and status.",
	}, []string{"purpose", "status"})

	validationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aiva",
		Name:      "parameter_validation_failures_total",
		Help:      "Extracted parameter values rejected by type validation.",
	})

	plansBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aiva",
		Name:      "plans_built_total",
		Help:      "Execution plans constructed.",
	})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "aiva",
		Name:      "active_sessions",
		Help:      "Sessions currently tracked by the orchestrator.",
	})
)

func Turn(outcome string)            { turnsTotal.WithLabelValues(outcome).Inc() }
func LLMCall(purpose, status string) { llmCalls.WithLabelValues(purpose, status).Inc() }
func ValidationFailure()             { validationFailures.Inc() }
func PlanBuilt()                     { plansBuilt.Inc() }
func SetActiveSessions(n int)        { activeSessions.Set(float64(n)) }
