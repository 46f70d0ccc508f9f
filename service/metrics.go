package service

import "github.com/prometheus/client_golang/prometheus"

var (
	analysisRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_runs_total",
			Help: "Total number of analysis runs by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	analysisFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_fallbacks_total",
			Help: "Total number of primary->secondary analysis fallbacks by reason",
		},
		[]string{"reason"},
	)

	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Total number of webhook events by type and outcome",
		},
		[]string{"event_type", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(analysisRunsTotal)
	prometheus.MustRegister(analysisFallbacksTotal)
	prometheus.MustRegister(webhookEventsTotal)
}
