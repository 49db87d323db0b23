package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	leasePlanner = "lease_planner"

	// Contract metrics
	contractTransitionsTotal = "contract_transitions_total"

	// Scrape metrics
	scrapeJobsTotal = "scrape_jobs_total"

	// Labels
	actionLabel = "action"
	resultLabel = "result"
	statusLabel = "status"
	reasonLabel = "reason"
)

// Transition results
const (
	TransitionApplied   = "applied"
	TransitionForbidden = "forbidden"
	TransitionConflict  = "conflict"
)

var contractTransitionsTotalLabels = []string{
	actionLabel,
	resultLabel,
}

var scrapeJobsTotalLabels = []string{
	statusLabel,
	reasonLabel,
}

/**
* Metrics definition
**/
var contractTransitionsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: leasePlanner,
		Name:      contractTransitionsTotal,
		Help:      "number of contract transitions requested, by action and result",
	},
	contractTransitionsTotalLabels,
)

var scrapeJobsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: leasePlanner,
		Name:      scrapeJobsTotal,
		Help:      "number of scrape jobs that reached a terminal status",
	},
	scrapeJobsTotalLabels,
)

func IncreaseContractTransitionsMetric(action, result string) {
	labels := prometheus.Labels{
		actionLabel: action,
		resultLabel: result,
	}
	contractTransitionsTotalMetric.With(labels).Inc()
}

// IncreaseScrapeJobsMetric counts a finished job. reason is empty for completed jobs.
func IncreaseScrapeJobsMetric(status, reason string) {
	labels := prometheus.Labels{
		statusLabel: status,
		reasonLabel: reason,
	}
	scrapeJobsTotalMetric.With(labels).Inc()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(contractTransitionsTotalMetric)
	prometheus.MustRegister(scrapeJobsTotalMetric)
	prometheus.MustRegister(totalUniqueUsersPerWeekMetric)
}
