package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	apiRequestsTotal       *prometheus.CounterVec
	apiLatencySeconds      *prometheus.HistogramVec
	apiErrorsTotal         *prometheus.CounterVec
	judgeVerdictsTotal     *prometheus.CounterVec
	judgePollRounds        prometheus.Histogram
	judgeSideEffectFailure *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API and the grading pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prepcode_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "prepcode_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prepcode_api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		judgeVerdictsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prepcode_judge_verdicts_total",
			Help: "Final submission verdicts by language and status.",
		}, []string{"language", "status"})

		judgePollRounds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "prepcode_judge_poll_rounds",
			Help:    "Number of polling rounds needed before results were terminal.",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 30},
		})

		judgeSideEffectFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prepcode_judge_side_effect_failures_total",
			Help: "Failures applying post-verdict side effects.",
		}, []string{"effect"})

		prometheus.MustRegister(apiRequestsTotal, apiLatencySeconds, apiErrorsTotal, judgeVerdictsTotal, judgePollRounds, judgeSideEffectFailure)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// JudgeVerdicts exposes the counter of final verdicts.
func JudgeVerdicts() *prometheus.CounterVec {
	RegisterMetrics()
	return judgeVerdictsTotal
}

// JudgePollRounds exposes the histogram of polling rounds per submission.
func JudgePollRounds() prometheus.Histogram {
	RegisterMetrics()
	return judgePollRounds
}

// JudgeSideEffectFailures exposes the counter of failed post-verdict updates.
func JudgeSideEffectFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return judgeSideEffectFailure
}
