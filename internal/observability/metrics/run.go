package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/exam-audit-engine/internal/core/domain"
)

type RunMetrics struct {
	registry *prometheus.Registry

	runTotal    *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	runInFlight prometheus.Gauge
	queueLag    *prometheus.HistogramVec

	suggestionsTotal   *prometheus.CounterVec
	gateBlocksTotal    *prometheus.CounterVec
	anchorlessClusters *prometheus.CounterVec
	questionsPerRun    *prometheus.HistogramVec
}

func NewRunMetrics(service string) *RunMetrics {
	registry := prometheus.NewRegistry()

	runTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eae",
			Subsystem: "worker",
			Name:      "audit_run_total",
			Help:      "Total executed audit runs by status.",
		},
		[]string{"service", "status"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eae",
			Subsystem: "worker",
			Name:      "audit_run_duration_seconds",
			Help:      "Audit run duration in seconds by status.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "status"},
	)
	runInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "eae",
			Subsystem: "worker",
			Name:      "audit_run_in_flight",
			Help:      "Number of in-flight audit runs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eae",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between run creation and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	suggestionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eae",
			Subsystem: "repeat",
			Name:      "suggestions_total",
			Help:      "Total repeat correct-answer suggestions produced.",
		},
		[]string{"service"},
	)
	gateBlocksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eae",
			Subsystem: "preflight",
			Name:      "gate_blocks_total",
			Help:      "Total questions blocked by a preflight gate.",
		},
		[]string{"service", "gate"},
	)
	anchorlessClusters := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eae",
			Subsystem: "repeat",
			Name:      "anchorless_clusters_total",
			Help:      "Cross-year clusters skipped for lack of a qualifying anchor.",
		},
		[]string{"service"},
	)
	questionsPerRun := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eae",
			Subsystem: "worker",
			Name:      "questions_per_run",
			Help:      "Distribution of dataset sizes per audit run.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"service"},
	)

	registry.MustRegister(runTotal, runDuration, runInFlight, queueLag,
		suggestionsTotal, gateBlocksTotal, anchorlessClusters, questionsPerRun)

	return &RunMetrics{
		registry:           registry,
		runTotal:           runTotal,
		runDuration:        runDuration,
		runInFlight:        runInFlight,
		queueLag:           queueLag,
		suggestionsTotal:   suggestionsTotal,
		gateBlocksTotal:    gateBlocksTotal,
		anchorlessClusters: anchorlessClusters,
		questionsPerRun:    questionsPerRun,
	}
}

func (m *RunMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *RunMetrics) StartRun() {
	m.runInFlight.Inc()
}

func (m *RunMetrics) FinishRun(service string, duration time.Duration, err error) {
	m.runInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.runTotal.WithLabelValues(service, status).Inc()
	m.runDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *RunMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

// ObserveReport records the dataset-wide counters of one completed run.
func (m *RunMetrics) ObserveReport(service string, report *domain.RunReport) {
	if report == nil {
		return
	}
	m.questionsPerRun.WithLabelValues(service).Observe(float64(report.TotalQuestions))
	m.suggestionsTotal.WithLabelValues(service).Add(float64(report.Repeat.Suggestions))
	m.anchorlessClusters.WithLabelValues(service).Add(float64(report.Repeat.AnchorlessClusters))
	m.gateBlocksTotal.WithLabelValues(service, "run_oracle").Add(float64(report.Preflight.OracleSkipped))
	m.gateBlocksTotal.WithLabelValues(service, "auto_change").Add(float64(report.Preflight.AutoChangeBlocked))
	m.gateBlocksTotal.WithLabelValues(service, "manual_review").Add(float64(report.Preflight.ForcedReview))
}
