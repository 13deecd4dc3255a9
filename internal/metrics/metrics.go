package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	taskTotal      *prometheus.CounterVec
	taskDuration   *prometheus.HistogramVec
	tasksInFlight  prometheus.Gauge
	rowsParsed     prometheus.Counter
	rowsSkipped    prometheus.Counter
	seriesForecast *prometheus.CounterVec
}

func NewWorkerMetrics() *WorkerMetrics {
	registry := prometheus.NewRegistry()

	taskTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dashboard",
			Subsystem: "worker",
			Name:      "task_total",
			Help:      "Total processed tasks by queue and status.",
		},
		[]string{"queue", "status"},
	)
	taskDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dashboard",
			Subsystem: "worker",
			Name:      "task_duration_seconds",
			Help:      "Task processing duration in seconds by queue and status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"queue", "status"},
	)
	tasksInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dashboard",
			Subsystem: "worker",
			Name:      "tasks_in_flight",
			Help:      "Number of tasks currently being processed.",
		},
	)
	rowsParsed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dashboard",
			Subsystem: "worker",
			Name:      "rows_parsed_total",
			Help:      "Total spreadsheet rows accepted during analysis.",
		},
	)
	rowsSkipped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dashboard",
			Subsystem: "worker",
			Name:      "rows_skipped_total",
			Help:      "Total spreadsheet rows skipped during analysis.",
		},
	)
	seriesForecast := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dashboard",
			Subsystem: "worker",
			Name:      "forecast_series_total",
			Help:      "Total forecast series by outcome.",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(taskTotal, taskDuration, tasksInFlight, rowsParsed, rowsSkipped, seriesForecast)

	return &WorkerMetrics{
		registry:       registry,
		taskTotal:      taskTotal,
		taskDuration:   taskDuration,
		tasksInFlight:  tasksInFlight,
		rowsParsed:     rowsParsed,
		rowsSkipped:    rowsSkipped,
		seriesForecast: seriesForecast,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) TaskStarted() {
	m.tasksInFlight.Inc()
}

func (m *WorkerMetrics) TaskFinished() {
	m.tasksInFlight.Dec()
}

func (m *WorkerMetrics) ObserveTask(queue string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}

	m.taskTotal.WithLabelValues(queue, status).Inc()
	m.taskDuration.WithLabelValues(queue, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) AddRows(parsed, skipped int) {
	m.rowsParsed.Add(float64(parsed))
	m.rowsSkipped.Add(float64(skipped))
}

func (m *WorkerMetrics) AddForecastSeries(forecasted, skipped int) {
	m.seriesForecast.WithLabelValues("forecasted").Add(float64(forecasted))
	m.seriesForecast.WithLabelValues("skipped").Add(float64(skipped))
}
