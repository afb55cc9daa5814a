// internal/metrics/collector.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pumpbundle"

// Collector управляет набором метрик бота. Методы безопасны для nil-получателя.
type Collector struct {
	submissions        *prometheus.CounterVec
	submissionDuration *prometheus.HistogramVec
	uploads            *prometheus.CounterVec
	iterations         *prometheus.CounterVec
	activeSchedules    prometheus.Gauge
}

// NewCollector создает коллектор и регистрирует метрики в reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Submitted transactions and bundles by mode and status",
		}, []string{"mode", "status"}),
		submissionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_duration_seconds",
			Help:      "Time spent submitting to the RPC node or relay",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metadata_uploads_total",
			Help:      "Token metadata uploads by status",
		}, []string{"status"}),
		iterations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_iterations_total",
			Help:      "Recurring purchase iterations by status",
		}, []string{"status"}),
		activeSchedules: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_schedules",
			Help:      "Currently running recurring purchases",
		}),
	}

	reg.MustRegister(c.submissions, c.submissionDuration, c.uploads, c.iterations, c.activeSchedules)
	return c
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}

// ObserveSubmission записывает результат и длительность отправки.
func (c *Collector) ObserveSubmission(mode string, success bool, d time.Duration) {
	if c == nil {
		return
	}
	c.submissions.WithLabelValues(mode, status(success)).Inc()
	c.submissionDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// ObserveUpload записывает результат загрузки метаданных.
func (c *Collector) ObserveUpload(success bool) {
	if c == nil {
		return
	}
	c.uploads.WithLabelValues(status(success)).Inc()
}

// ObserveIteration записывает результат итерации расписания.
func (c *Collector) ObserveIteration(success bool) {
	if c == nil {
		return
	}
	c.iterations.WithLabelValues(status(success)).Inc()
}

// SetActiveSchedules обновляет число активных расписаний.
func (c *Collector) SetActiveSchedules(n int) {
	if c == nil {
		return
	}
	c.activeSchedules.Set(float64(n))
}
