package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cron job outcomes.
const (
	JobSucceeded = "success"
	JobFailed    = "failure"
	JobTimedOut  = "timeout"
)

// CronJobMetrics tracks maintenance job runs and cycles skipped because
// another worker held the lock.
type CronJobMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	skipped  prometheus.Counter
}

func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	m := &CronJobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_job_runs_total",
			Help: "Cron job executions by job and outcome.",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cron_job_duration_seconds",
			Help:    "Wall time of cron job executions.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15, 30, 60},
		}, []string{"job"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cron_cycles_skipped_total",
			Help: "Cycles skipped because the cron lock was held elsewhere.",
		}),
	}
	reg.MustRegister(m.runs, m.duration, m.skipped)
	return m
}

// JobRun records one execution of job.
func (c *CronJobMetrics) JobRun(job, outcome string, elapsed time.Duration) {
	if c == nil || c.runs == nil {
		return
	}
	job = labelOrUnknown(job)
	c.runs.WithLabelValues(job, labelOrUnknown(outcome)).Inc()
	c.duration.WithLabelValues(job).Observe(elapsed.Seconds())
}

func (c *CronJobMetrics) CycleSkipped() {
	if c == nil || c.skipped == nil {
		return
	}
	c.skipped.Inc()
}
