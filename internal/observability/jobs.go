package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics exposes collectors for background jobs.
type JobMetrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var (
	defaultJobsOnce sync.Once
	defaultJobs     *JobMetrics
)

// NewJobMetrics registers the job collectors. A nil registerer uses the
// process-wide default registerer once.
func NewJobMetrics(registerer prometheus.Registerer) *JobMetrics {
	if registerer == nil {
		defaultJobsOnce.Do(func() {
			defaultJobs = buildJobMetrics(prometheus.DefaultRegisterer)
		})
		return defaultJobs
	}
	return buildJobMetrics(registerer)
}

// Tracker instruments one job run.
type Tracker struct {
	metrics *JobMetrics
	job     string
	start   time.Time
}

// Track starts a tracker for job.
func (m *JobMetrics) Track(job string) *Tracker {
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End records the outcome and returns err untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

func buildJobMetrics(registerer prometheus.Registerer) *JobMetrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shopdesk_jobs_total",
		Help: "Job executions by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shopdesk_jobs_failures_total",
		Help: "Failed job executions.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shopdesk_job_duration_seconds",
		Help:    "Job execution time in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	registerer.MustRegister(runs, failures, duration)
	return &JobMetrics{runs: runs, failures: failures, duration: duration}
}
