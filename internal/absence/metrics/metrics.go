package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks absence evaluation runs.
type Metrics struct {
	Runs               *prometheus.CounterVec
	Absentees          prometheus.Counter
	FollowUpsTriggered prometheus.Counter
	RunDuration        prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Runs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "flock_absence_runs_total",
			Help: "Absence evaluations, by result (evaluated, already_evaluated, failed)",
		}, []string{"result"}),
		Absentees: promauto.NewCounter(prometheus.CounterOpts{
			Name: "flock_absence_absentees_total",
			Help: "Expected members recorded absent",
		}),
		FollowUpsTriggered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "flock_absence_follow_ups_triggered_total",
			Help: "Follow-up dispatches caused by consecutive absences",
		}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "flock_absence_run_duration_seconds",
			Help:    "Time to evaluate one service occurrence",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementRun(result string) { m.Runs.WithLabelValues(result).Inc() }

func (m *Metrics) ObserveRun(start time.Time, absentees, followUps int) {
	m.RunDuration.Observe(time.Since(start).Seconds())
	m.Absentees.Add(float64(absentees))
	m.FollowUpsTriggered.Add(float64(followUps))
}
