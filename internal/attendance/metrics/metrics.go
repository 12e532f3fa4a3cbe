package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the check-in gate.
type Metrics struct {
	CheckInsAccepted  *prometheus.CounterVec
	CheckInsRejected  *prometheus.CounterVec
	CheckOuts         prometheus.Counter
	CheckInDuration   prometheus.Histogram
	BulkCheckInMember prometheus.Histogram
}

// New creates a new Metrics instance with all attendance metrics registered.
func New() *Metrics {
	return &Metrics{
		CheckInsAccepted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "flock_check_ins_accepted_total",
			Help: "Check-ins committed, by method and status",
		}, []string{"method", "status"}),
		CheckInsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "flock_check_ins_rejected_total",
			Help: "Check-ins rejected, by error code",
		}, []string{"code"}),
		CheckOuts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "flock_check_outs_total",
			Help: "Total number of check-outs recorded",
		}),
		CheckInDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "flock_check_in_duration_seconds",
			Help:    "Duration of SubmitCheckIn operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		BulkCheckInMember: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "flock_bulk_check_in_size",
			Help:    "Members submitted per bulk check-in",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		}),
	}
}

func (m *Metrics) IncrementAccepted(method, status string) {
	m.CheckInsAccepted.WithLabelValues(method, status).Inc()
}

func (m *Metrics) IncrementRejected(code string) {
	m.CheckInsRejected.WithLabelValues(code).Inc()
}

func (m *Metrics) IncrementCheckOut() {
	m.CheckOuts.Inc()
}

// ObserveCheckIn records the duration of a SubmitCheckIn operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveCheckIn(start time.Time) {
	m.CheckInDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveBulkSize(n int) {
	m.BulkCheckInMember.Observe(float64(n))
}
