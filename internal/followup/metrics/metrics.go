package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for follow-up tasks.
type Metrics struct {
	TasksOpened    prometheus.Counter
	TasksUpdated   prometheus.Counter
	TasksClosed    *prometheus.CounterVec
	ContactAttempt *prometheus.CounterVec
	Unassigned     prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		TasksOpened: promauto.NewCounter(prometheus.CounterOpts{
			Name: "flock_follow_up_tasks_opened_total",
			Help: "Absence follow-up tasks created",
		}),
		TasksUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "flock_follow_up_tasks_updated_total",
			Help: "Open absence follow-up tasks refreshed by a later absence",
		}),
		TasksClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "flock_follow_up_tasks_closed_total",
			Help: "Follow-up tasks closed, by final status",
		}, []string{"status"}),
		ContactAttempt: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "flock_follow_up_contact_attempts_total",
			Help: "Contact attempts logged, by outcome",
		}, []string{"outcome"}),
		Unassigned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "flock_follow_up_tasks_unassigned_total",
			Help: "Tasks created with no coordinator available",
		}),
	}
}

func (m *Metrics) IncrementOpened()                { m.TasksOpened.Inc() }
func (m *Metrics) IncrementUpdated()               { m.TasksUpdated.Inc() }
func (m *Metrics) IncrementClosed(status string)   { m.TasksClosed.WithLabelValues(status).Inc() }
func (m *Metrics) IncrementContact(outcome string) { m.ContactAttempt.WithLabelValues(outcome).Inc() }
func (m *Metrics) IncrementUnassigned()            { m.Unassigned.Inc() }
