package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks walk-in check-ins and visitor conversions.
type Metrics struct {
	QuickCheckIns   *prometheus.CounterVec
	InvitesSent     prometheus.Counter
	Conversions     prometheus.Counter
	MigratedEvents  prometheus.Counter
	ConversionFails *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		QuickCheckIns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "flock_visitor_quick_check_ins_total",
			Help: "Quick check-ins by resolved identity path",
		}, []string{"path"}),
		InvitesSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "flock_visitor_invites_sent_total",
			Help: "Registration invites issued to visitors",
		}),
		Conversions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "flock_visitor_conversions_total",
			Help: "Visitors converted into members",
		}),
		MigratedEvents: promauto.NewCounter(prometheus.CounterOpts{
			Name: "flock_visitor_migrated_events_total",
			Help: "Check-in events created from visitor history",
		}),
		ConversionFails: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "flock_visitor_conversion_failures_total",
			Help: "Rejected registration attempts, by error code",
		}, []string{"code"}),
	}
}

func (m *Metrics) IncrementQuickCheckIn(path string) { m.QuickCheckIns.WithLabelValues(path).Inc() }
func (m *Metrics) IncrementInviteSent()              { m.InvitesSent.Inc() }

func (m *Metrics) IncrementConversion(migrated int) {
	m.Conversions.Inc()
	m.MigratedEvents.Add(float64(migrated))
}

func (m *Metrics) IncrementConversionFailure(code string) {
	m.ConversionFails.WithLabelValues(code).Inc()
}
