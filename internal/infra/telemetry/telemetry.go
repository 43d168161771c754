package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Provider bundles the security-core metric counters.
type Provider struct {
	validatedRequests prometheus.Counter
	csrfBlocked       prometheus.Counter
	auditRecords      *prometheus.CounterVec
	alertFailures     prometheus.Counter
	sessionsSwept     prometheus.Counter
}

// Attach registers the counters on the default registry and returns a handle.
func Attach(namespace string) *Provider {
	if namespace == "" {
		namespace = "salesflow"
	}

	return &Provider{
		validatedRequests: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_validations_total",
			Help:      "Total number of session validations performed",
		}),
		csrfBlocked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "csrf_blocked_total",
			Help:      "Total number of requests blocked by the CSRF guard",
		}),
		auditRecords: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_records_total",
			Help:      "Total number of audit entries recorded, by risk level",
		}, []string{"risk_level"}),
		alertFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_failures_total",
			Help:      "Total number of failed security alert dispatches",
		}),
		sessionsSwept: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_swept_total",
			Help:      "Total number of expired sessions reclaimed by the background sweep",
		}),
	}
}

// SessionValidated counts one validation attempt.
func (p *Provider) SessionValidated() {
	if p != nil {
		p.validatedRequests.Inc()
	}
}

// CSRFBlocked counts one blocked request.
func (p *Provider) CSRFBlocked() {
	if p != nil {
		p.csrfBlocked.Inc()
	}
}

// AuditRecorded counts one audit entry at the given risk level.
func (p *Provider) AuditRecorded(riskLevel string) {
	if p != nil {
		p.auditRecords.WithLabelValues(riskLevel).Inc()
	}
}

// AlertFailed counts one failed alert dispatch.
func (p *Provider) AlertFailed() {
	if p != nil {
		p.alertFailures.Inc()
	}
}

// SessionsSwept counts sessions reclaimed by the sweeper.
func (p *Provider) SessionsSwept(n int) {
	if p != nil && n > 0 {
		p.sessionsSwept.Add(float64(n))
	}
}
