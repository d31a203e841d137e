package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds portal metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	OTPIssuedTotal   *prometheus.CounterVec
	OTPAttemptsTotal *prometheus.CounterVec
	OTPSweptTotal    prometheus.Counter

	LoginsTotal        *prometheus.CounterVec
	RoleChangesTotal   *prometheus.CounterVec
	RosterRowsTotal    *prometheus.CounterVec
	RegistrationsTotal *prometheus.CounterVec
}

// New registers portal metrics on reg under namespace
func New(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		OTPIssuedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "otp_issued_total",
				Help:      "OTP issue requests by result",
			},
			[]string{"result"},
		),
		OTPAttemptsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "otp_attempts_total",
				Help:      "OTP verification attempts by outcome",
			},
			[]string{"outcome"},
		),
		OTPSweptTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "otp_swept_total",
				Help:      "OTP records removed by the cleanup sweep",
			},
		),
		LoginsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "logins_total",
				Help:      "Login attempts by result",
			},
			[]string{"result"},
		),
		RoleChangesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "role_changes_total",
				Help:      "Administrative role and status changes",
			},
			[]string{"action"},
		),
		RosterRowsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "roster_rows_total",
				Help:      "Roster reconciliation rows by result",
			},
			[]string{"result"},
		),
		RegistrationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registrations_total",
				Help:      "Registrations by result",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) OTPIssued(result string) {
	if m != nil {
		m.OTPIssuedTotal.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) OTPAttempt(outcome string) {
	if m != nil {
		m.OTPAttemptsTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) OTPSwept(n int64) {
	if m != nil && n > 0 {
		m.OTPSweptTotal.Add(float64(n))
	}
}

func (m *Metrics) Login(result string) {
	if m != nil {
		m.LoginsTotal.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) RoleChange(action string) {
	if m != nil {
		m.RoleChangesTotal.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) RosterRows(result string, n int) {
	if m != nil && n > 0 {
		m.RosterRowsTotal.WithLabelValues(result).Add(float64(n))
	}
}

func (m *Metrics) Registration(result string) {
	if m != nil {
		m.RegistrationsTotal.WithLabelValues(result).Inc()
	}
}
