package verification

import (
	"github.com/go-verify-nosql/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess = "success"
	outcomeInvalid = "invalid"
	outcomeError   = "error"
)

// Metrics holds the Prometheus collectors for the verification lifecycle.
// A nil *Metrics records nothing.
type Metrics struct {
	Issued      *prometheus.CounterVec
	IssueErrors *prometheus.CounterVec
	Claimed     *prometheus.CounterVec
	Purged      prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Issued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "verification_codes_issued_total",
			Help: "Verification codes persisted, by context",
		}, []string{"context"}),
		IssueErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "verification_codes_issue_errors_total",
			Help: "Verification code issuances that failed to persist, by context",
		}, []string{"context"}),
		Claimed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "verification_codes_claimed_total",
			Help: "Verification code claim attempts, by context and outcome",
		}, []string{"context", "outcome"}),
		Purged: f.NewCounter(prometheus.CounterOpts{
			Name: "verification_codes_purged_total",
			Help: "Expired verification codes removed by the janitor",
		}),
	}
}

func (m *Metrics) issued(c domain.CodeContext) {
	if m != nil {
		m.Issued.WithLabelValues(string(c)).Inc()
	}
}

func (m *Metrics) issueFailed(c domain.CodeContext) {
	if m != nil {
		m.IssueErrors.WithLabelValues(string(c)).Inc()
	}
}

func (m *Metrics) claimed(c domain.CodeContext, outcome string) {
	if m != nil {
		m.Claimed.WithLabelValues(string(c), outcome).Inc()
	}
}

func (m *Metrics) purged(n int) {
	if m != nil && n > 0 {
		m.Purged.Add(float64(n))
	}
}
