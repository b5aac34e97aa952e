package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sys/unix"
)

const (
	namespace = "switch_tc_offload"

	// Policer operations
	OpAdd = "add"
	OpDel = "del"

	resultSuccess = "success"
	resultFailure = "failure"
)

// Metrics holds the offload metrics. a nil *Metrics is valid and records nothing.
type Metrics struct {
	// PolicerOps counts policer driver calls per port, operation and result
	PolicerOps *prometheus.CounterVec
	// RuleEvents counts classifier rule events handled per port, event type and result
	RuleEvents *prometheus.CounterVec
	// Offloads is the number of rules currently offloaded per port
	Offloads *prometheus.GaugeVec
}

// New creates Metrics and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PolicerOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policer_operations_total",
			Help:      "Number of hardware policer operations.",
		}, []string{"port", "op", "result"}),
		RuleEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_events_total",
			Help:      "Number of classifier rule events handled, result is the errno name on rejection.",
		}, []string{"port", "type", "result"}),
		Offloads: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "offloaded_rules",
			Help:      "Number of rules currently offloaded to hardware.",
		}, []string{"port"}),
	}
}

// PolicerOp records a policer driver call
func (m *Metrics) PolicerOp(port, op string, err error) {
	if m == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = resultFailure
	}
	m.PolicerOps.WithLabelValues(port, op, result).Inc()
}

// RuleEvent records the outcome of a classifier rule event
func (m *Metrics) RuleEvent(port, eventType string, err error) {
	if m == nil {
		return
	}
	m.RuleEvents.WithLabelValues(port, eventType, resultLabel(err)).Inc()
}

// SetOffloads sets the number of rules offloaded on port
func (m *Metrics) SetOffloads(port string, count int) {
	if m == nil {
		return
	}
	m.Offloads.WithLabelValues(port).Set(float64(count))
}

// resultLabel returns "success" for nil, the errno name for errno errors and "failure" otherwise
func resultLabel(err error) string {
	if err == nil {
		return resultSuccess
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		if name := unix.ErrnoName(errno); name != "" {
			return name
		}
	}
	return resultFailure
}
