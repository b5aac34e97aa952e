package offload

import (
	"k8s.io/klog/v2"

	"github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/metrics"
	"github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc"
)

// PortTCState is the tc offload state of a switch port
type PortTCState struct {
	// PoliceID is the cookie of the rule owning the port policer, 0 if no policer is installed
	PoliceID uint64
	// OffloadCount is the number of rules currently offloaded on the port
	OffloadCount int
	// BlockShared is true if the ingress block the port is bound to was shared when it was bound
	BlockShared bool
}

// Port is a switch port and its tc offload state.
//
// Port is not safe for concurrent use: callers must serialize all setup requests and rule events
// of a switch (bind, replace, destroy, unbind).
type Port struct {
	// Name is the port netdev name
	Name string
	// ChipPort is the hardware port index
	ChipPort int
	// HWTCOffload is the netdev hw-tc-offload feature, rule events are rejected when it is off
	HWTCOffload bool
	// TC is the port tc offload state
	TC PortTCState

	policer tc.Policer
	flower  FlowerBinder
	metrics *metrics.Metrics
	log     klog.Logger
}

// newPort creates a port with no policer installed and not bound to a shared block
func newPort(name string, chipPort int, hwTCOffload bool, policer tc.Policer, flower FlowerBinder,
	m *metrics.Metrics, log klog.Logger) *Port {
	return &Port{
		Name:        name,
		ChipPort:    chipPort,
		HWTCOffload: hwTCOffload,
		policer:     policer,
		flower:      flower,
		metrics:     m,
		log:         log.WithValues("port", name, "chipPort", chipPort),
	}
}
