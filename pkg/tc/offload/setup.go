package offload

import (
	"sort"

	"k8s.io/klog/v2"

	"github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/metrics"
	"github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc"
)

// NewSwitch creates a new Switch programming port policers through policer
func NewSwitch(policer tc.Policer, log klog.Logger) *Switch {
	return &Switch{
		ports:   make(map[string]*Port),
		policer: policer,
		flower:  NopFlowerBinder{},
		log:     log,
	}
}

// Switch holds the ports of a switch and is the entry point for their offload setup requests.
// Like Port, it is not safe for concurrent use.
type Switch struct {
	ports   map[string]*Port
	policer tc.Policer
	flower  FlowerBinder
	metrics *metrics.Metrics
	log     klog.Logger
}

// WithFlowerBinder sets the FlowerBinder notified on block bind and unbind. must be called before adding ports.
func (s *Switch) WithFlowerBinder(flower FlowerBinder) *Switch {
	s.flower = flower
	return s
}

// WithMetrics sets the Metrics offload operations are recorded to. must be called before adding ports.
func (s *Switch) WithMetrics(m *metrics.Metrics) *Switch {
	s.metrics = m
	return s
}

// AddPort adds a port identified by its netdev name, an existing port with the same name is returned as is
func (s *Switch) AddPort(name string, chipPort int, hwTCOffload bool) *Port {
	if port, ok := s.ports[name]; ok {
		return port
	}
	port := newPort(name, chipPort, hwTCOffload, s.policer, s.flower, s.metrics, s.log)
	s.ports[name] = port
	s.metrics.SetOffloads(name, 0)
	return port
}

// Port returns the port with the given netdev name
func (s *Switch) Port(name string) (*Port, bool) {
	port, ok := s.ports[name]
	return port, ok
}

// Ports returns the switch ports ordered by chip port
func (s *Switch) Ports() []*Port {
	ports := make([]*Port, 0, len(s.ports))
	for _, port := range s.ports {
		ports = append(ports, port)
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].ChipPort < ports[j].ChipPort })
	return ports
}

// SetupTC handles an offload setup request for the port dev. only block requests are supported.
func (s *Switch) SetupTC(dev string, req *SetupRequest) error {
	port, ok := s.ports[dev]
	if !ok {
		return ErrNoDevice
	}

	switch req.Type {
	case SetupTypeBlock:
		if req.Block == nil || req.Block.Block == nil {
			return ErrInvalid
		}
		return port.setupBlock(req.Block)
	default:
		s.log.V(5).Info("unsupported setup type", "port", dev, "type", req.Type.String())
		return ErrNotSupported
	}
}
