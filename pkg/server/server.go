package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sys/unix"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"
	"k8s.io/utils/exec"

	"github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/metrics"
	netwrappers "github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/net"
	"github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc"
	"github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc/block"
	cmdlinedriver "github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc/driver/cmdline"
	netlinkdriver "github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc/driver/netlink"
	"github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc/offload"
)

const metricsShutdownTimeout = 5 * time.Second

// binding is a block bound to a port
type binding struct {
	block  *block.Block
	port   string
	binder offload.BinderType
}

// installedRule is a rule accepted by at least one port bound to its block
type installedRule struct {
	block *block.Block
	rule  RuleConfig
}

// Server programs the switch configuration and removes it on shutdown
type Server struct {
	Options  *Options
	Config   *Config
	Registry *prometheus.Registry

	// mu serializes offload setup requests on the switch
	mu       sync.Mutex
	sw       *offload.Switch
	ports    map[string]string
	blocks   []*block.Block
	bindings []binding
	rules    []installedRule

	log klog.Logger
}

// NewServer creates a new *Server instance
func NewServer(o *Options) (*Server, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	cfg, err := LoadConfig(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	return newServer(o, cfg)
}

func newServer(o *Options, cfg *Config) (*Server, error) {
	log := klog.NewKlogr().WithName("switch-tc-offload")

	if o.sriovnetProvider == nil {
		o.sriovnetProvider = netwrappers.NewSriovnetProviderImpl()
	}

	if o.netlinkProvider == nil {
		o.netlinkProvider = netwrappers.NewNetlinkProviderImpl()
	}

	policer := o.policer
	if policer == nil {
		policer = newPolicer(o, log)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &Server{
		Options:  o,
		Config:   cfg,
		Registry: registry,
		sw:       offload.NewSwitch(policer, log.WithName("offload")).WithMetrics(metrics.New(registry)),
		ports:    make(map[string]string),
		log:      log,
	}

	for idx := range cfg.Ports {
		if err := s.addPort(&cfg.Ports[idx]); err != nil {
			return nil, err
		}
	}

	for idx := range cfg.Blocks {
		s.blocks = append(s.blocks, block.NewBlock(cfg.Blocks[idx].Index, log.WithName("block")))
	}
	return s, nil
}

// newPolicer creates the policer driver selected in Options
func newPolicer(o *Options, log klog.Logger) tc.Policer {
	var policer tc.Policer
	switch o.PolicerDriver {
	case PolicerDriverNetlink:
		policer = netlinkdriver.NewPolicerNetlinkImpl(log.WithName("policer-netlink"), o.netlinkProvider)
	case PolicerDriverCmdline:
		policer = cmdlinedriver.NewPolicerCmdLineImpl(log.WithName("policer-cmdline"), exec.New())
	}

	if o.PolicerStatePath != "" {
		policer = tc.NewPolicerFileWriterImpl(o.PolicerStatePath, policer, log.WithName("policer-file-writer"))
	}
	return policer
}

// addPort adds a configured port to the switch, resolving its netdev from its PCI address if needed
func (s *Server) addPort(p *PortConfig) error {
	netDev := p.Name
	if p.PCIAddress != "" {
		rep, err := s.Options.sriovnetProvider.GetUplinkRepresentor(p.PCIAddress)
		if err != nil {
			return pkgerrors.Wrapf(err, "failed to get uplink representor for %s", p.PCIAddress)
		}
		netDev = rep
	}

	s.log.Info("adding port", "port", p.id(), "netDev", netDev, "chipPort", p.ChipPort)
	s.sw.AddPort(netDev, p.ChipPort, *p.HWTCOffload)
	s.ports[p.id()] = netDev
	return nil
}

// Switch returns the switch programmed by the Server
func (s *Server) Switch() *offload.Switch {
	return s.sw
}

// Run starts Server, runs until provided context is done. configuration is applied on start and
// removed before returning.
func (s *Server) Run(ctx context.Context) error {
	if s.Options.MetricsBindAddress != "" {
		go s.serveMetrics(ctx)
	}

	if err := s.Apply(); err != nil {
		s.log.Error(err, "failed to apply configuration")
	}

	// wait on Context
	<-ctx.Done()

	return s.Teardown()
}

// Apply binds the configured blocks to their ports and offloads their rules.
// rules are offloaded even if some binds fail, the aggregated errors are returned.
func (s *Server) Apply() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for idx, bc := range s.Config.Blocks {
		blk := s.blocks[idx]

		// sharing is decided at bind, all owners are known upfront
		for _, bind := range bc.Binds {
			blk.AddOwner(s.ports[bind.Port])
		}

		for _, bind := range bc.Binds {
			if err := s.bind(blk, s.ports[bind.Port], bind.Binder); err != nil {
				errs = append(errs, err)
			}
		}

		for _, rule := range bc.Rules {
			if err := s.replace(blk, rule); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return utilerrors.NewAggregate(errs)
}

// Teardown destroys offloaded rules and unbinds blocks in reverse order
func (s *Server) Teardown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for idx := len(s.rules) - 1; idx >= 0; idx-- {
		r := s.rules[idx]
		ev := offload.NewMatchallEvent(r.rule.Chain, r.rule.toMatchallOffload(offload.MatchallDestroy),
			&offload.ExtAck{})
		_, err := r.block.Call(ev)
		// ports which rejected the rule on replace do not own it
		err = utilerrors.FilterOut(err, func(e error) bool {
			return errors.Is(e, unix.ENOENT) || errors.Is(e, unix.EOPNOTSUPP)
		})
		if err != nil {
			errs = append(errs, pkgerrors.Wrapf(err, "failed to destroy rule %d: %s", r.rule.Cookie,
				ev.Common.ExtAck.ErrMsg()))
		}
	}
	s.rules = nil

	for idx := len(s.bindings) - 1; idx >= 0; idx-- {
		b := s.bindings[idx]
		req := &offload.SetupRequest{
			Type: offload.SetupTypeBlock,
			Block: &offload.BlockOffload{
				Command:    offload.BlockUnbind,
				BinderType: b.binder,
				Block:      b.block,
				ExtAck:     &offload.ExtAck{},
			},
		}
		if err := s.sw.SetupTC(b.port, req); err != nil {
			errs = append(errs, pkgerrors.Wrapf(err, "failed to unbind block %d from %s", b.block.Index(), b.port))
		}
		b.block.RemoveOwner(b.port)
	}
	s.bindings = nil

	return utilerrors.NewAggregate(errs)
}

// bind binds blk to the port netDev
func (s *Server) bind(blk *block.Block, netDev, binder string) error {
	binderType, err := binderType(binder)
	if err != nil {
		return err
	}

	req := &offload.SetupRequest{
		Type: offload.SetupTypeBlock,
		Block: &offload.BlockOffload{
			Command:    offload.BlockBind,
			BinderType: binderType,
			Block:      blk,
			ExtAck:     &offload.ExtAck{},
		},
	}
	if err = s.sw.SetupTC(netDev, req); err != nil {
		blk.RemoveOwner(netDev)
		return pkgerrors.Wrapf(err, "failed to bind block %d to %s: %s", blk.Index(), netDev, req.Block.ExtAck.ErrMsg())
	}

	s.log.Info("block bound", "block", blk.Index(), "port", netDev, "binder", binder)
	s.bindings = append(s.bindings, binding{block: blk, port: netDev, binder: binderType})
	return nil
}

// replace offloads rule through blk to every port bound to it
func (s *Server) replace(blk *block.Block, rule RuleConfig) error {
	ev := offload.NewMatchallEvent(rule.Chain, rule.toMatchallOffload(offload.MatchallReplace), &offload.ExtAck{})
	accepted, err := blk.Call(ev)
	if accepted > 0 {
		s.rules = append(s.rules, installedRule{block: blk, rule: rule})
	}
	if err != nil {
		return pkgerrors.Wrapf(err, "rule %q (cookie %d) rejected on block %d: %s", rule.Name, rule.Cookie,
			blk.Index(), ev.Common.ExtAck.ErrMsg())
	}

	s.log.Info("rule offloaded", "block", blk.Index(), "rule", rule.Name, "cookie", rule.Cookie,
		"ports", accepted)
	return nil
}

// serveMetrics serves the Server metrics until ctx is done
func (s *Server) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              s.Options.MetricsBindAddress,
		Handler:           mux,
		ReadHeaderTimeout: metricsShutdownTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error(err, "failed to shutdown metrics server")
		}
	}()

	s.log.Info("serving metrics", "address", s.Options.MetricsBindAddress)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error(err, "metrics server failed")
	}
}
