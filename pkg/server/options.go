package server

import (
	"flag"
	"fmt"

	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	netwrappers "github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/net"
	"github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc"
)

// Policer drivers
const (
	PolicerDriverNetlink = "netlink"
	PolicerDriverCmdline = "cmdline"
	PolicerDriverNone    = "none"
)

// Options stores option for the command
type Options struct {
	// ConfigPath is the path to the switch configuration file
	ConfigPath string
	// PolicerDriver selects how port policers are programmed
	PolicerDriver string
	// PolicerStatePath, if non-empty, is a file installed policers are recorded to
	PolicerStatePath string
	// MetricsBindAddress, if non-empty, is the address metrics are served on
	MetricsBindAddress string

	// used in tests
	policer          tc.Policer
	sriovnetProvider netwrappers.SriovnetProvider
	netlinkProvider  netwrappers.NetlinkProvider
}

// AddFlags adds command line flags into command
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	klog.InitFlags(nil)
	fs.SortFlags = false
	fs.StringVar(&o.ConfigPath, "config", o.ConfigPath, "Path to the switch configuration file.")
	fs.StringVar(&o.PolicerDriver, "policer-driver", o.PolicerDriver,
		"Driver used to program port policers. one of: netlink, cmdline, none.")
	fs.StringVar(&o.PolicerStatePath, "policer-state-path", o.PolicerStatePath,
		"If non-empty, will use this path to store installed policers for troubleshooting.")
	fs.StringVar(&o.MetricsBindAddress, "metrics-bind-address", o.MetricsBindAddress,
		"If non-empty, the address metrics are served on (e.g :9090).")
	fs.AddGoFlagSet(flag.CommandLine)
}

// Validate validates Options
func (o *Options) Validate() error {
	if o.ConfigPath == "" {
		return fmt.Errorf("config path must be provided")
	}

	switch o.PolicerDriver {
	case PolicerDriverNetlink, PolicerDriverCmdline:
	case PolicerDriverNone:
		if o.PolicerStatePath == "" {
			return fmt.Errorf("policer driver %q requires a policer state path", PolicerDriverNone)
		}
	default:
		return fmt.Errorf("unknown policer driver: %q", o.PolicerDriver)
	}
	return nil
}

// NewOptions initializes Options
func NewOptions() *Options {
	return &Options{
		PolicerDriver: PolicerDriverNetlink,
	}
}
