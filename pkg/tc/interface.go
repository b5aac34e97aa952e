package tc

import (
	tctypes "github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc/types"
)

// Policer defines an interface to program the single hardware rate limiter of a switch port.
// Calls are synchronous, an implementation must not return before the hardware is programmed.
type Policer interface {
	// PolicerAdd installs policer on the port identified by netDev, replacing any policer already installed
	PolicerAdd(netDev string, policer *tctypes.Policer) error
	// PolicerDel removes the policer installed on the port identified by netDev
	PolicerDel(netDev string) error
}
