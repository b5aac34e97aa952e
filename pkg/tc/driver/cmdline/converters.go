package cmdline

import (
	"strings"

	"github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc/types"
)

const (
	allStr     = "all"
	ingressStr = "ingress"
)

// sToFilterProtocol converts given string to types.FilterProtocol. returns "" in case of an invalid conversion
func sToFilterProtocol(proto string) types.FilterProtocol {
	var fp types.FilterProtocol

	if strings.ToLower(proto) == allStr {
		fp = types.FilterProtocolAll
	}

	return fp
}

// cFilterToMatchallFilter converts a matchall cFilter with options to types.MatchallFilter.
// the policer configuration is not parsed from tc output.
func cFilterToMatchallFilter(f *cFilter) *types.MatchallFilter {
	fb := types.NewMatchallFilterBuilder().
		WithChain(f.Chain).
		WithProtocol(sToFilterProtocol(f.Protocol)).
		WithPriority(f.Priority).
		WithHandle(f.Options.Handle)

	if f.Options.SkipSw {
		fb = fb.WithSkipSw()
	}
	return fb.Build()
}
