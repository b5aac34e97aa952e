package netlink

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc/types"
)

/*
Helpers (for converters below)
*/

// u32ValFromPtr returns defaultVal if p is nil, else returns the value of p
func u32ValFromPtr(p *uint32, defaultVal uint32) uint32 {
	var v = defaultVal

	if p != nil {
		v = *p
	}
	return v
}

// u16ValFromPtr returns defaultVal if p is nil, else returns the value of p
func u16ValFromPtr(p *uint16, defaultVal uint16) uint16 {
	var v = defaultVal

	if p != nil {
		v = *p
	}
	return v
}

// filterProtoToUnixProto converts FilterProtocol to unix protocol
func filterProtoToUnixProto(protocol types.FilterProtocol) uint16 {
	if protocol == types.FilterProtocolAll {
		return unix.ETH_P_ALL
	}

	// we should not get here
	return 0
}

// unixProtoToFilterProto converts unix protocol to FilterProtocol
func unixProtoToFilterProto(protocol uint16) types.FilterProtocol {
	if protocol == unix.ETH_P_ALL {
		return types.FilterProtocolAll
	}

	// we should not get here
	return types.FilterProtocol(fmt.Sprintf("Unknown(%d)", protocol))
}

/*
Converters
*/

// qdiscToNlQdisc converts GenericQDisc to netlink.Qdisc on the given link
func qdiscToNlQdisc(qdisc *types.GenericQDisc, linkIndex int) netlink.Qdisc {
	return &netlink.GenericQdisc{
		QdiscAttrs: netlink.QdiscAttrs{
			LinkIndex: linkIndex,
			Parent:    u32ValFromPtr(qdisc.Parent, netlink.HANDLE_CLSACT),
			Handle:    u32ValFromPtr(qdisc.Handle, netlink.MakeHandle(0xffff, 0)),
		},
		QdiscType: string(qdisc.Type()),
	}
}

// filterAttrsToNlFilterAttrs converts FilterAttrs to netlink.FilterAttrs
func filterAttrsToNlFilterAttrs(attrs *types.FilterAttrs, parent uint32, linkIndex int) netlink.FilterAttrs {
	return netlink.FilterAttrs{
		LinkIndex: linkIndex,
		Handle:    u32ValFromPtr(attrs.Handle, 0),
		Parent:    parent,
		Chain:     attrs.Chain,
		Priority:  u16ValFromPtr(attrs.Priority, 0),
		Protocol:  filterProtoToUnixProto(attrs.Protocol),
	}
}

// policerToNlPoliceAction converts Policer to netlink.PoliceAction dropping exceeding traffic.
// netlink carries the rate in bytes per second on 32 bit, larger rates are rejected with ERANGE.
func policerToNlPoliceAction(policer *types.Policer) (*netlink.PoliceAction, error) {
	rate := policer.RateBytesPerSec()
	if rate > math.MaxUint32 {
		return nil, errors.Wrapf(unix.ERANGE, "policer rate %d B/s exceeds netlink maximum of %d B/s",
			rate, uint64(math.MaxUint32))
	}

	action := netlink.NewPoliceAction()
	action.Rate = uint32(rate)
	action.Burst = policer.Burst
	action.ExceedAction = netlink.TC_POLICE_SHOT
	action.NotExceedAction = netlink.TC_POLICE_PIPE
	return action, nil
}

// nlPoliceActionToPolicer converts netlink.PoliceAction to Policer
func nlPoliceActionToPolicer(action *netlink.PoliceAction) *types.Policer {
	return &types.Policer{
		Rate:  uint32(uint64(action.Rate) * 8 / 1000),
		Burst: action.Burst,
	}
}

// matchallFilterToNlMatchall converts MatchallFilter to netlink.MatchAll.
// netlink.MatchAll carries no skip flags, SkipSw is not converted.
func matchallFilterToNlMatchall(
	filter *types.MatchallFilter, parent uint32, linkIndex int) (*netlink.MatchAll, error) {
	nlMatchall := &netlink.MatchAll{
		FilterAttrs: filterAttrsToNlFilterAttrs(&filter.FilterAttrs, parent, linkIndex),
	}

	if filter.Policer != nil {
		police, err := policerToNlPoliceAction(filter.Policer)
		if err != nil {
			return nil, err
		}
		nlMatchall.Actions = []netlink.Action{police}
	}
	return nlMatchall, nil
}

// nlMatchallToMatchallFilter converts netlink.MatchAll to MatchallFilter
func nlMatchallToMatchallFilter(nlMatchall *netlink.MatchAll) *types.MatchallFilter {
	builder := types.NewMatchallFilterBuilder().
		WithProtocol(unixProtoToFilterProto(nlMatchall.Protocol)).
		WithHandle(nlMatchall.Handle).
		WithPriority(nlMatchall.Priority)

	if nlMatchall.Chain != nil {
		builder = builder.WithChain(*nlMatchall.Chain)
	}

	for _, action := range nlMatchall.Actions {
		if police, ok := action.(*netlink.PoliceAction); ok {
			builder = builder.WithPolicer(nlPoliceActionToPolicer(police))
			break
		}
	}
	return builder.Build()
}
