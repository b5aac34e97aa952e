package netlink

import (
	"github.com/pkg/errors"
	"github.com/vishvananda/netlink"
	klog "k8s.io/klog/v2"

	tcnet "github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/net"
	"github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc/types"
)

// NewPolicerNetlinkImpl creates a new instance of PolicerNetlinkImpl
func NewPolicerNetlinkImpl(log klog.Logger, netlinkIfc tcnet.NetlinkProvider) *PolicerNetlinkImpl {
	return &PolicerNetlinkImpl{
		netlinkIfc: netlinkIfc,
		log:        log,
	}
}

// PolicerNetlinkImpl is a concrete implementation of Policer interface utilizing netlink lib.
// a port policer is a matchall filter with a police action on the ingress of the port clsact qdisc.
type PolicerNetlinkImpl struct {
	netlinkIfc tcnet.NetlinkProvider
	log        klog.Logger
}

// PolicerAdd implements Policer interface
func (p *PolicerNetlinkImpl) PolicerAdd(netDev string, policer *types.Policer) error {
	p.log.V(10).Info("PolicerAdd()", "netDev", netDev, "policer", policer.String())

	link, err := p.netlinkIfc.LinkByName(netDev)
	if err != nil {
		return errors.Wrapf(err, "failed to get link %s", netDev)
	}

	filter := types.NewPolicerFilter(policer)
	nlMatchall, err := matchallFilterToNlMatchall(filter, netlink.HANDLE_MIN_INGRESS, link.Attrs().Index)
	if err != nil {
		return err
	}

	if err = p.ensureClsact(link); err != nil {
		return err
	}

	existing, err := p.policerFilter(link)
	if err != nil {
		return err
	}
	if existing != nil {
		p.log.V(5).Info("replacing installed policer", "netDev", netDev,
			"policer", nlMatchallToMatchallFilter(existing).Policer)
	}

	// the installed policer stays in place if the replace fails
	if err = p.netlinkIfc.FilterReplace(nlMatchall); err != nil {
		return errors.Wrap(err, "failed to replace policer filter")
	}
	return nil
}

// PolicerDel implements Policer interface
func (p *PolicerNetlinkImpl) PolicerDel(netDev string) error {
	p.log.V(10).Info("PolicerDel()", "netDev", netDev)

	link, err := p.netlinkIfc.LinkByName(netDev)
	if err != nil {
		return errors.Wrapf(err, "failed to get link %s", netDev)
	}

	existing, err := p.policerFilter(link)
	if err != nil {
		return err
	}
	if existing == nil {
		p.log.V(5).Info("no policer installed", "netDev", netDev)
		return nil
	}

	if err = p.netlinkIfc.FilterDel(existing); err != nil {
		return errors.Wrap(err, "failed to delete policer filter")
	}
	return nil
}

// ensureClsact adds a clsact qdisc to link unless it already has one. an ingress qdisc is accepted as well.
func (p *PolicerNetlinkImpl) ensureClsact(link netlink.Link) error {
	qdiscs, err := p.netlinkIfc.QdiscList(link)
	if err != nil {
		return errors.Wrap(err, "failed to list qdiscs")
	}

	for _, qdisc := range qdiscs {
		if qdisc.Type() == string(types.QDiscClsactType) || qdisc.Type() == "ingress" {
			return nil
		}
	}

	p.log.V(5).Info("adding clsact qdisc", "netDev", link.Attrs().Name)
	if err = p.netlinkIfc.QdiscAdd(qdiscToNlQdisc(types.NewClsactQDisc(), link.Attrs().Index)); err != nil {
		return errors.Wrap(err, "failed to add clsact qdisc")
	}
	return nil
}

// policerFilter returns the matchall filter carrying the port policer or nil if none is installed
func (p *PolicerNetlinkImpl) policerFilter(link netlink.Link) (*netlink.MatchAll, error) {
	nlFilters, err := p.netlinkIfc.FilterList(link, netlink.HANDLE_MIN_INGRESS)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list filters")
	}

	for _, nlFilter := range nlFilters {
		if nlFilter.Type() != string(types.FilterKindMatchall) {
			continue
		}

		nlMatchall, ok := nlFilter.(*netlink.MatchAll)
		if !ok {
			continue
		}

		if nlMatchall.Priority == types.PolicerFilterPriority && nlMatchall.Handle == types.PolicerFilterHandle {
			return nlMatchall, nil
		}
	}
	return nil, nil
}
