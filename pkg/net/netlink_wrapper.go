package net

import (
	"github.com/vishvananda/netlink"
)

// NetlinkProvider is the subset of vishvananda/netlink used to program a port policer:
// the clsact qdisc hosting the ingress block and the matchall filter carrying the police action.
type NetlinkProvider interface {
	// LinkByName returns the switch port link with the given netdev name
	LinkByName(name string) (netlink.Link, error)

	// QdiscAdd adds qdisc, used to create clsact when missing
	QdiscAdd(qdisc netlink.Qdisc) error
	// QdiscList lists the qdiscs of link
	QdiscList(link netlink.Link) ([]netlink.Qdisc, error)

	// FilterReplace adds the policer filter or atomically replaces the one with the same handle
	FilterReplace(filter netlink.Filter) error
	// FilterDel deletes the policer filter
	FilterDel(filter netlink.Filter) error
	// FilterList lists the filters of link attached to parent
	FilterList(link netlink.Link, parent uint32) ([]netlink.Filter, error)
}

// NewNetlinkProviderImpl creates a NetlinkProvider operating on the host network namespace
func NewNetlinkProviderImpl() *NetlinkProviderImpl {
	return &NetlinkProviderImpl{}
}

// NetlinkProviderImpl forwards to the package level netlink functions
type NetlinkProviderImpl struct{}

// LinkByName implements NetlinkProvider interface
func (NetlinkProviderImpl) LinkByName(name string) (netlink.Link, error) {
	return netlink.LinkByName(name)
}

// QdiscAdd implements NetlinkProvider interface
func (NetlinkProviderImpl) QdiscAdd(qdisc netlink.Qdisc) error {
	return netlink.QdiscAdd(qdisc)
}

// QdiscList implements NetlinkProvider interface
func (NetlinkProviderImpl) QdiscList(link netlink.Link) ([]netlink.Qdisc, error) {
	return netlink.QdiscList(link)
}

// FilterReplace implements NetlinkProvider interface
func (NetlinkProviderImpl) FilterReplace(filter netlink.Filter) error {
	return netlink.FilterReplace(filter)
}

// FilterDel implements NetlinkProvider interface
func (NetlinkProviderImpl) FilterDel(filter netlink.Filter) error {
	return netlink.FilterDel(filter)
}

// FilterList implements NetlinkProvider interface
func (NetlinkProviderImpl) FilterList(link netlink.Link, parent uint32) ([]netlink.Filter, error) {
	return netlink.FilterList(link, parent)
}
