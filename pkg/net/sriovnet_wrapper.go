package net

import (
	"github.com/Mellanox/sriovnet"
)

// SriovnetProvider resolves switchdev port netdevs from PCI addresses
type SriovnetProvider interface {
	// GetUplinkRepresentor returns the uplink representor netdev of the PF or VF at pciAddress
	// (e.g '0000:03:00.0'), this is the netdev a switch port policer is programmed on.
	GetUplinkRepresentor(pciAddress string) (string, error)
}

// NewSriovnetProviderImpl creates a SriovnetProvider backed by sysfs
func NewSriovnetProviderImpl() *SriovnetProviderImpl {
	return &SriovnetProviderImpl{}
}

// SriovnetProviderImpl forwards to the sriovnet package
type SriovnetProviderImpl struct{}

// GetUplinkRepresentor implements SriovnetProvider interface
func (*SriovnetProviderImpl) GetUplinkRepresentor(pciAddress string) (string, error) {
	return sriovnet.GetUplinkRepresentor(pciAddress)
}
