package offload

import (
	tctypes "github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc/types"
)

// BlockCallback is invoked by a Block for every classifier rule event of the block
type BlockCallback func(ev *RuleEvent) error

// CallbackKey identifies a callback registration on a Block. a port registers at most one
// callback per direction.
type CallbackKey struct {
	Direction Direction
	Port      *Port
}

// Block is a filter block of the classification framework, it may be bound to several ports.
type Block interface {
	// Shared returns true if the block is bound by more than one port
	Shared() bool
	// CallbackRegister registers cb under key, rule events of the block are delivered to cb until unregistered
	CallbackRegister(key CallbackKey, cb BlockCallback, extAck *ExtAck) error
	// CallbackUnregister removes the callback registered under key
	CallbackUnregister(key CallbackKey)
}

// FlowerBinder is notified when a port binds to or unbinds from a block so that flower rules
// already present in the block can be handled.
type FlowerBinder interface {
	// FlowerBind is called after the port callback was registered on the block
	FlowerBind(port *Port, f *BlockOffload) error
	// FlowerUnbind is called before the port callback is unregistered from the block
	FlowerUnbind(port *Port, f *BlockOffload)
}

// NopFlowerBinder is a FlowerBinder which does nothing
type NopFlowerBinder struct{}

// FlowerBind implements FlowerBinder interface
func (NopFlowerBinder) FlowerBind(*Port, *BlockOffload) error {
	return nil
}

// FlowerUnbind implements FlowerBinder interface
func (NopFlowerBinder) FlowerUnbind(*Port, *BlockOffload) {}

// setupBlock binds the port to or unbinds the port from a filter block
func (p *Port) setupBlock(f *BlockOffload) error {
	p.log.V(5).Info("setupBlock()", "command", f.Command.String(), "binderType", f.BinderType)

	var dir Direction
	switch f.BinderType {
	case BinderTypeClsactIngress:
		dir = DirectionIngress
	case BinderTypeClsactEgress:
		dir = DirectionEgress
	default:
		return ErrNotSupported
	}
	key := CallbackKey{Direction: dir, Port: p}

	switch f.Command {
	case BlockBind:
		if dir == DirectionIngress {
			p.TC.BlockShared = f.Block.Shared()
		}
		if err := f.Block.CallbackRegister(key, p.blockCallback(dir), f.ExtAck); err != nil {
			return err
		}
		return p.flower.FlowerBind(p, f)
	case BlockUnbind:
		p.flower.FlowerUnbind(p, f)
		f.Block.CallbackUnregister(key)
		return nil
	default:
		return ErrNotSupported
	}
}

// blockCallback returns the port callback for blocks bound in direction dir
func (p *Port) blockCallback(dir Direction) BlockCallback {
	return func(ev *RuleEvent) error {
		err := p.handleRuleEvent(ev, dir)
		p.metrics.RuleEvent(p.Name, ev.Type.String(), err)
		return err
	}
}

// handleRuleEvent routes a classifier rule event of a bound block
func (p *Port) handleRuleEvent(ev *RuleEvent, dir Direction) error {
	if !p.canOffloadAndChain0(&ev.Common) {
		return ErrNotSupported
	}

	switch ev.Type {
	case SetupTypeClsMatchall:
		p.log.V(5).Info("block callback: matchall", "direction", dir.String())
		if ev.Matchall == nil {
			return ErrInvalid
		}
		return p.setupMatchall(ev.Matchall, ev.Common.ExtAck, dir == DirectionIngress)
	case SetupTypeClsFlower:
		// flower rules are acknowledged but not offloaded
		return nil
	default:
		p.log.V(5).Info("block callback: unsupported type", "type", ev.Type.String(), "direction", dir.String())
		return ErrNotSupported
	}
}

// canOffloadAndChain0 returns true if hw-tc-offload is enabled on the port and the rule is in the base chain
func (p *Port) canOffloadAndChain0(common *ClsCommon) bool {
	if !p.HWTCOffload {
		common.ExtAck.SetErrMsg("TC offload is disabled on net device")
		return false
	}
	if !tctypes.IsBaseChain(common.ChainIndex) {
		common.ExtAck.SetErrMsg("Driver supports only offload of chain 0")
		return false
	}
	return true
}
