package offload

import (
	tctypes "github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc/types"
)

// SetupType is the kind of an offload setup request or of a classifier rule event
type SetupType int

const (
	SetupTypeUnspec SetupType = iota
	// SetupTypeBlock is a filter block (un)bind request
	SetupTypeBlock
	// SetupTypeClsMatchall is a matchall classifier rule event
	SetupTypeClsMatchall
	// SetupTypeClsFlower is a flower classifier rule event
	SetupTypeClsFlower
	// SetupTypeClsU32 is a u32 classifier rule event
	SetupTypeClsU32
	// SetupTypeQdiscMqprio is a mqprio qdisc offload request
	SetupTypeQdiscMqprio
)

func (t SetupType) String() string {
	switch t {
	case SetupTypeBlock:
		return "block"
	case SetupTypeClsMatchall:
		return "matchall"
	case SetupTypeClsFlower:
		return "flower"
	case SetupTypeClsU32:
		return "u32"
	case SetupTypeQdiscMqprio:
		return "mqprio"
	}
	return "unspec"
}

// Direction is the traffic direction a filter block is bound to
type Direction int

const (
	DirectionIngress Direction = iota
	DirectionEgress
)

func (d Direction) String() string {
	if d == DirectionIngress {
		return "ingress"
	}
	return "egress"
}

// BinderType identifies the qdisc attachment point a filter block is bound to
type BinderType int

const (
	BinderTypeUnspec BinderType = iota
	BinderTypeClsactIngress
	BinderTypeClsactEgress
	BinderTypeRedEarlyDrop
	BinderTypeRedMark
)

// BlockCommand is a filter block offload command
type BlockCommand int

const (
	BlockBind BlockCommand = iota
	BlockUnbind
)

func (c BlockCommand) String() string {
	switch c {
	case BlockBind:
		return "bind"
	case BlockUnbind:
		return "unbind"
	}
	return "unknown"
}

// MatchallCommand is a matchall rule command
type MatchallCommand int

const (
	MatchallReplace MatchallCommand = iota
	MatchallDestroy
	MatchallStats
)

func (c MatchallCommand) String() string {
	switch c {
	case MatchallReplace:
		return "replace"
	case MatchallDestroy:
		return "destroy"
	case MatchallStats:
		return "stats"
	}
	return "unknown"
}

// FlowerCommand is a flower rule command
type FlowerCommand int

const (
	FlowerReplace FlowerCommand = iota
	FlowerDestroy
	FlowerStats
)

// ClsCommon holds the attributes common to all classifier rule events
type ClsCommon struct {
	// ChainIndex is the classification chain the rule is placed in
	ChainIndex uint32
	// Priority of the rule
	Priority uint16
	// Protocol is the ethertype the rule applies to
	Protocol uint16
	// ExtAck receives a diagnostic message on rejection, may be nil
	ExtAck *ExtAck
}

// MatchallOffload is a matchall rule event payload
type MatchallOffload struct {
	Command MatchallCommand
	// Cookie uniquely identifies the rule instance
	Cookie uint64
	// Actions is the ordered list of actions attached to the rule
	Actions []tctypes.Action
}

// FlowerOffload is a flower rule event payload
type FlowerOffload struct {
	Command FlowerCommand
	Cookie  uint64
	Actions []tctypes.Action
}

// RuleEvent is a classifier rule event delivered by a Block to its registered callbacks.
// Type selects which payload is set.
type RuleEvent struct {
	Type     SetupType
	Common   ClsCommon
	Matchall *MatchallOffload
	Flower   *FlowerOffload
}

// NewMatchallEvent returns a matchall RuleEvent in the given chain
func NewMatchallEvent(chain uint32, f *MatchallOffload, extAck *ExtAck) *RuleEvent {
	return &RuleEvent{
		Type:     SetupTypeClsMatchall,
		Common:   ClsCommon{ChainIndex: chain, ExtAck: extAck},
		Matchall: f,
	}
}

// BlockOffload is a filter block (un)bind request payload
type BlockOffload struct {
	Command    BlockCommand
	BinderType BinderType
	Block      Block
	ExtAck     *ExtAck
}

// SetupRequest is an offload setup request for a switch port
type SetupRequest struct {
	Type  SetupType
	Block *BlockOffload
}
