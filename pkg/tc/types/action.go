package types

import (
	"strconv"
	"time"
)

const (
	// Action types
	ActionTypeGeneric ActionType = "gact"
	ActionTypePolice  ActionType = "police"

	// Generic control actions
	ActionGenericPass ActionGenericType = "pass"
	ActionGenericDrop ActionGenericType = "drop"
)

// ActionType is the TC Action type
type ActionType string

// ActionGenericType is the Generic Action control action type
type ActionGenericType string

// Action is an interface which represents a TC action attached to a classifier rule
type Action interface {
	// Type returns the action type
	Type() ActionType
	// Spec returns Action Specification
	Spec() map[string]string
	// Equals compares this Action with other, returns true if they are equal or false otherwise
	Equals(other Action) bool

	// Driver Specific related Interfaces
	CmdLineGenerator
}

// NewGenericAction creates a new GenericAction
func NewGenericAction(controlAction ActionGenericType) *GenericAction {
	return &GenericAction{controlAction: controlAction}
}

// GenericAction is a struct representing TC generic action (gact)
type GenericAction struct {
	controlAction ActionGenericType
}

// Type implements Action interface, it returns the type of the action
func (a *GenericAction) Type() ActionType {
	return ActionTypeGeneric
}

// Spec implements Action interface, it returns the specification of the action
func (a *GenericAction) Spec() map[string]string {
	m := make(map[string]string)
	m["control_action"] = string(a.controlAction)
	return m
}

// Equals implements Action interface, it returns true if this and other Action are equal
func (a *GenericAction) Equals(other Action) bool {
	otherGenericAction, ok := other.(*GenericAction)
	if !ok {
		return false
	}
	return a.controlAction == otherGenericAction.controlAction
}

// GenCmdLineArgs implements CmdLineGenerator interface
func (a *GenericAction) GenCmdLineArgs() []string {
	return []string{"action", string(ActionTypeGeneric), string(a.controlAction)}
}

// NewPoliceAction creates a new PoliceAction
func NewPoliceAction(rateBytesPerSec uint64, burst time.Duration) *PoliceAction {
	return &PoliceAction{RateBytesPerSec: rateBytesPerSec, Burst: burst}
}

// PoliceAction is a struct representing TC police action as seen by the offload layer.
// Rate is expressed in bytes per second, Burst is the burst duration the rate is allowed to be exceeded for.
type PoliceAction struct {
	RateBytesPerSec uint64
	Burst           time.Duration
}

// Type implements Action interface, it returns the type of the action
func (a *PoliceAction) Type() ActionType {
	return ActionTypePolice
}

// Spec implements Action interface, it returns the specification of the action
func (a *PoliceAction) Spec() map[string]string {
	m := make(map[string]string)
	m["rate_bytes_ps"] = strconv.FormatUint(a.RateBytesPerSec, 10)
	m["burst"] = a.Burst.String()
	return m
}

// Equals implements Action interface, it returns true if this and other Action are equal
func (a *PoliceAction) Equals(other Action) bool {
	otherPoliceAction, ok := other.(*PoliceAction)
	if !ok {
		return false
	}
	return a.RateBytesPerSec == otherPoliceAction.RateBytesPerSec && a.Burst == otherPoliceAction.Burst
}

// GenCmdLineArgs implements CmdLineGenerator interface
func (a *PoliceAction) GenCmdLineArgs() []string {
	return []string{"action", string(ActionTypePolice),
		"rate", strconv.FormatUint(a.RateBytesPerSec*8, 10) + "bit",
		"burst", a.Burst.String()}
}

// Builders

// NewGenericActionBuilder creates a new GenericActionBuilder
func NewGenericActionBuilder() *GenericActionBuilder {
	return &GenericActionBuilder{}
}

// GenericActionBuilder is a GenericAction builder
type GenericActionBuilder struct {
	genericAction GenericAction
}

// WithDrop adds ActionGenericDrop control action to GenericActionBuilder
func (gb *GenericActionBuilder) WithDrop() *GenericActionBuilder {
	gb.genericAction.controlAction = ActionGenericDrop
	return gb
}

// WithPass adds ActionGenericPass control action to GenericActionBuilder
func (gb *GenericActionBuilder) WithPass() *GenericActionBuilder {
	gb.genericAction.controlAction = ActionGenericPass
	return gb
}

// Build builds and returns a new GenericAction instance
func (gb *GenericActionBuilder) Build() *GenericAction {
	return NewGenericAction(gb.genericAction.controlAction)
}

// NewPoliceActionBuilder creates a new PoliceActionBuilder
func NewPoliceActionBuilder() *PoliceActionBuilder {
	return &PoliceActionBuilder{}
}

// PoliceActionBuilder is a PoliceAction builder
type PoliceActionBuilder struct {
	policeAction PoliceAction
}

// WithRate sets police rate in bytes per second
func (pb *PoliceActionBuilder) WithRate(rateBytesPerSec uint64) *PoliceActionBuilder {
	pb.policeAction.RateBytesPerSec = rateBytesPerSec
	return pb
}

// WithBurst sets police burst duration
func (pb *PoliceActionBuilder) WithBurst(burst time.Duration) *PoliceActionBuilder {
	pb.policeAction.Burst = burst
	return pb
}

// Build builds and returns a new PoliceAction instance
func (pb *PoliceActionBuilder) Build() *PoliceAction {
	return NewPoliceAction(pb.policeAction.RateBytesPerSec, pb.policeAction.Burst)
}
