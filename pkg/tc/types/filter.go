package types

import (
	"strconv"
)

const (
	// Values for FilterAttrs.Protocol
	FilterProtocolAll FilterProtocol = "all"

	// MatchallFilter.Kind
	FilterKindMatchall FilterKind = "matchall"

	// PolicerFilterPriority is the priority of the matchall filter carrying a port policer
	PolicerFilterPriority uint16 = 1
	// PolicerFilterHandle is the handle of the matchall filter carrying a port policer
	PolicerFilterHandle uint32 = 1
)

// FilterProtocol is the type of filter protocol
type FilterProtocol string

// FilterKind is the type of filter
type FilterKind string

// Filter represent a tc filter object
type Filter interface {
	// Attrs returns FilterAttrs
	Attrs() *FilterAttrs
	// Equals compares this Filter with other, returns true if they are equal or false otherwise
	Equals(other Filter) bool

	// Driver Specific related Interfaces
	CmdLineGenerator
}

// FilterAttrs holds filter object attributes
type FilterAttrs struct {
	Kind     FilterKind
	Protocol FilterProtocol
	Chain    *uint32
	Handle   *uint32
	Priority *uint16
}

// NewFilterAttrs creates new FilterAttrs instance
func NewFilterAttrs(
	kind FilterKind, protocol FilterProtocol, chain *uint32, handle *uint32, priority *uint16) *FilterAttrs {
	return &FilterAttrs{
		Kind:     kind,
		Protocol: protocol,
		Chain:    chain,
		Handle:   handle,
		Priority: priority,
	}
}

// GenCmdLineArgs implements CmdLineGenerator interface, it generates the needed tc command line args for FilterAttrs
func (fa *FilterAttrs) GenCmdLineArgs() []string {
	args := []string{}

	if fa.Protocol != "" {
		args = append(args, "protocol", string(fa.Protocol))
	}

	if fa.Handle != nil {
		args = append(args, "handle", strconv.FormatUint(uint64(*fa.Handle), 10))
	}

	if fa.Chain != nil {
		args = append(args, "chain", strconv.FormatUint(uint64(*fa.Chain), 10))
	}

	if fa.Priority != nil {
		args = append(args, "pref", strconv.FormatUint(uint64(*fa.Priority), 10))
	}

	// must be last as next are filter type specific params
	args = append(args, string(fa.Kind))

	return args
}

// Equals compares this FilterAttrs with other, returns true if they are equal or false otherwise
func (fa *FilterAttrs) Equals(other *FilterAttrs) bool {
	if fa == other {
		return true
	}

	if fa == nil || other == nil {
		return false
	}

	if fa.Kind != other.Kind {
		return false
	}
	if fa.Protocol != other.Protocol {
		return false
	}
	defChain := ChainBase
	if !compare(fa.Chain, other.Chain, &defChain) {
		return false
	}
	if !compare(fa.Handle, other.Handle, nil) {
		return false
	}
	return compare(fa.Priority, other.Priority, nil)
}

// MatchallFilter is a concrete implementation of Filter of kind Matchall, it carries a single policer
type MatchallFilter struct {
	FilterAttrs
	// SkipSw requests the filter to be handled in hardware only
	SkipSw bool
	// Policer is the rate limiter attached to the filter
	Policer *Policer
}

// Attrs implements Filter interface, it returns FilterAttrs
func (f *MatchallFilter) Attrs() *FilterAttrs {
	return &f.FilterAttrs
}

// Equals implements Filter interface
func (f *MatchallFilter) Equals(other Filter) bool {
	otherMatchall, ok := other.(*MatchallFilter)
	if !ok {
		return false
	}

	if !f.Attrs().Equals(other.Attrs()) {
		return false
	}

	if f.SkipSw != otherMatchall.SkipSw {
		return false
	}

	if f.Policer == nil || otherMatchall.Policer == nil {
		return f.Policer == otherMatchall.Policer
	}
	return *f.Policer == *otherMatchall.Policer
}

// GenCmdLineArgs implements CmdLineGenerator interface, it generates the needed tc command line args for
// MatchallFilter
func (f *MatchallFilter) GenCmdLineArgs() []string {
	args := []string{}

	args = append(args, f.FilterAttrs.GenCmdLineArgs()...)

	if f.SkipSw {
		args = append(args, "skip_sw")
	}

	if f.Policer != nil {
		args = append(args, f.Policer.GenCmdLineArgs()...)
	}

	return args
}

// Builders

// NewFilterAttrsBuilder returns a new FilterAttrsBuilder
func NewFilterAttrsBuilder() *FilterAttrsBuilder {
	return &FilterAttrsBuilder{}
}

// FilterAttrsBuilder is a FilterAttr builder
type FilterAttrsBuilder struct {
	filterAttrs FilterAttrs
}

// WithKind adds Kind to FilterAttrsBuilder
func (fb *FilterAttrsBuilder) WithKind(k FilterKind) *FilterAttrsBuilder {
	fb.filterAttrs.Kind = k
	return fb
}

// WithProtocol adds Protocol to FilterAttrsBuilder
func (fb *FilterAttrsBuilder) WithProtocol(p FilterProtocol) *FilterAttrsBuilder {
	fb.filterAttrs.Protocol = p
	return fb
}

// WithChain adds Chain index to FilterAttrsBuilder
func (fb *FilterAttrsBuilder) WithChain(c uint32) *FilterAttrsBuilder {
	fb.filterAttrs.Chain = &c
	return fb
}

// WithHandle adds Handle to FilterAttrsBuilder
func (fb *FilterAttrsBuilder) WithHandle(h uint32) *FilterAttrsBuilder {
	fb.filterAttrs.Handle = &h
	return fb
}

// WithPriority adds Priority to FilterAttrsBuilder
func (fb *FilterAttrsBuilder) WithPriority(p uint16) *FilterAttrsBuilder {
	fb.filterAttrs.Priority = &p
	return fb
}

// Build builds and returns a new FilterAttrs instance
// Note: calling Build() multiple times will not return a completely
// new object on each call. that is, pointer/slice/map types will not be deep copied.
// to create several objects, different builders should be used.
func (fb *FilterAttrsBuilder) Build() *FilterAttrs {
	return NewFilterAttrs(fb.filterAttrs.Kind, fb.filterAttrs.Protocol, fb.filterAttrs.Chain, fb.filterAttrs.Handle,
		fb.filterAttrs.Priority)
}

// NewMatchallFilterBuilder returns a new instance of MatchallFilterBuilder
func NewMatchallFilterBuilder() *MatchallFilterBuilder {
	return &MatchallFilterBuilder{
		filterAttrsBuilder: NewFilterAttrsBuilder(),
	}
}

// MatchallFilterBuilder is a MatchallFilter builder
type MatchallFilterBuilder struct {
	filterAttrsBuilder *FilterAttrsBuilder
	matchallFilter     MatchallFilter
}

// WithProtocol adds Protocol to MatchallFilterBuilder
func (fb *MatchallFilterBuilder) WithProtocol(p FilterProtocol) *MatchallFilterBuilder {
	fb.filterAttrsBuilder = fb.filterAttrsBuilder.WithProtocol(p)
	return fb
}

// WithChain adds Chain number to MatchallFilterBuilder
func (fb *MatchallFilterBuilder) WithChain(c uint32) *MatchallFilterBuilder {
	fb.filterAttrsBuilder = fb.filterAttrsBuilder.WithChain(c)
	return fb
}

// WithHandle adds Handle to MatchallFilterBuilder
func (fb *MatchallFilterBuilder) WithHandle(h uint32) *MatchallFilterBuilder {
	fb.filterAttrsBuilder = fb.filterAttrsBuilder.WithHandle(h)
	return fb
}

// WithPriority adds Priority to MatchallFilterBuilder
func (fb *MatchallFilterBuilder) WithPriority(p uint16) *MatchallFilterBuilder {
	fb.filterAttrsBuilder = fb.filterAttrsBuilder.WithPriority(p)
	return fb
}

// WithSkipSw marks the filter as hardware only
func (fb *MatchallFilterBuilder) WithSkipSw() *MatchallFilterBuilder {
	fb.matchallFilter.SkipSw = true
	return fb
}

// WithPolicer attaches the given Policer to MatchallFilterBuilder
func (fb *MatchallFilterBuilder) WithPolicer(p *Policer) *MatchallFilterBuilder {
	fb.matchallFilter.Policer = p
	return fb
}

// Build builds and creates a new MatchallFilter instance
// Note: calling Build() multiple times will not return a completely
// new object on each call. that is, pointer/slice/map types will not be deep copied.
// to create several objects, different builders should be used.
func (fb *MatchallFilterBuilder) Build() *MatchallFilter {
	attrs := fb.filterAttrsBuilder.WithKind(FilterKindMatchall).Build()

	return &MatchallFilter{
		FilterAttrs: *attrs,
		SkipSw:      fb.matchallFilter.SkipSw,
		Policer:     fb.matchallFilter.Policer,
	}
}

// NewPolicerFilter returns the hardware only matchall filter used to carry a port policer
func NewPolicerFilter(p *Policer) *MatchallFilter {
	return NewMatchallFilterBuilder().
		WithProtocol(FilterProtocolAll).
		WithChain(ChainBase).
		WithHandle(PolicerFilterHandle).
		WithPriority(PolicerFilterPriority).
		WithSkipSw().
		WithPolicer(p).
		Build()
}
