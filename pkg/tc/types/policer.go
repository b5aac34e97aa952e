package types

import (
	"fmt"
	"strconv"
	"time"
)

const (
	// PschedShift is the shift between nanoseconds and packet scheduler ticks
	PschedShift = 6
	// PschedTicksPerSec is the packet scheduler tick frequency
	PschedTicksPerSec uint64 = uint64(time.Second) >> PschedShift
)

// PschedNS2Ticks converts a duration to packet scheduler ticks. negative durations yield 0.
func PschedNS2Ticks(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(d) >> PschedShift
}

// Policer is the configuration of a per port hardware rate limiter.
// Rate is kept in the hardware granularity of kbit/s, Burst is in bytes.
type Policer struct {
	Rate  uint32
	Burst uint32
}

// NewPolicerFromPoliceAction computes the hardware Policer configuration for the given police action.
//
// Rate is truncated to whole kilobytes before being converted to kbit/s (divide first, then multiply by 8).
// Burst is the number of bytes transmitted at rate during the burst duration, measured in scheduler ticks.
// Both values are truncated to 32 bit.
func NewPolicerFromPoliceAction(action *PoliceAction) *Policer {
	return &Policer{
		Rate:  uint32(action.RateBytesPerSec/1000) * 8,
		Burst: uint32(action.RateBytesPerSec * PschedNS2Ticks(action.Burst) / PschedTicksPerSec),
	}
}

// RateBitsPerSec returns the policer rate in bits per second
func (p *Policer) RateBitsPerSec() uint64 {
	return uint64(p.Rate) * 1000
}

// RateBytesPerSec returns the policer rate in bytes per second
func (p *Policer) RateBytesPerSec() uint64 {
	return p.RateBitsPerSec() / 8
}

// String returns a human readable representation of the policer
func (p *Policer) String() string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("rate %dkbit burst %d", p.Rate, p.Burst)
}

// GenCmdLineArgs implements CmdLineGenerator interface, drop is used for exceeding traffic
func (p *Policer) GenCmdLineArgs() []string {
	return []string{"action", string(ActionTypePolice),
		"rate", strconv.FormatUint(uint64(p.Rate), 10) + "kbit",
		"burst", strconv.FormatUint(uint64(p.Burst), 10),
		"conform-exceed", "drop/pipe"}
}
