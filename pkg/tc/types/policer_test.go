package types_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc/types"
)

var _ = Describe("Policer tests", func() {
	Context("PschedNS2Ticks", func() {
		It("converts durations to scheduler ticks", func() {
			Expect(types.PschedNS2Ticks(time.Millisecond)).To(BeEquivalentTo(15625))
			Expect(types.PschedNS2Ticks(time.Second)).To(Equal(types.PschedTicksPerSec))
			Expect(types.PschedNS2Ticks(63)).To(BeEquivalentTo(0))
		})

		It("returns 0 for non positive durations", func() {
			Expect(types.PschedNS2Ticks(0)).To(BeEquivalentTo(0))
			Expect(types.PschedNS2Ticks(-time.Second)).To(BeEquivalentTo(0))
		})
	})

	DescribeTable("NewPolicerFromPoliceAction",
		func(rate uint64, burst time.Duration, expectedRate uint32, expectedRateBps uint64, expectedBurst uint32) {
			p := types.NewPolicerFromPoliceAction(types.NewPoliceAction(rate, burst))
			Expect(p.Rate).To(Equal(expectedRate))
			Expect(p.RateBitsPerSec()).To(Equal(expectedRateBps))
			Expect(p.Burst).To(Equal(expectedBurst))
		},
		Entry("truncates sub kilobyte rates to 0", uint64(999), time.Millisecond, uint32(0), uint64(0), uint32(0)),
		Entry("1000 B/s is 8 kbit/s", uint64(1000), time.Second, uint32(8), uint64(8000), uint32(1000)),
		Entry("truncates before multiplying", uint64(1999), time.Second, uint32(8), uint64(8000), uint32(1999)),
		Entry("125000 B/s with 1ms burst", uint64(125000), time.Millisecond, uint32(1000), uint64(1000000), uint32(125)),
		Entry("1 GB/s with 10ms burst", uint64(1000000000), 10*time.Millisecond, uint32(8000000), uint64(8000000000),
			uint32(10000000)),
		Entry("zero burst", uint64(125000), time.Duration(0), uint32(1000), uint64(1000000), uint32(0)),
		Entry("burst truncates to 32 bit", uint64(math.MaxUint32), 2*time.Second, uint32(math.MaxUint32/1000)*8,
			uint64(uint32(math.MaxUint32/1000)*8)*1000, uint32(4294967294)),
	)

	Context("String and CmdLineGenerator", func() {
		p := &types.Policer{Rate: 1000, Burst: 125}

		It("returns expected string", func() {
			Expect(p.String()).To(Equal("rate 1000kbit burst 125"))
		})

		It("returns a placeholder string for a nil policer", func() {
			var nilPolicer *types.Policer
			Expect(nilPolicer.String()).To(Equal("<nil>"))
		})

		It("generates expected command line args", func() {
			Expect(p.GenCmdLineArgs()).To(Equal(
				[]string{"action", "police", "rate", "1000kbit", "burst", "125", "conform-exceed", "drop/pipe"}))
		})

		It("returns rate in bytes per second", func() {
			Expect(p.RateBytesPerSec()).To(BeEquivalentTo(125000))
		})
	})
})
