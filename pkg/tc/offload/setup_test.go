package offload_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/mock"
	"golang.org/x/sys/unix"
	klog "k8s.io/klog/v2"

	"github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/metrics"
	"github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc/block"
	tcmocks "github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc/mocks"
	"github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc/offload"
	tctypes "github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc/types"
)

var _ = Describe("Switch tests", func() {
	var policerMock *tcmocks.Policer
	var sw *offload.Switch
	var log = klog.NewKlogr().WithName("tc-offload-switch-test")

	BeforeEach(func() {
		policerMock = tcmocks.NewPolicer(GinkgoT())
		sw = offload.NewSwitch(policerMock, log)
	})

	Context("Ports", func() {
		It("returns the same port when added twice", func() {
			p := sw.AddPort("swp0", 0, true)
			Expect(sw.AddPort("swp0", 3, false)).To(BeIdenticalTo(p))
			Expect(p.ChipPort).To(Equal(0))
			Expect(p.HWTCOffload).To(BeTrue())
		})

		It("returns ports ordered by chip port", func() {
			sw.AddPort("swp2", 2, true)
			sw.AddPort("swp0", 0, true)
			sw.AddPort("swp1", 1, true)

			names := []string{}
			for _, p := range sw.Ports() {
				names = append(names, p.Name)
			}
			Expect(names).To(Equal([]string{"swp0", "swp1", "swp2"}))
		})

		It("looks up ports by name", func() {
			sw.AddPort("swp0", 0, true)
			_, ok := sw.Port("swp0")
			Expect(ok).To(BeTrue())
			_, ok = sw.Port("swp9")
			Expect(ok).To(BeFalse())
		})

		It("starts with empty offload state", func() {
			p := sw.AddPort("swp0", 0, true)
			Expect(p.TC).To(Equal(offload.PortTCState{}))
		})
	})

	Context("SetupTC", func() {
		BeforeEach(func() {
			sw.AddPort("swp0", 0, true)
		})

		It("fails for an unknown device", func() {
			err := sw.SetupTC("eth0", bindRequest(block.NewBlock(1, log), offload.BinderTypeClsactIngress,
				offload.BlockBind))
			Expect(errors.Is(err, unix.ENODEV)).To(BeTrue())
		})

		DescribeTable("rejects setup types other than block",
			func(t offload.SetupType) {
				err := sw.SetupTC("swp0", &offload.SetupRequest{Type: t})
				Expect(errors.Is(err, unix.EOPNOTSUPP)).To(BeTrue())
			},
			Entry("unspec", offload.SetupTypeUnspec),
			Entry("matchall", offload.SetupTypeClsMatchall),
			Entry("flower", offload.SetupTypeClsFlower),
			Entry("u32", offload.SetupTypeClsU32),
			Entry("mqprio", offload.SetupTypeQdiscMqprio),
		)

		It("fails for a block request without a block", func() {
			err := sw.SetupTC("swp0", &offload.SetupRequest{Type: offload.SetupTypeBlock})
			Expect(errors.Is(err, unix.EINVAL)).To(BeTrue())

			err = sw.SetupTC("swp0", &offload.SetupRequest{
				Type:  offload.SetupTypeBlock,
				Block: &offload.BlockOffload{Command: offload.BlockBind, BinderType: offload.BinderTypeClsactIngress},
			})
			Expect(errors.Is(err, unix.EINVAL)).To(BeTrue())
		})
	})

	Context("Policer lifecycle through an ingress block", func() {
		var blk *block.Block
		var port *offload.Port
		var reg *prometheus.Registry

		BeforeEach(func() {
			reg = prometheus.NewRegistry()
			sw = offload.NewSwitch(policerMock, log).WithMetrics(metrics.New(reg))
			port = sw.AddPort("swp0", 0, true)
			blk = block.NewBlock(1, log)
			blk.AddOwner("swp0")
		})

		It("offloads, rejects a second policer and removes it", func() {
			By("binding the ingress block")
			Expect(sw.SetupTC("swp0", bindRequest(blk, offload.BinderTypeClsactIngress, offload.BlockBind))).
				To(Succeed())
			Expect(port.TC.BlockShared).To(BeFalse())

			By("replacing the rule with cookie 7")
			var installed *tctypes.Policer
			policerMock.On("PolicerAdd", "swp0", &tctypes.Policer{Rate: 1000, Burst: 125}).
				Run(func(args mock.Arguments) { installed = args.Get(1).(*tctypes.Policer) }).
				Return(nil).Once()
			_, err := blk.Call(matchallEvent(offload.MatchallReplace, 7, policeAction(125000, time.Millisecond)))
			Expect(err).ToNot(HaveOccurred())
			Expect(installed.RateBitsPerSec()).To(BeEquivalentTo(1000000))
			Expect(installed.Burst).To(BeEquivalentTo(125))
			Expect(port.TC.PoliceID).To(BeEquivalentTo(7))
			Expect(port.TC.OffloadCount).To(Equal(1))

			By("replacing a rule with cookie 9")
			ev := matchallEvent(offload.MatchallReplace, 9, policeAction(250000, time.Millisecond))
			_, err = blk.Call(ev)
			Expect(errors.Is(err, unix.EEXIST)).To(BeTrue())
			Expect(ev.Common.ExtAck.ErrMsg()).To(Equal("Only one policer per port is supported"))
			Expect(port.TC.PoliceID).To(BeEquivalentTo(7))

			By("destroying the rule with cookie 7")
			policerMock.On("PolicerDel", "swp0").Return(nil).Once()
			_, err = blk.Call(matchallEvent(offload.MatchallDestroy, 7))
			Expect(err).ToNot(HaveOccurred())
			Expect(port.TC.PoliceID).To(BeZero())
			Expect(port.TC.OffloadCount).To(BeZero())

			By("destroying the rule with cookie 7 again")
			_, err = blk.Call(matchallEvent(offload.MatchallDestroy, 7))
			Expect(errors.Is(err, unix.ENOENT)).To(BeTrue())

			By("unbinding the ingress block")
			Expect(sw.SetupTC("swp0", bindRequest(blk, offload.BinderTypeClsactIngress, offload.BlockUnbind))).
				To(Succeed())
			Expect(blk.CallbackCount()).To(BeZero())

			By("checking recorded metrics")
			Expect(testutil.GatherAndCount(reg, "switch_tc_offload_policer_operations_total")).To(Equal(2))
			Expect(testutil.GatherAndCount(reg, "switch_tc_offload_rule_events_total")).To(Equal(3))
		})

		It("records rule event results by errno name", func() {
			Expect(sw.SetupTC("swp0", bindRequest(blk, offload.BinderTypeClsactIngress, offload.BlockBind))).
				To(Succeed())

			_, err := blk.Call(matchallEvent(offload.MatchallDestroy, 7))
			Expect(errors.Is(err, unix.ENOENT)).To(BeTrue())
			_, err = blk.Call(matchallEvent(offload.MatchallStats, 7))
			Expect(errors.Is(err, unix.EOPNOTSUPP)).To(BeTrue())

			Expect(testutil.GatherAndCount(reg, "switch_tc_offload_rule_events_total")).To(Equal(2))
			Expect(testutil.GatherAndCount(reg, "switch_tc_offload_offloaded_rules")).To(Equal(1))
		})
	})
})
