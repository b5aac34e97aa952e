package server

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/mock"

	netmocks "github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/net/mocks"
	tcmocks "github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc/mocks"
	tctypes "github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc/types"
)

const serverConfig = `
ports:
- name: swp0
  chipPort: 0
- pciAddress: "0000:03:00.0"
  chipPort: 1
blocks:
- index: 1
  binds:
  - port: swp0
    binder: clsact-ingress
  rules:
  - name: limit-1mbit
    cookie: 7
    actions:
    - police:
        rateBytesPerSec: 125000
        burst: 1ms
- index: 2
  binds:
  - port: "0000:03:00.0"
    binder: clsact-egress
  rules:
  - name: egress-limit
    cookie: 9
    actions:
    - police:
        rateBytesPerSec: 125000
        burst: 1ms
`

var _ = Describe("Server test", func() {
	var policerMock *tcmocks.Policer
	var sriovnetMock *netmocks.SriovnetProvider
	var opts *Options

	newTestServer := func(config string) *Server {
		cfg, err := ParseConfig([]byte(config))
		ExpectWithOffset(1, err).ToNot(HaveOccurred())
		s, err := newServer(opts, cfg)
		ExpectWithOffset(1, err).ToNot(HaveOccurred())
		return s
	}

	BeforeEach(func() {
		policerMock = tcmocks.NewPolicer(GinkgoT())
		sriovnetMock = netmocks.NewSriovnetProvider(GinkgoT())
		opts = NewOptions()
		opts.policer = policerMock
		opts.sriovnetProvider = sriovnetMock
		opts.netlinkProvider = netmocks.NewNetlinkProvider(GinkgoT())
	})

	Context("Options", func() {
		It("validates policer driver", func() {
			o := NewOptions()
			o.ConfigPath = "/etc/switch-tc-offload/config.yaml"
			Expect(o.Validate()).To(Succeed())

			o.PolicerDriver = PolicerDriverCmdline
			Expect(o.Validate()).To(Succeed())

			o.PolicerDriver = "ebpf"
			Expect(o.Validate()).To(HaveOccurred())
		})

		It("requires a state path for the none driver", func() {
			o := NewOptions()
			o.ConfigPath = "/etc/switch-tc-offload/config.yaml"
			o.PolicerDriver = PolicerDriverNone
			Expect(o.Validate()).To(HaveOccurred())

			o.PolicerStatePath = "/var/run/switch-tc-offload/policers"
			Expect(o.Validate()).To(Succeed())
		})

		It("requires a config path", func() {
			_, err := NewServer(NewOptions())
			Expect(err).To(HaveOccurred())
		})
	})

	Context("Basic", func() {
		It("resolves ports by PCI address", func() {
			sriovnetMock.On("GetUplinkRepresentor", "0000:03:00.0").Return("p0", nil)
			s := newTestServer(serverConfig)

			names := []string{}
			for _, p := range s.Switch().Ports() {
				names = append(names, p.Name)
			}
			Expect(names).To(Equal([]string{"swp0", "p0"}))
		})

		It("fails when uplink representor is not found", func() {
			sriovnetMock.On("GetUplinkRepresentor", "0000:03:00.0").Return("", errors.New("test error!"))
			cfg, err := ParseConfig([]byte(serverConfig))
			Expect(err).ToNot(HaveOccurred())
			_, err = newServer(opts, cfg)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("Apply and Teardown", func() {
		It("offloads ingress rules and rejects egress rules", func() {
			sriovnetMock.On("GetUplinkRepresentor", "0000:03:00.0").Return("p0", nil)
			policerMock.On("PolicerAdd", "swp0", &tctypes.Policer{Rate: 1000, Burst: 125}).Return(nil).Once()
			s := newTestServer(serverConfig)

			err := s.Apply()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("Only ingress is supported"))

			swp0, _ := s.Switch().Port("swp0")
			Expect(swp0.TC.PoliceID).To(BeEquivalentTo(7))
			p0, _ := s.Switch().Port("p0")
			Expect(p0.TC.PoliceID).To(BeZero())
			Expect(s.bindings).To(HaveLen(2))
			Expect(s.rules).To(HaveLen(1))

			policerMock.On("PolicerDel", "swp0").Return(nil).Once()
			Expect(s.Teardown()).To(Succeed())
			Expect(swp0.TC.PoliceID).To(BeZero())
			Expect(swp0.TC.OffloadCount).To(BeZero())
			for _, b := range s.blocks {
				Expect(b.CallbackCount()).To(BeZero())
				Expect(b.Owners()).To(BeEmpty())
			}
		})

		It("rejects rate limiting on shared blocks", func() {
			s := newTestServer(`
ports:
- name: swp0
  chipPort: 0
- name: swp1
  chipPort: 1
blocks:
- index: 1
  binds:
  - port: swp0
    binder: clsact-ingress
  - port: swp1
    binder: clsact-ingress
  rules:
  - cookie: 7
    actions:
    - police:
        rateBytesPerSec: 125000
        burst: 1ms
`)
			err := s.Apply()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("shared blocks"))
			Expect(s.rules).To(BeEmpty())
			policerMock.AssertNotCalled(GinkgoT(), "PolicerAdd", mock.Anything, mock.Anything)

			Expect(s.Teardown()).To(Succeed())
		})

		It("keeps port state when the policer fails to remove", func() {
			policerMock.On("PolicerAdd", "swp0", mock.Anything).Return(nil).Once()
			policerMock.On("PolicerDel", "swp0").Return(errors.New("test error!")).Once()
			s := newTestServer(`
ports:
- name: swp0
  chipPort: 0
blocks:
- index: 1
  binds:
  - port: swp0
    binder: clsact-ingress
  rules:
  - cookie: 7
    actions:
    - police:
        rateBytesPerSec: 125000
        burst: 1ms
`)
			Expect(s.Apply()).To(Succeed())
			Expect(s.Teardown()).ToNot(Succeed())

			swp0, _ := s.Switch().Port("swp0")
			Expect(swp0.TC.PoliceID).To(BeEquivalentTo(7))
			Expect(swp0.TC.OffloadCount).To(Equal(1))
		})

		It("records metrics", func() {
			policerMock.On("PolicerAdd", "swp0", mock.Anything).Return(nil).Once()
			s := newTestServer(`
ports:
- name: swp0
  chipPort: 0
blocks:
- index: 1
  binds:
  - port: swp0
    binder: clsact-ingress
  rules:
  - cookie: 7
    actions:
    - police:
        rateBytesPerSec: 125000
        burst: 1ms
`)
			Expect(s.Apply()).To(Succeed())
			Expect(testutil.GatherAndCount(s.Registry, "switch_tc_offload_policer_operations_total")).To(Equal(1))
			Expect(testutil.GatherAndCount(s.Registry, "switch_tc_offload_offloaded_rules")).To(Equal(1))
		})
	})

	Context("Run", func() {
		It("applies configuration and removes it when context is done", func() {
			policerMock.On("PolicerAdd", "swp0", mock.Anything).Return(nil).Once()
			policerMock.On("PolicerDel", "swp0").Return(nil).Once()
			s := newTestServer(`
ports:
- name: swp0
  chipPort: 0
blocks:
- index: 1
  binds:
  - port: swp0
    binder: clsact-ingress
  rules:
  - cookie: 7
    actions:
    - police:
        rateBytesPerSec: 125000
        burst: 1ms
`)
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error)
			go func() {
				defer GinkgoRecover()
				done <- s.Run(ctx)
			}()

			swp0, _ := s.Switch().Port("swp0")
			Eventually(func() uint64 {
				s.mu.Lock()
				defer s.mu.Unlock()
				return swp0.TC.PoliceID
			}, time.Second, 10*time.Millisecond).Should(BeEquivalentTo(7))

			cancel()
			Eventually(done, time.Second).Should(Receive(BeNil()))
			Expect(swp0.TC.PoliceID).To(BeZero())
		})

		It("records policers to file with the none driver", func() {
			statePath := filepath.Join(GinkgoT().TempDir(), "policers")
			opts.policer = nil
			opts.PolicerDriver = PolicerDriverNone
			opts.PolicerStatePath = statePath
			s := newTestServer(`
ports:
- name: swp0
  chipPort: 0
blocks:
- index: 1
  binds:
  - port: swp0
    binder: clsact-ingress
  rules:
  - cookie: 7
    actions:
    - police:
        rateBytesPerSec: 125000
        burst: 1ms
`)
			Expect(s.Apply()).To(Succeed())
			Expect(statePath).To(BeARegularFile())
			Expect(s.Teardown()).To(Succeed())
		})
	})
})
