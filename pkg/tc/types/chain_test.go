package types_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/tc/types"
)

var _ = Describe("Chain tests", func() {
	DescribeTable("IsBaseChain",
		func(chain uint32, expected bool) {
			Expect(types.IsBaseChain(chain)).To(Equal(expected))
		},
		Entry("chain 0 is the base chain", uint32(0), true),
		Entry("chain 1 is not the base chain", uint32(1), false),
		Entry("chain 100 is not the base chain", uint32(100), false),
	)
})
