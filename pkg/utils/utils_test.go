package utils_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/k8snetworkplumbingwg/switch-tc-offload/pkg/utils"
)

var _ = Describe("utils test", func() {
	Context("PathExists()", func() {
		var tempDir string

		BeforeEach(func() {
			tempDir = GinkgoT().TempDir()
		})

		It("returns true for existing file", func() {
			path := filepath.Join(tempDir, "file")
			Expect(os.WriteFile(path, []byte("data"), 0600)).To(Succeed())
			exist, err := utils.PathExists(path)
			Expect(err).ToNot(HaveOccurred())
			Expect(exist).To(BeTrue())
		})

		It("returns true for existing directory", func() {
			exist, err := utils.PathExists(tempDir)
			Expect(err).ToNot(HaveOccurred())
			Expect(exist).To(BeTrue())
		})

		It("returns false for non existent path", func() {
			exist, err := utils.PathExists(filepath.Join(tempDir, "does", "not", "exist"))
			Expect(err).ToNot(HaveOccurred())
			Expect(exist).To(BeFalse())
		})
	})

	DescribeTable("IsPCIAddress()",
		func(s string, expected bool) {
			Expect(utils.IsPCIAddress(s)).To(Equal(expected))
		},
		Entry("VF address", "0000:03:00.4", true),
		Entry("upper case hex", "0000:AF:1F.7", true),
		Entry("netdev name", "swp0", false),
		Entry("missing domain", "03:00.4", false),
		Entry("invalid function", "0000:03:00.8", false),
		Entry("empty", "", false),
	)
})
