package cmdline

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("parseMajorMinor", func() {
	DescribeTable("parses tc handles",
		func(mm string, expected uint32) {
			v, err := parseMajorMinor(mm)
			Expect(err).ToNot(HaveOccurred())
			Expect(v).To(Equal(expected))
		},
		Entry("major only", "abcd", uint32(0xabcd)),
		Entry("full handle", "abcdef01", uint32(0xabcdef01)),
		Entry("major with empty minor", "ffff:", uint32(0xffff0000)),
		Entry("major and minor", "ffff:fff1", uint32(0xfffffff1)),
	)

	DescribeTable("fails on malformed handles",
		func(mm string) {
			_, err := parseMajorMinor(mm)
			Expect(err).To(HaveOccurred())
		},
		Entry("not hex", "xyz"),
		Entry("bad minor", "ffff:zz"),
		Entry("too many parts", "1:2:3"),
	)
})
