package proofing_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cf-platform-eng/tile-generator/pkg/proofing"
)

var _ = Describe("IntegerConstraints", func() {
	DescribeTable("CheckValue",
		func(constraint proofing.IntegerConstraints, value int, matcher OmegaMatcher) {
			Expect(constraint.CheckValue(value)).To(matcher)
		},
		Entry("below min", proofing.IntegerConstraints{Min: ptr(3)}, 1, MatchError(ContainSubstring("greater than"))),
		Entry("above max", proofing.IntegerConstraints{Max: ptr(3)}, 5, MatchError(ContainSubstring("less than"))),
		Entry("at min", proofing.IntegerConstraints{Min: ptr(3)}, 3, Not(HaveOccurred())),
		Entry("between min and max", proofing.IntegerConstraints{Min: ptr(4), Max: ptr(5)}, 4, Not(HaveOccurred())),
		Entry("odd or zero with even value", proofing.IntegerConstraints{MayOnlyBeOddOrZero: ptr(true)}, 4, MatchError(ContainSubstring("odd"))),
		Entry("odd or zero with zero", proofing.IntegerConstraints{MayOnlyBeOddOrZero: ptr(true)}, 0, Not(HaveOccurred())),
		Entry("modulo mismatch", proofing.IntegerConstraints{Modulo: ptr(5)}, 4, MatchError(ContainSubstring("multiple"))),
		Entry("zero or min below min", proofing.IntegerConstraints{ZeroOrMin: ptr(5)}, 3, MatchError(ContainSubstring("at least"))),
		Entry("power of two with 3", proofing.IntegerConstraints{PowerOfTwo: ptr(true)}, 3, MatchError(ContainSubstring("power of two"))),
		Entry("power of two with 8", proofing.IntegerConstraints{PowerOfTwo: ptr(true)}, 8, Not(HaveOccurred())),
	)

	Describe("IntegerConstraintsFromMap", func() {
		It("reads known keys", func() {
			c := proofing.IntegerConstraintsFromMap(map[string]any{"min": 1, "max": 4.0, "power_of_two": true, "other": "x"})
			Expect(c).NotTo(BeNil())
			Expect(*c.Min).To(Equal(1))
			Expect(*c.Max).To(Equal(4))
			Expect(*c.PowerOfTwo).To(BeTrue())
			Expect(c.Modulo).To(BeNil())
		})

		It("returns nil for an empty map", func() {
			Expect(proofing.IntegerConstraintsFromMap(nil)).To(BeNil())
		})
	})
})
