package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/apexsim/emu"
	"github.com/sarchlab/apexsim/insts"
)

var _ = Describe("BranchUnit", func() {
	var branchUnit *emu.BranchUnit

	BeforeEach(func() {
		branchUnit = emu.NewBranchUnit()
	})

	DescribeTable("Taken",
		func(op insts.Op, zero, want bool) {
			Expect(branchUnit.Taken(op, zero)).To(Equal(want))
		},
		Entry("BZ with zero set", insts.OpBZ, true, true),
		Entry("BZ with zero clear", insts.OpBZ, false, false),
		Entry("BNZ with zero set", insts.OpBNZ, true, false),
		Entry("BNZ with zero clear", insts.OpBNZ, false, true),
		Entry("JUMP is not conditional", insts.OpJUMP, true, false),
		Entry("ADD never branches", insts.OpADD, false, false),
	)

	Describe("Target", func() {
		It("should branch forward", func() {
			Expect(branchUnit.Target(4000, 8)).To(Equal(int64(4008)))
		})

		It("should branch backward", func() {
			Expect(branchUnit.Target(4016, -8)).To(Equal(int64(4008)))
		})

		It("should allow a zero offset", func() {
			Expect(branchUnit.Target(4004, 0)).To(Equal(int64(4004)))
		})
	})

	Describe("JumpTarget", func() {
		It("should add the immediate to the register", func() {
			Expect(branchUnit.JumpTarget(4000, 12)).To(Equal(int64(4012)))
		})

		It("should accept a negative immediate", func() {
			Expect(branchUnit.JumpTarget(4020, -20)).To(Equal(int64(4000)))
		})
	})
})
