package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/apexsim/emu"
	"github.com/sarchlab/apexsim/insts"
	"github.com/sarchlab/apexsim/timing/pipeline"
)

var _ = Describe("HazardUnit", func() {
	var (
		regFile *emu.RegFile
		unit    *pipeline.HazardUnit
		decoder *insts.Decoder
	)

	decode := func(line string) *insts.Instruction {
		inst, err := decoder.Decode(line)
		Expect(err).NotTo(HaveOccurred())
		return inst
	}

	BeforeEach(func() {
		regFile = &emu.RegFile{}
		unit = pipeline.NewHazardUnit(regFile)
		decoder = insts.NewDecoder()
	})

	Describe("PendingSource", func() {
		It("should report no hazard when sources are ready", func() {
			_, pending := unit.PendingSource(decode("ADD,R3,R1,R2"))
			Expect(pending).To(BeFalse())
		})

		It("should report the first pending source", func() {
			regFile.Claim(2)
			reg, pending := unit.PendingSource(decode("ADD,R3,R1,R2"))
			Expect(pending).To(BeTrue())
			Expect(reg).To(Equal(uint8(2)))
		})

		It("should ignore a pending destination", func() {
			regFile.Claim(3)
			Expect(unit.SourcesReady(decode("ADD,R3,R1,R2"))).To(BeTrue())
		})

		It("should treat the stored value as a source", func() {
			regFile.Claim(5)
			Expect(unit.SourcesReady(decode("STORE,R5,R1,#0"))).To(BeFalse())
		})

		It("should check all three sources of STR", func() {
			regFile.Claim(7)
			Expect(unit.SourcesReady(decode("STR,R5,R6,R7"))).To(BeFalse())
		})

		It("should never stall MOVC or HALT", func() {
			for r := uint8(0); r < insts.NumRegs; r++ {
				regFile.Claim(r)
			}
			Expect(unit.SourcesReady(decode("MOVC,R1,#1"))).To(BeTrue())
			Expect(unit.SourcesReady(decode("HALT"))).To(BeTrue())
		})

		It("should become ready once the write is released", func() {
			regFile.Claim(1)
			Expect(unit.SourcesReady(decode("JUMP,R1,#0"))).To(BeFalse())
			Expect(regFile.Release(1)).To(Succeed())
			Expect(unit.SourcesReady(decode("JUMP,R1,#0"))).To(BeTrue())
		})
	})

	Describe("DetectBranchHazard", func() {
		var memory2, writeback pipeline.StageLatch

		BeforeEach(func() {
			memory2 = pipeline.StageLatch{}
			writeback = pipeline.StageLatch{}
		})

		It("should not stall when downstream stages are empty", func() {
			Expect(unit.DetectBranchHazard(decode("BZ,#8"), &memory2, &writeback)).To(BeFalse())
		})

		It("should stall behind arithmetic in Memory 2", func() {
			memory2 = pipeline.StageLatch{Valid: true, Inst: decode("SUBL,R1,R1,#1")}
			Expect(unit.DetectBranchHazard(decode("BNZ,#-8"), &memory2, &writeback)).To(BeTrue())
		})

		It("should not stall behind committed arithmetic in Writeback", func() {
			writeback = pipeline.StageLatch{Valid: true, Inst: decode("ADD,R1,R2,R3"), Committed: true}
			Expect(unit.DetectBranchHazard(decode("BZ,#8"), &memory2, &writeback)).To(BeFalse())
		})

		It("should not stall behind memory instructions", func() {
			memory2 = pipeline.StageLatch{Valid: true, Inst: decode("LOAD,R1,R2,#0")}
			Expect(unit.DetectBranchHazard(decode("BZ,#8"), &memory2, &writeback)).To(BeFalse())
		})

		It("should only apply to conditional branches", func() {
			memory2 = pipeline.StageLatch{Valid: true, Inst: decode("ADD,R1,R2,R3")}
			Expect(unit.DetectBranchHazard(decode("JUMP,R1,#0"), &memory2, &writeback)).To(BeFalse())
			Expect(unit.DetectBranchHazard(nil, &memory2, &writeback)).To(BeFalse())
		})
	})
})
