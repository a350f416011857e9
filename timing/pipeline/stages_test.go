package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/apexsim/emu"
	"github.com/sarchlab/apexsim/insts"
	"github.com/sarchlab/apexsim/loader"
	"github.com/sarchlab/apexsim/timing/cache"
	"github.com/sarchlab/apexsim/timing/latency"
	"github.com/sarchlab/apexsim/timing/pipeline"
)

var _ = Describe("Pipeline Stages", func() {
	var (
		regFile *emu.RegFile
		memory  *emu.Memory
		decoder *insts.Decoder
	)

	decode := func(line string) *insts.Instruction {
		inst, err := decoder.Decode(line)
		Expect(err).NotTo(HaveOccurred())
		return inst
	}

	latchOf := func(line string, pc int64) *pipeline.StageLatch {
		return &pipeline.StageLatch{Valid: true, PC: pc, Inst: decode(line)}
	}

	BeforeEach(func() {
		regFile = &emu.RegFile{}
		memory = emu.NewMemory(64)
		decoder = insts.NewDecoder()
	})

	Describe("FetchStage", func() {
		It("should fetch the instruction at pc", func() {
			stage := pipeline.NewFetchStage()
			stage.SetProgram(mustParse("MOVC,R1,#1\nHALT"))

			var l pipeline.StageLatch
			Expect(stage.Fetch(4004, &l)).To(BeTrue())
			Expect(l.Valid).To(BeTrue())
			Expect(l.Fault).NotTo(HaveOccurred())
			Expect(l.Done).To(BeTrue())
			Expect(l.Inst.Op).To(Equal(insts.OpHALT))
		})

		It("should leave a bubble outside the store", func() {
			stage := pipeline.NewFetchStage()
			stage.SetProgram(mustParse("HALT"))

			var l pipeline.StageLatch
			Expect(stage.Fetch(4004, &l)).To(BeFalse())
			Expect(l.Valid).To(BeFalse())
		})

		It("should carry a misaligned fetch as a faulted latch", func() {
			stage := pipeline.NewFetchStage()
			stage.SetProgram(mustParse("MOVC,R1,#1\nHALT"))

			var l pipeline.StageLatch
			Expect(stage.Fetch(4002, &l)).To(BeTrue())
			Expect(l.Valid).To(BeTrue())
			Expect(l.PC).To(Equal(int64(4002)))
			Expect(l.Inst).To(BeNil())
			Expect(l.Fault).To(MatchError(loader.ErrMisalignedPC))
		})
	})

	Describe("DecodeStage", func() {
		var (
			stage             *pipeline.DecodeStage
			memory2, writeback pipeline.StageLatch
		)

		BeforeEach(func() {
			stage = pipeline.NewDecodeStage(regFile, pipeline.NewHazardUnit(regFile))
			memory2 = pipeline.StageLatch{}
			writeback = pipeline.StageLatch{}
		})

		It("should read sources and claim the destination", func() {
			regFile.WriteReg(1, 10)
			regFile.WriteReg(2, 20)
			l := latchOf("ADD,R3,R1,R2", 4000)

			result := stage.Decode(l, &memory2, &writeback)
			Expect(result.Stalled).To(BeFalse())
			Expect(l.Done).To(BeTrue())
			Expect(l.Claimed).To(BeTrue())
			Expect(l.Rs1Val).To(Equal(int64(10)))
			Expect(l.Rs2Val).To(Equal(int64(20)))
			Expect(regFile.Pending(3)).To(Equal(1))
		})

		It("should stall without claiming on a pending source", func() {
			regFile.Claim(1)
			l := latchOf("ADDL,R3,R1,#1", 4000)

			result := stage.Decode(l, &memory2, &writeback)
			Expect(result.Stalled).To(BeTrue())
			Expect(result.DataHazard).To(BeTrue())
			Expect(l.Done).To(BeFalse())
			Expect(regFile.Pending(3)).To(Equal(0))
		})

		It("should not claim for stores and branches", func() {
			l := latchOf("STORE,R1,R2,#3", 4000)
			stage.Decode(l, &memory2, &writeback)
			Expect(l.Claimed).To(BeFalse())
		})

		It("should flag HALT", func() {
			result := stage.Decode(latchOf("HALT", 4000), &memory2, &writeback)
			Expect(result.Halt).To(BeTrue())
		})
	})

	Describe("ExecuteStage", func() {
		var (
			stage *pipeline.ExecuteStage
			zero  bool
		)

		BeforeEach(func() {
			stage = pipeline.NewExecuteStage(memory, latency.NewTable())
			zero = false
		})

		It("should compute ALU results and set the zero flag", func() {
			l := latchOf("SUB,R3,R1,R2", 4000)
			l.Rs1Val, l.Rs2Val = 7, 7

			stage.Enter(l)
			result := stage.Execute(l, &zero)
			Expect(result.Busy).To(BeFalse())
			Expect(l.Done).To(BeTrue())
			Expect(l.Result).To(Equal(int64(0)))
			Expect(zero).To(BeTrue())
		})

		It("should hold MUL for two cycles", func() {
			l := latchOf("MUL,R3,R1,R2", 4000)
			l.Rs1Val, l.Rs2Val = 3, 4

			stage.Enter(l)
			Expect(stage.Execute(l, &zero).Busy).To(BeTrue())
			Expect(l.Done).To(BeFalse())

			Expect(stage.Execute(l, &zero).Busy).To(BeFalse())
			Expect(l.Result).To(Equal(int64(12)))
		})

		It("should compute effective addresses", func() {
			l := latchOf("STR,R1,R2,R3", 4000)
			l.Rs2Val, l.Rs3Val = 5, 6

			stage.Enter(l)
			stage.Execute(l, &zero)
			Expect(l.MemAddr).To(Equal(int64(11)))
		})

		It("should clear the zero flag for a taken BZ", func() {
			zero = true
			l := latchOf("BZ,#-12", 4020)

			stage.Enter(l)
			stage.Execute(l, &zero)
			Expect(l.Taken).To(BeTrue())
			Expect(l.Target).To(Equal(int64(4008)))
			Expect(zero).To(BeFalse())
			Expect(l.ZeroSnapshot).To(BeFalse())
		})

		It("should keep the zero flag for a taken BNZ", func() {
			zero = false
			l := latchOf("BNZ,#8", 4000)

			stage.Enter(l)
			stage.Execute(l, &zero)
			Expect(l.Taken).To(BeTrue())
			Expect(zero).To(BeFalse())
			Expect(l.ZeroSnapshot).To(BeFalse())
		})

		It("should keep the zero flag for an untaken BZ", func() {
			zero = false
			l := latchOf("BZ,#8", 4000)

			stage.Enter(l)
			stage.Execute(l, &zero)
			Expect(l.Taken).To(BeFalse())
			Expect(l.ZeroSnapshot).To(BeFalse())
		})

		It("should leave a BNZ untaken when zero is set", func() {
			zero = true
			l := latchOf("BNZ,#8", 4000)

			stage.Enter(l)
			stage.Execute(l, &zero)
			Expect(l.Taken).To(BeFalse())
			Expect(l.Target).To(Equal(int64(0)))
		})

		It("should resolve JUMP", func() {
			l := latchOf("JUMP,R1,#4", 4000)
			l.Rs1Val = 4000

			stage.Enter(l)
			result := stage.Execute(l, &zero)
			Expect(result.Jump).To(BeTrue())
			Expect(result.JumpTarget).To(Equal(int64(4004)))
		})

		It("should report an instruction it cannot execute", func() {
			l := &pipeline.StageLatch{Valid: true, Inst: insts.New(insts.OpUnknown)}

			stage.Enter(l)
			Expect(stage.Execute(l, &zero).Err).To(HaveOccurred())
		})
	})

	Describe("MemoryStage", func() {
		var stage *pipeline.MemoryStage

		BeforeEach(func() {
			stage = pipeline.NewMemoryStage(memory, latency.NewTable())
		})

		It("should store and load", func() {
			st := latchOf("STORE,R1,R2,#0", 4000)
			st.MemAddr, st.Rs1Val = 9, 123
			Expect(stage.Enter(st).Err).NotTo(HaveOccurred())
			Expect(memory.Peek(9)).To(Equal(int64(123)))

			ld := latchOf("LOAD,R1,R2,#0", 4004)
			ld.MemAddr = 9
			Expect(stage.Enter(ld).Err).NotTo(HaveOccurred())
			Expect(stage.Tick(ld)).To(BeFalse())
			Expect(ld.Result).To(Equal(int64(123)))
		})

		It("should fault outside the data store", func() {
			ld := latchOf("LOAD,R1,R2,#0", 4000)
			ld.MemAddr = 64
			Expect(stage.Enter(ld).Err).To(MatchError(emu.ErrAddressOutOfRange))
		})

		It("should redirect on a taken branch", func() {
			br := latchOf("BZ,#8", 4004)
			br.Taken, br.Target = true, 4012

			result := stage.Enter(br)
			Expect(result.Redirect).To(BeTrue())
			Expect(result.Target).To(Equal(int64(4012)))
		})

		It("should use the data cache latency", func() {
			stage.SetDCache(cache.New(cache.DefaultL1DConfig(), cache.NewMemoryBacking(memory)))

			ld := latchOf("LOAD,R1,R2,#0", 4000)
			ld.MemAddr = 3
			stage.Enter(ld)
			Expect(ld.Remaining).To(Equal(cache.DefaultL1DConfig().MissLatency))
		})
	})

	Describe("WritebackStage", func() {
		It("should commit and release the destination", func() {
			stage := pipeline.NewWritebackStage(regFile)
			regFile.Claim(4)
			l := latchOf("MOVC,R4,#8", 4000)
			l.Claimed, l.Result = true, 8

			halt, err := stage.Writeback(l)
			Expect(err).NotTo(HaveOccurred())
			Expect(halt).To(BeFalse())
			Expect(l.Committed).To(BeTrue())
			Expect(regFile.ReadReg(4)).To(Equal(int64(8)))
			Expect(regFile.Ready(4)).To(BeTrue())
		})

		It("should surface a scoreboard underflow", func() {
			stage := pipeline.NewWritebackStage(regFile)
			l := latchOf("MOVC,R4,#8", 4000)
			l.Claimed = true

			_, err := stage.Writeback(l)
			Expect(err).To(MatchError(emu.ErrScoreboardUnderflow))
		})

		It("should report HALT", func() {
			stage := pipeline.NewWritebackStage(regFile)
			halt, err := stage.Writeback(latchOf("HALT", 4000))
			Expect(err).NotTo(HaveOccurred())
			Expect(halt).To(BeTrue())
		})
	})
})
