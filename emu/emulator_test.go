package emu_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/apexsim/emu"
	"github.com/sarchlab/apexsim/loader"
)

func mustParse(src string) *loader.Program {
	prog, err := loader.Parse(strings.NewReader(src))
	Expect(err).NotTo(HaveOccurred())
	return prog
}

var _ = Describe("Emulator", func() {
	var e *emu.Emulator

	BeforeEach(func() {
		e = emu.NewEmulator()
	})

	Describe("NewEmulator", func() {
		It("should create an emulator with initialized components", func() {
			Expect(e.RegFile()).NotTo(BeNil())
			Expect(e.Memory().Size()).To(Equal(emu.DefaultMemorySize))
		})

		It("should use a provided memory", func() {
			memory := emu.NewMemory(8)
			e = emu.NewEmulator(emu.WithMemory(memory))
			Expect(e.Memory()).To(BeIdenticalTo(memory))
		})
	})

	Describe("Run", func() {
		It("should add two constants", func() {
			e.LoadProgram(mustParse("MOVC,R1,#5\nMOVC,R2,#10\nADD,R3,R1,R2\nHALT\n"))

			Expect(e.Run()).To(Succeed())
			Expect(e.RegFile().ReadReg(3)).To(Equal(int64(15)))
			Expect(e.InstructionCount()).To(Equal(uint64(3)))
		})

		It("should store and load through memory", func() {
			e.LoadProgram(mustParse(`
MOVC,R1,#77
MOVC,R2,#10
STORE,R1,R2,#5
LOAD,R3,R2,#5
MOVC,R4,#3
STR,R3,R2,R4
LDR,R5,R2,R4
HALT
`))

			Expect(e.Run()).To(Succeed())
			Expect(e.Memory().Peek(15)).To(Equal(int64(77)))
			Expect(e.Memory().Peek(13)).To(Equal(int64(77)))
			Expect(e.RegFile().ReadReg(5)).To(Equal(int64(77)))
		})

		It("should take BZ when the last result was zero", func() {
			e.LoadProgram(mustParse("MOVC,R1,#0\nBZ,#8\nMOVC,R2,#99\nHALT\n"))

			Expect(e.Run()).To(Succeed())
			Expect(e.RegFile().ReadReg(2)).To(Equal(int64(0)))
			Expect(e.InstructionCount()).To(Equal(uint64(2)))
		})

		It("should clear the zero flag when BZ is taken", func() {
			e.LoadProgram(mustParse("MOVC,R1,#0\nBZ,#8\nHALT\nBZ,#8\nMOVC,R2,#5\nHALT\n"))

			Expect(e.Run()).To(Succeed())
			Expect(e.RegFile().ReadReg(2)).To(Equal(int64(5)))
			Expect(e.ZeroFlag()).To(BeFalse())
		})

		It("should loop with BNZ", func() {
			e.LoadProgram(mustParse(`
MOVC,R1,#3
MOVC,R2,#0
ADDL,R2,R2,#2
SUBL,R1,R1,#1
BNZ,#-8
HALT
`))

			Expect(e.Run()).To(Succeed())
			Expect(e.RegFile().ReadReg(1)).To(Equal(int64(0)))
			Expect(e.RegFile().ReadReg(2)).To(Equal(int64(6)))
		})

		It("should jump to an absolute address", func() {
			e.LoadProgram(mustParse("MOVC,R1,#4000\nJUMP,R1,#12\nMOVC,R2,#1\nHALT\n"))

			Expect(e.Run()).To(Succeed())
			Expect(e.RegFile().ReadReg(2)).To(Equal(int64(0)))
		})

		It("should exit after the last instruction without HALT", func() {
			e.LoadProgram(mustParse("MOVC,R1,#1\nMOVC,R2,#2\n"))

			Expect(e.Run()).To(Succeed())
			Expect(e.InstructionCount()).To(Equal(uint64(2)))
			Expect(e.PC()).To(Equal(int64(4008)))
		})

		It("should fault on an out-of-range store", func() {
			e.LoadProgram(mustParse("MOVC,R1,#5000\nSTORE,R1,R1,#0\nHALT\n"))

			Expect(e.Run()).To(MatchError(emu.ErrAddressOutOfRange))
		})

		It("should fault on a misaligned jump", func() {
			e.LoadProgram(mustParse("MOVC,R1,#4001\nJUMP,R1,#0\n"))

			Expect(e.Run()).To(MatchError(loader.ErrMisalignedPC))
		})

		It("should stop at the instruction limit", func() {
			e = emu.NewEmulator(emu.WithMaxInstructions(10))
			e.LoadProgram(mustParse("MOVC,R1,#4000\nJUMP,R1,#0\n"))

			Expect(e.Run()).To(MatchError(emu.ErrMaxInstructions))
		})
	})
})
