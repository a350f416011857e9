package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/apexsim/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("Arithmetic", func() {
		It("should decode ADD,R3,R1,R2", func() {
			inst, err := decoder.Decode("ADD,R3,R1,R2")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpADD))
			Expect(inst.Format).To(Equal(insts.FormatRegReg))
			Expect(inst.Rd).To(Equal(uint8(3)))
			Expect(inst.Rs1).To(Equal(uint8(1)))
			Expect(inst.Rs2).To(Equal(uint8(2)))
			Expect(inst.Rs3).To(Equal(insts.RegNone))
		})

		It("should decode ADDL with a negative literal", func() {
			inst, err := decoder.Decode("ADDL,R5,R6,#-12")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpADDL))
			Expect(inst.Rd).To(Equal(uint8(5)))
			Expect(inst.Rs1).To(Equal(uint8(6)))
			Expect(inst.Imm).To(Equal(int64(-12)))
		})

		It("should decode MOVC", func() {
			inst, err := decoder.Decode("MOVC,R1,#5")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpMOVC))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Imm).To(Equal(int64(5)))
		})

		It("should accept lower case and mixed separators", func() {
			inst, err := decoder.Decode("  mul r3, r1 ,r2\t")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpMUL))
			Expect(inst.Rd).To(Equal(uint8(3)))
		})
	})

	Describe("Memory", func() {
		It("should decode STORE", func() {
			inst, err := decoder.Decode("STORE,R1,R2,#8")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpSTORE))
			Expect(inst.Rd).To(Equal(insts.RegNone))
			Expect(inst.Rs1).To(Equal(uint8(1)))
			Expect(inst.Rs2).To(Equal(uint8(2)))
			Expect(inst.Imm).To(Equal(int64(8)))
		})

		It("should decode STR", func() {
			inst, err := decoder.Decode("STR,R1,R2,R3")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpSTR))
			Expect(inst.Rs3).To(Equal(uint8(3)))
		})

		It("should decode LOAD and LDR", func() {
			load, err := decoder.Decode("LOAD,R4,R1,#16")
			Expect(err).NotTo(HaveOccurred())
			Expect(load.Op).To(Equal(insts.OpLOAD))
			Expect(load.Rd).To(Equal(uint8(4)))
			Expect(load.Imm).To(Equal(int64(16)))

			ldr, err := decoder.Decode("LDR,R4,R1,R2")
			Expect(err).NotTo(HaveOccurred())
			Expect(ldr.Op).To(Equal(insts.OpLDR))
			Expect(ldr.Rs2).To(Equal(uint8(2)))
		})
	})

	Describe("Control", func() {
		It("should decode BZ and BNZ", func() {
			bz, err := decoder.Decode("BZ,#8")
			Expect(err).NotTo(HaveOccurred())
			Expect(bz.Op).To(Equal(insts.OpBZ))
			Expect(bz.Imm).To(Equal(int64(8)))

			bnz, err := decoder.Decode("BNZ,#-16")
			Expect(err).NotTo(HaveOccurred())
			Expect(bnz.Op).To(Equal(insts.OpBNZ))
			Expect(bnz.Imm).To(Equal(int64(-16)))
		})

		It("should decode JUMP", func() {
			inst, err := decoder.Decode("JUMP,R2,#4000")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpJUMP))
			Expect(inst.Rs1).To(Equal(uint8(2)))
			Expect(inst.Imm).To(Equal(int64(4000)))
		})

		It("should decode HALT", func() {
			inst, err := decoder.Decode("HALT")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Op).To(Equal(insts.OpHALT))
			Expect(inst.Format).To(Equal(insts.FormatNone))
		})
	})

	Describe("Comments and blank lines", func() {
		It("should return nil for a blank line", func() {
			inst, err := decoder.Decode("   ")

			Expect(err).NotTo(HaveOccurred())
			Expect(inst).To(BeNil())
		})

		It("should strip trailing comments", func() {
			inst, err := decoder.Decode("MOVC,R1,#5 ; load five")
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.Imm).To(Equal(int64(5)))

			inst, err = decoder.Decode("// whole line comment")
			Expect(err).NotTo(HaveOccurred())
			Expect(inst).To(BeNil())
		})
	})

	Describe("Errors", func() {
		It("should reject unknown mnemonics", func() {
			_, err := decoder.Decode("NOP")
			Expect(err).To(MatchError(insts.ErrUnknownOpcode))
		})

		It("should reject the wrong operand count", func() {
			_, err := decoder.Decode("ADD,R1,R2")
			Expect(err).To(MatchError(insts.ErrBadOperand))

			_, err = decoder.Decode("HALT,R1")
			Expect(err).To(MatchError(insts.ErrBadOperand))
		})

		It("should reject out-of-range registers", func() {
			_, err := decoder.Decode("MOVC,R32,#1")
			Expect(err).To(MatchError(insts.ErrRegisterRange))
		})

		It("should reject an immediate where a register is expected", func() {
			_, err := decoder.Decode("ADD,R1,#2,R3")
			Expect(err).To(MatchError(insts.ErrBadOperand))
		})

		It("should reject a malformed immediate", func() {
			_, err := decoder.Decode("MOVC,R1,#abc")
			Expect(err).To(MatchError(insts.ErrBadOperand))

			_, err = decoder.Decode("MOVC,R1,5")
			Expect(err).To(MatchError(insts.ErrBadOperand))
		})
	})
})
