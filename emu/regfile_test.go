package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/apexsim/emu"
)

var _ = Describe("RegFile", func() {
	var regFile *emu.RegFile

	BeforeEach(func() {
		regFile = &emu.RegFile{}
	})

	It("should read back written values", func() {
		regFile.WriteReg(5, -42)
		Expect(regFile.ReadReg(5)).To(Equal(int64(-42)))
	})

	It("should ignore out-of-range indices", func() {
		regFile.WriteReg(40, 7)
		Expect(regFile.ReadReg(40)).To(Equal(int64(0)))
	})

	Describe("Scoreboard", func() {
		It("should start with every register ready", func() {
			for r := uint8(0); r < 32; r++ {
				Expect(regFile.Ready(r)).To(BeTrue())
			}
		})

		It("should count outstanding writes", func() {
			regFile.Claim(3)
			regFile.Claim(3)
			Expect(regFile.Pending(3)).To(Equal(2))
			Expect(regFile.Ready(3)).To(BeFalse())

			Expect(regFile.Release(3)).To(Succeed())
			Expect(regFile.Ready(3)).To(BeFalse())
			Expect(regFile.Release(3)).To(Succeed())
			Expect(regFile.Ready(3)).To(BeTrue())
		})

		It("should fail loudly on underflow", func() {
			err := regFile.Release(1)
			Expect(err).To(MatchError(emu.ErrScoreboardUnderflow))
			Expect(regFile.Pending(1)).To(Equal(0))
		})

		It("should clear claims on reset", func() {
			regFile.Claim(2)
			regFile.WriteReg(2, 9)
			regFile.Reset()

			Expect(regFile.Ready(2)).To(BeTrue())
			Expect(regFile.ReadReg(2)).To(Equal(int64(0)))
		})
	})
})
