package insts

import "fmt"

// Op represents an APEX opcode.
type Op uint8

// APEX opcodes.
const (
	OpUnknown Op = iota
	OpSTORE
	OpSTR
	OpLOAD
	OpLDR
	OpADD
	OpADDL
	OpSUB
	OpSUBL
	OpMUL
	OpAND
	OpOR
	OpEXOR
	OpMOVC
	OpBZ
	OpBNZ
	OpJUMP
	OpHALT
)

var opNames = [...]string{
	OpUnknown: "UNKNOWN",
	OpSTORE:   "STORE",
	OpSTR:     "STR",
	OpLOAD:    "LOAD",
	OpLDR:     "LDR",
	OpADD:     "ADD",
	OpADDL:    "ADDL",
	OpSUB:     "SUB",
	OpSUBL:    "SUBL",
	OpMUL:     "MUL",
	OpAND:     "AND",
	OpOR:      "OR",
	OpEXOR:    "EXOR",
	OpMOVC:    "MOVC",
	OpBZ:      "BZ",
	OpBNZ:     "BNZ",
	OpJUMP:    "JUMP",
	OpHALT:    "HALT",
}

// String returns the assembler mnemonic of the opcode.
func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", uint8(op))
}

// Format represents the operand shape of an instruction.
type Format uint8

// Instruction formats.
const (
	FormatUnknown  Format = iota
	FormatStore           // rs1, rs2, #imm
	FormatStoreReg        // rs1, rs2, rs3
	FormatLoad            // rd, rs1, #imm
	FormatRegReg          // rd, rs1, rs2
	FormatRegImm          // rd, rs1, #imm
	FormatMove            // rd, #imm
	FormatBranch          // #imm
	FormatJump            // rs1, #imm
	FormatNone            // no operands
)

// FormatOf returns the operand format used by op.
func FormatOf(op Op) Format {
	switch op {
	case OpSTORE:
		return FormatStore
	case OpSTR:
		return FormatStoreReg
	case OpLOAD:
		return FormatLoad
	case OpLDR, OpADD, OpSUB, OpMUL, OpAND, OpOR, OpEXOR:
		return FormatRegReg
	case OpADDL, OpSUBL:
		return FormatRegImm
	case OpMOVC:
		return FormatMove
	case OpBZ, OpBNZ:
		return FormatBranch
	case OpJUMP:
		return FormatJump
	case OpHALT:
		return FormatNone
	default:
		return FormatUnknown
	}
}

// NumRegs is the number of general-purpose registers.
const NumRegs = 32

// RegNone marks an unused register operand.
const RegNone uint8 = 0xFF

// Instruction represents a decoded APEX instruction.
// Instructions are created once at load time and never modified.
type Instruction struct {
	Op     Op     // Operation code
	Format Format // Operand shape

	Rd  uint8 // Destination register, RegNone if unused
	Rs1 uint8 // First source register, RegNone if unused
	Rs2 uint8 // Second source register, RegNone if unused
	Rs3 uint8 // Third source register, RegNone if unused

	Imm int64 // Signed immediate
}

// New builds an instruction of the given opcode with all register operands
// unused. Callers fill in the fields relevant to the opcode's format.
func New(op Op) *Instruction {
	return &Instruction{
		Op:     op,
		Format: FormatOf(op),
		Rd:     RegNone,
		Rs1:    RegNone,
		Rs2:    RegNone,
		Rs3:    RegNone,
	}
}

// Sources returns the source registers read by the instruction, in operand
// order.
func (i *Instruction) Sources() []uint8 {
	switch i.Format {
	case FormatStore:
		return []uint8{i.Rs1, i.Rs2}
	case FormatStoreReg:
		return []uint8{i.Rs1, i.Rs2, i.Rs3}
	case FormatLoad, FormatRegImm, FormatJump:
		return []uint8{i.Rs1}
	case FormatRegReg:
		return []uint8{i.Rs1, i.Rs2}
	default:
		return nil
	}
}

// WritesReg reports whether the instruction writes its destination register.
func (i *Instruction) WritesReg() bool {
	switch i.Format {
	case FormatLoad, FormatRegReg, FormatRegImm, FormatMove:
		return true
	default:
		return false
	}
}

// IsArith reports whether the instruction sets the zero flag.
func (i *Instruction) IsArith() bool {
	switch i.Op {
	case OpADD, OpADDL, OpSUB, OpSUBL, OpMUL, OpAND, OpOR, OpEXOR, OpMOVC:
		return true
	default:
		return false
	}
}

// IsMemory reports whether the instruction accesses the data store.
func (i *Instruction) IsMemory() bool {
	switch i.Op {
	case OpSTORE, OpSTR, OpLOAD, OpLDR:
		return true
	default:
		return false
	}
}

// IsBranch reports whether the instruction is a conditional branch.
func (i *Instruction) IsBranch() bool {
	return i.Op == OpBZ || i.Op == OpBNZ
}

// Validate checks that every register operand the format uses is in range
// and that the opcode is known.
func (i *Instruction) Validate() error {
	if i.Format == FormatUnknown || FormatOf(i.Op) != i.Format {
		return fmt.Errorf("%w: %v", ErrUnknownOpcode, i.Op)
	}

	if i.WritesReg() && i.Rd >= NumRegs {
		return fmt.Errorf("%w: rd=%d", ErrRegisterRange, i.Rd)
	}

	for _, r := range i.Sources() {
		if r >= NumRegs {
			return fmt.Errorf("%w: rs=%d", ErrRegisterRange, r)
		}
	}

	return nil
}

// String formats the instruction the way it is written in a program file,
// e.g. "ADD,R3,R1,R2" or "MOVC,R1,#5".
func (i *Instruction) String() string {
	switch i.Format {
	case FormatStore:
		return fmt.Sprintf("%s,R%d,R%d,#%d", i.Op, i.Rs1, i.Rs2, i.Imm)
	case FormatStoreReg:
		return fmt.Sprintf("%s,R%d,R%d,R%d", i.Op, i.Rs1, i.Rs2, i.Rs3)
	case FormatLoad, FormatRegImm:
		return fmt.Sprintf("%s,R%d,R%d,#%d", i.Op, i.Rd, i.Rs1, i.Imm)
	case FormatRegReg:
		return fmt.Sprintf("%s,R%d,R%d,R%d", i.Op, i.Rd, i.Rs1, i.Rs2)
	case FormatMove:
		return fmt.Sprintf("%s,R%d,#%d", i.Op, i.Rd, i.Imm)
	case FormatBranch:
		return fmt.Sprintf("%s,#%d", i.Op, i.Imm)
	case FormatJump:
		return fmt.Sprintf("%s,R%d,#%d", i.Op, i.Rs1, i.Imm)
	default:
		return i.Op.String()
	}
}
