package insts

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Decoding errors.
var (
	// ErrUnknownOpcode is returned for a mnemonic outside the instruction set.
	ErrUnknownOpcode = errors.New("unknown opcode")
	// ErrBadOperand is returned for a malformed operand or wrong operand count.
	ErrBadOperand = errors.New("bad operand")
	// ErrRegisterRange is returned for a register index outside R0-R31.
	ErrRegisterRange = errors.New("register index out of range")
)

var mnemonics = map[string]Op{
	"STORE": OpSTORE,
	"STR":   OpSTR,
	"LOAD":  OpLOAD,
	"LDR":   OpLDR,
	"ADD":   OpADD,
	"ADDL":  OpADDL,
	"SUB":   OpSUB,
	"SUBL":  OpSUBL,
	"MUL":   OpMUL,
	"AND":   OpAND,
	"OR":    OpOR,
	"EXOR":  OpEXOR,
	"MOVC":  OpMOVC,
	"BZ":    OpBZ,
	"BNZ":   OpBNZ,
	"JUMP":  OpJUMP,
	"HALT":  OpHALT,
}

// Decoder decodes APEX assembly text into instructions.
type Decoder struct{}

// NewDecoder creates a new APEX instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes one line of program text. Operands may be separated by
// commas, spaces, or both. Blank lines and comment-only lines yield a nil
// instruction and a nil error.
func (d *Decoder) Decode(line string) (*Instruction, error) {
	fields := d.split(line)
	if len(fields) == 0 {
		return nil, nil
	}

	op, ok := mnemonics[strings.ToUpper(fields[0])]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOpcode, fields[0])
	}

	inst := New(op)
	operands := fields[1:]

	var err error
	switch inst.Format {
	case FormatStore:
		err = d.decodeOperands(operands, &inst.Rs1, &inst.Rs2, &inst.Imm)
	case FormatStoreReg:
		err = d.decodeOperands(operands, &inst.Rs1, &inst.Rs2, &inst.Rs3)
	case FormatLoad, FormatRegImm:
		err = d.decodeOperands(operands, &inst.Rd, &inst.Rs1, &inst.Imm)
	case FormatRegReg:
		err = d.decodeOperands(operands, &inst.Rd, &inst.Rs1, &inst.Rs2)
	case FormatMove:
		err = d.decodeOperands(operands, &inst.Rd, &inst.Imm)
	case FormatBranch:
		err = d.decodeOperands(operands, &inst.Imm)
	case FormatJump:
		err = d.decodeOperands(operands, &inst.Rs1, &inst.Imm)
	case FormatNone:
		err = d.decodeOperands(operands)
	default:
		err = fmt.Errorf("%w: %v", ErrUnknownOpcode, op)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return inst, nil
}

// split strips comments and breaks a line into mnemonic and operands.
func (d *Decoder) split(line string) []string {
	if i := strings.Index(line, "//"); i >= 0 {
		line = line[:i]
	}
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}

	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\r'
	})
}

// decodeOperands fills dst in order. A *uint8 destination takes a register
// operand, a *int64 destination takes an immediate.
func (d *Decoder) decodeOperands(operands []string, dst ...any) error {
	if len(operands) != len(dst) {
		return fmt.Errorf("%w: want %d operands, got %d",
			ErrBadOperand, len(dst), len(operands))
	}

	for i, tok := range operands {
		switch p := dst[i].(type) {
		case *uint8:
			reg, err := d.decodeReg(tok)
			if err != nil {
				return err
			}
			*p = reg
		case *int64:
			imm, err := d.decodeImm(tok)
			if err != nil {
				return err
			}
			*p = imm
		}
	}

	return nil
}

func (d *Decoder) decodeReg(tok string) (uint8, error) {
	if len(tok) < 2 || (tok[0] != 'R' && tok[0] != 'r') {
		return 0, fmt.Errorf("%w: expected register, got %q", ErrBadOperand, tok)
	}

	n, err := strconv.Atoi(tok[1:])
	if err != nil {
		return 0, fmt.Errorf("%w: expected register, got %q", ErrBadOperand, tok)
	}

	if n < 0 || n >= NumRegs {
		return 0, fmt.Errorf("%w: %q", ErrRegisterRange, tok)
	}

	return uint8(n), nil
}

func (d *Decoder) decodeImm(tok string) (int64, error) {
	if len(tok) < 2 || tok[0] != '#' {
		return 0, fmt.Errorf("%w: expected immediate, got %q", ErrBadOperand, tok)
	}

	v, err := strconv.ParseInt(tok[1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: expected immediate, got %q", ErrBadOperand, tok)
	}

	return v, nil
}
