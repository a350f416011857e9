// Package insts provides APEX instruction definitions and decoding.
//
// This package turns the textual form of APEX instructions into structured
// instruction representations. It supports:
//   - Memory: STORE, STR, LOAD, LDR
//   - Arithmetic: ADD, ADDL, SUB, SUBL, MUL, AND, OR, EXOR, MOVC
//   - Control: BZ, BNZ, JUMP, HALT
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst, err := decoder.Decode("ADD,R3,R1,R2")
//	fmt.Printf("Op: %v, Rd: %d, Rs1: %d, Rs2: %d\n", inst.Op, inst.Rd, inst.Rs1, inst.Rs2)
package insts
