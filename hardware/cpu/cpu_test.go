package cpu

import (
	"encoding/binary"
	"testing"

	"github.com/kallistipsx/gopsx/assembler"
	"github.com/kallistipsx/gopsx/test"
)

// flatBus is a byte-addressable RAM used as the CPU's bus in tests; it
// ignores region decoding entirely, unlike hardware/bus.Bus.
type flatBus struct {
	mem [4096]byte
}

func (b *flatBus) Load8(addr uint32) (uint8, error) { return b.mem[addr], nil }
func (b *flatBus) Load16(addr uint32) (uint16, error) {
	return binary.LittleEndian.Uint16(b.mem[addr:]), nil
}
func (b *flatBus) Load32(addr uint32) (uint32, error) {
	return binary.LittleEndian.Uint32(b.mem[addr:]), nil
}
func (b *flatBus) Store8(addr uint32, v uint8) error { b.mem[addr] = v; return nil }
func (b *flatBus) Store16(addr uint32, v uint16) error {
	binary.LittleEndian.PutUint16(b.mem[addr:], v)
	return nil
}
func (b *flatBus) Store32(addr uint32, v uint32) error {
	binary.LittleEndian.PutUint32(b.mem[addr:], v)
	return nil
}

// run assembles source at base, loads it into bus memory, points the CPU
// at it, and single-steps until an exception vector (0x80000080 or BEV
// 0xbfc00180) is reached, whichever exception raised it (BREAK, overflow,
// ...), or the step budget runs out.
func run(t *testing.T, source string) *CPU {
	t.Helper()
	code, entry, err := assembler.Assemble(source, 0)
	test.NoFailure(t, err)

	bus := &flatBus{}
	copy(bus.mem[:], code)

	c := New(bus)
	c.Regs.PC = entry
	c.Regs.NextPC = entry + 4

	for i := 0; i < 200; i++ {
		if c.Regs.PC == 0x80000080 || c.Regs.PC == 0xbfc00180 {
			return c
		}
		test.NoFailure(t, c.Step())
	}
	t.Fatalf("program did not reach break within step budget")
	return c
}

func TestLoadDelayChainOnlyLastLoadSurvives(t *testing.T) {
	c := run(t, `
main: li $t1, 1
      sw $t1, 0($0)
      li $1, 2
      mfc0 $1, 12
      lw $1, 0($0)
      mfc0 $1, 15
      lw $1, 0($0)
      lw $1, 0($0)
      addiu $2, $1, 0
      break 0
`)
	test.Equate(t, c.Regs.Get(1), uint32(1))
	test.Equate(t, c.Regs.Get(2), uint32(2))
}

func TestLoadDelayNextInstructionSeesOldValue(t *testing.T) {
	c := run(t, `
main: addiu $t0, $0, 5
      sw $t0, 0($0)
      addiu $t1, $0, 9
      lw $t1, 0($0)
      addu $t2, $t1, $0
      break 0
`)
	// addu reads t1 before lw's pending result is committed, so it sees
	// the pre-load value; the commit itself happens as a side effect of
	// addu's own (non-load) retirement, landing in t1 right after.
	test.Equate(t, c.Regs.Get(10), uint32(9)) // t2: computed from the old t1
	test.Equate(t, c.Regs.Get(9), uint32(5))  // t1: retired to the loaded value
}

func TestBranchDelaySlotExecutesBeforeTarget(t *testing.T) {
	c := run(t, `
main: addiu $t0, $0, 1
      j target
      addiu $t0, $t0, 1
      addiu $t0, $0, 99
target:
      addiu $t1, $0, 7
      break 0
`)
	test.Equate(t, c.Regs.Get(8), uint32(2)) // t0: delay slot ran, "99" line skipped
	test.Equate(t, c.Regs.Get(9), uint32(7))
}

func TestArithmeticOverflowRaisesException(t *testing.T) {
	c := run(t, `
main: lui $t0, 0x7fff
      ori  $t0, $t0, 0xffff
      addiu $t1, $0, 1
      add  $t2, $t0, $t1
      break 0
`)
	test.Equate(t, c.Regs.PC, uint32(0x80000080))
	test.Equate(t, c.COP0.Read(14) != 0, true) // EPC recorded
}

func TestDivisionByZeroMatchesHardwareConvention(t *testing.T) {
	c := run(t, `
main: addiu $t0, $0, 5
      div  $t0, $0
      break 0
`)
	test.Equate(t, c.Regs.Lo, uint32(0xffffffff))
	test.Equate(t, c.Regs.Hi, uint32(5))
}

func TestUnalignedLoadWordLeftRight(t *testing.T) {
	c := run(t, `
main: ori  $at, $0, 0x800
      addiu $t0, $0, -1
      sw   $t0, 0($at)
      lui  $t1, 0x1234
      ori  $t1, $t1, 0x5678
      lwl  $t1, 1($at)
      break 0
`)
	test.Equate(t, c.Regs.Get(9), uint32(0xffff5678))
}
