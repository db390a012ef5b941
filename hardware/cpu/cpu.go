// Package cpu implements the R3000 interpreter of spec.md §4.4: pipelined
// fetch with instruction cache, decode/execute, the one-slot load-delay
// and branch-delay mechanism, and COP0 exception entry. Grounded on
// gopher2600 hardware/cpu/cpu.go's shape (register file + bus field +
// dispatch) and beevik-go6502's funct-table dispatch idiom, adapted to
// R3000 semantics.
package cpu

import (
	"github.com/kallistipsx/gopsx/bits"
	"github.com/kallistipsx/gopsx/errors"
	"github.com/kallistipsx/gopsx/hardware/cop0"
)

// Bus is the narrow memory interface the CPU needs (§4.3).
type Bus interface {
	Load8(addr uint32) (uint8, error)
	Load16(addr uint32) (uint16, error)
	Load32(addr uint32) (uint32, error)
	Store8(addr uint32, v uint8) error
	Store16(addr uint32, v uint16) error
	Store32(addr uint32, v uint32) error
}

// COP2 is the narrow interface to the GTE that mfc2/mtc2/cop2 instructions
// use; hardware/system supplies the concrete hardware/gte.GTE.
type COP2 interface {
	ReadData(idx int) uint32
	WriteData(idx int, v uint32)
	ReadControl(idx int) uint32
	WriteControl(idx int, v uint32)
	Command(cmd uint32)
}

// CPU is the R3000 interpreter state. The load-delay slot (§3, §4.4) lives
// on Regs.loadDelay: the result of the most recent not-yet-committed
// load-class instruction (this includes mfc0/mfc2, which share the same
// one-cycle delay on real hardware). A chain of loads to the same
// register cancels every predecessor without ever committing it; only
// the last one in the chain survives to be committed once a
// non-competing instruction follows.
type CPU struct {
	Regs Registers
	COP0 *cop0.COP0
	COP2 COP2

	bus   Bus
	cache icache

	cycles uint64 // cycles charged since power-on; exposed for hardware/system's scheduler accounting
}

// New returns a CPU reset to the BIOS entry point (0xbfc00000), the R3000
// power-on vector.
func New(bus Bus) *CPU {
	c := &CPU{bus: bus, COP0: cop0.New()}
	c.Regs.PC = 0xbfc00000
	c.Regs.NextPC = 0xbfc00004
	return c
}

// Cycles returns the running cycle count, for hardware/system to convert
// to vtime and feed the scheduler.
func (c *CPU) Cycles() uint64 { return c.cycles }

func (c *CPU) tick(n uint64) { c.cycles += n }

// Step fetches, decodes, and executes exactly one instruction (§4.4). The
// caller (hardware/system) is responsible for popping due scheduler
// events first; Step assumes no event is pending this cycle.
func (c *CPU) Step() error {
	lastPC := c.Regs.PC
	pc := c.Regs.PC
	c.Regs.PC = c.Regs.NextPC
	c.Regs.NextPC += 4
	c.Regs.inBranchDelay = c.Regs.branched
	c.Regs.branched = false

	word, err := c.fetch(pc)
	if err != nil {
		c.enterException(cop0.ExcBusInstructionError, lastPC, &pc)
		return nil
	}

	c.execute(word, lastPC)
	return nil
}

// fetch loads the instruction word at pc, consulting the instruction
// cache when the region is cacheable (§4.4).
func (c *CPU) fetch(pc uint32) (uint32, error) {
	if pc&3 != 0 {
		return 0, errors.Categorized(errors.CategoryCPUException, errors.AddressLoadError, pc)
	}

	if cacheable(pc) {
		if word, hit := c.cache.lookup(pc); hit {
			c.tick(4)
			return word, nil
		}
		wordIdx := cacheWordIndex(pc)
		c.tick(uint64(4 + (4 - wordIdx)))
		base := pc &^ 0xf
		var words [4]uint32
		for i := uint32(0); i < 4; i++ {
			w, err := c.bus.Load32(base + i*4)
			if err != nil {
				return 0, err
			}
			words[i] = w
		}
		c.cache.refill(pc, words)
		return words[wordIdx], nil
	}

	c.tick(4)
	return c.bus.Load32(pc)
}

// resolvePending commits or cancels the current pending load per the
// chain rule described on CPU, then (if this instruction is itself a
// load-class op) installs the new pending entry.
func (c *CPU) resolvePending(isLoad bool, destIfLoad uint8, valueIfLoad uint32) {
	pending := c.Regs.loadDelay
	if pending.active {
		if isLoad && destIfLoad == pending.reg {
			// cancelled: discard without committing
		} else {
			c.Regs.Set(pending.reg, pending.value)
		}
	}
	if isLoad {
		c.Regs.loadDelay = pendingLoad{active: true, reg: destIfLoad, value: valueIfLoad}
	} else {
		c.Regs.loadDelay = pendingLoad{}
	}
}

// branchTo sets next_pc to target, marking this instruction's delay slot.
func (c *CPU) branchTo(target uint32) {
	c.Regs.NextPC = target
	c.Regs.branched = true
}

func (c *CPU) enterException(code uint32, lastPC uint32, badVaddr *uint32) {
	vector := c.COP0.Enter(code, lastPC, c.Regs.inBranchDelay, badVaddr)
	c.Regs.PC = vector
	c.Regs.NextPC = vector + 4
	c.Regs.loadDelay = pendingLoad{}
}

// CheckInterrupts implements the IRQ check of §4.4: if interrupts are
// enabled and any unmasked source is pending, inject an Interrupt
// exception at the next instruction boundary. hardware/system calls this
// after each event dispatch and after each CPU step.
func (c *CPU) CheckInterrupts(activeLines uint32) {
	c.COP0.SetCauseHardwareLines(activeLines << 0)
	if !c.COP0.InterruptsEnabled() {
		return
	}
	if c.COP0.InterruptMask()&c.COP0.CauseInterruptPending() == 0 {
		return
	}
	c.enterException(cop0.ExcInterrupt, c.Regs.PC, nil)
}

func signExtend16(v uint32) uint32 { return bits.SignExtend(v, 16) }

// decoded fields, shared by all dispatch helpers.
type fields struct {
	op, rs, rt, rd, sh, funct uint32
	imm16                     uint32
	imm26                     uint32
}

func decode(word uint32) fields {
	return fields{
		op:     bits.Range(word, 26, 31),
		rs:     bits.Range(word, 21, 25),
		rt:     bits.Range(word, 16, 20),
		rd:     bits.Range(word, 11, 15),
		sh:     bits.Range(word, 6, 10),
		funct:  bits.Range(word, 0, 5),
		imm16:  bits.Range(word, 0, 15),
		imm26:  bits.Range(word, 0, 25),
	}
}
