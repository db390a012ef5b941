// Package cop0 implements the R3000's system-control coprocessor: the 16
// registers named in spec.md §4.4, exception entry/return, and the
// cache-isolation bit the CPU's store path consults.
package cop0

import "github.com/kallistipsx/gopsx/bits"

// Register indices (§4.4). Unlisted indices have no behaviour of their own;
// like every register they read back whatever was last written (0 until then).
const (
	RegBPC      = 3
	RegBDA      = 5
	RegJumpDest = 6
	RegDCIC     = 7
	RegBadVaddr = 8
	RegBDAM     = 9
	RegBPCM     = 11
	RegSR       = 12
	RegCAUSE    = 13
	RegEPC      = 14
	RegPRID     = 15
)

// Status register bit positions.
const (
	srIEc        = 0  // interrupt enable, current
	srKUc        = 1  // kernel/user mode, current
	srIsolateCache = 16
	srBEV        = 22
)

// Exception codes, CAUSE[6:2] (§6).
const (
	ExcInterrupt           = 0
	ExcAddressLoadError    = 4
	ExcAddressStoreError   = 5
	ExcBusInstructionError = 6
	ExcBusDataError        = 7
	ExcSyscall             = 8
	ExcBreakpoint          = 9
	ExcReservedInstruction = 10
	ExcCopUnusable         = 11
	ExcArithmeticOverflow  = 12
)

const (
	vectorNormal = 0x80000080
	vectorBEV    = 0xbfc00180
)

// COP0 holds the sixteen system-control registers as a flat array indexed
// by register number; unimplemented registers are simply never touched
// and read back whatever was last written (conventionally 0).
type COP0 struct {
	regs [16]uint32
}

// New returns a COP0 with PRID and SR at their power-on values.
func New() *COP0 {
	var c COP0
	c.regs[RegPRID] = 0x00000002
	return &c
}

// Read returns the raw value of register n.
func (c *COP0) Read(n int) uint32 {
	return c.regs[n]
}

// Write stores value into register n verbatim; the CPU is responsible for
// routing mtc0 through here (no side effects live in COP0 itself beyond
// what Enter/Return perform explicitly).
func (c *COP0) Write(n int, value uint32) {
	c.regs[n] = value
}

// IsolateCache reports whether SR bit 16 (isolate cache) is set. While it
// is, the CPU's store path discards stores: they reach neither memory nor
// the instruction cache (§3).
func (c *COP0) IsolateCache() bool {
	return bits.Bit(c.regs[RegSR], srIsolateCache)
}

// InterruptsEnabled reports SR bit 0 (IEc), consulted by the IRQ check
// described in §4.4.
func (c *COP0) InterruptsEnabled() bool {
	return bits.Bit(c.regs[RegSR], srIEc)
}

// InterruptMask returns SR bits [8:15], the per-source interrupt mask.
func (c *COP0) InterruptMask() uint32 {
	return bits.Range(c.regs[RegSR], 8, 15)
}

// CauseInterruptPending returns CAUSE bits [8:15], the latched
// software/hardware interrupt-pending lines.
func (c *COP0) CauseInterruptPending() uint32 {
	return bits.Range(c.regs[RegCAUSE], 8, 15)
}

// SetCauseHardwareLines writes the hardware interrupt lines (bits [10:15]
// of CAUSE) from the interrupt controller's active-line bitmap.
func (c *COP0) SetCauseHardwareLines(active uint32) {
	c.regs[RegCAUSE] = bits.Insert(c.regs[RegCAUSE], 10, 15, active)
}

// Enter performs exception entry (§4.4): pushes the interrupt-enable/mode
// stack, records EPC and (if supplied) BadVaddr, writes the exception code,
// and returns the vector pc should jump to. inBranchDelay must be true iff
// the faulting instruction was in a branch-delay slot.
func (c *COP0) Enter(excCode uint32, lastPC uint32, inBranchDelay bool, badVaddr *uint32) (vector uint32) {
	if inBranchDelay {
		c.regs[RegCAUSE] = bits.SetBit(c.regs[RegCAUSE], 31, true)
		c.regs[RegEPC] = lastPC - 4
	} else {
		c.regs[RegCAUSE] = bits.SetBit(c.regs[RegCAUSE], 31, false)
		c.regs[RegEPC] = lastPC
	}

	if badVaddr != nil {
		c.regs[RegBadVaddr] = *badVaddr
	}

	mode := bits.Range(c.regs[RegSR], 0, 5)
	pushed := (mode << 2) & 0x3f
	c.regs[RegSR] = bits.Insert(c.regs[RegSR], 0, 5, pushed)

	c.regs[RegCAUSE] = bits.Insert(c.regs[RegCAUSE], 2, 6, excCode)

	if bits.Bit(c.regs[RegSR], srBEV) {
		return vectorBEV
	}
	return vectorNormal
}

// Return performs RFE: pops the interrupt-enable/mode stack (§4.4).
func (c *COP0) Return() {
	mode := bits.Range(c.regs[RegSR], 0, 5)
	popped := mode >> 2
	c.regs[RegSR] = bits.Insert(c.regs[RegSR], 0, 5, popped)
}
