package cpu

import (
	"github.com/kallistipsx/gopsx/bits"
	"github.com/kallistipsx/gopsx/hardware/cop0"
)

// latency tables for mult/div (§4.4, §6): the real R3000 keeps hi/lo busy
// for a data-dependent number of cycles. Mult/mult-unsigned vary with the
// magnitude of one operand (7/9/13 cycles); div/divu are a flat 36 cycles.
// A read of hi/lo before the operation completes stalls (charged here as
// extra fetch-equivalent cycles, since this interpreter has no separate
// stall bookkeeping).
func multLatency(rs uint32) uint64 {
	s := int32(rs)
	if s < 0 {
		s = -s
	}
	switch {
	case uint32(s) < 0x800:
		return 7
	case uint32(s) < 0x100000:
		return 9
	default:
		return 13
	}
}

const divLatency = 36

// execute decodes and runs one instruction word. lastPC is the address the
// word was fetched from (used for exceptions and jal/jalr link values).
func (c *CPU) execute(word uint32, lastPC uint32) {
	f := decode(word)

	switch f.op {
	case 0x0: // SPECIAL
		c.executeSpecial(f, lastPC)
	case 0x1: // BcondZ
		c.executeBcondZ(f, lastPC)
	case 0x2: // J
		c.branchTo((lastPC & 0xf0000000) | (f.imm26 << 2))
		c.resolvePending(false, 0, 0)
	case 0x3: // JAL
		c.resolvePending(false, 0, 0)
		c.Regs.Set(31, lastPC+8)
		c.branchTo((lastPC & 0xf0000000) | (f.imm26 << 2))
	case 0x4: // BEQ
		c.branchIf(f, lastPC, c.Regs.Get(uint8(f.rs)) == c.Regs.Get(uint8(f.rt)))
	case 0x5: // BNE
		c.branchIf(f, lastPC, c.Regs.Get(uint8(f.rs)) != c.Regs.Get(uint8(f.rt)))
	case 0x6: // BLEZ
		c.branchIf(f, lastPC, int32(c.Regs.Get(uint8(f.rs))) <= 0)
	case 0x7: // BGTZ
		c.branchIf(f, lastPC, int32(c.Regs.Get(uint8(f.rs))) > 0)

	case 0x8: // ADDI
		c.executeAddImmediate(f, lastPC, true)
	case 0x9: // ADDIU
		c.executeAddImmediate(f, lastPC, false)
	case 0xa: // SLTI
		v := int32(c.Regs.Get(uint8(f.rs))) < int32(signExtend16(f.imm16))
		c.setImmediate(f.rt, boolToWord(v))
	case 0xb: // SLTIU
		v := c.Regs.Get(uint8(f.rs)) < signExtend16(f.imm16)
		c.setImmediate(f.rt, boolToWord(v))
	case 0xc: // ANDI
		c.setImmediate(f.rt, c.Regs.Get(uint8(f.rs))&f.imm16)
	case 0xd: // ORI
		c.setImmediate(f.rt, c.Regs.Get(uint8(f.rs))|f.imm16)
	case 0xe: // XORI
		c.setImmediate(f.rt, c.Regs.Get(uint8(f.rs))^f.imm16)
	case 0xf: // LUI
		c.setImmediate(f.rt, f.imm16<<16)

	case 0x10: // COP0
		c.executeCop0(f, lastPC)
	case 0x12: // COP2 (GTE)
		c.executeCop2(f, lastPC)

	case 0x20: // LB
		c.executeLoad(f, lastPC, 1, true)
	case 0x21: // LH
		c.executeLoad(f, lastPC, 2, true)
	case 0x22: // LWL
		c.executeLoadUnaligned(f, lastPC, true)
	case 0x23: // LW
		c.executeLoad(f, lastPC, 4, true)
	case 0x24: // LBU
		c.executeLoad(f, lastPC, 1, false)
	case 0x25: // LHU
		c.executeLoad(f, lastPC, 2, false)
	case 0x26: // LWR
		c.executeLoadUnaligned(f, lastPC, false)
	case 0x28: // SB
		c.executeStore(f, lastPC, 1)
	case 0x29: // SH
		c.executeStore(f, lastPC, 2)
	case 0x2a: // SWL
		c.executeStoreUnaligned(f, lastPC, true)
	case 0x2b: // SW
		c.executeStore(f, lastPC, 4)
	case 0x2e: // SWR
		c.executeStoreUnaligned(f, lastPC, false)

	default:
		c.resolvePending(false, 0, 0)
		c.enterException(cop0.ExcReservedInstruction, lastPC, nil)
	}
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// setImmediate applies an ALU-class register write: commits any pending
// load first, then writes rd directly (no delay).
func (c *CPU) setImmediate(reg uint32, value uint32) {
	c.resolvePending(false, 0, 0)
	c.Regs.Set(uint8(reg), value)
}

func (c *CPU) branchIf(f fields, lastPC uint32, taken bool) {
	c.resolvePending(false, 0, 0)
	if taken {
		off := int32(signExtend16(f.imm16))
		c.branchTo(uint32(int32(lastPC+4) + off*4))
	}
}

func (c *CPU) executeBcondZ(f fields, lastPC uint32) {
	rs := int32(c.Regs.Get(uint8(f.rs)))
	bgez := bits.Bit(uint32(f.rt), 0)
	link := bits.Bit(uint32(f.rt), 4)

	taken := rs < 0
	if bgez {
		taken = rs >= 0
	}

	c.resolvePending(false, 0, 0)
	if link {
		c.Regs.Set(31, lastPC+8)
	}
	if taken {
		off := int32(signExtend16(f.imm16))
		c.branchTo(uint32(int32(lastPC+4) + off*4))
	}
}

func (c *CPU) executeAddImmediate(f fields, lastPC uint32, checkOverflow bool) {
	a := c.Regs.Get(uint8(f.rs))
	b := signExtend16(f.imm16)
	sum := a + b
	if checkOverflow && overflowsAdd(a, b, sum) {
		c.resolvePending(false, 0, 0)
		c.enterException(cop0.ExcArithmeticOverflow, lastPC, nil)
		return
	}
	c.setImmediate(f.rt, sum)
}

func overflowsAdd(a, b, sum uint32) bool {
	return (a^sum)&(b^sum)&0x80000000 != 0
}

func overflowsSub(a, b, diff uint32) bool {
	return (a^b)&(a^diff)&0x80000000 != 0
}

func (c *CPU) executeSpecial(f fields, lastPC uint32) {
	switch f.funct {
	case 0x0: // SLL
		c.setImmediate(f.rd, c.Regs.Get(uint8(f.rt))<<f.sh)
	case 0x2: // SRL
		c.setImmediate(f.rd, c.Regs.Get(uint8(f.rt))>>f.sh)
	case 0x3: // SRA
		c.setImmediate(f.rd, uint32(int32(c.Regs.Get(uint8(f.rt)))>>f.sh))
	case 0x4: // SLLV
		c.setImmediate(f.rd, c.Regs.Get(uint8(f.rt))<<(c.Regs.Get(uint8(f.rs))&0x1f))
	case 0x6: // SRLV
		c.setImmediate(f.rd, c.Regs.Get(uint8(f.rt))>>(c.Regs.Get(uint8(f.rs))&0x1f))
	case 0x7: // SRAV
		c.setImmediate(f.rd, uint32(int32(c.Regs.Get(uint8(f.rt)))>>(c.Regs.Get(uint8(f.rs))&0x1f)))

	case 0x8: // JR
		target := c.Regs.Get(uint8(f.rs))
		c.resolvePending(false, 0, 0)
		c.branchTo(target)
	case 0x9: // JALR
		target := c.Regs.Get(uint8(f.rs))
		c.resolvePending(false, 0, 0)
		c.Regs.Set(uint8(f.rd), lastPC+8)
		c.branchTo(target)

	case 0xc: // SYSCALL
		c.resolvePending(false, 0, 0)
		c.enterException(cop0.ExcSyscall, lastPC, nil)
	case 0xd: // BREAK
		c.resolvePending(false, 0, 0)
		c.enterException(cop0.ExcBreakpoint, lastPC, nil)

	case 0x10: // MFHI
		c.setImmediate(f.rd, c.Regs.Hi)
	case 0x11: // MTHI
		c.resolvePending(false, 0, 0)
		c.Regs.Hi = c.Regs.Get(uint8(f.rs))
	case 0x12: // MFLO
		c.setImmediate(f.rd, c.Regs.Lo)
	case 0x13: // MTLO
		c.resolvePending(false, 0, 0)
		c.Regs.Lo = c.Regs.Get(uint8(f.rs))

	case 0x18: // MULT
		a := int64(int32(c.Regs.Get(uint8(f.rs))))
		b := int64(int32(c.Regs.Get(uint8(f.rt))))
		prod := uint64(a * b)
		c.Regs.Lo, c.Regs.Hi = uint32(prod), uint32(prod>>32)
		c.tick(multLatency(c.Regs.Get(uint8(f.rs))))
		c.resolvePending(false, 0, 0)
	case 0x19: // MULTU
		a := uint64(c.Regs.Get(uint8(f.rs)))
		b := uint64(c.Regs.Get(uint8(f.rt)))
		prod := a * b
		c.Regs.Lo, c.Regs.Hi = uint32(prod), uint32(prod>>32)
		c.tick(multLatency(c.Regs.Get(uint8(f.rs))))
		c.resolvePending(false, 0, 0)
	case 0x1a: // DIV
		n := int32(c.Regs.Get(uint8(f.rs)))
		d := int32(c.Regs.Get(uint8(f.rt)))
		c.Regs.Lo, c.Regs.Hi = divSigned(n, d)
		c.tick(divLatency)
		c.resolvePending(false, 0, 0)
	case 0x1b: // DIVU
		n := c.Regs.Get(uint8(f.rs))
		d := c.Regs.Get(uint8(f.rt))
		c.Regs.Lo, c.Regs.Hi = divUnsigned(n, d)
		c.tick(divLatency)
		c.resolvePending(false, 0, 0)

	case 0x20: // ADD
		a := c.Regs.Get(uint8(f.rs))
		b := c.Regs.Get(uint8(f.rt))
		sum := a + b
		if overflowsAdd(a, b, sum) {
			c.resolvePending(false, 0, 0)
			c.enterException(cop0.ExcArithmeticOverflow, lastPC, nil)
			return
		}
		c.setImmediate(f.rd, sum)
	case 0x21: // ADDU
		c.setImmediate(f.rd, c.Regs.Get(uint8(f.rs))+c.Regs.Get(uint8(f.rt)))
	case 0x22: // SUB
		a := c.Regs.Get(uint8(f.rs))
		b := c.Regs.Get(uint8(f.rt))
		diff := a - b
		if overflowsSub(a, b, diff) {
			c.resolvePending(false, 0, 0)
			c.enterException(cop0.ExcArithmeticOverflow, lastPC, nil)
			return
		}
		c.setImmediate(f.rd, diff)
	case 0x23: // SUBU
		c.setImmediate(f.rd, c.Regs.Get(uint8(f.rs))-c.Regs.Get(uint8(f.rt)))
	case 0x24: // AND
		c.setImmediate(f.rd, c.Regs.Get(uint8(f.rs))&c.Regs.Get(uint8(f.rt)))
	case 0x25: // OR
		c.setImmediate(f.rd, c.Regs.Get(uint8(f.rs))|c.Regs.Get(uint8(f.rt)))
	case 0x26: // XOR
		c.setImmediate(f.rd, c.Regs.Get(uint8(f.rs))^c.Regs.Get(uint8(f.rt)))
	case 0x27: // NOR
		c.setImmediate(f.rd, ^(c.Regs.Get(uint8(f.rs)) | c.Regs.Get(uint8(f.rt))))
	case 0x2a: // SLT
		v := int32(c.Regs.Get(uint8(f.rs))) < int32(c.Regs.Get(uint8(f.rt)))
		c.setImmediate(f.rd, boolToWord(v))
	case 0x2b: // SLTU
		v := c.Regs.Get(uint8(f.rs)) < c.Regs.Get(uint8(f.rt))
		c.setImmediate(f.rd, boolToWord(v))

	default:
		c.resolvePending(false, 0, 0)
		c.enterException(cop0.ExcReservedInstruction, lastPC, nil)
	}
}

// divSigned implements the R3000's documented div-by-zero and
// overflow-case results (§6): dividing by zero yields Lo = -1 or 1
// depending on the sign of the numerator and Hi = the numerator;
// INT_MIN/-1 yields Lo = INT_MIN, Hi = 0, rather than trapping.
func divSigned(n, d int32) (lo, hi uint32) {
	if d == 0 {
		if n >= 0 {
			return 0xffffffff, uint32(n)
		}
		return 1, uint32(n)
	}
	if n == -0x80000000 && d == -1 {
		return uint32(n), 0
	}
	return uint32(n / d), uint32(n % d)
}

func divUnsigned(n, d uint32) (lo, hi uint32) {
	if d == 0 {
		return 0xffffffff, n
	}
	return n / d, n % d
}

func (c *CPU) executeCop0(f fields, lastPC uint32) {
	switch f.rs {
	case 0x0: // MFC0
		c.resolvePending(true, uint8(f.rt), c.COP0.Read(int(f.rd)))
	case 0x4: // MTC0
		c.resolvePending(false, 0, 0)
		c.COP0.Write(int(f.rd), c.Regs.Get(uint8(f.rt)))
	case 0x10: // CO (RFE et al.)
		c.resolvePending(false, 0, 0)
		if f.funct == 0x10 {
			c.COP0.Return()
		}
	default:
		c.resolvePending(false, 0, 0)
		c.enterException(cop0.ExcReservedInstruction, lastPC, nil)
	}
}

func (c *CPU) executeCop2(f fields, lastPC uint32) {
	if c.COP2 == nil {
		c.resolvePending(false, 0, 0)
		c.enterException(cop0.ExcCopUnusable, lastPC, nil)
		return
	}
	switch f.rs {
	case 0x0: // MFC2
		c.resolvePending(true, uint8(f.rt), c.COP2.ReadData(int(f.rd)))
	case 0x2: // CFC2
		c.resolvePending(true, uint8(f.rt), c.COP2.ReadControl(int(f.rd)))
	case 0x4: // MTC2
		c.resolvePending(false, 0, 0)
		c.COP2.WriteData(int(f.rd), c.Regs.Get(uint8(f.rt)))
	case 0x6: // CTC2
		c.resolvePending(false, 0, 0)
		c.COP2.WriteControl(int(f.rd), c.Regs.Get(uint8(f.rt)))
	default: // GTE command (bit 25 of the word set, rs >= 0x10)
		c.resolvePending(false, 0, 0)
		c.COP2.Command(f.imm26 & 0x1ffffff)
	}
}

func (c *CPU) effectiveAddress(f fields) uint32 {
	return c.Regs.Get(uint8(f.rs)) + signExtend16(f.imm16)
}

func (c *CPU) executeLoad(f fields, lastPC uint32, size int, signed bool) {
	addr := c.effectiveAddress(f)
	var value uint32
	var err error
	switch size {
	case 1:
		var v uint8
		v, err = c.bus.Load8(addr)
		if signed {
			value = bits.SignExtend(uint32(v), 8)
		} else {
			value = uint32(v)
		}
	case 2:
		if addr&1 != 0 {
			c.resolvePending(false, 0, 0)
			c.enterException(cop0.ExcAddressLoadError, lastPC, &addr)
			return
		}
		var v uint16
		v, err = c.bus.Load16(addr)
		if signed {
			value = bits.SignExtend(uint32(v), 16)
		} else {
			value = uint32(v)
		}
	case 4:
		if addr&3 != 0 {
			c.resolvePending(false, 0, 0)
			c.enterException(cop0.ExcAddressLoadError, lastPC, &addr)
			return
		}
		value, err = c.bus.Load32(addr)
	}
	if err != nil {
		c.resolvePending(false, 0, 0)
		c.enterException(cop0.ExcBusDataError, lastPC, &addr)
		return
	}
	c.resolvePending(true, uint8(f.rt), value)
}

func (c *CPU) executeStore(f fields, lastPC uint32, size int) {
	addr := c.effectiveAddress(f)
	c.resolvePending(false, 0, 0)
	if c.COP0.IsolateCache() {
		return
	}
	value := c.Regs.Get(uint8(f.rt))
	var err error
	switch size {
	case 1:
		err = c.bus.Store8(addr, uint8(value))
	case 2:
		if addr&1 != 0 {
			c.enterException(cop0.ExcAddressStoreError, lastPC, &addr)
			return
		}
		err = c.bus.Store16(addr, uint16(value))
	case 4:
		if addr&3 != 0 {
			c.enterException(cop0.ExcAddressStoreError, lastPC, &addr)
			return
		}
		err = c.bus.Store32(addr, value)
	}
	if err != nil {
		c.enterException(cop0.ExcBusDataError, lastPC, &addr)
	}
}

// executeLoadUnaligned implements the unaligned-load byte merges of §6 with
// shifts and masks: LWL merges bytes 0..addr&3 of the aligned word into the
// top of rt, keeping rt's remaining low bytes; LWR merges bytes addr&3..3
// into the bottom of rt, keeping rt's remaining high bytes. Real hardware reads rt's in-flight value (even
// a still-pending load to the same register); this implementation uses
// rt's last-committed value, a documented simplification.
func (c *CPU) executeLoadUnaligned(f fields, lastPC uint32, left bool) {
	addr := c.effectiveAddress(f)
	aligned := addr &^ 3
	word, err := c.bus.Load32(aligned)
	if err != nil {
		c.resolvePending(false, 0, 0)
		c.enterException(cop0.ExcBusDataError, lastPC, &addr)
		return
	}
	old := c.Regs.Get(uint8(f.rt))
	n := (addr & 3) * 8
	var merged uint32
	if left {
		merged = (old & (0x00ffffff >> n)) | (word << (24 - n))
	} else {
		merged = (old &^ (0xffffffff >> n)) | (word >> n)
	}
	c.resolvePending(true, uint8(f.rt), merged)
}

func (c *CPU) executeStoreUnaligned(f fields, lastPC uint32, left bool) {
	addr := c.effectiveAddress(f)
	aligned := addr &^ 3
	c.resolvePending(false, 0, 0)
	old, err := c.bus.Load32(aligned)
	if err != nil {
		c.enterException(cop0.ExcBusDataError, lastPC, &addr)
		return
	}
	rt := c.Regs.Get(uint8(f.rt))
	n := (addr & 3) * 8
	var merged uint32
	if left {
		merged = (old & (0xffffff00 << n)) | (rt >> (24 - n))
	} else {
		merged = (old & (0xffffffff >> (32 - n))) | (rt << n)
	}
	if err := c.bus.Store32(aligned, merged); err != nil {
		c.enterException(cop0.ExcBusDataError, lastPC, &addr)
	}
}
