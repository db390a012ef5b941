package system

import (
	"github.com/kallistipsx/gopsx/bits"
	"github.com/kallistipsx/gopsx/hardware/dma"
)

// spuRegisterSpace is the byte width of the bus decode table's SPU window
// (0x1f801c00-0x1f801e7f inclusive), matching the real hardware register
// block size.
const spuRegisterSpace = 0x280

// Register offsets relative to the SPU base (0x1f801c00), taken from the
// real, well-documented hardware register map rather than
// original_source's own numbering: the source indexes a packed Rust
// struct by field position (reg 210/211/213 in its own layout), which
// doesn't correspond 1:1 to real byte offsets, so this port re-addresses
// the same three registers' behaviour onto their real offsets instead of
// reproducing the source's internal indices (see DESIGN.md).
const (
	spuRegIRQAddr      = 0x1a4
	spuRegTransferAddr = 0x1a6
	spuRegControl      = 0x1aa
	spuRegStatus       = 0x1ae
)

// spu is a register-file-only stand-in for the sound processing unit: the
// Open Question decision in DESIGN.md is that synthesis is unimplemented,
// but the register file is modelled in full and reachable through the bus
// decode table, with the IRQ-address comparison and the control-register
// status mirror the two pieces of it that have real behaviour. Grounded
// on original_source/crates/splst_core/src/spu/mod.rs's reg_store/
// maybe_trigger_irq/update_status.
type spu struct {
	regs [spuRegisterSpace / 2]uint16

	activeIRQ bool
}

func newSPU() *spu {
	return &spu{}
}

// LoadRegister implements bus.Peer. A load at a word-aligned offset reads
// two adjacent 16-bit registers packed low-then-high; any other offset
// reads one.
func (s *spu) LoadRegister(offset uint32) uint32 {
	idx := offset / 2
	if int(idx) >= len(s.regs) {
		return 0
	}
	if offset%4 != 0 || int(idx+1) >= len(s.regs) {
		return uint32(s.regs[idx])
	}
	return uint32(s.regs[idx]) | uint32(s.regs[idx+1])<<16
}

// StoreRegister implements bus.Peer. Per original_source's store<T>, a
// word write is modelled as two sequential half-word writes (low half
// first), so whichever register a write touches gets that register's
// side effects exactly as a lone 16-bit write would.
func (s *spu) StoreRegister(offset uint32, value uint32) {
	s.storeHalf(offset, uint16(value))
	if offset%4 == 0 {
		s.storeHalf(offset+2, uint16(value>>16))
	}
}

func (s *spu) storeHalf(offset uint32, value uint16) {
	idx := offset / 2
	if int(idx) >= len(s.regs) {
		return
	}
	s.regs[idx] = value

	switch offset {
	case spuRegIRQAddr, spuRegTransferAddr:
		s.maybeTriggerIRQ()
	case spuRegControl:
		if s.controlIRQEnabled() {
			s.maybeTriggerIRQ()
		} else {
			s.activeIRQ = false
		}
		s.updateStatus()
	}
}

// controlIRQEnabled reads SPUCNT bit 6, the real hardware's IRQ9 enable
// bit (0 = disabled/acknowledge, 1 = enabled).
func (s *spu) controlIRQEnabled() bool {
	return bits.Bit(uint32(s.regs[spuRegControl/2]), 6)
}

// maybeTriggerIRQ latches the SPU interrupt the moment the transfer
// address matches the configured IRQ address, mirroring
// original_source's maybe_trigger_irq (only armed while IRQs are enabled
// in the control register).
func (s *spu) maybeTriggerIRQ() {
	if !s.controlIRQEnabled() {
		return
	}
	if s.regs[spuRegTransferAddr/2] != s.regs[spuRegIRQAddr/2] {
		return
	}
	s.activeIRQ = true
}

// updateStatus mirrors SPUSTAT's low bits from SPUCNT and its bit 6 from
// the latched interrupt flag, matching original_source's update_status.
func (s *spu) updateStatus() {
	ctrl := uint32(s.regs[spuRegControl/2])
	status := ctrl & 0x3f
	status = bits.SetBit(status, 6, s.activeIRQ)
	s.regs[spuRegStatus/2] = uint16(status)
}

// IRQLine reports the SPU's level-sensitive interrupt output, polled by
// hardware/system every step the same way hardware/cdrom.IRQLine is.
func (s *spu) IRQLine() bool { return s.activeIRQ }

// DMALoad/DMAStore/DMAReady implement dma.Peer. No SPU sound RAM is
// modelled (§1's Non-goals exclude SPU audio synthesis), so a DMA burst
// through this port is accepted but has no observable effect beyond
// keeping the channel's cursor/count bookkeeping moving.
func (s *spu) DMALoad() uint32                 { return 0xffffffff }
func (s *spu) DMAStore(value uint32)           {}
func (s *spu) DMAReady(dir dma.Direction) bool { return true }
