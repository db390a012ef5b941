// Package ioport implements the controller/memory-card port of spec.md §6:
// the JOY_DATA/JOY_STAT/JOY_MODE/JOY_CTRL/JOY_BAUD register block, the
// byte-serial device-selection protocol that multiplexes a pad and a memory
// card onto each of the two controller slots, and the ack-pulse scheduling
// that lets a selected device delay its response by a fixed number of
// cycles. Grounded on original_source's io_port module; adapted from its
// Rc<RefCell<_>>-held device list to plain struct fields in the teacher's
// narrow bus.Peer style already used by hardware/dma, hardware/cdrom and
// hardware/timer.
package ioport

import (
	"github.com/kallistipsx/gopsx/bits"
	"github.com/kallistipsx/gopsx/hardware/memcard"
	"github.com/kallistipsx/gopsx/scheduler"
	"github.com/kallistipsx/gopsx/vtime"
)

type deviceKind int

const (
	deviceNone deviceKind = iota
	devicePad
	deviceCard
)

// ack pulse delays (§6), counted in CPU cycles from the byte that won
// device selection to the moment its response becomes visible in JOY_STAT.
const (
	ackDelayMemCard vtime.Duration = 300
	ackDelayPad     vtime.Duration = 500
)

// controlReg is JOY_CTRL, packed the way original_source's ControlReg bit
// layout has it.
type controlReg uint16

func (c controlReg) txEnabled() bool     { return bits.Bit(uint32(c), 0) }
func (c controlReg) selectOutput() bool  { return bits.Bit(uint32(c), 1) }
func (c controlReg) rxEnabled() bool     { return bits.Bit(uint32(c), 2) }
func (c controlReg) ack() bool           { return bits.Bit(uint32(c), 4) }
func (c controlReg) reset() bool         { return bits.Bit(uint32(c), 6) }
func (c controlReg) txIRQEnabled() bool  { return bits.Bit(uint32(c), 10) }
func (c controlReg) rxIRQEnabled() bool  { return bits.Bit(uint32(c), 11) }
func (c controlReg) ackIRQEnabled() bool { return bits.Bit(uint32(c), 12) }
func (c controlReg) ioSlot() int {
	if bits.Bit(uint32(c), 13) {
		return 1
	}
	return 0
}

// modeReg is JOY_MODE; accessors for the baud reload factor and character
// width exist, but nothing in this core calls them (transfers are
// modelled as atomic byte exchanges rather than bit-clocked shifts).
type modeReg uint16

func (m modeReg) baudReloadFactor() uint32 {
	switch bits.Range(uint32(m), 0, 1) {
	case 1:
		return 1
	case 2:
		return 16
	case 3:
		return 64
	default:
		return 1
	}
}

func (m modeReg) charWidth() uint32 { return bits.Range(uint32(m), 2, 3) + 5 }

// port is one of the two controller slots: a pad and a memory card sharing
// the same chip-select, the way a real PSX controller port daisy-chains a
// pad and a card reader onto one connector.
type port struct {
	pad    *Pad
	card   *memcard.Card
	active deviceKind

	waiting     bool
	scheduledID scheduler.ID
	pendingByte uint8
	pendingAck  bool
}

// IoPort implements the controller/memory-card port register block of
// spec.md §6, bridging the CPU-visible JOY_DATA/JOY_STAT/JOY_MODE/JOY_CTRL/
// JOY_BAUD registers to the per-slot byte-serial device protocol.
type IoPort struct {
	sched *scheduler.Scheduler

	ports [2]port

	control controlReg
	mode    modeReg
	baud    uint16

	rxByte     uint8
	rxFull     bool
	txBusy     bool
	ackLevel   bool
	pendingIRQ bool
}

// New returns an I/O port with a fresh pad plugged into each of the two
// slots and no memory card inserted.
func New(sched *scheduler.Scheduler) *IoPort {
	p := &IoPort{sched: sched, baud: 0x0088}
	p.ports[0].pad = NewPad()
	p.ports[1].pad = NewPad()
	return p
}

// InsertCard plugs a memory card into the given slot (0 or 1), replacing
// whatever card (if any) already occupied it.
func (p *IoPort) InsertCard(slot int, card *memcard.Card) {
	p.ports[slot].card = card
}

// RemoveCard unplugs whatever card occupies the given slot.
func (p *IoPort) RemoveCard(slot int) {
	p.ports[slot].card = nil
}

// Pad returns the pad plugged into the given slot.
func (p *IoPort) Pad(slot int) *Pad { return p.ports[slot].pad }

// LoadRegister implements bus.Peer. Register offsets follow JOY_DATA (0),
// JOY_STAT (4), JOY_MODE (8), JOY_CTRL (0xa) and JOY_BAUD (0xe); a pending
// ack is force-completed on any load that would otherwise observe a stale
// JOY_STAT/JOY_DATA, mirroring original_source's do_transfer_early.
func (p *IoPort) LoadRegister(offset uint32) uint32 {
	switch {
	case offset < 4:
		p.forceFinishIfWaiting()
		b := p.rxByte
		if !p.rxFull {
			b = 0xff
		}
		// a 32-bit read replicates the single RX byte across all four
		// bytes of the word; nothing on this bus ever reads JOY_DATA
		// wider than the low byte in practice, but this keeps 8/16/32-bit
		// loads at this offset consistent with each other.
		return uint32(b) | uint32(b)<<8 | uint32(b)<<16 | uint32(b)<<24

	case offset < 8:
		p.forceFinishIfWaiting()
		return p.statusReg()

	case offset < 0xa:
		return uint32(p.mode)

	case offset < 0xc:
		return uint32(p.control)

	case offset < 0xe:
		return 0 // unused word between CTRL and BAUD

	default:
		return uint32(p.baud)
	}
}

// StoreRegister implements bus.Peer.
func (p *IoPort) StoreRegister(offset uint32, value uint32) {
	switch {
	case offset < 4:
		p.beginTransfer(uint8(value))

	case offset < 8:
		// JOY_STAT is read-only.

	case offset < 0xa:
		p.mode = modeReg(uint16(value))

	case offset < 0xc:
		p.storeControl(controlReg(uint16(value)))

	case offset < 0xe:
		// unused

	default:
		p.baud = uint16(value)
	}
}

// statusReg computes JOY_STAT live from the port's FIFO/transfer state
// plus the persisted ack-level and IRQ bits (§6): bit0 TX ready to accept a
// new byte, bit1 RX FIFO not empty, bit2 TX finished, bit7 /ACK input
// level (latched low by the most recent ack pulse, cleared on read), bit9
// interrupt request.
func (p *IoPort) statusReg() uint32 {
	var s uint32
	s = bits.SetBit(s, 0, !p.txBusy)
	s = bits.SetBit(s, 1, p.rxFull)
	s = bits.SetBit(s, 2, !p.txBusy)
	s = bits.SetBit(s, 7, p.ackLevel)
	s = bits.SetBit(s, 9, p.pendingIRQ)
	p.ackLevel = false
	return s
}

// storeControl applies a JOY_CTRL write's side effects: acknowledging a
// latched IRQ, resetting the whole port, and deselecting the active slot
// when /SEL is dropped.
func (p *IoPort) storeControl(c controlReg) {
	prev := p.control
	p.control = c

	if c.ack() {
		p.pendingIRQ = false
	}

	if c.reset() {
		p.control = 0
		p.mode = 0
		p.rxFull, p.txBusy, p.ackLevel, p.pendingIRQ = false, false, false, false
		for i := range p.ports {
			p.resetPort(i)
		}
		return
	}

	if prev.selectOutput() && !c.selectOutput() {
		p.resetPort(c.ioSlot())
	}
}

func (p *IoPort) resetPort(slot int) {
	pt := &p.ports[slot]
	if pt.pad != nil {
		pt.pad.ResetTransferState()
	}
	if pt.card != nil {
		pt.card.ResetTransferState()
	}
	pt.active = deviceNone
	if pt.waiting {
		p.sched.Cancel(pt.scheduledID)
		pt.waiting = false
	}
}

// beginTransfer drives val into whichever device currently holds the
// selected slot's exchange, or (at the start of a new exchange) tries the
// pad first and the memory card second, the way original_source's transfer
// does. A device that claims the byte gets its ack pulse scheduled after
// its protocol's fixed delay; a slot with nothing plugged in, or in which
// neither device recognises the byte, completes immediately with no ack.
func (p *IoPort) beginTransfer(val uint8) {
	slot := p.control.ioSlot()
	pt := &p.ports[slot]

	if pt.waiting {
		return // a transfer is already in flight; real HW would stall/drop
	}

	var out uint8
	var ack bool
	var kind deviceKind

	switch pt.active {
	case devicePad:
		out, ack = pt.pad.Transfer(val)
		kind = devicePad
	case deviceCard:
		out, ack = pt.card.Transfer(val)
		kind = deviceCard
	default:
		if pt.pad != nil {
			out, ack = pt.pad.Transfer(val)
			kind = devicePad
		}
		if !ack && pt.card != nil {
			out, ack = pt.card.Transfer(val)
			kind = deviceCard
		}
	}

	p.txBusy = true
	pt.pendingByte, pt.pendingAck = out, ack

	if !ack {
		pt.active = deviceNone
		p.finishTransfer(slot)
		return
	}

	pt.active = kind
	delay := ackDelayMemCard
	if kind == devicePad {
		delay = ackDelayPad
	}
	pt.waiting = true
	pt.scheduledID = p.sched.Schedule(delay, scheduler.Event{Kind: scheduler.EventIOPortAck, Data: slot})
}

// forceFinishIfWaiting lets a register read observe an in-flight transfer's
// result immediately rather than the stale pre-transfer state, matching
// original_source's do_transfer_early: software that busy-polls JOY_STAT
// should see its own write take effect without literally burning the ack
// delay in host time.
func (p *IoPort) forceFinishIfWaiting() {
	slot := p.control.ioSlot()
	if !p.ports[slot].waiting {
		return
	}
	p.sched.Cancel(p.ports[slot].scheduledID)
	p.OnScheduledEvent(scheduler.Event{Kind: scheduler.EventIOPortAck, Data: slot})
}

// OnScheduledEvent runs when a previously scheduled EventIOPortAck fires,
// finishing the transfer it was scheduled for (§6).
func (p *IoPort) OnScheduledEvent(ev scheduler.Event) {
	if ev.Kind != scheduler.EventIOPortAck {
		return
	}
	slot := ev.Data
	p.ports[slot].waiting = false
	p.finishTransfer(slot)
}

func (p *IoPort) finishTransfer(slot int) {
	pt := &p.ports[slot]
	p.rxByte, p.rxFull = pt.pendingByte, true
	p.txBusy = false

	if pt.pendingAck {
		p.ackLevel = true
		if p.control.ackIRQEnabled() {
			p.pendingIRQ = true
		}
	}
}

// TakePendingIRQ reports and clears whether an ack-triggered interrupt is
// latched, in the same poll-after-dispatch style hardware/timer's
// TakePendingIRQ uses.
func (p *IoPort) TakePendingIRQ() bool {
	pending := p.pendingIRQ
	p.pendingIRQ = false
	return pending
}
