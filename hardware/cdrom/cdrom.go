// Package cdrom implements the CD-ROM controller of spec.md §4.8: the
// index-register-addressed command/status/data ports, the argument and
// response byte FIFOs, the seek/read drive state machine, and the IRQ
// flag/mask pair. Grounded on original_source's cdrom module, adapted from
// its scheduler-threaded trait-object style (DmaChan, BusMap) to the
// teacher's narrow bus.Peer/dma.Peer interfaces.
package cdrom

import (
	"errors"

	"github.com/kallistipsx/gopsx/bits"
	coreerr "github.com/kallistipsx/gopsx/errors"
	"github.com/kallistipsx/gopsx/hardware/dma"
	"github.com/kallistipsx/gopsx/logger"
	"github.com/kallistipsx/gopsx/scheduler"
	"github.com/kallistipsx/gopsx/vtime"
)

var errNoDisc = errors.New("no disc loaded")

// interrupt cause codes written to irqFlags on command completion (§4.8).
const (
	intDataReady uint8 = 0x1
	intComplete  uint8 = 0x2
	intAck       uint8 = 0x3
	intError     uint8 = 0x5
)

type seekKind int

const (
	seekData seekKind = iota
	seekAudio
)

type afterSeek int

const (
	afterPause afterSeek = iota
	afterRead
	afterPlay
)

type driveKind int

const (
	driveIdle driveKind = iota
	driveSeeking
	drivePaused
	driveReading
	driveReadingToc
)

// driveState is the controller's motion state, a plain-struct rendering of
// the source's enum-with-payload DriveState (only the Seeking variant
// carries data).
type driveState struct {
	kind       driveKind
	seekTarget Msf
	seekKind   seekKind
	after      afterSeek
}

// modeReg is the single-byte mode register set by SetMode (§4.8); bit
// accessors are unexported since only set_mode's double-speed flag is
// consulted by the seek/read timing in this package so far.
type modeReg uint8

func (m modeReg) doubleSpeed() bool { return m&0x80 != 0 }

// dataBuffer is the 2352-byte sector staging buffer the DMA engine and the
// Data port (index 2) both drain through.
type dataBuffer struct {
	data   [2352]byte
	length uint16
	index  uint16
	active bool
}

func (d *dataBuffer) fillFromSector(sector [2352]byte) {
	d.data = sector
	d.length = uint16(len(sector))
	d.index = 0
}

func (d *dataBuffer) dataReady() bool { return d.index < d.length }

// advance re-aligns the read cursor to the next 8-byte-aligned chunk,
// ported verbatim from the source's odd index bit-twiddle: it rounds down
// to a multiple of 8, then adds 8 if bit 2 of the old index was set.
func (d *dataBuffer) advance() {
	idx := d.index
	adj := (idx & 4) << 1
	d.index = (idx &^ 7) + adj
}

func (d *dataBuffer) readByte() uint8 {
	b := d.data[d.index]
	if d.active {
		d.index++
		if d.index == d.length {
			d.active = false
		}
	} else {
		logger.Log("cdrom", "data port read while data buffer is inactive")
	}
	return b
}

// CdRom is the controller peripheral: a bus.Peer at 0x1f801800-0x1f801803
// (byte-addressed only, per the decode table) and a dma.Peer on the CD-ROM
// DMA channel.
type CdRom struct {
	sched *scheduler.Scheduler
	disc  Disc

	state driveState

	index    uint8
	irqMask  uint8
	irqFlags uint8

	cmdPending bool
	cmd        uint8

	responseFifo byteFifo
	argFifo      byteFifo

	position    Msf
	pendingSeek Msf
	hasSeek     bool

	mode modeReg

	sector     [2352]byte
	dataBuffer dataBuffer
}

// New builds a controller with no disc loaded (attach one with SetDisc)
// that schedules its seek, read and response events on sched.
func New(sched *scheduler.Scheduler) *CdRom {
	return &CdRom{
		sched:        sched,
		disc:         noDisc{},
		responseFifo: newByteFifo(),
		argFifo:      newByteFifo(),
	}
}

// SetDisc swaps in a loaded disc image collaborator (or noDisc{} to eject).
func (c *CdRom) SetDisc(disc Disc) {
	if disc == nil {
		disc = noDisc{}
	}
	c.disc = disc
}

// IRQLine reports whether the CD-ROM's masked interrupt flags are
// currently asserted. hardware/system polls this after each scheduled
// event dispatch and after each instruction (§4.4), since CdRom does not
// hold a reference to the interrupt controller itself.
func (c *CdRom) IRQLine() bool {
	return c.irqActive()
}

func (c *CdRom) irqActive() bool {
	return c.irqFlags&c.irqMask != 0
}

// LoadRegister services a byte-wide read of one of the four CD-ROM ports
// (§4.8). Only the low byte of the returned word is meaningful; the bus
// casts it down for the CPU's LBU/LB.
func (c *CdRom) LoadRegister(offset uint32) uint32 {
	switch offset {
	case 0:
		stat := uint32(c.index)
		stat = bits.SetBit(stat, 3, c.argFifo.isEmpty())
		stat = bits.SetBit(stat, 4, !c.argFifo.isFull())
		stat = bits.SetBit(stat, 5, !c.responseFifo.isEmpty())
		stat = bits.SetBit(stat, 6, !c.dataBuffer.dataReady())
		stat = bits.SetBit(stat, 7, c.cmdPending)
		return stat
	case 1:
		return uint32(c.responseFifo.pop())
	case 2:
		return uint32(c.dataBuffer.readByte())
	case 3:
		switch c.index {
		case 0:
			return uint32(c.irqMask) | 0xe0
		case 1:
			return uint32(c.irqFlags) | 0xe0
		default:
			return 0xff
		}
	default:
		logger.Logf("cdrom", "load from unmapped CD-ROM register offset %#x", offset)
		return 0
	}
}

// StoreRegister services a byte-wide write to one of the four CD-ROM
// ports. Commands execute synchronously here rather than through the
// source's periodic self-rescheduled poll: this package has no BIOS
// quirk to work around, so a register write takes effect immediately,
// matching how hardware/gpu treats direct GP0/GP1 writes.
func (c *CdRom) StoreRegister(offset uint32, value uint32) {
	b := uint8(value)
	switch offset {
	case 0:
		c.index = uint8(bits.Range(value, 0, 1))
	case 1:
		switch c.index {
		case 0:
			if c.cmdPending {
				logger.Logf("cdrom", "%v", coreerr.Categorized(coreerr.CategoryCDROM, coreerr.CommandWhilePending, b))
			}
			c.cmdPending = true
			c.cmd = b
			c.execCmd()
		default:
			logger.Logf("cdrom", "store to command port at index %d ignored", c.index)
		}
	case 2:
		switch c.index {
		case 0:
			c.argFifo.push(b)
		case 1:
			c.irqMask = uint8(bits.Range(value, 0, 4))
		default:
			logger.Logf("cdrom", "store to port 2 at index %d ignored", c.index)
		}
	case 3:
		switch c.index {
		case 0:
			wasActive := c.dataBuffer.active
			c.dataBuffer.active = bits.Bit(value, 7)
			if c.dataBuffer.active {
				if !wasActive {
					c.dataBuffer.fillFromSector(c.sector)
				}
			} else {
				c.dataBuffer.advance()
			}
		case 1:
			c.irqFlags &^= uint8(bits.Range(value, 0, 4))
			if bits.Bit(value, 6) {
				c.argFifo.clear()
			}
		default:
			logger.Logf("cdrom", "store to port 3 at index %d ignored", c.index)
		}
	default:
		logger.Logf("cdrom", "store to unmapped CD-ROM register offset %#x", offset)
	}
}

// DMALoad drains four bytes from the data buffer into one little-endian
// word, the CD-ROM DMA channel's only supported direction. The shift
// amounts here (8, 16, 24) correct a slip in the source's dma_load, which
// shifted every byte above the first by only 8.
func (c *CdRom) DMALoad() uint32 {
	v1 := uint32(c.dataBuffer.readByte())
	v2 := uint32(c.dataBuffer.readByte())
	v3 := uint32(c.dataBuffer.readByte())
	v4 := uint32(c.dataBuffer.readByte())
	return v1 | v2<<8 | v3<<16 | v4<<24
}

// DMAStore is unreachable on real hardware: the CD-ROM DMA channel only
// ever reads sector data out, never accepts a write.
func (c *CdRom) DMAStore(value uint32) {
	logger.Logf("cdrom", "%v", coreerr.Categorized(coreerr.CategoryCDROM, coreerr.CDROMDMAUnsupported))
}

// DMAReady always reports true, matching the source's own "probably
// wrong" placeholder: nothing in this package yet models the DMA channel
// stalling for a not-yet-ready data buffer.
func (c *CdRom) DMAReady(dir dma.Direction) bool {
	return true
}

func (c *CdRom) finishCmd(irq uint8) {
	c.responseFifo.push(c.driveStat())
	c.setInterrupt(irq)
}

func (c *CdRom) setInterrupt(irq uint8) {
	c.irqFlags = irq
}

// driveStat packs the single status byte returned in every command
// response and read by the Status register's high byte semantics (§4.8).
func (c *CdRom) driveStat() uint8 {
	if !c.disc.IsLoaded() {
		return 0x10
	}
	switch c.state.kind {
	case driveIdle:
		return 0
	case drivePaused, driveReadingToc:
		return 1 << 1
	case driveSeeking:
		return 1<<1 | 1<<6
	case driveReading:
		return 1<<1 | 1<<5
	default:
		return 0
	}
}

// seekReadCycles is the coarse, hardware-unmeasured seek/sector-read delay
// (§4.8, §9's Open Question on CD-ROM timing): reproduced verbatim from
// the source's constant rather than derived from a real seek-time model.
const seekReadCycles = 225_000

func (c *CdRom) startSeek(kind seekKind, after afterSeek) uint64 {
	target := c.position
	if c.hasSeek {
		target = c.pendingSeek
		c.hasSeek = false
	} else {
		logger.Log("cdrom", "seeking without a pending set_loc target")
	}

	c.sched.Schedule(vtime.Duration(seekReadCycles), scheduler.Event{Kind: scheduler.EventCDROMSectorDone})
	c.state = driveState{kind: driveSeeking, seekTarget: target, seekKind: kind, after: after}
	return seekReadCycles
}

// sectorCycles is the per-sector read delay, halved by set_mode's
// double-speed flag.
func (c *CdRom) sectorCycles() uint64 {
	if c.mode.doubleSpeed() {
		return seekReadCycles / 2
	}
	return seekReadCycles
}

func (c *CdRom) startRead() {
	c.sched.Schedule(vtime.Duration(c.sectorCycles()), scheduler.Event{Kind: scheduler.EventCDROMSectorDone})
	c.state = driveState{kind: driveReading}
}

// scheduleResponse arranges for Response(cmd) to run after delay CPU
// cycles, used by commands whose completion interrupt is deferred past
// their initial Ack (pause, init, seek_l, get_id, read_toc).
func (c *CdRom) scheduleResponse(delay uint64, cmd uint8) {
	c.sched.Schedule(vtime.Duration(delay), scheduler.Event{Kind: scheduler.EventCDROMResponse, Data: int(cmd)})
}

// SectorDone is the continuation run when an EventCDROMSectorDone fires:
// a seek lands on its target (then pauses, reads, or -- not yet supported
// -- plays, per the AfterSeek the seek was started with), or a read
// advances to the next sector and loads it from the disc.
func (c *CdRom) SectorDone() {
	dataReady := false

	switch c.state.kind {
	case driveSeeking:
		c.position = c.state.seekTarget
		switch c.state.after {
		case afterRead:
			c.startRead()
		case afterPause:
			c.state = driveState{kind: drivePaused}
		case afterPlay:
			logger.Log("cdrom", "CD-DA playback is not implemented")
			c.state = driveState{kind: drivePaused}
		}
	case driveReading:
		c.position = c.position.next()
		c.sched.Schedule(vtime.Duration(c.sectorCycles()), scheduler.Event{Kind: scheduler.EventCDROMSectorDone})

		sector, err := c.disc.ReadSector(c.position)
		if err != nil {
			logger.Logf("cdrom", "sector read at %v failed: %v", c.position, err)
			return
		}
		c.sector = sector
		dataReady = true
	}

	if dataReady {
		c.finishCmd(intDataReady)
	}
}
