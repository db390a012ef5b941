// Package system implements the top-level owning struct named by spec.md
// §9's "Cyclic ownership" design note: a single System holds the
// scheduler, the bus, the CPU, and every peripheral it creates, and is the
// sole driver of the one-event-or-one-instruction step loop (§4.2, §4.4).
// Grounded on gopher2600's VCS struct (the teacher's equivalent "owns
// everything, operations take a *VCS receiver" wiring point), adapted from
// a fixed TIA/RIOT/MOS6507 set to the PSX's bus/CPU/DMA/GPU/GTE/CD-ROM/
// timer/I-O-port/SPU set.
package system

import (
	"github.com/kallistipsx/gopsx/errors"
	"github.com/kallistipsx/gopsx/hardware/bus"
	"github.com/kallistipsx/gopsx/hardware/cdrom"
	"github.com/kallistipsx/gopsx/hardware/cpu"
	"github.com/kallistipsx/gopsx/hardware/dma"
	"github.com/kallistipsx/gopsx/hardware/gpu"
	"github.com/kallistipsx/gopsx/hardware/gte"
	"github.com/kallistipsx/gopsx/hardware/ioport"
	"github.com/kallistipsx/gopsx/hardware/memcard"
	"github.com/kallistipsx/gopsx/hardware/timer"
	"github.com/kallistipsx/gopsx/scheduler"
	"github.com/kallistipsx/gopsx/vtime"
)

// Memory region sizes (§3, §6).
const (
	RAMSize        = 2 * 1024 * 1024
	ScratchpadSize = 1024
	BIOSSize       = 512 * 1024
)

// System owns the scheduler, bus, and every peripheral, and is the single
// driving loop for the emulated machine (§5, §9).
type System struct {
	sched *scheduler.Scheduler
	bus   *bus.Bus
	cpu   *cpu.CPU
	ic    *bus.Controller

	ram     *bus.RAM
	scratch *bus.RAM

	dma      *dma.Engine
	dmaPeers dma.Peers

	timers *timer.Timers
	cdrom  *cdrom.CdRom
	gpu    *gpu.Gpu
	ioport *ioport.IoPort
	spu    *spu
	gte    *gte.GTE
}

// New builds a System with every peripheral wired onto a fresh bus and
// scheduler, the BIOS region unformatted until LoadBIOS is called, and no
// disc or memory card attached.
func New() *System {
	sched := scheduler.New()

	s := &System{
		sched:   sched,
		ic:      bus.NewController(),
		ram:     bus.NewRAM(RAMSize),
		scratch: bus.NewRAM(ScratchpadSize),
		dma:     dma.New(),
		timers:  timer.New(sched),
		cdrom:   cdrom.New(sched),
		gpu:     gpu.New(),
		ioport:  ioport.New(sched),
		spu:     newSPU(),
		gte:     gte.New(),
	}

	s.dmaPeers = dma.Peers{
		MDECIn:  unmodeledDMAPeer{},
		MDECOut: unmodeledDMAPeer{},
		GPU:     s.gpu,
		CDROM:   s.cdrom,
		SPU:     s.spu,
		PIO:     unmodeledDMAPeer{},
	}

	s.bus = bus.New(bus.Peers{
		RAM:        s.ram,
		BIOS:       bus.NewROM(nil, BIOSSize),
		Scratchpad: s.scratch,
		IOPort:     s.ioport,
		DMA:        &dmaRegisters{sys: s},
		Timers:     s.timers,
		CDROM:      s.cdrom,
		GPU:        s.gpu,
		SPU:        s.spu,
		Interrupts: s.ic,
	})

	s.cpu = cpu.New(s.bus)
	s.cpu.COP2 = s.gte

	return s
}

// LoadBIOS installs a BIOS image, padded/truncated to BIOSSize by
// bus.NewROM. A zero-length or oversized image is a curated error: a
// caller that mismatches its own BIOS dump should find out immediately
// rather than have the core silently run garbage.
func (s *System) LoadBIOS(image []byte) error {
	if len(image) == 0 || len(image) > BIOSSize {
		return errors.Categorized(errors.CategoryInternal, errors.BadBIOSSize, len(image), BIOSSize)
	}
	s.bus.Peers.BIOS = bus.NewROM(image, BIOSSize)
	return nil
}

// InsertCard plugs a memory card into the given controller slot (0 or 1).
func (s *System) InsertCard(slot int, card *memcard.Card) {
	s.ioport.InsertCard(slot, card)
}

// RemoveCard unplugs whatever memory card occupies the given slot.
func (s *System) RemoveCard(slot int) {
	s.ioport.RemoveCard(slot)
}

// Pad returns the digital pad plugged into the given controller slot.
func (s *System) Pad(slot int) *ioport.Pad {
	return s.ioport.Pad(slot)
}

// SetDisc swaps in a loaded disc image collaborator for the CD-ROM drive.
func (s *System) SetDisc(disc cdrom.Disc) {
	s.cdrom.SetDisc(disc)
}

// CPU exposes the R3000 interpreter for a debugger or test driver.
func (s *System) CPU() *cpu.CPU { return s.cpu }

// Bus exposes the address-decoded bus for a debugger's Peek/Poke hook.
func (s *System) Bus() *bus.Bus { return s.bus }

// GPU exposes the GPU peripheral for a frontend to read VRAM from.
func (s *System) GPU() *gpu.Gpu { return s.gpu }

// Scheduler exposes the event queue, mainly for tests that want to assert
// on pending/next-due state without stepping the whole machine.
func (s *System) Scheduler() *scheduler.Scheduler { return s.sched }

// Step advances the machine by exactly one unit of work (§4.2): a due
// scheduler event if one is pending, otherwise one CPU instruction. This
// mirrors the scheduler package's own doc comment on the step loop, and
// is the one place in this core that decides which of the two happens.
func (s *System) Step() error {
	if ev, ok := s.sched.PopDue(); ok {
		s.dispatch(ev)
		s.pollInterrupts()
		return nil
	}

	before := s.cpu.Cycles()
	if err := s.cpu.Step(); err != nil {
		return err
	}
	elapsed := vtime.Duration(s.cpu.Cycles() - before)
	s.sched.Advance(elapsed)

	res := s.gpu.Run(elapsed)
	if res.HblankTicks > 0 {
		s.timers.Hblank(res.HblankTicks)
	}
	if cycles, ok := s.gpu.TakePendingCommandCycles(); ok {
		s.sched.Schedule(cycles, scheduler.Event{Kind: scheduler.EventGPUCommandDone})
	}

	s.pollInterrupts()
	return nil
}

// dispatch runs the continuation owned by a due scheduler event. Every
// subsystem that self-schedules (cdrom, timer, ioport) owns its own
// *scheduler.Scheduler reference and is only ever driven back in through
// the handler named here; the GPU and DMA engine are scheduler-free by
// design (§9) and are driven by System itself instead.
func (s *System) dispatch(ev scheduler.Event) {
	switch ev.Kind {
	case scheduler.EventGPUCommandDone:
		s.gpu.CommandDone()
	case scheduler.EventDMARun:
		s.runDMAPort(dma.Port(ev.Data))
	case scheduler.EventCDROMSectorDone:
		s.cdrom.SectorDone()
	case scheduler.EventCDROMResponse:
		s.cdrom.Response(uint8(ev.Data))
	case scheduler.EventTimerIRQ:
		s.timers.OnScheduledEvent(timer.ID(ev.Data))
	case scheduler.EventIOPortAck:
		s.ioport.OnScheduledEvent(ev)
	case scheduler.EventGPUHBlank, scheduler.EventGPUVBlank, scheduler.EventIRQCheck:
		// Nothing in this core ever schedules these: GPU line/frame timing
		// is driven from System.Step's per-instruction gpu.Run call rather
		// than a scheduled recheck, and every peripheral reports its own
		// IRQ line for pollInterrupts to consult every step instead of a
		// dedicated recheck event.
	}
}

// pollInterrupts gathers every peripheral's level-sensitive IRQ line into
// the interrupt controller and feeds its masked-pending verdict to the
// CPU (§4.4). This runs after every event dispatch and after every CPU
// step, matching cpu.CheckInterrupts's own doc comment.
func (s *System) pollInterrupts() {
	if s.gpu.Status().IRQEnabled() {
		s.ic.Raise(bus.IRQGPU)
	}
	if s.cdrom.IRQLine() {
		s.ic.Raise(bus.IRQCDROM)
	}
	if s.dma.MasterIRQ() {
		s.ic.Raise(bus.IRQDMA)
	}
	for id := timer.Timer0; id <= timer.Timer2; id++ {
		if s.timers.TakePendingIRQ(id) {
			s.ic.Raise(timerIRQSource(id))
		}
	}
	if s.ioport.TakePendingIRQ() {
		s.ic.Raise(bus.IRQControllerMemCard)
	}
	if s.spu.IRQLine() {
		s.ic.Raise(bus.IRQSPU)
	}

	// The PSX wires the interrupt controller's single combined output into
	// exactly one R3000 hardware interrupt line (IP2, bit 0 of the
	// hardware-lines field cop0.SetCauseHardwareLines inserts into CAUSE);
	// the other five real hardware lines (IP3-IP7) are not wired to
	// anything on this bus, so activeLines is always 0 or 1, never a wider
	// mask.
	var activeLines uint32
	if s.ic.Pending() {
		activeLines = 1
	}
	s.cpu.CheckInterrupts(activeLines)
}

func timerIRQSource(id timer.ID) int {
	switch id {
	case timer.Timer0:
		return bus.IRQTimer0
	case timer.Timer1:
		return bus.IRQTimer1
	default:
		return bus.IRQTimer2
	}
}
