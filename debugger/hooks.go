package debugger

import (
	"github.com/kallistipsx/gopsx/hardware/bus"
	"github.com/kallistipsx/gopsx/hardware/system"
)

// Hooks wraps a running System with the Peek/Poke/Disassemble contract
// spec.md §1 and §9 keep in scope. Peek against flat memory (RAM,
// scratchpad, BIOS) reads the backing store directly and has no side
// effects, the same guarantee Gopher2600's dbgmem.Peek makes; Peek against
// an MMIO register instead goes through the normal bus load, since none of
// this core's peripherals expose a side-effect-free read path (a GPU FIFO
// drain, a CD-ROM response pop) the way Gopher2600's chip Peek methods do.
type Hooks struct {
	sys *system.System
}

// New wraps sys for inspection.
func New(sys *system.System) *Hooks {
	return &Hooks{sys: sys}
}

func classify(phys uint32) Area {
	switch {
	case phys < 0x00800000:
		return AreaRAM
	case phys >= 0x1f800000 && phys <= 0x1f8003ff:
		return AreaScratchpad
	case phys >= 0x1f801000 && phys <= 0x1f801fff:
		return AreaHardware
	case phys >= 0x1fc00000 && phys <= 0x1fc7ffff:
		return AreaBIOS
	default:
		return AreaUnmapped
	}
}

// Peek reads addr without side effects where the area allows it. Hardware
// register areas still go through the normal bus path and so may carry the
// same read side effects a real program's load would.
func (h *Hooks) Peek(addr uint32) (uint32, AddressInfo, error) {
	phys := bus.Physical(addr)
	ai := AddressInfo{Address: addr, Physical: phys, Area: classify(phys)}

	switch ai.Area {
	case AreaRAM:
		ai.Data = h.sys.Bus().Peers.RAM.Load32(phys)
	case AreaScratchpad:
		ai.Data = h.sys.Bus().Peers.Scratchpad.Load32(phys - 0x1f800000)
	case AreaBIOS:
		ai.Data = h.sys.Bus().Peers.BIOS.Load32(phys - 0x1fc00000)
	default:
		v, err := h.sys.Bus().Load32(addr)
		if err != nil {
			return 0, ai, err
		}
		ai.Data = v
	}

	ai.Peeked = true
	return ai.Data, ai, nil
}

// Poke writes value at addr, routed the same way Peek classifies it.
func (h *Hooks) Poke(addr uint32, value uint32) error {
	phys := bus.Physical(addr)
	switch classify(phys) {
	case AreaRAM:
		h.sys.Bus().Peers.RAM.Store32(phys, value)
		return nil
	case AreaScratchpad:
		h.sys.Bus().Peers.Scratchpad.Store32(phys-0x1f800000, value)
		return nil
	case AreaBIOS:
		// bus.ROM.Store32 is a genuine no-op (BIOS is modelled read-only,
		// §3); a debugger wanting to patch a BIOS dump should reload it
		// through System.LoadBIOS instead of poking it live.
		return nil
	default:
		return h.sys.Bus().Store32(addr, value)
	}
}
