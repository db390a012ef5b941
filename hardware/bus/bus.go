// Package bus implements address decoding (§4.3): region masking,
// physical-address range dispatch to RAM/BIOS/scratchpad/MMIO peripherals,
// and the 11-source interrupt controller. Grounded on gopher2600's
// hardware/memory/bus (CPUBus/DebuggerBus narrow interfaces), generalised
// to 8/16/32-bit access widths and this spec's physical decode table.
package bus

import (
	"github.com/kallistipsx/gopsx/errors"
)

// regionMask clears the top address bits per spec.md §6's table, mapping
// KUSEG/KSEG0/KSEG1 onto the same physical address.
var regionMask = [8]uint32{
	0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff, // KUSEG
	0x7fffffff, // KSEG0
	0x1fffffff, // KSEG1
	0xffffffff, 0xffffffff, // KSEG2
}

// Physical maps a 32-bit virtual address to its physical address.
func Physical(addr uint32) uint32 {
	return addr & regionMask[addr>>29]
}

// Peer is the narrow interface every MMIO peripheral implements, mirroring
// the teacher's ChipBus-style dispatch rather than a dynamic trait object
// hierarchy: the bus holds one concrete field per peer and routes by
// address range, not by a registered list of interfaces.
type Peer interface {
	LoadRegister(offset uint32) uint32
	StoreRegister(offset uint32, value uint32)
}

// Peers bundles every bus-attached peripheral the decode table in §4.3
// names. Each field is a narrow interface so hardware/system can supply
// its own concrete peripheral types without the bus importing them.
type Peers struct {
	RAM        Memory
	BIOS       Memory
	Scratchpad Memory
	IOPort     Peer
	DMA        Peer
	Timers     Peer
	CDROM      Peer
	GPU        Peer
	SPU        Peer
	Interrupts *Controller
}

// Memory is a flat byte-addressable store (RAM, BIOS, scratchpad).
type Memory interface {
	Load8(offset uint32) uint8
	Load16(offset uint32) uint16
	Load32(offset uint32) uint32
	Store8(offset uint32, v uint8)
	Store16(offset uint32, v uint16)
	Store32(offset uint32, v uint32)
}

// Bus ties the decode table to a concrete Peers bundle.
type Bus struct {
	Peers Peers
}

// New returns a Bus over the given peripheral set.
func New(peers Peers) *Bus {
	return &Bus{Peers: peers}
}

// region identifies which decode-table entry a physical address falls in.
type region int

const (
	regionRAM region = iota
	regionExpansion1
	regionScratchpad
	regionMemControl
	regionIOPort
	regionRAMSize
	regionInterrupts
	regionDMA
	regionTimers
	regionCDROM
	regionGPU
	regionSPU
	regionBIOS
	regionCacheControl
	regionUnmapped
)

// decode walks the physical-address range table in §4.3, first match wins.
func decode(phys uint32) (region, uint32) {
	switch {
	case phys < 0x00800000:
		return regionRAM, phys&0x1fffff
	case phys >= 0x1f000000 && phys <= 0x1f07ffff:
		return regionExpansion1, phys - 0x1f000000
	case phys >= 0x1f800000 && phys <= 0x1f8003ff:
		return regionScratchpad, phys - 0x1f800000
	case phys >= 0x1f801000 && phys <= 0x1f801023:
		return regionMemControl, phys - 0x1f801000
	case phys >= 0x1f801040 && phys <= 0x1f80105f:
		return regionIOPort, phys - 0x1f801040
	case phys >= 0x1f801060 && phys <= 0x1f801063:
		return regionRAMSize, phys - 0x1f801060
	case phys >= 0x1f801070 && phys <= 0x1f801077:
		return regionInterrupts, phys - 0x1f801070
	case phys >= 0x1f801080 && phys <= 0x1f8010ff:
		return regionDMA, phys - 0x1f801080
	case phys >= 0x1f801100 && phys <= 0x1f80112f:
		return regionTimers, phys - 0x1f801100
	case phys >= 0x1f801800 && phys <= 0x1f801803:
		return regionCDROM, phys - 0x1f801800
	case phys >= 0x1f801810 && phys <= 0x1f801817:
		return regionGPU, phys - 0x1f801810
	case phys >= 0x1f801c00 && phys <= 0x1f801e7f:
		return regionSPU, phys - 0x1f801c00
	case phys >= 0x1fc00000 && phys <= 0x1fc7ffff:
		return regionBIOS, phys - 0x1fc00000
	case phys >= 0xfffe0130 && phys <= 0xfffe0133:
		return regionCacheControl, phys - 0xfffe0130
	default:
		return regionUnmapped, 0
	}
}

// Load32 performs an aligned 32-bit load, per §4.3.
func (b *Bus) Load32(addr uint32) (uint32, error) {
	phys := Physical(addr)
	if phys&3 != 0 {
		return 0, errors.Categorized(errors.CategoryCPUException, errors.AddressLoadError, addr)
	}
	reg, off := decode(phys)
	switch reg {
	case regionRAM:
		return b.Peers.RAM.Load32(off), nil
	case regionBIOS:
		return b.Peers.BIOS.Load32(off), nil
	case regionScratchpad:
		return b.Peers.Scratchpad.Load32(off), nil
	case regionIOPort:
		return b.Peers.IOPort.LoadRegister(off), nil
	case regionDMA:
		return b.Peers.DMA.LoadRegister(off), nil
	case regionTimers:
		return b.Peers.Timers.LoadRegister(off), nil
	case regionCDROM:
		return b.Peers.CDROM.LoadRegister(off), nil
	case regionGPU:
		return b.Peers.GPU.LoadRegister(off), nil
	case regionSPU:
		return b.Peers.SPU.LoadRegister(off), nil
	case regionInterrupts:
		return b.Peers.Interrupts.LoadRegister(off), nil
	case regionExpansion1:
		return 0xffffffff, nil
	case regionMemControl, regionRAMSize, regionCacheControl:
		return 0, nil
	default:
		return 0, errors.Categorized(errors.CategoryBusDecode, errors.UnmappedAddress, addr)
	}
}

// Store32 performs an aligned 32-bit store, per §4.3.
func (b *Bus) Store32(addr uint32, value uint32) error {
	phys := Physical(addr)
	if phys&3 != 0 {
		return errors.Categorized(errors.CategoryCPUException, errors.AddressStoreError, addr)
	}
	reg, off := decode(phys)
	switch reg {
	case regionRAM:
		b.Peers.RAM.Store32(off, value)
	case regionScratchpad:
		b.Peers.Scratchpad.Store32(off, value)
	case regionIOPort:
		b.Peers.IOPort.StoreRegister(off, value)
	case regionDMA:
		b.Peers.DMA.StoreRegister(off, value)
	case regionTimers:
		b.Peers.Timers.StoreRegister(off, value)
	case regionCDROM:
		b.Peers.CDROM.StoreRegister(off, value)
	case regionGPU:
		b.Peers.GPU.StoreRegister(off, value)
	case regionSPU:
		b.Peers.SPU.StoreRegister(off, value)
	case regionInterrupts:
		b.Peers.Interrupts.StoreRegister(off, value)
	case regionBIOS:
		// BIOS is read-only; ignore writes.
	case regionMemControl, regionRAMSize, regionCacheControl, regionExpansion1:
		// no state modeled for these ranges
	default:
		return errors.Categorized(errors.CategoryBusDecode, errors.UnmappedAddress, addr)
	}
	return nil
}

// Load16/Store16/Load8/Store8 follow the same decode path; RAM/BIOS/
// scratchpad support sub-word widths directly. Of the MMIO peers, 16-bit
// accesses reach only the SPU, I/O port and timers, and 8-bit accesses
// reach only the CD-ROM (plus expansion region 1 on loads); any other
// region at these widths is reported as an unmapped address.

func (b *Bus) Load16(addr uint32) (uint16, error) {
	phys := Physical(addr)
	if phys&1 != 0 {
		return 0, errors.Categorized(errors.CategoryCPUException, errors.AddressLoadError, addr)
	}
	reg, off := decode(phys)
	switch reg {
	case regionRAM:
		return b.Peers.RAM.Load16(off), nil
	case regionBIOS:
		return b.Peers.BIOS.Load16(off), nil
	case regionScratchpad:
		return b.Peers.Scratchpad.Load16(off), nil
	case regionSPU, regionIOPort, regionTimers:
		return uint16(b.loadRegisterRegion(reg, off)), nil
	default:
		return 0, errors.Categorized(errors.CategoryBusDecode, errors.UnmappedAddress, addr)
	}
}

func (b *Bus) Store16(addr uint32, value uint16) error {
	phys := Physical(addr)
	if phys&1 != 0 {
		return errors.Categorized(errors.CategoryCPUException, errors.AddressStoreError, addr)
	}
	reg, off := decode(phys)
	switch reg {
	case regionRAM:
		b.Peers.RAM.Store16(off, value)
	case regionScratchpad:
		b.Peers.Scratchpad.Store16(off, value)
	case regionSPU:
		b.Peers.SPU.StoreRegister(off, uint32(value))
	case regionIOPort:
		b.Peers.IOPort.StoreRegister(off, uint32(value))
	case regionTimers:
		b.Peers.Timers.StoreRegister(off, uint32(value))
	default:
		return errors.Categorized(errors.CategoryBusDecode, errors.UnmappedAddress, addr)
	}
	return nil
}

func (b *Bus) Load8(addr uint32) (uint8, error) {
	phys := Physical(addr)
	reg, off := decode(phys)
	switch reg {
	case regionRAM:
		return b.Peers.RAM.Load8(off), nil
	case regionBIOS:
		return b.Peers.BIOS.Load8(off), nil
	case regionScratchpad:
		return b.Peers.Scratchpad.Load8(off), nil
	case regionExpansion1:
		return 0xff, nil
	case regionCDROM:
		return uint8(b.Peers.CDROM.LoadRegister(off)), nil
	default:
		return 0, errors.Categorized(errors.CategoryBusDecode, errors.UnmappedAddress, addr)
	}
}

func (b *Bus) Store8(addr uint32, value uint8) error {
	phys := Physical(addr)
	reg, off := decode(phys)
	switch reg {
	case regionRAM:
		b.Peers.RAM.Store8(off, value)
	case regionScratchpad:
		b.Peers.Scratchpad.Store8(off, value)
	case regionCDROM:
		b.Peers.CDROM.StoreRegister(off, uint32(value))
	case regionExpansion1:
		// expansion region is not writable in this model
	default:
		return errors.Categorized(errors.CategoryBusDecode, errors.UnmappedAddress, addr)
	}
	return nil
}

func (b *Bus) loadRegisterRegion(reg region, off uint32) uint32 {
	switch reg {
	case regionSPU:
		return b.Peers.SPU.LoadRegister(off)
	case regionIOPort:
		return b.Peers.IOPort.LoadRegister(off)
	case regionTimers:
		return b.Peers.Timers.LoadRegister(off)
	default:
		return 0
	}
}
