package debugger

import "fmt"

// Area identifies which region of the physical address space an
// AddressInfo falls in, mirroring the decode table hardware/bus keeps
// private to itself (§4.3). Kept as its own small classification here
// rather than importing bus's unexported region type, since this is a
// presentation concern, not a decoding one.
type Area int

const (
	AreaRAM Area = iota
	AreaScratchpad
	AreaBIOS
	AreaHardware
	AreaUnmapped
)

func (a Area) String() string {
	switch a {
	case AreaRAM:
		return "RAM"
	case AreaScratchpad:
		return "scratchpad"
	case AreaBIOS:
		return "BIOS"
	case AreaHardware:
		return "hardware register"
	default:
		return "unmapped"
	}
}

// AddressInfo is everything worth knowing about an address a Peek/Poke
// touched, following Gopher2600's dbgmem.AddressInfo in shape: the
// address as given, its physical (KUSEG/KSEG0/KSEG1-collapsed) form, the
// area it decodes to, and the data observed there if any.
type AddressInfo struct {
	Address  uint32
	Physical uint32
	Area     Area

	Peeked bool
	Data   uint32
}

func (ai AddressInfo) String() string {
	s := fmt.Sprintf("%#08x", ai.Address)
	if ai.Address != ai.Physical {
		s += fmt.Sprintf(" [physical %#08x]", ai.Physical)
	}
	s += fmt.Sprintf(" (%s)", ai.Area)
	if ai.Peeked {
		s += fmt.Sprintf(" -> %#08x", ai.Data)
	}
	return s
}
