package gpu

import "github.com/kallistipsx/gopsx/bits"

// gp1Store dispatches a GP1 control-port word on its top byte (§4.6). GP1
// commands are always immediate: there is no argument FIFO involved, each
// one reads its fields straight out of the single word that names it.
func (g *Gpu) gp1Store(value uint32) {
	switch bits.Range(value, 24, 31) {
	case 0x00:
		g.reset()
	case 0x01:
		g.fifo.clear()
		g.st = stateIdle
	case 0x02:
		g.status = g.status.withBit(stIRQEnabled, false)
	case 0x03:
		g.status = g.status.withBit(stDrawToField, bits.Bit(value, 0))
	case 0x04:
		g.status = g.status.withRange(stDMADirLo, stDMADirHi, bits.Range(value, 0, 1))
	case 0x05:
		g.dispVramX = bits.Range(value, 0, 9)
		g.dispVramY = bits.Range(value, 10, 18)
	case 0x06:
		g.dispColStart = bits.Range(value, 0, 11)
		g.dispColEnd = bits.Range(value, 12, 23)
	case 0x07:
		g.dispLineStart = bits.Range(value, 0, 11)
		g.dispLineEnd = bits.Range(value, 12, 23)
	case 0x08:
		g.status = g.status.withRange(stHResLo, stHResHi, bits.Range(value, 0, 1))
		g.status = g.status.withBit(stHResFlag368, bits.Bit(value, 6))
		g.status = g.status.withBit(stVRes, bits.Bit(value, 2))
		g.status = g.status.withBit(stVideoMode, bits.Bit(value, 3))
		g.status = g.status.withBit(stColorDepth, bits.Bit(value, 4))
		g.status = g.status.withBit(stVertInterlace, bits.Bit(value, 5))
		g.status = g.status.withBit(stReversed, bits.Bit(value, 7))
	case 0xff:
		// Vendor-specific GPU info request; not implemented by any real
		// BIOS/game path worth emulating.
	default:
		// Unknown GP1 opcode: real hardware ignores it.
	}
}

// reset restores power-on defaults, matching GP1(0)'s "full reset": every
// register and the command FIFO, but not VRAM contents, which real
// hardware leaves untouched.
func (g *Gpu) reset() {
	vram := g.vram
	*g = *New()
	g.vram = vram
}
