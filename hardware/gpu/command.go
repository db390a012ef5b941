package gpu

import (
	"github.com/kallistipsx/gopsx/bits"
	"github.com/kallistipsx/gopsx/errors"
)

// cmdLen is the 256-entry GP0 opcode -> total-FIFO-word-count table
// (including the command word itself), ported verbatim from gp0.rs's
// CMD_LEN.
var cmdLen = [0x100]uint8{
	1, 1, 3, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	4, 4, 4, 4, 7, 7, 7, 7, 5, 5, 5, 5, 9, 9, 9, 9,
	6, 6, 6, 6, 9, 9, 9, 9, 8, 8, 8, 8, 12, 12, 12, 12,
	3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3,
	4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4,
	3, 3, 3, 3, 4, 4, 4, 4, 2, 2, 2, 2, 3, 3, 3, 3,
	2, 2, 2, 2, 3, 3, 3, 3, 2, 2, 2, 2, 3, 3, 3, 3,
	4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4,
	4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4,
	3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3,
	3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3,
	3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3,
	3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
}

// cmdIsImm classifies whether an opcode executes immediately from the FIFO
// (environment/settings commands that never trigger the Drawing state),
// ported verbatim from gp0.rs's CMD_IS_IMM (16 rows of 16 commands each,
// one bit per opcode).
var cmdIsImmTable = [0x10]uint16{
	0b1111111111111001,
	0b0111111111111111,
	0b0000000000000000,
	0b0000000000000000,
	0b0000000000000000,
	0b0000000000000000,
	0b0000000000000000,
	0b0000000000000000,
	0b0000000000000000,
	0b0000000000000000,
	0b0000000000000000,
	0b0000000000000000,
	0b0000000000000000,
	0b0000000000000000,
	0b0000000000111000,
	0b0000000000000000,
}

func cmdIsImm(cmd uint32) bool {
	return bits.Bit(uint32(cmdIsImmTable[cmd/16]), int(cmd%16))
}

// gp0Exec executes the command now fully queued at the front of the FIFO,
// dispatching on its opcode (the top byte of the first word).
func (g *Gpu) gp0Exec() error {
	op := g.fifo.peek() >> 24

	switch {
	case op == 0x00:
		g.fifo.pop()
	case op == 0x01:
		g.fifo.pop() // clear texture cache: no cache modeled, so a no-op
	case op == 0x02:
		g.gp0FillRect()
	case op == 0x1f:
		g.fifo.pop()
		g.status = g.status.withBit(stIRQEnabled, true)
	case op == 0xe1:
		g.gp0DrawMode()
	case op == 0xe2:
		g.gp0TextureWindow()
	case op == 0xe3:
		g.gp0DrawAreaTopLeft()
	case op == 0xe4:
		g.gp0DrawAreaBottomRight()
	case op == 0xe5:
		g.gp0DrawOffset()
	case op == 0xe6:
		g.gp0MaskBitSetting()
	case op >= 0xe0 && op <= 0xef:
		g.fifo.pop() // other environment slots: reserved, single-word no-op
	case op >= 0x20 && op <= 0x3f:
		g.gp0Polygon(op)
	case op >= 0x40 && op <= 0x5f:
		g.gp0Line(op)
	case op >= 0x60 && op <= 0x7f:
		g.gp0Rect(op)
	case op >= 0x80 && op <= 0x9f:
		g.gp0CopyRectVramToVram()
	case op == 0xa0:
		g.gp0CopyRectCPUToVram()
	case op == 0xc0:
		g.gp0CopyRectVramToCPU()
	default:
		g.fifo.pop()
		return errors.Categorized(errors.CategoryGPU, errors.UnknownGP0Command, op)
	}
	return nil
}

// gp0FillRect services GP0(02h): a flat-color VRAM fill, unaffected by the
// draw area, mask settings, or drawing offset.
func (g *Gpu) gp0FillRect() {
	color := ColorFromCmd(g.fifo.pop())
	startWord := g.fifo.pop()
	dimWord := g.fifo.pop()

	startX := int32(startWord & 0x3f0)
	startY := int32((startWord >> 16) & 0x3ff)
	dimX := int32((dimWord&0x3ff)+0xf) &^ 0xf
	dimY := int32((dimWord >> 16) & 0x1ff)

	pixel := color.AsPixel(false)
	for y := int32(0); y < dimY; y++ {
		for x := int32(0); x < dimX; x++ {
			g.vram.Store16(startX+x, startY+y, pixel)
		}
	}

	cycles := 46 + (uint64(dimX)/8+9)*uint64(dimY)
	g.schedulePending(cycles)
}

// gp0DrawMode services GP0(E1h): texture page base/depth, dithering,
// draw-to-display, texture-disable, and the rectangle texture-flip flags.
func (g *Gpu) gp0DrawMode() {
	v := g.fifo.pop()
	g.status = g.status.withRange(stTexPageXBase, 3, bits.Range(v, 0, 3))
	g.status = g.status.withBit(stTexPageYBase, bits.Bit(v, 4))
	g.status = g.status.withRange(stBlendModeLo, stBlendModeHi, bits.Range(v, 5, 6))
	g.status = g.status.withRange(stTexDepthLo, stTexDepthHi, bits.Range(v, 7, 8))
	g.status = g.status.withBit(stDither, bits.Bit(v, 9))
	g.status = g.status.withBit(stDrawToDisplay, bits.Bit(v, 10))
	g.status = g.status.withBit(stTexDisabled, bits.Bit(v, 11))
	g.texXFlip = bits.Bit(v, 12)
	g.texYFlip = bits.Bit(v, 13)
}

// gp0TextureWindow services GP0(E2h): the texture-window mask/offset used
// to tile small textures across a larger area.
func (g *Gpu) gp0TextureWindow() {
	v := g.fifo.pop()
	g.texWinXMask = uint8(bits.Range(v, 0, 4))
	g.texWinYMask = uint8(bits.Range(v, 5, 9))
	g.texWinXOff = uint8(bits.Range(v, 10, 14))
	g.texWinYOff = uint8(bits.Range(v, 15, 19))
}

func (g *Gpu) gp0DrawAreaTopLeft() {
	v := g.fifo.pop()
	g.daXMin = int32(bits.Range(v, 0, 9))
	g.daYMin = int32(bits.Range(v, 10, 18))
}

func (g *Gpu) gp0DrawAreaBottomRight() {
	v := g.fifo.pop()
	g.daXMax = int32(bits.Range(v, 0, 9))
	g.daYMax = int32(bits.Range(v, 10, 18))
}

// gp0DrawOffset services GP0(E5h): the signed (X, Y) offset folded into
// every vertex a drawing command parses.
func (g *Gpu) gp0DrawOffset() {
	v := g.fifo.pop()
	g.drawXOffset = int32(bits.SignExtend(bits.Range(v, 0, 10), 11))
	g.drawYOffset = int32(bits.SignExtend(bits.Range(v, 11, 21), 11))
}

func (g *Gpu) gp0MaskBitSetting() {
	v := g.fifo.pop()
	g.status = g.status.withBit(stSetMaskBit, bits.Bit(v, 0))
	g.status = g.status.withBit(stDrawMasked, bits.Bit(v, 1))
}

// gp0CopyRectCPUToVram services GP0(A0h): pops the destination rect and
// switches into a streaming VRAM-store, draining any halfwords already
// sitting behind it in the FIFO.
func (g *Gpu) gp0CopyRectCPUToVram() {
	g.fifo.pop() // command word
	pos := g.fifo.pop()
	dim := g.fifo.pop()

	x := int32(bits.Range(pos, 0, 9))
	y := int32(bits.Range(pos, 16, 24))
	w := int32((((dim & 0x3ff) - 1) & 0x3ff)) + 1
	h := int32(((((dim >> 16) & 0x1ff) - 1) & 0x1ff)) + 1

	g.transfer = newMemTransfer(x, y, w, h)
	g.st = stateVramStore
	for !g.fifo.isEmpty() {
		g.storeTransferWord(g.fifo.pop())
		if g.st != stateVramStore {
			break
		}
	}
}

// gp0CopyRectVramToCPU services GP0(C0h): pops the source rect and
// switches into a streaming VRAM-load, drained by reads of GPUREAD.
func (g *Gpu) gp0CopyRectVramToCPU() {
	g.fifo.pop()
	pos := g.fifo.pop()
	dim := g.fifo.pop()

	x := int32(bits.Range(pos, 0, 9))
	y := int32(bits.Range(pos, 16, 24))
	w := int32((((dim & 0x3ff) - 1) & 0x3ff)) + 1
	h := int32(((((dim >> 16) & 0x1ff) - 1) & 0x1ff)) + 1

	g.transfer = newMemTransfer(x, y, w, h)
	g.st = stateVramLoad
}

// gp0CopyRectVramToVram services GP0(80h-9Fh): a straight VRAM->VRAM
// rectangle copy, not named by spec.md's drawing-command list but present
// on real hardware and in CMD_LEN, so it is implemented here too rather
// than left as an unknown opcode.
func (g *Gpu) gp0CopyRectVramToVram() {
	g.fifo.pop()
	srcWord := g.fifo.pop()
	dstWord := g.fifo.pop()
	dimWord := g.fifo.pop()

	srcX, srcY := int32(bits.Range(srcWord, 0, 9)), int32(bits.Range(srcWord, 16, 24))
	dstX, dstY := int32(bits.Range(dstWord, 0, 9)), int32(bits.Range(dstWord, 16, 24))
	w := int32((((dimWord & 0x3ff) - 1) & 0x3ff)) + 1
	h := int32(((((dimWord >> 16) & 0x1ff) - 1) & 0x1ff)) + 1

	for y := int32(0); y < h; y++ {
		for x := int32(0); x < w; x++ {
			g.vram.Store16(dstX+x, dstY+y, g.vram.Load16(srcX+x, srcY+y))
		}
	}
	g.schedulePending(uint64(w) * uint64(h))
}
