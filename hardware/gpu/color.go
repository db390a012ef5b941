package gpu

// This file holds the small value types the rasterizer and command parser
// pass around: 24-bit working colors, screen/texture coordinates, and
// 16-bit VRAM texels, plus the four semi-transparency blend modes and the
// 4x4 ordered-dither matrix. None of these types survive as a distinct
// source file in the retrieval pack (primitive.rs/vram.rs were not part of
// it); they are reconstructed from how mod.rs/gp0.rs/rasterize.rs use them,
// plus the well-documented real BGR555 VRAM pixel format (see DESIGN.md).

// Color is a working RGB triple at 8 bits per channel, used for shading,
// blending, and dithering math before being packed down to a 15-bit VRAM
// pixel.
type Color struct {
	R, G, B uint8
}

// ColorFromCmd unpacks a GP0 color/command word: the low 24 bits hold BGR8
// color (R in bits 0-7, G in 8-15, B in 16-23); the high byte, ignored
// here, carries the opcode for the very first word of a draw command.
func ColorFromCmd(word uint32) Color {
	return Color{
		R: uint8(word),
		G: uint8(word >> 8),
		B: uint8(word >> 16),
	}
}

// ColorFromPixel unpacks a 15-bit BGR555 VRAM pixel into an 8-bit-per-
// channel Color, replicating the top 3 bits into the low 3 (the usual
// 5->8 bit expansion) rather than leaving the low bits zero.
func ColorFromPixel(p uint16) Color {
	expand := func(v uint16) uint8 {
		v &= 0x1f
		return uint8(v<<3 | v>>2)
	}
	return Color{
		R: expand(p),
		G: expand(p >> 5),
		B: expand(p >> 10),
	}
}

// AsPixel packs c down to a 15-bit BGR555 VRAM pixel, setting bit 15 to
// mask when requested (the GPU's "set mask bit while drawing" setting).
func (c Color) AsPixel(mask bool) uint16 {
	p := uint16(c.R>>3) | uint16(c.G>>3)<<5 | uint16(c.B>>3)<<10
	if mask {
		p |= 0x8000
	}
	return p
}

func clampByte(v int32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 0xff {
		return 0xff
	}
	return uint8(v)
}

// ShadeBlend multiplies c (a texel) by shade, the standard PSX texture
// modulation: each channel is (texel*shade)/128, saturated to a byte. A
// shade of (128,128,128) ("mid-grey") leaves the texel unchanged.
func (c Color) ShadeBlend(shade Color) Color {
	mul := func(a, b uint8) uint8 {
		return clampByte(int32(a) * int32(b) >> 7)
	}
	return Color{R: mul(c.R, shade.R), G: mul(c.G, shade.G), B: mul(c.B, shade.B)}
}

// TransBlend selects one of the four semi-transparency combining modes
// (§4.6).
type TransBlend int

const (
	BlendAvg TransBlend = iota
	BlendAdd
	BlendSub
	BlendAddQuarter
)

// Blend combines foreground fg (the pixel about to be drawn) with the
// background bg already sitting in VRAM, per mode.
func (m TransBlend) Blend(fg, bg Color) Color {
	ch := func(f, b uint8) uint8 {
		switch m {
		case BlendAdd:
			return clampByte(int32(b) + int32(f))
		case BlendSub:
			return clampByte(int32(b) - int32(f))
		case BlendAddQuarter:
			return clampByte(int32(b) + int32(f)/4)
		default: // BlendAvg
			return clampByte((int32(f) + int32(b)) / 2)
		}
	}
	return Color{R: ch(fg.R, bg.R), G: ch(fg.G, bg.G), B: ch(fg.B, bg.B)}
}

// ditherTable is the 4x4 ordered-dither offset matrix applied to drawn
// pixels when the "dithering enabled" status bit is set, the standard
// table used by the real GPU to fake extra color depth out of 5-bit VRAM
// channels.
var ditherTable = [4][4]int32{
	{-4, 0, -3, 1},
	{2, -2, 3, -1},
	{-3, 1, -4, 0},
	{3, -1, 2, -2},
}

// Dither adds the dither-matrix offset for screen position (x, y) to each
// channel of c, saturating at byte bounds. The offset is applied before
// the color is packed down to 5 bits per channel, so it nudges which way
// each channel rounds rather than visibly banding the image.
func (c Color) Dither(x, y int32) Color {
	off := ditherTable[y&3][x&3]
	adj := func(v uint8) uint8 { return clampByte(int32(v) + off) }
	return Color{R: adj(c.R), G: adj(c.G), B: adj(c.B)}
}

// Point is a screen or VRAM coordinate in GP0 command space (signed
// components, sign-extended from the packed 16-bit halves of a command
// word; all 16 bits of each half are kept).
type Point struct {
	X, Y int32
}

// PointFromCmd unpacks a position word: X in the low 16 bits, Y in the
// high 16, each a signed halfword.
func PointFromCmd(word uint32) Point {
	return Point{X: int32(int16(uint16(word))), Y: int32(int16(uint16(word >> 16)))}
}

// WithOffset adds the current drawing offset to p, matching the real GPU's
// behaviour of folding GP0(E5)'s offset in at vertex-parse time rather
// than at rasterize time.
func (p Point) WithOffset(dx, dy int32) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// TexCoord is an 8-bit texel coordinate within the active texture page.
type TexCoord struct {
	U, V uint8
}

// Texel is a raw 16-bit value fetched from VRAM through a texture page (or
// CLUT), not yet expanded to a working Color.
type Texel uint16

// IsInvisible reports whether this texel is the "transparent" sentinel
// value 0, which real hardware skips drawing entirely rather than
// compositing (§4.6).
func (t Texel) IsInvisible() bool { return t == 0 }

// IsMasked reports whether this texel's high bit (the same bit used for
// "set mask while drawing" on drawn pixels) is set, which gates whether a
// textured, transparency-enabled draw actually blends this pixel.
func (t Texel) IsMasked() bool { return t&0x8000 != 0 }

// AsColor expands the texel to a working Color via the same BGR555
// expansion used for any other VRAM pixel.
func (t Texel) AsColor() Color { return ColorFromPixel(uint16(t)) }
