package gpu

// texWindowCoord computes the texture-window-adjusted coordinate: the
// real GPU's texture window lets a small texture tile across a larger
// lookup by masking out and replacing the low bits of each texel
// coordinate before the texture-page lookup (§4.6): (u & ^(mask*8)) |
// ((offset & mask) * 8).
func texWindowCoord(coord, mask, offset uint8) uint8 {
	m := mask
	return (coord &^ (m * 8)) | ((offset & m) * 8)
}

// loadTexel fetches one texel through the active texture page and, for
// 4-bit/8-bit depths, its CLUT, applying the texture window to the
// coordinate first.
func (g *Gpu) loadTexel(u, v uint8, clut Point) Texel {
	u = texWindowCoord(u, g.texWinXMask, g.texWinXOff)
	v = texWindowCoord(v, g.texWinYMask, g.texWinYOff)

	pageX := g.status.TexturePageXBase()
	pageY := g.status.TexturePageYBase()

	switch g.status.TextureDepth() {
	case TexelDepth15Bit:
		return Texel(g.vram.Load16(pageX+int32(u), pageY+int32(v)))
	case TexelDepth8Bit:
		word := g.vram.Load16(pageX+int32(u)/2, pageY+int32(v))
		index := (word >> ((uint16(u) & 1) * 8)) & 0xff
		return Texel(g.vram.Load16(clut.X+int32(index), clut.Y))
	default: // TexelDepth4Bit
		word := g.vram.Load16(pageX+int32(u)/4, pageY+int32(v))
		index := (word >> ((uint16(u) & 3) * 4)) & 0xf
		return Texel(g.vram.Load16(clut.X+int32(index), clut.Y))
	}
}
