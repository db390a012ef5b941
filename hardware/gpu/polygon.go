package gpu

import "github.com/kallistipsx/gopsx/bits"

// vertex bundles a drawn point's position, flat/per-vertex color, and
// (when textured) texture coordinate, mirroring the reference's Vertex.
type vertex struct {
	point Point
	color Color
	tex   TexCoord
}

// modeFromOp decodes a polygon/line/rect opcode's low bits into a drawMode:
// bit4 shaded, bit3 quad/size-selector (polygon-only meaning here), bit2
// textured, bit1 semi-transparent, bit0 raw texture.
func modeFromOp(op uint32) drawMode {
	return drawMode{
		shaded:      bits.Bit(op, 4),
		textured:    bits.Bit(op, 2),
		transparent: bits.Bit(op, 1),
		rawTexture:  bits.Bit(op, 0),
	}
}

// clutPoint/texPage decode the two packed words a textured polygon's first
// two vertices carry: vertex 0's high half selects the CLUT, vertex 1's
// high half selects the texture page actually used for every pixel.
func clutPointFromWord(word uint32) Point {
	return Point{X: int32(bits.Range(word, 16, 21)) * 16, Y: int32(bits.Range(word, 22, 30))}
}

func (g *Gpu) applyTexPageWord(word uint32) {
	g.status = g.status.withRange(stTexPageXBase, 3, bits.Range(word, 16, 19))
	g.status = g.status.withBit(stTexPageYBase, bits.Bit(word, 20))
	g.status = g.status.withRange(stBlendModeLo, stBlendModeHi, bits.Range(word, 21, 22))
	g.status = g.status.withRange(stTexDepthLo, stTexDepthHi, bits.Range(word, 23, 24))
	g.status = g.status.withBit(stTexDisabled, bits.Bit(word, 27))
}

func texCoordFromWord(word uint32) TexCoord {
	return TexCoord{U: uint8(bits.Range(word, 0, 7)), V: uint8(bits.Range(word, 8, 15))}
}

// gp0Polygon services GP0(20h-3Fh): parses a 3- or 4-vertex polygon per
// modeFromOp and rasterizes it as one or two triangles.
func (g *Gpu) gp0Polygon(op uint32) {
	mode := modeFromOp(op)
	count := 3
	if bits.Bit(op, 3) {
		count = 4
	}

	// The very first FIFO word doubles as both the opcode (its top byte,
	// already consumed via peek) and, for unshaded polygons, the single
	// flat color shared by every vertex; for shaded polygons that same
	// word is simply vertex 0's own color, popped in the loop below.
	var flat Color
	if !mode.shaded {
		flat = ColorFromCmd(g.fifo.pop())
	}

	var clut Point
	verts := make([]vertex, count)
	for i := 0; i < count; i++ {
		v := vertex{color: flat}
		if mode.shaded {
			v.color = ColorFromCmd(g.fifo.pop())
		}
		v.point = PointFromCmd(g.fifo.pop()).WithOffset(g.drawXOffset, g.drawYOffset)
		if mode.textured {
			tw := g.fifo.pop()
			if i == 0 {
				clut = clutPointFromWord(tw)
			} else if i == 1 {
				g.applyTexPageWord(tw)
			}
			v.tex = texCoordFromWord(tw)
		}
		verts[i] = v
	}

	cost := g.drawTriangle(mode, clut, [3]vertex{verts[0], verts[1], verts[2]}) + 82
	if count == 4 {
		cost += g.drawTriangle(mode, clut, [3]vertex{verts[1], verts[2], verts[3]}) + 46
	}
	g.schedulePending(cost)
}

// gp0Line services GP0(40h-5Fh): a 2-point line (flat or Gouraud-shaded,
// opaque or semi-transparent). The poly-line variants (terminated by a
// 0x5000...  sentinel instead of a fixed word count) are not supported:
// cmdLen gives them the same fixed length as the 2-point forms, so only
// their first segment is drawn and any further vertex words are then
// decoded as new commands.
func (g *Gpu) gp0Line(op uint32) {
	mode := modeFromOp(op)

	var start, end vertex
	if mode.shaded {
		start.color = ColorFromCmd(g.fifo.pop())
		start.point = PointFromCmd(g.fifo.pop()).WithOffset(g.drawXOffset, g.drawYOffset)
		end.color = ColorFromCmd(g.fifo.pop())
		end.point = PointFromCmd(g.fifo.pop()).WithOffset(g.drawXOffset, g.drawYOffset)
	} else {
		c := ColorFromCmd(g.fifo.pop())
		start.color, end.color = c, c
		start.point = PointFromCmd(g.fifo.pop()).WithOffset(g.drawXOffset, g.drawYOffset)
		end.point = PointFromCmd(g.fifo.pop()).WithOffset(g.drawXOffset, g.drawYOffset)
	}

	cost := g.drawLine(mode, start, end)
	g.schedulePending(cost)
}

// gp0Rect services GP0(60h-7Fh): a flat or textured rectangle, either
// variable-sized (bits 3-4 == 0) or one of the three fixed square sizes.
func (g *Gpu) gp0Rect(op uint32) {
	mode := modeFromOp(op)

	var size int32 = -1
	switch bits.Range(op, 3, 4) {
	case 1:
		size = 1
	case 2:
		size = 8
	case 3:
		size = 16
	}

	color := ColorFromCmd(g.fifo.pop())
	start := PointFromCmd(g.fifo.pop()).WithOffset(g.drawXOffset, g.drawYOffset)

	var clut Point
	var tc TexCoord
	if mode.textured {
		tw := g.fifo.pop()
		clut = clutPointFromWord(tw)
		tc = texCoordFromWord(tw)
	}

	w, h := size, size
	if size < 0 {
		dim := g.fifo.pop()
		w = int32(bits.Range(dim, 0, 10))
		h = int32(bits.Range(dim, 16, 24))
	}

	cost := g.drawRect(mode, color, clut, start, tc, w, h)
	g.schedulePending(cost)
}
