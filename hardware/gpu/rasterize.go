package gpu

// This file implements the rasterizer proper: the edge-function scan
// conversion with top-left fill rule for triangles, Bresenham for lines,
// and a linear-step fill for rectangles, plus the per-pixel shading/
// texturing/transparency composite shared by all three. Ported from
// rasterize.rs's algorithm, deliberately as a scalar per-pixel loop rather
// than its std::simd 4-wide batching (see DESIGN.md): the batching is a
// Rust performance technique with no bearing on the pixels produced.

func edgeFunction(a, b, c Point) int64 {
	return int64(b.X-a.X)*int64(c.Y-a.Y) - int64(b.Y-a.Y)*int64(c.X-a.X)
}

// isTopLeft reports whether the directed edge a->b is a "top" edge
// (horizontal, pointing left) or a "left" edge (pointing down), the
// standard top-left fill-rule test that avoids double-drawing shared
// edges between adjacent triangles.
func isTopLeft(a, b Point) bool {
	dy := a.Y - b.Y
	if dy < 0 {
		return true
	}
	return dy == 0 && b.X-a.X < 0
}

func clampCoord(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// drawPixel composites one already-shaded, possibly-textured color onto
// VRAM at (x, y), applying the transparency blend and mask-bit rules
// (§4.6): a textured pixel only blends when its texel is "masked" (high
// bit set); an untextured pixel always blends when transparency is on.
func (g *Gpu) drawPixel(mode drawMode, x, y int32, shade Texel, isTexel bool, color Color) {
	if x < g.daXMin || x > g.daXMax || y < g.daYMin || y > g.daYMax {
		return
	}
	if g.status.DrawMaskedPixels() && Texel(g.vram.Load16(x, y)).IsMasked() {
		return
	}

	if mode.transparent && (!isTexel || shade.IsMasked()) {
		bg := ColorFromPixel(g.vram.Load16(x, y))
		color = g.status.BlendMode().Blend(color, bg)
	}
	g.vram.Store16(x, y, color.AsPixel(g.status.SetMaskBit()))
}

// drawTriangle scan-converts one triangle and returns the GPU-cycle cost
// charged for it (not including the per-command overhead gp0Polygon adds).
func (g *Gpu) drawTriangle(mode drawMode, clut Point, verts [3]vertex) uint64 {
	points := [3]Point{verts[0].point, verts[1].point, verts[2].point}
	colors := [3]Color{verts[0].color, verts[1].color, verts[2].color}
	texc := [3]TexCoord{verts[0].tex, verts[1].tex, verts[2].tex}

	area := edgeFunction(points[0], points[1], points[2])
	if area < 0 {
		points[1], points[2] = points[2], points[1]
		colors[1], colors[2] = colors[2], colors[1]
		texc[1], texc[2] = texc[2], texc[1]
		area = -area
	}
	if area == 0 {
		return triangleDrawTime(mode, 0)
	}

	bias := [3]int64{0, 0, 0}
	if !isTopLeft(points[1], points[2]) {
		bias[0] = -1
	}
	if !isTopLeft(points[2], points[0]) {
		bias[1] = -1
	}
	if !isTopLeft(points[0], points[1]) {
		bias[2] = -1
	}

	minX := clampCoord(minOf3(points[0].X, points[1].X, points[2].X), g.daXMin, g.daXMax)
	maxX := clampCoord(maxOf3(points[0].X, points[1].X, points[2].X), g.daXMin, g.daXMax)
	minY := clampCoord(minOf3(points[0].Y, points[1].Y, points[2].Y), g.daYMin, g.daYMax)
	maxY := clampCoord(maxOf3(points[0].Y, points[1].Y, points[2].Y), g.daYMin, g.daYMax)

	var pixels uint64
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			p := Point{X: x, Y: y}
			w0 := edgeFunction(points[1], points[2], p) + bias[0]
			w1 := edgeFunction(points[2], points[0], p) + bias[1]
			w2 := edgeFunction(points[0], points[1], p) + bias[2]
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			shade := colors[0]
			if mode.shaded {
				shade = interpColor(w0, w1, w2, area, colors)
			}

			var texel Texel
			isTexel := mode.textured
			color := shade
			if isTexel {
				u := interpU8(w0, w1, w2, area, texc[0].U, texc[1].U, texc[2].U)
				v := interpU8(w0, w1, w2, area, texc[0].V, texc[1].V, texc[2].V)
				texel = g.loadTexel(u, v, clut)
				if texel.IsInvisible() {
					continue
				}
				if mode.rawTexture {
					color = texel.AsColor()
				} else {
					color = texel.AsColor().ShadeBlend(shade)
				}
			}
			if g.status.Dithering() {
				color = color.Dither(x, y)
			}

			g.drawPixel(mode, x, y, texel, isTexel, color)
			pixels++
		}
	}

	return triangleDrawTime(mode, pixels)
}

// interpColor barycentrically interpolates a per-vertex color at a pixel
// whose three edge-function values (already bias-adjusted) are w0-w2 and
// whose triangle has the given (positive) double-area.
func interpColor(w0, w1, w2, area int64, c [3]Color) Color {
	ch := func(get func(Color) uint8) uint8 {
		sum := w0*int64(get(c[0])) + w1*int64(get(c[1])) + w2*int64(get(c[2]))
		return clampByte(int32(sum / area))
	}
	return Color{
		R: ch(func(c Color) uint8 { return c.R }),
		G: ch(func(c Color) uint8 { return c.G }),
		B: ch(func(c Color) uint8 { return c.B }),
	}
}

func interpU8(w0, w1, w2, area int64, a, b, c uint8) uint8 {
	sum := w0*int64(a) + w1*int64(b) + w2*int64(c)
	v := sum / area
	if v < 0 {
		v = 0
	}
	if v > 0xff {
		v = 0xff
	}
	return uint8(v)
}

func minOf3(a, b, c int32) int32 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func maxOf3(a, b, c int32) int32 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

// triangleDrawTime is the cost model: a constant that depends on the
// shading and texturing mode plus a per-pixel charge. The cost is the same
// whichever interlace field is being drawn; drawing into the field that is
// not currently displayed is not made cheaper.
func triangleDrawTime(mode drawMode, pixels uint64) uint64 {
	cost := uint64(0)
	if mode.shaded {
		cost += 300
	}
	if mode.textured {
		cost += 150
	}
	perPixel := 1.0
	if mode.textured || mode.shaded {
		perPixel += 0.8
	}
	if mode.transparent {
		perPixel += 0.3
	}
	return cost + uint64(float64(pixels)*perPixel)
}

func rectDrawTime(mode drawMode, pixels uint64) uint64 {
	perPixel := 1.0
	if mode.textured {
		perPixel += 0.4
	}
	if mode.transparent {
		perPixel += 0.2
	}
	return 30 + uint64(float64(pixels)*perPixel)
}

func lineDrawTime(mode drawMode, pixels uint64) uint64 {
	perPixel := 1.0
	if mode.shaded {
		perPixel += 0.5
	}
	if mode.transparent {
		perPixel += 0.5
	}
	return 30 + uint64(float64(pixels)*perPixel)
}

// drawLine rasterizes a 2-point line with integer Bresenham stepping.
// Lines are always dithered regardless of the status dithering bit, and
// their per-step color interpolation for shaded lines uses simple
// truncating integer division rather than a fractional accumulator — a
// known-approximate corner of the algorithm this is ported from (see
// DESIGN.md).
func (g *Gpu) drawLine(mode drawMode, start, end vertex) uint64 {
	start.point = Point{X: clampCoord(start.point.X, g.daXMin, g.daXMax), Y: clampCoord(start.point.Y, g.daYMin, g.daYMax)}
	end.point = Point{X: clampCoord(end.point.X, g.daXMin, g.daXMax), Y: clampCoord(end.point.Y, g.daYMin, g.daYMax)}

	dx := end.point.X - start.point.X
	dy := end.point.Y - start.point.Y
	absDx, absDy := abs32(dx), abs32(dy)
	longest := absDx
	if absDy > longest {
		longest = absDy
	}
	if longest == 0 {
		longest = 1
	}

	var dr, dg, db int32
	if mode.shaded {
		dr = int32(end.color.R) - int32(start.color.R)
		dg = int32(end.color.G) - int32(start.color.G)
		db = int32(end.color.B) - int32(start.color.B)
		dr, dg, db = dr/longest, dg/longest, db/longest
	}

	stepX, stepY := sign32(dx), sign32(dy)
	x, y := start.point.X, start.point.Y
	color := start.color

	var pixels uint64
	plot := func() {
		c := color.Dither(x, y)
		g.drawPixel(mode, x, y, 0, false, c)
		pixels++
	}
	plot()

	if absDx >= absDy {
		errAcc := absDx / 2
		for i := int32(0); i < absDx; i++ {
			errAcc -= absDy
			if errAcc < 0 {
				y += stepY
				errAcc += absDx
			}
			x += stepX
			if mode.shaded {
				color = Color{R: clampByte(int32(color.R) + dr), G: clampByte(int32(color.G) + dg), B: clampByte(int32(color.B) + db)}
			}
			plot()
		}
	} else {
		errAcc := absDy / 2
		for i := int32(0); i < absDy; i++ {
			errAcc -= absDx
			if errAcc < 0 {
				x += stepX
				errAcc += absDy
			}
			y += stepY
			if mode.shaded {
				color = Color{R: clampByte(int32(color.R) + dr), G: clampByte(int32(color.G) + dg), B: clampByte(int32(color.B) + db)}
			}
			plot()
		}
	}

	return lineDrawTime(mode, pixels)
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func sign32(v int32) int32 {
	if v > 0 {
		return 1
	}
	if v < 0 {
		return -1
	}
	return 0
}

// drawRect fills a w x h rectangle starting at start, flat or textured,
// clipped to the draw area with the texture coordinate adjusted to match
// when the left/top edge is clipped.
func (g *Gpu) drawRect(mode drawMode, color Color, clut Point, start Point, tc TexCoord, w, h int32) uint64 {
	udelta, vdelta := int32(1), int32(1)
	if g.texXFlip {
		udelta = -1
	}
	if g.texYFlip {
		vdelta = -1
	}

	x0, y0 := start.X, start.Y
	x1, y1 := start.X+w, start.Y+h
	u0, v0 := int32(tc.U), int32(tc.V)

	if x0 < g.daXMin {
		u0 += (g.daXMin - x0) * udelta
		x0 = g.daXMin
	}
	if y0 < g.daYMin {
		v0 += (g.daYMin - y0) * vdelta
		y0 = g.daYMin
	}
	if x1 > g.daXMax+1 {
		x1 = g.daXMax + 1
	}
	if y1 > g.daYMax+1 {
		y1 = g.daYMax + 1
	}

	var pixels uint64
	v := v0
	for y := y0; y < y1; y++ {
		u := u0
		for x := x0; x < x1; x++ {
			shade := color
			var texel Texel
			isTexel := mode.textured
			if isTexel {
				texel = g.loadTexel(uint8(u), uint8(v), clut)
				if texel.IsInvisible() {
					u += udelta
					continue
				}
				if mode.rawTexture {
					shade = texel.AsColor()
				} else {
					shade = texel.AsColor().ShadeBlend(color)
				}
			}
			g.drawPixel(mode, x, y, texel, isTexel, shade)
			pixels++
			u += udelta
		}
		v += vdelta
	}

	return rectDrawTime(mode, pixels)
}
