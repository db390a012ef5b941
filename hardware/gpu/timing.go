package gpu

import "github.com/kallistipsx/gopsx/vtime"

// Scanline/frame timing constants for NTSC and PAL, expressed in GPU
// cycles. spec.md explicitly excludes analog video-timing fidelity from
// its scope, so these are the well-known nominal PSX values (roughly
// 3413/263 NTSC, 3406/314 PAL) rather than a cycle-exact derivation;
// hsyncCycles marks where Hblank begins within a scanline.
const (
	ntscCyclesPerScanline = 3413
	ntscScanlineCount     = 263
	ntscVblankBegin       = 240
	ntscVblankEnd         = 263

	palCyclesPerScanline = 3406
	palScanlineCount     = 314
	palVblankBegin       = 288
	palVblankEnd         = 314

	hsyncCycles = 200
)

func (g *Gpu) cyclesPerScanline() uint64 {
	if g.status.VideoMode() == VideoPAL {
		return palCyclesPerScanline
	}
	return ntscCyclesPerScanline
}

func (g *Gpu) scanlineCount() uint64 {
	if g.status.VideoMode() == VideoPAL {
		return palScanlineCount
	}
	return ntscScanlineCount
}

func (g *Gpu) vblankRange() (begin, end uint64) {
	if g.status.VideoMode() == VideoPAL {
		return palVblankBegin, palVblankEnd
	}
	return ntscVblankBegin, ntscVblankEnd
}

// RunResult reports what Run's elapsed time crossed, so hardware/system
// can drive the timers and interrupt controller accordingly.
type RunResult struct {
	HblankTicks  uint64
	EnteredVblank bool
}

// Run advances the GPU's scanline/frame counters by elapsedCPU CPU cycles
// (converted to GPU cycles internally), updating the display-parity status
// bit and reporting any Hblank/Vblank boundaries crossed. Ported from the
// reference's Gpu::run, minus its self-rescheduling: hardware/system owns
// when Run is called (§5's scheduler-driven step loop), this method only
// owns the arithmetic.
func (g *Gpu) Run(elapsedCPU vtime.Duration) RunResult {
	var res RunResult

	cycles := uint64(vtime.GPUCycles(elapsedCPU))
	g.scanlineProg += cycles
	cyclesPerScln := g.cyclesPerScanline()

	if g.scanlineProg < cyclesPerScln {
		wasHblank := g.inHblank
		g.inHblank = g.scanlineProg >= hsyncCycles
		if g.inHblank && !wasHblank {
			res.HblankTicks++
		}
		g.updateLineParity()
		return res
	}

	lines := g.scanlineProg / cyclesPerScln
	g.scanlineProg %= cyclesPerScln

	hblankTicks := lines - 1
	if !g.inHblank {
		hblankTicks++
	}
	g.inHblank = g.scanlineProg >= hsyncCycles
	if g.inHblank {
		hblankTicks++
	}
	res.HblankTicks = hblankTicks

	sclnCount := g.scanlineCount()
	vbegin, vend := g.vblankRange()
	remaining := lines
	for remaining > 0 {
		step := sclnCount - g.scanline
		if step > remaining {
			step = remaining
		}
		g.scanline += step
		remaining -= step

		wasVblank := g.inVblank
		g.inVblank = g.scanline >= vbegin && g.scanline < vend
		if g.inVblank && !wasVblank {
			g.frameCount++
			res.EnteredVblank = true
		}

		if g.scanline >= sclnCount {
			g.scanline = 0
			if g.interlaced480() {
				g.status = g.status.withBit(stInterlaceFld, g.status.InterlaceField() == 0)
			} else {
				g.status = g.status.withBit(stInterlaceFld, false)
			}
		}
	}

	g.updateLineParity()
	return res
}

// interlaced480 reports whether the display is in the 480-line interlaced
// mode, the one case where the displayed field alternates every frame.
func (g *Gpu) interlaced480() bool {
	return g.status.VerticalInterlace() && g.status.VerticalRes() == 480
}

// updateLineParity recomputes GPUSTAT bit 31, the even/odd parity of the
// VRAM line currently being displayed.
func (g *Gpu) updateLineParity() {
	lineOffset := int64(g.scanline) * 2
	if g.interlaced480() && g.inVblank {
		if g.status.InterlaceField() != 0 {
			lineOffset++
		}
	}
	vramLine := int64(g.dispVramY) + lineOffset
	g.status = g.status.withBit(stOddLine, vramLine&1 != 0)
}

// FrameCount returns the number of Vblank boundaries crossed since reset,
// useful for a frontend pacing presentation to real frames.
func (g *Gpu) FrameCount() uint64 { return g.frameCount }

// InVblank reports whether the GPU is currently within its vertical
// blanking interval.
func (g *Gpu) InVblank() bool { return g.inVblank }
