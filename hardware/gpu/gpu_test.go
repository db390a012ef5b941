package gpu

import (
	"testing"

	"github.com/kallistipsx/gopsx/hardware/dma"
	"github.com/kallistipsx/gopsx/test"
	"github.com/kallistipsx/gopsx/vtime"
)

func packPoint(x, y int16) uint32 {
	return uint32(uint16(y))<<16 | uint32(uint16(x))
}

func TestNewGpuStatusMatchesPowerOnReset(t *testing.T) {
	g := New()
	test.Equate(t, g.Status(), statusReset)
}

func TestGp0FillRectWritesQuantizedPixels(t *testing.T) {
	g := New()

	g.StoreRegister(0, uint32(0x02)<<24|0x0000f8) // color: R=0xf8, opaque
	g.StoreRegister(0, 0x00050010)                // start: x=16, y=5
	g.StoreRegister(0, 0x00030010)                // dim: w=16, h=3

	test.Equate(t, g.Vram().Load16(20, 6), uint16(0x1f))
	test.Equate(t, g.Vram().Load16(31, 7), uint16(0x1f))
	test.Equate(t, g.Vram().Load16(32, 6), uint16(0))
	test.Equate(t, g.Vram().Load16(20, 8), uint16(0))
}

func TestGp0DrawModeSetsTexturePageAndDither(t *testing.T) {
	g := New()

	// GP0(E1h): tex page X=3 (*64), Y=1 (*256), dither on.
	g.StoreRegister(0, uint32(0xe1)<<24|0x213)

	test.Equate(t, g.Status().TexturePageXBase(), int32(3*64))
	test.Equate(t, g.Status().TexturePageYBase(), int32(256))
	test.Equate(t, g.Status().Dithering(), true)
}

func TestGp0FlatTriangleDrawsInteriorPixelAndReportsCost(t *testing.T) {
	g := New()

	cmdWord := uint32(0x20)<<24 | 0x0000f8 // flat opaque triangle, red
	g.StoreRegister(0, cmdWord)
	g.StoreRegister(0, packPoint(10, 10))
	g.StoreRegister(0, packPoint(50, 10))
	g.StoreRegister(0, packPoint(10, 50))

	test.Equate(t, g.Vram().Load16(23, 23), uint16(0x1f))
	test.Equate(t, g.Vram().Load16(100, 100), uint16(0))

	cycles, have := g.TakePendingCommandCycles()
	test.Equate(t, have, true)
	test.Equate(t, cycles > 0, true)

	_, have = g.TakePendingCommandCycles()
	test.Equate(t, have, false)
}

func TestGp0TriangleOutsideDrawAreaIsClipped(t *testing.T) {
	g := New()
	g.StoreRegister(0, uint32(0xe3)<<24|0) // top-left (0,0)
	g.StoreRegister(0, uint32(0xe4)<<24|(uint32(9)<<10)|9) // bottom-right (9,9)

	cmdWord := uint32(0x20)<<24 | 0x0000f8
	g.StoreRegister(0, cmdWord)
	g.StoreRegister(0, packPoint(0, 0))
	g.StoreRegister(0, packPoint(50, 0))
	g.StoreRegister(0, packPoint(0, 50))

	test.Equate(t, g.Vram().Load16(5, 2), uint16(0x1f))
	test.Equate(t, g.Vram().Load16(20, 20), uint16(0))
}

func TestGp1ResetRestoresRegistersButKeepsVram(t *testing.T) {
	g := New()
	g.StoreRegister(0, uint32(0x02)<<24|0x0000f8)
	g.StoreRegister(0, 0)
	g.StoreRegister(0, uint32(1)<<16|1)
	g.StoreRegister(0, uint32(0xe1)<<24|0x203)

	g.StoreRegister(4, uint32(0x00)<<24) // GP1(0): reset

	test.Equate(t, g.Status(), statusReset)
	test.Equate(t, g.Vram().Load16(0, 0), uint16(0x1f))
}

func TestDMAReadyReflectsConfiguredDirection(t *testing.T) {
	g := New()

	g.StoreRegister(4, uint32(0x04)<<24|uint32(DMADirOff))
	test.Equate(t, g.DMAReady(dma.ToPort), false)

	g.StoreRegister(4, uint32(0x04)<<24|uint32(DMADirFifo))
	test.Equate(t, g.DMAReady(dma.ToPort), true)

	test.Equate(t, g.DMAReady(dma.ToRam), true)
}

func TestGPUREADStreamsVramToCPUTransfer(t *testing.T) {
	g := New()
	g.Vram().Store16(5, 5, 0x1111)
	g.Vram().Store16(6, 5, 0x2222)

	g.StoreRegister(0, uint32(0xc0)<<24)
	g.StoreRegister(0, packPoint(5, 5))
	g.StoreRegister(0, uint32(1)<<16|2) // w=2, h=1

	word := g.LoadRegister(0)
	test.Equate(t, word, uint32(0x1111)|uint32(0x2222)<<16)
}

func TestGp0CopyRectCPUToVramStreamsFifoWords(t *testing.T) {
	g := New()

	g.StoreRegister(0, uint32(0xa0)<<24)
	g.StoreRegister(0, packPoint(2, 2))
	g.StoreRegister(0, uint32(1)<<16|2) // w=2, h=1
	g.StoreRegister(0, uint32(0x4444)<<16|0x3333)

	test.Equate(t, g.Vram().Load16(2, 2), uint16(0x3333))
	test.Equate(t, g.Vram().Load16(3, 2), uint16(0x4444))
}

func TestRunCrossesHblankAndVblankBoundaries(t *testing.T) {
	g := New()

	// One extra scanline of cushion absorbs the CPU<->GPU cycle conversion's
	// rounding loss, so the boundary is still crossed despite it.
	elapsedCPU := vtime.CPUCycles(vtime.Duration(ntscCyclesPerScanline * (ntscVblankBegin + 1)))
	res := g.Run(elapsedCPU)
	test.Equate(t, res.HblankTicks, uint64(241)) // lines 0..240 each enter Hblank
	test.Equate(t, res.EnteredVblank, true)
	test.Equate(t, g.InVblank(), true)
	test.Equate(t, g.FrameCount(), uint64(1))
}
