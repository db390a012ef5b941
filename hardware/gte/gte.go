// Package gte implements the R3000's COP2 geometry transform engine:
// fixed-point (12 fractional bit) matrix/vector math, the perspective
// divider, and the commands selected by the low 6 bits of the
// command word (spec.md §4.7, §6). Grounded on
// original_source/crates/splst_core/src/cpu/gte for the numeric contract
// (accumulator width, saturation points, reciprocal table) and on
// SchawnnDev-awesomeVM's mips/cop0.go for the flat packed-register-file
// shape, generalised to the GTE's wider layout.
package gte

import "github.com/kallistipsx/gopsx/bits"

// GTE holds the 32 data registers and 32 control registers as flat
// uint32 arrays (§6); field packing/unpacking happens in Read/Write.
type GTE struct {
	data    [32]uint32
	control [32]uint32

	flags uint32
}

// New returns a GTE with all registers zeroed, matching power-on state.
func New() *GTE { return &GTE{} }

func signed16(v uint32) int32  { return int32(int16(v)) }
func pack16(lo, hi int32) uint32 {
	return uint32(uint16(lo)) | uint32(uint16(hi))<<16
}

// ReadData implements the CPU-facing mfc2 path; most offsets are plain
// register reads, but offset 15 (SXYP) mirrors SXY2 and offset 29 (ORGB)
// recomputes from IR1-3 on every read (§4.7).
func (g *GTE) ReadData(idx int) uint32 {
	switch idx {
	case 15:
		return g.data[14]
	case 28, 29:
		return g.packRGB()
	default:
		return g.data[idx]
	}
}

// WriteData implements the CPU-facing mtc2 path. Offset 15 pushes the
// screen-XY FIFO (sxy0<-sxy1<-sxy2<-sxyp<-v, the same shift the GTE itself
// performs when a command pushes a projected point); offset 28 unpacks a
// 15-bit RGB triple into IR1-3; offset 30 stores LZCS and recomputes
// LZCR's leading-zero/one count.
func (g *GTE) WriteData(idx int, v uint32) {
	switch idx {
	case 15:
		g.pushSXYWord(v)
	case 28:
		g.data[28] = v
		g.data[9] = int32ToU32(int32(v&0x1f) << 7)
		g.data[10] = int32ToU32(int32((v>>5)&0x1f) << 7)
		g.data[11] = int32ToU32(int32((v>>10)&0x1f) << 7)
	case 30:
		g.data[30] = v
		if int32(v) < 0 {
			g.data[31] = leadingOnes32(v)
		} else {
			g.data[31] = bits.LeadingZeros32(v)
		}
	case 29, 31:
		// ORGB and LZCR are read-only; writes are ignored.
	case 1, 3, 5, 8, 9, 10, 11:
		// Vector Z components and IR0-3 are 16-bit registers sign-extended
		// across the full word on store.
		g.data[idx] = int32ToU32(signed16(v))
	default:
		g.data[idx] = v
	}
}

// pushSXYWord shifts the screen-XY FIFO: sxy0<-sxy1<-sxy2<-v. SXY2 and
// SXYP receive the same incoming value (SXYP has no storage of its own;
// ReadData mirrors it straight from SXY2), so a just-pushed point is
// immediately visible at either offset — the pattern RTPT-then-read-
// SXY0/1/2 for a GPU polygon command depends on.
func (g *GTE) pushSXYWord(v uint32) {
	g.data[12] = g.data[13]
	g.data[13] = g.data[14]
	g.data[14] = v
}

// packRGB recomputes IRGB/ORGB from IR1-3: each channel is IR>>7 clamped
// to 5 bits, packed r|g<<5|b<<10 (both register offsets read this live
// value; only WriteData(28, ...) actually stores anything).
func (g *GTE) packRGB() uint32 {
	r := clamp5(int32ToI32(g.data[9]) >> 7)
	gr := clamp5(int32ToI32(g.data[10]) >> 7)
	b := clamp5(int32ToI32(g.data[11]) >> 7)
	return r | gr<<5 | b<<10
}

func clamp5(v int32) uint32 {
	if v < 0 {
		return 0
	}
	if v > 0x1f {
		return 0x1f
	}
	return uint32(v)
}

func leadingOnes32(v uint32) uint32 { return bits.LeadingZeros32(^v) }

func int32ToU32(v int32) uint32 { return uint32(v) }
func int32ToI32(v uint32) int32 { return int32(v) }

// ReadControl/WriteControl are plain passthroughs: none of the control
// registers have read/write side effects (§4.7).
func (g *GTE) ReadControl(idx int) uint32     { return g.control[idx] }
func (g *GTE) WriteControl(idx int, v uint32) { g.control[idx] = v }

// Flags returns the accumulated saturation/overflow flags register
// (control offset 31 mirrors this after Command runs).
func (g *GTE) Flags() uint32 { return g.flags }
