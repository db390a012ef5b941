package gpu

import "github.com/kallistipsx/gopsx/bits"

// Status is the packed GPUSTAT register (§4.6), read at GPU register
// offset 4. Bit positions and field widths are ported field-for-field from
// the real register layout; accessors are built the same way cop0's SR
// accessors are, directly on the packed word via the bits package.
type Status uint32

// statusReset is GPUSTAT's power-on value: display disabled, DMA off,
// 256x240 defaults from the real BIOS reset sequence.
const statusReset Status = 0x14802000

const (
	stTexPageXBase  = 0 // bits 0-3, x64
	stTexPageYBase  = 4 // bit 4, x256
	stBlendModeLo   = 5
	stBlendModeHi   = 6
	stTexDepthLo    = 7
	stTexDepthHi    = 8
	stDither        = 9
	stDrawToDisplay = 10
	stSetMaskBit    = 11
	stDrawMasked    = 12
	stInterlaceFld  = 13
	stReversed      = 14 // latched by GP1(08h) bit 7; no known real effect
	stTexDisabled   = 15
	stHResFlag368   = 16
	stHResLo        = 17
	stHResHi        = 18
	stVRes          = 19
	stVideoMode     = 20
	stColorDepth    = 21
	stVertInterlace = 22
	stDrawToField   = 23
	stIRQEnabled    = 24
	stDMARequest    = 25
	stCmdReady      = 26
	stVramToCpu     = 27
	stDMABlockReady = 28
	stDMADirLo      = 29
	stDMADirHi      = 30
	stOddLine       = 31
)

func (s Status) TexturePageXBase() int32 { return int32(bits.Range(uint32(s), stTexPageXBase, 3)) * 64 }
func (s Status) TexturePageYBase() int32 { return int32(bits.Range(uint32(s), stTexPageYBase, stTexPageYBase)) * 256 }

// TexelDepth selects how many bits per texel the active texture page uses.
type TexelDepth int

const (
	TexelDepth4Bit TexelDepth = iota
	TexelDepth8Bit
	TexelDepth15Bit
)

func (s Status) TextureDepth() TexelDepth {
	return TexelDepth(bits.Range(uint32(s), stTexDepthLo, stTexDepthHi))
}

func (s Status) BlendMode() TransBlend {
	return TransBlend(bits.Range(uint32(s), stBlendModeLo, stBlendModeHi))
}

func (s Status) Dithering() bool        { return bits.Bit(uint32(s), stDither) }
func (s Status) DrawToDisplay() bool    { return bits.Bit(uint32(s), stDrawToDisplay) }
func (s Status) SetMaskBit() bool       { return bits.Bit(uint32(s), stSetMaskBit) }
func (s Status) DrawMaskedPixels() bool { return bits.Bit(uint32(s), stDrawMasked) }
func (s Status) TextureDisabled() bool  { return bits.Bit(uint32(s), stTexDisabled) }
func (s Status) VerticalInterlace() bool { return bits.Bit(uint32(s), stVertInterlace) }
func (s Status) IRQEnabled() bool       { return bits.Bit(uint32(s), stIRQEnabled) }

// HorizontalRes reports the active display width in pixels. Bit 16 forces
// the special 368px mode regardless of bits 17-18; otherwise those two
// bits select 256/320/512/640. The real register layout's bit-17/18 value
// 1 is ported here as 320 (not the literal reference's 480): 256/320/512/
// 640 are the four documented real PSX horizontal resolutions, and 480 is
// not one of them, so the reference value is treated as a transcription
// slip rather than reproduced (see DESIGN.md).
func (s Status) HorizontalRes() int32 {
	if bits.Bit(uint32(s), stHResFlag368) {
		return 368
	}
	switch bits.Range(uint32(s), stHResLo, stHResHi) {
	case 0:
		return 256
	case 1:
		return 320
	case 2:
		return 512
	default:
		return 640
	}
}

func (s Status) VerticalRes() int32 {
	return 240 * (int32(bits.Range(uint32(s), stVRes, stVRes)) + 1)
}

// VideoMode selects the display's scanline/frame timing.
type VideoMode int

const (
	VideoNTSC VideoMode = iota
	VideoPAL
)

func (s Status) VideoMode() VideoMode { return VideoMode(bits.Range(uint32(s), stVideoMode, stVideoMode)) }

// ColorDepth selects whether the display output is treated as 15-bit
// direct color or 24-bit truecolor.
type ColorDepth int

const (
	ColorDepth15Bit ColorDepth = iota
	ColorDepth24Bit
)

func (s Status) ColorDepth() ColorDepth { return ColorDepth(bits.Range(uint32(s), stColorDepth, stColorDepth)) }

// InterlaceField reports which field (bottom/top) is currently being
// displayed when interlacing is active.
func (s Status) InterlaceField() int32 {
	return int32(bits.Range(uint32(s), stInterlaceFld, stInterlaceFld))
}

// DMADirection selects what GPUREAD/the GP0 port are wired to for the
// purposes of DMA transfers and the status register's ready bits.
type DMADirection int

const (
	DMADirOff DMADirection = iota
	DMADirFifo
	DMADirCPUToGP0
	DMADirVRAMToCPU
)

func (s Status) DMADirection() DMADirection {
	return DMADirection(bits.Range(uint32(s), stDMADirLo, stDMADirHi))
}

func (s Status) withBit(n int, v bool) Status   { return Status(bits.SetBit(uint32(s), n, v)) }
func (s Status) withRange(lo, hi int, v uint32) Status {
	return Status(bits.Insert(uint32(s), lo, hi, v))
}
