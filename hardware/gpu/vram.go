package gpu

// vramWidth/vramHeight are the PSX's fixed 1024x512 framebuffer memory
// dimensions (§4.6), addressed in 16-bit pixels and wrapping at both edges
// the way the real VRAM address generator does.
const (
	vramWidth  = 1024
	vramHeight = 512
)

// Vram is the GPU's dedicated 1MiB pixel store: 1024x512 BGR555 halfwords,
// read and written by GP0 drawing commands, the CPU<->VRAM block-copy
// commands, and the rasterizer's texture fetch path.
type Vram struct {
	pixels [vramHeight][vramWidth]uint16
}

// NewVram returns a zeroed VRAM (power-on state is undefined on real
// hardware; zero is as good a default as any and keeps tests deterministic).
func NewVram() *Vram {
	return &Vram{}
}

func wrap(v, size int32) int32 {
	v %= size
	if v < 0 {
		v += size
	}
	return v
}

// Load16 reads the pixel at (x, y), wrapping both coordinates into range.
func (v *Vram) Load16(x, y int32) uint16 {
	return v.pixels[wrap(y, vramHeight)][wrap(x, vramWidth)]
}

// Store16 writes the pixel at (x, y), wrapping both coordinates into range.
func (v *Vram) Store16(x, y int32, pixel uint16) {
	v.pixels[wrap(y, vramHeight)][wrap(x, vramWidth)] = pixel
}
