package bus

import "encoding/binary"

// RAM is a flat byte-addressable store backing main RAM and the
// scratchpad (§3); the BIOS uses ROM below. Loads/stores outside the backing slice's length wrap,
// modeling RAM's four-fold 2 MiB mirroring into the 8 MiB KUSEG window.
type RAM struct {
	data []byte
}

// NewRAM allocates a RAM region of the given size, zero-filled.
func NewRAM(size int) *RAM {
	return &RAM{data: make([]byte, size)}
}

// NewROM wraps a pre-filled image (e.g. BIOS) as a read-backed Memory; its
// Store methods are no-ops.
type ROM struct {
	data []byte
}

// NewROM returns a read-only Memory backed by image, padded/truncated to
// size.
func NewROM(image []byte, size int) *ROM {
	data := make([]byte, size)
	copy(data, image)
	return &ROM{data: data}
}

func (r *RAM) index(offset uint32) uint32 { return offset % uint32(len(r.data)) }

func (r *RAM) Load8(offset uint32) uint8  { return r.data[r.index(offset)] }
func (r *RAM) Load16(offset uint32) uint16 {
	i := r.index(offset)
	return binary.LittleEndian.Uint16(r.data[i : i+2])
}
func (r *RAM) Load32(offset uint32) uint32 {
	i := r.index(offset)
	return binary.LittleEndian.Uint32(r.data[i : i+4])
}
func (r *RAM) Store8(offset uint32, v uint8) { r.data[r.index(offset)] = v }
func (r *RAM) Store16(offset uint32, v uint16) {
	i := r.index(offset)
	binary.LittleEndian.PutUint16(r.data[i:i+2], v)
}
func (r *RAM) Store32(offset uint32, v uint32) {
	i := r.index(offset)
	binary.LittleEndian.PutUint32(r.data[i:i+4], v)
}

func (r *ROM) index(offset uint32) uint32 { return offset % uint32(len(r.data)) }

func (r *ROM) Load8(offset uint32) uint8 { return r.data[r.index(offset)] }
func (r *ROM) Load16(offset uint32) uint16 {
	i := r.index(offset)
	return binary.LittleEndian.Uint16(r.data[i : i+2])
}
func (r *ROM) Load32(offset uint32) uint32 {
	i := r.index(offset)
	return binary.LittleEndian.Uint32(r.data[i : i+4])
}
func (r *ROM) Store8(offset uint32, v uint8)    {}
func (r *ROM) Store16(offset uint32, v uint16)  {}
func (r *ROM) Store32(offset uint32, v uint32)  {}
