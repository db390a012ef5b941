// Package memcard implements the memory-card flash image of spec.md §6/§8:
// a 128 KiB store laid out as a header sector, a 15-entry save directory, a
// 20-sector broken-sector list, and 1024 addressable 128-byte data sectors,
// plus the byte-serial read/write/id responder protocol a controller port
// drives one byte at a time. Grounded on original_source's
// io_port/memcard.rs, ported from its nested per-command Rust enum state
// machines to a flat step-counter switch in the teacher's narrow-struct
// idiom.
package memcard

import (
	coreerr "github.com/kallistipsx/gopsx/errors"
)

const (
	// SectorSize is the size in bytes of every addressable card sector,
	// fixed by the memory-card hardware protocol.
	SectorSize = 128

	// SectorCount is the number of 128-byte sectors in a 128 KiB card.
	SectorCount = 1024

	// FlashSize is the total size in bytes of a card image.
	FlashSize = SectorCount * SectorSize

	dirSectors    = 15 // sectors 1-15: save directory
	brokenSectors = 20 // sectors 16-35: broken-sector list
)

// Card is a 128 KiB memory-card flash image, plus the per-byte serial
// transfer state machine a controller port drives it through (§6).
type Card struct {
	flash   [FlashSize]byte
	changed bool

	state        transferState
	step         int
	addrHi       uint8
	addrLo       uint8
	lastByte     uint8
	checksumByte uint8
	sector       [SectorSize]byte
	hasWritten   bool
}

// New returns an unformatted, all-zero card.
func New() *Card {
	return &Card{}
}

// Load builds a Card from a raw image, typically read from a save file on
// disk. A wrong-sized image is a curated, categorized error: per §7's
// resolution for memory-card I/O errors, the caller is expected to surface
// this (e.g. refuse to mount the file) rather than the core crashing on it.
func Load(data []byte) (*Card, error) {
	if len(data) != FlashSize {
		return nil, coreerr.Categorized(coreerr.CategoryMemoryCard, coreerr.BadCardSize, len(data))
	}
	c := &Card{}
	copy(c.flash[:], data)
	return c, nil
}

// Bytes returns the raw flash image, suitable for persisting to disk.
func (c *Card) Bytes() []byte {
	return c.flash[:]
}

// Changed reports whether any sector has been written since the card was
// loaded or last marked clean.
func (c *Card) Changed() bool { return c.changed }

// MarkSaved clears the changed flag after the caller has persisted Bytes.
func (c *Card) MarkSaved() { c.changed = false }

// ReadSector returns a copy of sector n's 128 bytes. An out-of-range index
// reads as all-zero, mirroring a disconnected card slot rather than
// panicking a caller that raced a hot-unplug.
func (c *Card) ReadSector(n int) [SectorSize]byte {
	var out [SectorSize]byte
	if n < 0 || n >= SectorCount {
		return out
	}
	copy(out[:], c.flash[n*SectorSize:(n+1)*SectorSize])
	return out
}

// WriteSector overwrites sector n with data. Per §7, an out-of-range index
// is surfaced to the caller rather than silently ignored or panicking.
func (c *Card) WriteSector(n int, data [SectorSize]byte) error {
	if n < 0 || n >= SectorCount {
		return coreerr.Categorized(coreerr.CategoryMemoryCard, "memory card sector %d out of range", n)
	}
	copy(c.flash[n*SectorSize:(n+1)*SectorSize], data[:])
	c.changed = true
	return nil
}

// checksum is the protocol's running XOR fold over a byte run, used both
// for the header/directory sectors' trailer byte and for the per-transfer
// checksum exchanged in the read/write serial handshake.
func checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum ^= b
	}
	return sum
}

// Format rewrites the card to a freshly-initialized layout: a header
// sector, an all-free directory, and an all-good broken-sector list. Any
// existing save data outside that bookkeeping is left untouched, matching
// a real card's format operation, which only ever touches its own
// metadata sectors.
func (c *Card) Format() {
	var header [SectorSize]byte
	header[0] = 'M'
	header[1] = 'C'
	header[SectorSize-1] = checksum(header[:SectorSize-1])
	copy(c.flash[0:SectorSize], header[:])

	for i := 1; i <= dirSectors; i++ {
		var dir [SectorSize]byte
		dir[0] = 0xa0 // directory entry status: free block
		dir[8] = 0xff // next-block pointer: none
		dir[9] = 0xff
		dir[SectorSize-1] = checksum(dir[:SectorSize-1])
		copy(c.flash[i*SectorSize:(i+1)*SectorSize], dir[:])
	}

	for i := dirSectors + 1; i <= dirSectors+brokenSectors; i++ {
		var bad [SectorSize]byte
		bad[0], bad[1], bad[2], bad[3] = 0xff, 0xff, 0xff, 0xff // broken-sector position: none
		bad[8], bad[9] = 0xff, 0xff                             // next-block pointer: none
		bad[SectorSize-1] = checksum(bad[:SectorSize-1])
		copy(c.flash[i*SectorSize:(i+1)*SectorSize], bad[:])
	}

	c.changed = true
}

// CheckFormat reports whether the card carries the expected header magic,
// header checksum, and a directory whose 15 entry sectors each still carry
// a valid checksum, the way a real memory card's BIOS driver probes a
// newly-inserted card before trusting its directory.
func (c *Card) CheckFormat() bool {
	header := c.ReadSector(0)
	if header[0] != 'M' || header[1] != 'C' {
		return false
	}
	if header[SectorSize-1] != checksum(header[:SectorSize-1]) {
		return false
	}
	for i := 1; i <= dirSectors; i++ {
		dir := c.ReadSector(i)
		if dir[SectorSize-1] != checksum(dir[:SectorSize-1]) {
			return false
		}
	}
	return true
}
