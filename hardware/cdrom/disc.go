package cdrom

// Disc is the narrow collaborator the CD-ROM controller reads sectors
// through. Parsing a .cue/.bin image into one is out of scope (spec.md
// §1's Non-goals); this interface is the seam a loader external to this
// package satisfies.
type Disc interface {
	// IsLoaded reports whether a disc is present in the drive. A CdRom
	// with no Disc, or one whose IsLoaded reports false, answers every
	// drive command as if the tray were open.
	IsLoaded() bool

	// ReadSector returns the raw 2352-byte contents (sync + header +
	// data/ECC, whatever the sector's own mode claims) at the given
	// disc position.
	ReadSector(pos Msf) ([2352]byte, error)
}

// noDisc is the zero-value collaborator used before a real disc image is
// attached, reporting every position as unreadable.
type noDisc struct{}

func (noDisc) IsLoaded() bool { return false }

func (noDisc) ReadSector(pos Msf) ([2352]byte, error) {
	var sector [2352]byte
	return sector, errNoDisc
}
