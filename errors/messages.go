package errors

// Message templates used by the bus, CPU, DMA, CD-ROM, and memory-card
// subsystems when raising curated errors. Keeping them as named constants
// lets callers match on the template with Is() regardless of the
// interpolated Values.
const (
	// assembler (§4.1, §7)
	UnknownMnemonic  = "unknown mnemonic %q"
	UnknownDirective = "unknown directive %q"
	UnknownRegister  = "unknown register %q"
	DuplicateLabel   = "duplicate label %q"
	UndefinedLabel   = "undefined label %q"
	BranchOutOfRange = "branch offset out of range: %d"
	JumpOutOfRange   = "jump target out of range: %#x"
	MissingMain      = "no entry symbol \"main\""
	BadLiteral       = "malformed integer literal %q"
	BadString        = "malformed string literal"
	UnexpectedToken  = "unexpected token %q, wanted %q"

	// CPU exceptions (§4.4, §6)
	AddressLoadError  = "address error on load: %#08x"
	AddressStoreError = "address error on store: %#08x"
	ArithmeticOverflow = "arithmetic overflow"
	ReservedInstruction = "reserved instruction %#08x"
	CopUnusable       = "coprocessor %d unusable"

	// bus (§4.3, §7)
	UnmappedAddress = "bus access to unmapped address %#08x"

	// DMA (§4.5, §7)
	OrderingTableStore = "illegal store to ordering-table DMA peer"
	DMANotReady        = "DMA load from peer that is not ready: port %d"

	// GPU (§4.6, §7)
	UnknownGP0Command = "unknown GP0 command %#02x"
	GPUDMANotReady    = "DMA access to GPU while not ready for direction %d"

	// CD-ROM (§4.8, §7)
	CommandWhilePending = "command %#02x issued while a command is already pending"
	UnknownCommand      = "unknown CD-ROM command %#02x"
	InvalidBCDArgument  = "invalid BCD byte %#02x in set_loc argument"
	CDROMDMAUnsupported = "DMA store to CD-ROM is not supported"

	// memory card (§6, §7)
	BadCardSize     = "memory card image has invalid size: %d bytes"
	BadCardChecksum = "memory card sector checksum mismatch at sector %d"

	// top-level system wiring (§2, §7)
	BadBIOSSize = "BIOS image has invalid size: %d bytes (want %d)"
)
