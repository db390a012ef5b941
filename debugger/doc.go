// Package debugger exposes the programmatic inspection hooks spec.md §1
// keeps in scope without a terminal or GUI front end of its own:
// Peek/Poke against a running hardware/system.System (side-effect-free for
// RAM, scratchpad and BIOS; MMIO registers go through the normal bus
// access), and a Disassemble that prints the assembler's mnemonics.
// Grounded on Gopher2600's debugger/dbgmem package (AddressInfo, the
// Peek/Poke split), adapted from its 6507/TIA address map to this core's
// flat-RAM/MMIO decode table.
package debugger
