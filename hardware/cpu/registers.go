package cpu

// Registers holds the R3000 integer register file plus the pipeline state
// named in spec.md §3: the 32 general-purpose registers (r0 hard-wired to
// zero), hi/lo, pc/next_pc, the branch-delay flag, and the single
// load-delay slot.
type Registers struct {
	gpr [32]uint32
	Hi, Lo uint32

	PC, NextPC uint32

	branched     bool
	inBranchDelay bool

	loadDelay pendingLoad
	hiLoReady uint64
}

type pendingLoad struct {
	active bool
	reg    uint8
	value  uint32
	ready  uint64
}

// Get reads a general-purpose register; register 0 always reads 0 (§3).
func (r *Registers) Get(n uint8) uint32 {
	if n == 0 {
		return 0
	}
	return r.gpr[n]
}

// Set writes a general-purpose register immediately (not through the
// load-delay slot); writes to register 0 are silently dropped (§3).
func (r *Registers) Set(n uint8, v uint32) {
	if n == 0 {
		return
	}
	r.gpr[n] = v
}
