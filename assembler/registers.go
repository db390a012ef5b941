package assembler

// RegisterNames are the 32 canonical MIPS register names, indexed by
// register number (§4.1). "$zero" and "$0" refer to the same register.
var RegisterNames = [32]string{
	"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3", "t0", "t1", "t2", "t3", "t4", "t5", "t6",
	"t7", "s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7", "t8", "t9", "k0", "k1", "gp", "sp", "fp",
	"ra",
}

// LookupRegister returns the register index for a canonical name, and
// false if name isn't one.
func LookupRegister(name string) (uint8, bool) {
	for i, n := range RegisterNames {
		if n == name {
			return uint8(i), true
		}
	}
	return 0, false
}
