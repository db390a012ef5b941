package assembler

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kallistipsx/gopsx/test"
)

func word32(b []byte, i int) uint32 {
	return binary.LittleEndian.Uint32(b[i*4:])
}

// scenario 1 of §8: register zero always reads 0, regardless of what the
// program tries to write into it. The assembler itself only needs to prove
// it encodes "li $zero, 1" as an ordinary LUI/ORI-less ORI immediate load
// into r0; the CPU is what enforces the read-as-zero invariant.
func TestAssembleZeroRegister(t *testing.T) {
	src := `main: li $zero, 1
	        break 0`
	code, entry, err := Assemble(src, 0xbfc00000)
	test.NoFailure(t, err)
	test.Equate(t, entry, uint32(0xbfc00000))

	// li $zero, 1 with a value that fits 16 bits becomes "ori $zero, $zero, 1".
	want := op(0xd).rt(0).rs(0).imm(1)
	test.Equate(t, word32(code, 0), uint32(want))

	// break 0
	wantBreak := special(0xd).sys(0)
	test.Equate(t, word32(code, 1), uint32(wantBreak))
}

// scenario 2 of §8: a jump's delay slot instruction is encoded immediately
// after it, and the jump target resolves to the label following the slot.
func TestBranchDelaySlotEncoding(t *testing.T) {
	src := `main: li $v0, 0
	        j l1
	        addiu $v0, $v0, 1
	l1:     break 0`
	code, _, err := Assemble(src, 0)
	test.NoFailure(t, err)

	// li $v0, 0 -> ori $v0, $zero, 0
	test.Equate(t, word32(code, 0), uint32(op(0xd).rt(2).rs(0).imm(0)))

	// j l1: l1 is at byte offset 12 (three words in), target = 12 >> 2 = 3
	test.Equate(t, word32(code, 1), uint32(op(0x2).target(3)))

	// addiu $v0, $v0, 1 sits in the delay slot, fully encoded regardless of
	// the jump that precedes it
	test.Equate(t, word32(code, 2), uint32(op(0x9).rt(2).rs(2).imm(1)))

	// break 0
	test.Equate(t, word32(code, 3), uint32(special(0xd).sys(0)))
}

// scenario 3 of §8: loads of varying width/signedness from the same word
// encode with the opcodes the spec assigns them. Table-driven over the
// assembled word index, since every mnemonic here differs only in its
// opcode field.
func TestLoadStoreEncodings(t *testing.T) {
	src := `main: li $t3, 0x8080
	        sw $t3, 0($0)
	        lh  $1, 0($0)
	        lhu $2, 0($0)
	        lb  $3, 0($0)
	        lbu $4, 0($0)
	        nop
	        break 0`
	code, _, err := Assemble(src, 0)
	require.NoError(t, err)

	cases := []struct {
		mnemonic string
		word     int
		want     uint32
	}{
		{"sw $t3, 0($0)", 1, uint32(op(0x2b).rt(11).rs(0).imm(0))},
		{"lh $1, 0($0)", 2, uint32(op(0x21).rt(1).rs(0).imm(0))},
		{"lhu $2, 0($0)", 3, uint32(op(0x25).rt(2).rs(0).imm(0))},
		{"lb $3, 0($0)", 4, uint32(op(0x20).rt(3).rs(0).imm(0))},
		{"lbu $4, 0($0)", 5, uint32(op(0x24).rt(4).rs(0).imm(0))},
	}
	for _, tc := range cases {
		t.Run(tc.mnemonic, func(t *testing.T) {
			require.Equal(t, tc.want, word32(code, tc.word))
		})
	}
}

// scenario 4 of §8: LWL/LWR with base register $0 and immediate offsets 0
// and 3.
func TestUnalignedLoadEncodings(t *testing.T) {
	src := `main: lwr $1, 0($0)
	        lwl $1, 3($0)
	        break 0`
	code, _, err := Assemble(src, 0)
	require.NoError(t, err)

	cases := []struct {
		mnemonic string
		word     int
		want     uint32
	}{
		{"lwr $1, 0($0)", 0, uint32(op(0x26).rt(1).rs(0).imm(0))},
		{"lwl $1, 3($0)", 1, uint32(op(0x22).rt(1).rs(0).imm(3))},
	}
	for _, tc := range cases {
		t.Run(tc.mnemonic, func(t *testing.T) {
			require.Equal(t, tc.want, word32(code, tc.word))
		})
	}
}

// scenario 5 of §8: addiu with a negative immediate is encoded with the
// two's-complement 16-bit field, not rejected as out of range.
func TestAddiuNegativeImmediate(t *testing.T) {
	src := `main: li $v0, 0
	        addiu $v0, $v0, -1
	        break 0`
	code, _, err := Assemble(src, 0)
	test.NoFailure(t, err)

	test.Equate(t, word32(code, 1), uint32(op(0x9).rt(2).rs(2).imm(0xffff)))
}

func TestLiExpandsToLuiOriWhenWide(t *testing.T) {
	src := `main: li $t0, 0x12345678
	        break 0`
	code, _, err := Assemble(src, 0)
	test.NoFailure(t, err)

	test.Equate(t, word32(code, 0), uint32(op(0xf).rt(8).imm(0x1234)))
	test.Equate(t, word32(code, 1), uint32(op(0xd).rt(8).rs(8).imm(0x5678)))
}

func TestLaEmitsTwoWordsResolvingLabel(t *testing.T) {
	src := `main: la $t0, target
	        break 0
	target: .word 0`
	code, _, err := Assemble(src, 0x1000)
	test.NoFailure(t, err)

	// target label sits right after "la" (8 bytes) and "break" (4 bytes).
	targetAddr := uint32(0x1000 + 8 + 4)
	test.Equate(t, word32(code, 0), uint32(op(0xf).rt(8).imm(targetAddr>>16)))
	test.Equate(t, word32(code, 1), uint32(op(0xd).rs(8).rt(8).imm(targetAddr&0xffff)))
}

func TestUndefinedLabelIsError(t *testing.T) {
	src := `main: j nowhere
	        break 0`
	_, _, err := Assemble(src, 0)
	test.Failure(t, err)
}

func TestDuplicateLabelIsError(t *testing.T) {
	src := `main: nop
	main: nop
	        break 0`
	_, _, err := Assemble(src, 0)
	test.Failure(t, err)
}

func TestBranchOffsetInRange(t *testing.T) {
	src := `main: beq $0, $0, main
	        break 0`
	_, _, err := Assemble(src, 0)
	test.NoFailure(t, err)
}

func TestUnknownMnemonicIsError(t *testing.T) {
	_, _, err := Assemble(`main: frobnicate $0`, 0)
	test.Failure(t, err)
}

func TestUnknownRegisterIsError(t *testing.T) {
	_, _, err := Assemble(`main: add $bogus, $0, $0`, 0)
	test.Failure(t, err)
}

func TestDataDirectivesEncodeLiteralBytes(t *testing.T) {
	src := `main: .word 0xdeadbeef
	        .byte 1, 2, 3
	        .asciiz "hi"`
	code, _, err := Assemble(src, 0)
	test.NoFailure(t, err)

	test.Equate(t, word32(code, 0), uint32(0xdeadbeef))
	test.Equate(t, code[4], byte(1))
	test.Equate(t, code[5], byte(2))
	test.Equate(t, code[6], byte(3))
	test.Equate(t, code[7], byte('h'))
	test.Equate(t, code[8], byte('i'))
	test.Equate(t, code[9], byte(0))
}

func TestNopIsSllZero(t *testing.T) {
	code, _, err := Assemble(`main: nop`, 0)
	test.NoFailure(t, err)
	test.Equate(t, word32(code, 0), uint32(0))
}
