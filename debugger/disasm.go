package debugger

import (
	"fmt"

	"github.com/kallistipsx/gopsx/assembler"
	"github.com/kallistipsx/gopsx/bits"
)

// fields mirrors hardware/cpu's own unexported decode: the bit layout is
// architectural (§4.1), not an implementation detail, so reproducing it
// here rather than exporting it from cpu is the same "reverse the
// assembler's tables" relationship spec.md §9 calls for between
// Disassemble and Assemble.
type fields struct {
	op, rs, rt, rd, sh, funct uint32
	imm16, imm26              uint32
}

func decode(word uint32) fields {
	return fields{
		op:     bits.Range(word, 26, 31),
		rs:     bits.Range(word, 21, 25),
		rt:     bits.Range(word, 16, 20),
		rd:     bits.Range(word, 11, 15),
		sh:     bits.Range(word, 6, 10),
		funct:  bits.Range(word, 0, 5),
		imm16:  bits.Range(word, 0, 15),
		imm26:  bits.Range(word, 0, 25),
	}
}

func reg(n uint32) string { return "$" + assembler.RegisterNames[n&0x1f] }

func signed16(v uint32) int32 { return int32(int16(v)) }

// Disassemble decodes the 32-bit word at addr into one line of assembly
// text, in the same mnemonic/operand-order spelling assembler.Assemble
// accepts, so most lines reassemble to the same encoding. Branch lines do
// not: their operand is printed as the signed word offset from the branch,
// while Assemble reads a numeric branch operand as an absolute target
// address. COP2 words are printed as "cop2 <imm>" and RFE as "rfe", and
// Assemble accepts neither.
func (h *Hooks) Disassemble(addr uint32) (string, error) {
	word, _, err := h.Peek(addr)
	if err != nil {
		return "", err
	}
	return disassembleWord(word), nil
}

func disassembleWord(word uint32) string {
	f := decode(word)

	switch f.op {
	case 0x0:
		return disassembleSpecial(f)
	case 0x1:
		return disassembleBcondZ(f)
	case 0x2:
		return fmt.Sprintf("j %#x", f.imm26<<2)
	case 0x3:
		return fmt.Sprintf("jal %#x", f.imm26<<2)
	case 0x4:
		return fmt.Sprintf("beq %s, %s, %d", reg(f.rs), reg(f.rt), signed16(f.imm16))
	case 0x5:
		return fmt.Sprintf("bne %s, %s, %d", reg(f.rs), reg(f.rt), signed16(f.imm16))
	case 0x6:
		return fmt.Sprintf("blez %s, %d", reg(f.rs), signed16(f.imm16))
	case 0x7:
		return fmt.Sprintf("bgtz %s, %d", reg(f.rs), signed16(f.imm16))
	case 0x8:
		return fmt.Sprintf("addi %s, %s, %d", reg(f.rt), reg(f.rs), signed16(f.imm16))
	case 0x9:
		return fmt.Sprintf("addiu %s, %s, %d", reg(f.rt), reg(f.rs), signed16(f.imm16))
	case 0xa:
		return fmt.Sprintf("slti %s, %s, %d", reg(f.rt), reg(f.rs), signed16(f.imm16))
	case 0xb:
		return fmt.Sprintf("sltiu %s, %s, %d", reg(f.rt), reg(f.rs), signed16(f.imm16))
	case 0xc:
		return fmt.Sprintf("andi %s, %s, %#x", reg(f.rt), reg(f.rs), f.imm16)
	case 0xd:
		return fmt.Sprintf("ori %s, %s, %#x", reg(f.rt), reg(f.rs), f.imm16)
	case 0xe:
		return fmt.Sprintf("xori %s, %s, %#x", reg(f.rt), reg(f.rs), f.imm16)
	case 0xf:
		return fmt.Sprintf("lui %s, %#x", reg(f.rt), f.imm16)
	case 0x10:
		return disassembleCop0(f)
	case 0x12:
		return fmt.Sprintf("cop2 %#x", f.imm26&0x3ffffff)
	case 0x20:
		return fmt.Sprintf("lb %s, %d(%s)", reg(f.rt), signed16(f.imm16), reg(f.rs))
	case 0x21:
		return fmt.Sprintf("lh %s, %d(%s)", reg(f.rt), signed16(f.imm16), reg(f.rs))
	case 0x22:
		return fmt.Sprintf("lwl %s, %d(%s)", reg(f.rt), signed16(f.imm16), reg(f.rs))
	case 0x23:
		return fmt.Sprintf("lw %s, %d(%s)", reg(f.rt), signed16(f.imm16), reg(f.rs))
	case 0x24:
		return fmt.Sprintf("lbu %s, %d(%s)", reg(f.rt), signed16(f.imm16), reg(f.rs))
	case 0x25:
		return fmt.Sprintf("lhu %s, %d(%s)", reg(f.rt), signed16(f.imm16), reg(f.rs))
	case 0x26:
		return fmt.Sprintf("lwr %s, %d(%s)", reg(f.rt), signed16(f.imm16), reg(f.rs))
	case 0x28:
		return fmt.Sprintf("sb %s, %d(%s)", reg(f.rt), signed16(f.imm16), reg(f.rs))
	case 0x29:
		return fmt.Sprintf("sh %s, %d(%s)", reg(f.rt), signed16(f.imm16), reg(f.rs))
	case 0x2a:
		return fmt.Sprintf("swl %s, %d(%s)", reg(f.rt), signed16(f.imm16), reg(f.rs))
	case 0x2b:
		return fmt.Sprintf("sw %s, %d(%s)", reg(f.rt), signed16(f.imm16), reg(f.rs))
	case 0x2e:
		return fmt.Sprintf("swr %s, %d(%s)", reg(f.rt), signed16(f.imm16), reg(f.rs))
	default:
		return fmt.Sprintf(".word %#08x", word)
	}
}

func disassembleBcondZ(f fields) string {
	bgez := bits.Bit(f.rt, 0)
	link := bits.Bit(f.rt, 4)
	switch {
	case bgez && link:
		return fmt.Sprintf("bgezal %s, %d", reg(f.rs), signed16(f.imm16))
	case bgez:
		return fmt.Sprintf("bgez %s, %d", reg(f.rs), signed16(f.imm16))
	case link:
		return fmt.Sprintf("bltzal %s, %d", reg(f.rs), signed16(f.imm16))
	default:
		return fmt.Sprintf("bltz %s, %d", reg(f.rs), signed16(f.imm16))
	}
}

func disassembleSpecial(f fields) string {
	switch f.funct {
	case 0x0:
		if word := f.rd == 0 && f.rt == 0 && f.sh == 0; word {
			return "nop"
		}
		return fmt.Sprintf("sll %s, %s, %d", reg(f.rd), reg(f.rt), f.sh)
	case 0x2:
		return fmt.Sprintf("srl %s, %s, %d", reg(f.rd), reg(f.rt), f.sh)
	case 0x3:
		return fmt.Sprintf("sra %s, %s, %d", reg(f.rd), reg(f.rt), f.sh)
	case 0x4:
		return fmt.Sprintf("sllv %s, %s, %s", reg(f.rd), reg(f.rt), reg(f.rs))
	case 0x6:
		return fmt.Sprintf("srlv %s, %s, %s", reg(f.rd), reg(f.rt), reg(f.rs))
	case 0x7:
		return fmt.Sprintf("srav %s, %s, %s", reg(f.rd), reg(f.rt), reg(f.rs))
	case 0x8:
		return fmt.Sprintf("jr %s", reg(f.rs))
	case 0x9:
		return fmt.Sprintf("jalr %s, %s", reg(f.rd), reg(f.rs))
	case 0xc:
		return fmt.Sprintf("syscall %#x", f.imm26>>6)
	case 0xd:
		return fmt.Sprintf("break %#x", f.imm26>>6)
	case 0x10:
		return fmt.Sprintf("mfhi %s", reg(f.rd))
	case 0x11:
		return fmt.Sprintf("mthi %s", reg(f.rs))
	case 0x12:
		return fmt.Sprintf("mflo %s", reg(f.rd))
	case 0x13:
		return fmt.Sprintf("mtlo %s", reg(f.rs))
	case 0x18:
		return fmt.Sprintf("mult %s, %s", reg(f.rs), reg(f.rt))
	case 0x19:
		return fmt.Sprintf("multu %s, %s", reg(f.rs), reg(f.rt))
	case 0x1a:
		return fmt.Sprintf("div %s, %s", reg(f.rs), reg(f.rt))
	case 0x1b:
		return fmt.Sprintf("divu %s, %s", reg(f.rs), reg(f.rt))
	case 0x20:
		return fmt.Sprintf("add %s, %s, %s", reg(f.rd), reg(f.rs), reg(f.rt))
	case 0x21:
		return fmt.Sprintf("addu %s, %s, %s", reg(f.rd), reg(f.rs), reg(f.rt))
	case 0x22:
		return fmt.Sprintf("sub %s, %s, %s", reg(f.rd), reg(f.rs), reg(f.rt))
	case 0x23:
		return fmt.Sprintf("subu %s, %s, %s", reg(f.rd), reg(f.rs), reg(f.rt))
	case 0x24:
		return fmt.Sprintf("and %s, %s, %s", reg(f.rd), reg(f.rs), reg(f.rt))
	case 0x25:
		return fmt.Sprintf("or %s, %s, %s", reg(f.rd), reg(f.rs), reg(f.rt))
	case 0x26:
		return fmt.Sprintf("xor %s, %s, %s", reg(f.rd), reg(f.rs), reg(f.rt))
	case 0x27:
		return fmt.Sprintf("nor %s, %s, %s", reg(f.rd), reg(f.rs), reg(f.rt))
	case 0x2a:
		return fmt.Sprintf("slt %s, %s, %s", reg(f.rd), reg(f.rs), reg(f.rt))
	case 0x2b:
		return fmt.Sprintf("sltu %s, %s, %s", reg(f.rd), reg(f.rs), reg(f.rt))
	default:
		return fmt.Sprintf(".word %#08x", f.funct)
	}
}

func disassembleCop0(f fields) string {
	switch f.rs {
	case 0x0:
		return fmt.Sprintf("mfc0 %s, %d", reg(f.rt), f.rd)
	case 0x4:
		return fmt.Sprintf("mtc0 %s, %d", reg(f.rt), f.rd)
	case 0x10:
		return "rfe"
	default:
		return fmt.Sprintf(".word cop0 %#x", f.rs)
	}
}
