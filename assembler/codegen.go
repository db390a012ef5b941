package assembler

import "encoding/binary"

// codegen implements the two-pass code generator of §4.1: pass one walks
// every node assigning addresses and recording label -> address, pass two
// emits the 32-bit little-endian encodings.
type codegen struct {
	base   uint32
	labels map[string]uint32
	code   []byte
}

func newCodegen(base uint32) *codegen {
	return &codegen{base: base, labels: make(map[string]uint32)}
}

// layout assigns an absolute address to every node and records labels.
// Must run before encode.
func (g *codegen) layout(nodes []*node) error {
	addr := g.base
	for _, n := range nodes {
		if n.kind == opLabel {
			if _, exists := g.labels[n.label]; exists {
				return &lexError{line: n.line, message: "duplicate label " + quote(n.label)}
			}
			g.labels[n.label] = addr
			continue
		}
		addr += n.size()
	}
	return nil
}

func quote(s string) string {
	return "\"" + s + "\""
}

func (g *codegen) resolve(line int, a addrOperand) (uint32, error) {
	if !a.isLabel {
		return a.abs, nil
	}
	addr, ok := g.labels[a.label]
	if !ok {
		return 0, &lexError{line: line, message: "undefined label " + quote(a.label)}
	}
	return addr, nil
}

// branchOffset computes (target - (pc+4)) >> 2 and checks it fits a signed
// 16-bit word (§4.1).
func (g *codegen) branchOffset(line int, a addrOperand) (uint32, error) {
	pc := g.base + uint32(len(g.code))
	target, err := g.resolve(line, a)
	if err != nil {
		return 0, err
	}
	off := (int32(target) - int32(pc+4)) >> 2
	if off < -0x8000 || off > 0x7fff {
		return 0, &lexError{line: line, message: "branch offset out of range"}
	}
	return uint32(off) & 0xffff, nil
}

// jumpTarget computes (target >> 2) and checks it fits 26 bits (§4.1).
func (g *codegen) jumpTarget(line int, a addrOperand) (uint32, error) {
	target, err := g.resolve(line, a)
	if err != nil {
		return 0, err
	}
	if target&3 != 0 && target >= (1<<28) {
		return 0, &lexError{line: line, message: "jump target out of range"}
	}
	t := target >> 2
	if t >= (1 << 26) {
		return 0, &lexError{line: line, message: "jump target out of range"}
	}
	return t, nil
}

// --- instruction word builder ---

type word uint32

func op(v uint32) word      { return word(v) << 26 }
func special(v uint32) word { return word(v) }

func (w word) rs(r uint8) word  { return w | word(r)<<21 }
func (w word) rt(r uint8) word  { return w | word(r)<<16 }
func (w word) rd(r uint8) word  { return w | word(r)<<11 }
func (w word) sh(v uint32) word { return w | word(v&0x1f)<<6 }
func (w word) imm(v uint32) word {
	return w | word(v&0xffff)
}
func (w word) target(v uint32) word { return w | word(v&0x3ffffff) }
func (w word) cop(v uint32) word    { return w | word(v)<<21 }
func (w word) bgez(set bool) word {
	if set {
		return w | (1 << 16)
	}
	return w
}
func (w word) link(set bool) word {
	if set {
		return w | (1 << 20)
	}
	return w
}
func (w word) sys(v uint32) word { return w | word(v&0xfffff)<<6 }

func (g *codegen) emit(w word) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(w))
	g.code = append(g.code, b[:]...)
}

// encode runs pass two: labels must already be resolved by layout.
func (g *codegen) encode(nodes []*node) error {
	for _, n := range nodes {
		if err := g.encodeOne(n); err != nil {
			return err
		}
	}
	return nil
}

func (g *codegen) encodeOne(n *node) error {
	switch n.kind {
	case opLabel:
		return nil

	case opSll:
		g.emit(special(0x0).rd(n.rd).rt(n.rt).sh(n.imm))
	case opSrl:
		g.emit(special(0x2).rd(n.rd).rt(n.rt).sh(n.imm))
	case opSra:
		g.emit(special(0x3).rd(n.rd).rt(n.rt).sh(n.imm))
	case opSllv:
		g.emit(special(0x4).rd(n.rd).rt(n.rt).rs(n.rs))
	case opSrlv:
		g.emit(special(0x6).rd(n.rd).rt(n.rt).rs(n.rs))
	case opSrav:
		g.emit(special(0x7).rd(n.rd).rt(n.rt).rs(n.rs))

	case opJr:
		g.emit(special(0x8).rs(n.rs))
	case opJalr:
		g.emit(special(0x9).rd(n.rd).rs(n.rs))
	case opSyscall:
		g.emit(special(0xc).sys(n.imm))
	case opBreak:
		g.emit(special(0xd).sys(n.imm))

	case opMfhi:
		g.emit(special(0x10).rd(n.rd))
	case opMthi:
		g.emit(special(0x11).rs(n.rs))
	case opMflo:
		g.emit(special(0x12).rd(n.rd))
	case opMtlo:
		g.emit(special(0x13).rs(n.rs))
	case opMult:
		g.emit(special(0x18).rs(n.rs).rt(n.rt))
	case opMultu:
		g.emit(special(0x19).rs(n.rs).rt(n.rt))
	case opDiv:
		g.emit(special(0x1a).rs(n.rs).rt(n.rt))
	case opDivu:
		g.emit(special(0x1b).rs(n.rs).rt(n.rt))

	case opAdd:
		g.emit(special(0x20).rd(n.rd).rs(n.rs).rt(n.rt))
	case opAddu:
		g.emit(special(0x21).rd(n.rd).rs(n.rs).rt(n.rt))
	case opSub:
		g.emit(special(0x22).rd(n.rd).rs(n.rs).rt(n.rt))
	case opSubu:
		g.emit(special(0x23).rd(n.rd).rs(n.rs).rt(n.rt))
	case opAnd:
		g.emit(special(0x24).rd(n.rd).rs(n.rs).rt(n.rt))
	case opOr:
		g.emit(special(0x25).rd(n.rd).rs(n.rs).rt(n.rt))
	case opXor:
		g.emit(special(0x26).rd(n.rd).rs(n.rs).rt(n.rt))
	case opNor:
		g.emit(special(0x27).rd(n.rd).rs(n.rs).rt(n.rt))
	case opSlt:
		g.emit(special(0x2a).rd(n.rd).rs(n.rs).rt(n.rt))
	case opSltu:
		g.emit(special(0x2b).rd(n.rd).rs(n.rs).rt(n.rt))

	case opBgez:
		off, err := g.branchOffset(n.line, n.addr)
		if err != nil {
			return err
		}
		g.emit(op(0x1).link(false).bgez(true).rs(n.rs).imm(off))
	case opBltz:
		off, err := g.branchOffset(n.line, n.addr)
		if err != nil {
			return err
		}
		g.emit(op(0x1).link(false).bgez(false).rs(n.rs).imm(off))
	case opBgezal:
		off, err := g.branchOffset(n.line, n.addr)
		if err != nil {
			return err
		}
		g.emit(op(0x1).link(true).bgez(true).rs(n.rs).imm(off))
	case opBltzal:
		off, err := g.branchOffset(n.line, n.addr)
		if err != nil {
			return err
		}
		g.emit(op(0x1).link(true).bgez(false).rs(n.rs).imm(off))

	case opJ:
		t, err := g.jumpTarget(n.line, n.addr)
		if err != nil {
			return err
		}
		g.emit(op(0x2).target(t))
	case opJal:
		t, err := g.jumpTarget(n.line, n.addr)
		if err != nil {
			return err
		}
		g.emit(op(0x3).target(t))

	case opBeq:
		off, err := g.branchOffset(n.line, n.addr)
		if err != nil {
			return err
		}
		g.emit(op(0x4).rs(n.rs).rt(n.rt).imm(off))
	case opBne:
		off, err := g.branchOffset(n.line, n.addr)
		if err != nil {
			return err
		}
		g.emit(op(0x5).rs(n.rs).rt(n.rt).imm(off))
	case opBlez:
		off, err := g.branchOffset(n.line, n.addr)
		if err != nil {
			return err
		}
		g.emit(op(0x6).rs(n.rs).imm(off))
	case opBgtz:
		off, err := g.branchOffset(n.line, n.addr)
		if err != nil {
			return err
		}
		g.emit(op(0x7).rs(n.rs).imm(off))

	case opAddi:
		g.emit(op(0x8).rt(n.rt).rs(n.rs).imm(n.imm))
	case opAddiu:
		g.emit(op(0x9).rt(n.rt).rs(n.rs).imm(n.imm))
	case opSlti:
		g.emit(op(0xa).rt(n.rt).rs(n.rs).imm(n.imm))
	case opSltiu:
		g.emit(op(0xb).rt(n.rt).rs(n.rs).imm(n.imm))
	case opAndi:
		g.emit(op(0xc).rt(n.rt).rs(n.rs).imm(n.imm))
	case opOri:
		g.emit(op(0xd).rt(n.rt).rs(n.rs).imm(n.imm))
	case opXori:
		g.emit(op(0xe).rt(n.rt).rs(n.rs).imm(n.imm))
	case opLui:
		g.emit(op(0xf).rt(n.rt).imm(n.imm))

	case opMfc0:
		g.emit(op(0x10).cop(0).rt(n.rt).rd(uint8(n.imm)))
	case opMtc0:
		g.emit(op(0x10).cop(0x4).rt(n.rt).rd(uint8(n.imm)))
	case opMfc2:
		g.emit(op(0x12).cop(0).rt(n.rt).rd(uint8(n.imm)))
	case opMtc2:
		g.emit(op(0x12).cop(0x4).rt(n.rt).rd(uint8(n.imm)))

	case opLb:
		g.emit(op(0x20).rt(n.rt).rs(n.rs).imm(n.imm))
	case opLh:
		g.emit(op(0x21).rt(n.rt).rs(n.rs).imm(n.imm))
	case opLwl:
		g.emit(op(0x22).rt(n.rt).rs(n.rs).imm(n.imm))
	case opLw:
		g.emit(op(0x23).rt(n.rt).rs(n.rs).imm(n.imm))
	case opLbu:
		g.emit(op(0x24).rt(n.rt).rs(n.rs).imm(n.imm))
	case opLhu:
		g.emit(op(0x25).rt(n.rt).rs(n.rs).imm(n.imm))
	case opLwr:
		g.emit(op(0x26).rt(n.rt).rs(n.rs).imm(n.imm))
	case opSb:
		g.emit(op(0x28).rt(n.rt).rs(n.rs).imm(n.imm))
	case opSh:
		g.emit(op(0x29).rt(n.rt).rs(n.rs).imm(n.imm))
	case opSwl:
		g.emit(op(0x2a).rt(n.rt).rs(n.rs).imm(n.imm))
	case opSw:
		g.emit(op(0x2b).rt(n.rt).rs(n.rs).imm(n.imm))
	case opSwr:
		g.emit(op(0x2e).rt(n.rt).rs(n.rs).imm(n.imm))

	case opWord:
		for _, v := range n.words {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], v)
			g.code = append(g.code, b[:]...)
		}
	case opHalfWord:
		for _, v := range n.half {
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], v)
			g.code = append(g.code, b[:]...)
		}
	case opByte, opAscii:
		g.code = append(g.code, n.bytes...)
	case opAsciiz:
		g.code = append(g.code, n.bytes...)
		g.code = append(g.code, 0)

	case opNop:
		g.emit(special(0x0).rd(0).rt(0).sh(0))
	case opMove:
		g.emit(special(0x21).rd(n.rd).rs(n.rs).rt(0))

	case opLi:
		hi := n.imm >> 16
		lo := n.imm & 0xffff
		if hi != 0 {
			g.emit(op(0xf).rt(n.rt).imm(hi))
			g.emit(op(0xd).rt(n.rt).rs(n.rt).imm(lo))
		} else {
			g.emit(op(0xd).rt(n.rt).rs(0).imm(lo))
		}

	case opLa:
		val, err := g.resolve(n.line, n.addr)
		if err != nil {
			return err
		}
		hi := val >> 16
		lo := val & 0xffff
		g.emit(op(0xf).rt(n.rt).imm(hi))
		g.emit(op(0xd).rs(n.rt).rt(n.rt).imm(lo))

	case opB:
		off, err := g.branchOffset(n.line, n.addr)
		if err != nil {
			return err
		}
		g.emit(op(0x4).rs(0).rt(0).imm(off))
	case opBeqz:
		off, err := g.branchOffset(n.line, n.addr)
		if err != nil {
			return err
		}
		g.emit(op(0x4).rs(n.rs).rt(0).imm(off))
	case opBnez:
		off, err := g.branchOffset(n.line, n.addr)
		if err != nil {
			return err
		}
		g.emit(op(0x5).rs(n.rs).rt(0).imm(off))
	}

	return nil
}
