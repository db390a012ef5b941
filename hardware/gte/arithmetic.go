package gte

// This file holds the GTE's fixed-point accumulator rules: the 43-bit
// sign-extension every MAC dot-product step goes through, and the
// saturation points feeding MAC0-3, IR0-3, and the RGB/OTZ/SZ/SXY FIFOs,
// each of which sets a documented bit in the flags register (§4.7).
// Grounded on original_source/crates/splst_core/src/cpu/gte.rs's
// sign_extend_mac/saturate_to_*/check_mac*_overflow free functions, kept
// as methods here since the flags register is instance state rather than
// a ref parameter threaded through every call.

func saturate(lo, hi int64, v int64) (int64, bool) {
	if v < lo {
		return lo, true
	}
	if v > hi {
		return hi, true
	}
	return v, false
}

// checkMacOverflow flags a dot-product partial sum that has already
// overrun the 44-bit (43 bits + sign) accumulator width, before it gets
// truncated back down by signExtendMac.
func (g *GTE) checkMacOverflow(idx int, v int64) {
	g.setFlag(30-idx, v > (1<<43)-1)
	g.setFlag(27-idx, v < -(1 << 43))
}

func (g *GTE) checkMac0Overflow(v int64) {
	g.setFlag(16, v > (1<<31)-1)
	g.setFlag(15, v < -(1 << 31))
}

// signExtendMac flags overflow against the accumulator's native 44-bit
// width then truncates to it, matching the real unit's wraparound between
// each term of a dot product.
func (g *GTE) signExtendMac(idx int, v int64) int64 {
	g.checkMacOverflow(idx, v)
	return (v << 20) >> 20
}

// saturateToMac truncates to the requested post-shift width and records
// the pre-shift overflow, used for MAC1-3.
func (g *GTE) saturateToMac(idx int, shift uint, v int64) int32 {
	g.checkMacOverflow(idx, v)
	return int32(v >> shift)
}

func (g *GTE) saturateToMac0(v int64) int32 {
	g.checkMac0Overflow(v)
	return int32(v)
}

// saturateToIR clamps to [0, 0x7fff] when clamp (the "lm" command bit) is
// set, else [-0x8000, 0x7fff], flagging idx's IR-saturation bit.
func (g *GTE) saturateToIR(idx int, clamp bool, v int32) int32 {
	lo := int64(-0x8000)
	if clamp {
		lo = 0
	}
	val, of := saturate(lo, 0x7fff, int64(v))
	g.setFlag(24-idx, of)
	return int32(val)
}

func (g *GTE) saturateToIR0(v int32) int32 {
	val, of := saturate(0, 0x1000, int64(v))
	g.setFlag(12, of)
	return int32(val)
}

func (g *GTE) saturateToRGB(idx int, v int32) uint32 {
	val, of := saturate(0, 0xff, int64(v))
	g.setFlag(21-idx, of)
	return uint32(val)
}

// setIRAndMAC is the common "truncate into MACn, saturate into IRn" tail
// shared by nearly every command.
func (g *GTE) setIRAndMAC(idx int, shift uint, clamp bool, v int64) (mac int32, ir int32) {
	mac = g.saturateToMac(idx, shift, v)
	g.data[25+idx] = int32ToU32(mac)
	ir = g.saturateToIR(idx, clamp, mac)
	g.data[9+idx] = int32ToU32(ir)
	return mac, ir
}

func (g *GTE) setOTZ(v int32) {
	val, of := saturate(0, 0xffff, int64(v))
	g.setFlag(18, of)
	g.data[7] = uint32(val)
}

// pushSZ shifts the depth FIFO and lands the clamped new value.
func (g *GTE) pushSZ(v int32) uint32 {
	val, of := saturate(0, 0xffff, int64(v))
	g.setFlag(18, of)
	g.data[16] = g.data[17]
	g.data[17] = g.data[18]
	g.data[18] = g.data[19]
	g.data[19] = uint32(val)
	return uint32(val)
}

// pushSXY shifts the screen-XY FIFO (the GTE's own equivalent of
// WriteData(15, ...)) and lands the clamped new screen coordinate.
func (g *GTE) pushSXY(x, y int32) {
	xv, xof := saturate(-0x400, 0x3ff, int64(x))
	yv, yof := saturate(-0x400, 0x3ff, int64(y))
	g.setFlag(14, xof)
	g.setFlag(13, yof)
	word := uint32(uint16(int16(xv))) | uint32(uint16(int16(yv)))<<16
	g.pushSXYWord(word)
}

// pushRGBFromMac shifts the color FIFO and lands a new entry built from
// MAC1-3 (each >>4, saturated to a byte), preserving the CODE byte of the
// most recent RGBC write.
func (g *GTE) pushRGBFromMac() {
	_, _, _, code := g.rgbc()
	r := g.saturateToRGB(0, int32ToI32(g.data[25])>>4)
	gr := g.saturateToRGB(1, int32ToI32(g.data[26])>>4)
	b := g.saturateToRGB(2, int32ToI32(g.data[27])>>4)
	g.data[20] = g.data[21]
	g.data[21] = g.data[22]
	g.data[22] = r | gr<<8 | b<<16 | code<<24
}

// matMulAdd computes mat*vec + (trans<<12), row by row, sign-extending the
// 43-bit accumulator between each of a row's three terms the same way the
// real unit does, then truncates into MAC1-3/IR1-3 (§4.7's worked
// perspective-transform contract; also the shared core of MVMVA, NCD, and
// NCC's lighting steps).
func (g *GTE) matMulAdd(mat mat3, trans vec3, v vec3, shift uint, clamp bool) (mac, ir vec3) {
	row := func(idx int, m vec3, add int32) (int32, int32) {
		acc := (int64(add) << 12) + int64(m.x)*int64(v.x)
		acc = g.signExtendMac(idx, acc)
		acc += int64(m.y) * int64(v.y)
		acc = g.signExtendMac(idx, acc)
		acc += int64(m.z) * int64(v.z)
		acc = g.signExtendMac(idx, acc)
		return g.setIRAndMAC(idx, shift, clamp, acc)
	}
	mac.x, ir.x = row(0, mat[0], trans.x)
	mac.y, ir.y = row(1, mat[1], trans.y)
	mac.z, ir.z = row(2, mat[2], trans.z)
	return mac, ir
}

func (g *GTE) matMul(mat mat3, v vec3, shift uint, clamp bool) (mac, ir vec3) {
	return g.matMulAdd(mat, vec3{}, v, shift, clamp)
}

// nrDivide implements the GTE's Newton-Raphson reciprocal approximation
// used to turn a 16-bit depth into the 1.16 fixed-point projection factor
// H/SZ (§4.7). Ported from Mednafen via original_source's nr_divide,
// which names FACTOR_TABLE's 257 entries verbatim.
func nrDivide(lhs, rhs uint16) uint32 {
	if rhs == 0 {
		return 0x1ffff
	}
	shift := leadingZeros16(rhs)
	lhs64 := uint64(lhs) << shift
	rhsShifted := uint32(rhs) << shift

	idx := ((rhsShifted & 0x7fff) + 0x40) >> 7
	factor := int64(factorTable[idx]) + 0x101

	rhsSigned := int64(int32(rhsShifted | 0x8000))
	tmp := ((rhsSigned * -factor) + 0x80) >> 8
	reciprocal := uint64(((factor * (0x20000 + tmp)) + 0x80) >> 8)

	result := (lhs64*reciprocal + 0x8000) >> 16
	if result > 0x1ffff {
		return 0x1ffff
	}
	return uint32(result)
}

func leadingZeros16(v uint16) uint {
	n := uint(0)
	for i := 15; i >= 0; i-- {
		if v&(1<<uint(i)) != 0 {
			break
		}
		n++
	}
	return n
}

// factorTable is the 257-entry Newton-Raphson reciprocal table baked into
// the real GTE's divider ROM.
var factorTable = [0x101]uint8{
	0xff, 0xfd, 0xfb, 0xf9, 0xf7, 0xf5, 0xf3, 0xf1, 0xef, 0xee, 0xec, 0xea, 0xe8, 0xe6, 0xe4, 0xe3,
	0xe1, 0xdf, 0xdd, 0xdc, 0xda, 0xd8, 0xd6, 0xd5, 0xd3, 0xd1, 0xd0, 0xce, 0xcd, 0xcb, 0xc9, 0xc8,
	0xc6, 0xc5, 0xc3, 0xc1, 0xc0, 0xbe, 0xbd, 0xbb, 0xba, 0xb8, 0xb7, 0xb5, 0xb4, 0xb2, 0xb1, 0xb0,
	0xae, 0xad, 0xab, 0xaa, 0xa9, 0xa7, 0xa6, 0xa4, 0xa3, 0xa2, 0xa0, 0x9f, 0x9e, 0x9c, 0x9b, 0x9a,
	0x99, 0x97, 0x96, 0x95, 0x94, 0x92, 0x91, 0x90, 0x8f, 0x8d, 0x8c, 0x8b, 0x8a, 0x89, 0x87, 0x86,
	0x85, 0x84, 0x83, 0x82, 0x81, 0x7f, 0x7e, 0x7d, 0x7c, 0x7b, 0x7a, 0x79, 0x78, 0x77, 0x75, 0x74,
	0x73, 0x72, 0x71, 0x70, 0x6f, 0x6e, 0x6d, 0x6c, 0x6b, 0x6a, 0x69, 0x68, 0x67, 0x66, 0x65, 0x64,
	0x63, 0x62, 0x61, 0x60, 0x5f, 0x5e, 0x5d, 0x5d, 0x5c, 0x5b, 0x5a, 0x59, 0x58, 0x57, 0x56, 0x55,
	0x54, 0x53, 0x53, 0x52, 0x51, 0x50, 0x4f, 0x4e, 0x4d, 0x4d, 0x4c, 0x4b, 0x4a, 0x49, 0x48, 0x48,
	0x47, 0x46, 0x45, 0x44, 0x43, 0x43, 0x42, 0x41, 0x40, 0x3f, 0x3f, 0x3e, 0x3d, 0x3c, 0x3c, 0x3b,
	0x3a, 0x39, 0x39, 0x38, 0x37, 0x36, 0x36, 0x35, 0x34, 0x33, 0x33, 0x32, 0x31, 0x31, 0x30, 0x2f,
	0x2e, 0x2e, 0x2d, 0x2c, 0x2c, 0x2b, 0x2a, 0x2a, 0x29, 0x28, 0x28, 0x27, 0x26, 0x26, 0x25, 0x24,
	0x24, 0x23, 0x22, 0x22, 0x21, 0x20, 0x20, 0x1f, 0x1e, 0x1e, 0x1d, 0x1d, 0x1c, 0x1b, 0x1b, 0x1a,
	0x19, 0x19, 0x18, 0x18, 0x17, 0x16, 0x16, 0x15, 0x15, 0x14, 0x14, 0x13, 0x12, 0x12, 0x11, 0x11,
	0x10, 0x0f, 0x0f, 0x0e, 0x0e, 0x0d, 0x0d, 0x0c, 0x0c, 0x0b, 0x0a, 0x0a, 0x09, 0x09, 0x08, 0x08,
	0x07, 0x07, 0x06, 0x06, 0x05, 0x05, 0x04, 0x04, 0x03, 0x03, 0x02, 0x02, 0x01, 0x01, 0x00, 0x00,
	0x00,
}
