package cdrom

// Msf is a disc position expressed as minute:second:frame, the addressing
// scheme the CD-ROM controller and its commands speak natively (§4.8).
// There are 75 frames to a second and 60 seconds to a minute; frame 0 of
// second 0 of minute 0 is reserved as the 2-second lead-in and is never a
// valid data position, matching the "00:02:00" first-sector convention.
type Msf struct {
	Minute, Second, Frame int
}

const framesPerSecond = 75
const secondsPerMinute = 60

// zeroMsf is the invalid, uninitialized position a fresh drive starts at.
var zeroMsf = Msf{}

// toLBA converts to a flat sector index relative to 00:00:00, counting
// every frame including the unaddressable lead-in, matching the source's
// plain multiply-and-add (no -150 correction): callers that need a
// logical sector number subtract the 2-second lead-in themselves.
func (m Msf) toLBA() int {
	return (m.Minute*secondsPerMinute+m.Second)*framesPerSecond + m.Frame
}

func lbaToMsf(lba int) Msf {
	f := lba % framesPerSecond
	lba /= framesPerSecond
	s := lba % secondsPerMinute
	m := lba / secondsPerMinute
	return Msf{Minute: m, Second: s, Frame: f}
}

// next returns the position of the following frame, wrapping minute and
// second fields the way physical sector addressing does (no overall wrap:
// a disc position is never expected to cross the "99 minute" ceiling).
func (m Msf) next() Msf {
	return lbaToMsf(m.toLBA() + 1)
}

// sub returns the number of frames between two positions (m - other).
// Seek delays do not use it; they are the fixed seekReadCycles.
func (m Msf) sub(other Msf) int {
	return m.toLBA() - other.toLBA()
}

func bcdEncode(v int) uint8 {
	return uint8((v/10)<<4 | (v % 10))
}

// bcdDecode decodes one BCD byte, reporting false if either nibble is
// outside the 0-9 range (malformed argument, per spec.md §7's decision to
// surface protocol violations rather than silently masking them).
func bcdDecode(b uint8) (int, bool) {
	hi, lo := b>>4, b&0xf
	if hi > 9 || lo > 9 {
		return 0, false
	}
	return int(hi)*10 + int(lo), true
}

// msfFromBCD decodes a (minute, second, frame) BCD triple as sent by the
// SetLoc command (§4.8).
func msfFromBCD(m, s, f uint8) (Msf, bool) {
	mm, ok := bcdDecode(m)
	if !ok {
		return Msf{}, false
	}
	ss, ok := bcdDecode(s)
	if !ok {
		return Msf{}, false
	}
	ff, ok := bcdDecode(f)
	if !ok {
		return Msf{}, false
	}
	return Msf{Minute: mm, Second: ss, Frame: ff}, true
}

func (m Msf) bcdMinute() uint8 { return bcdEncode(m.Minute) }
func (m Msf) bcdSecond() uint8 { return bcdEncode(m.Second) }
func (m Msf) bcdFrame() uint8  { return bcdEncode(m.Frame) }
