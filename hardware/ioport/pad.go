package ioport

// Pad is a digital controller: spec.md §6's 16-bit active-low button
// bitmask, driven over the same byte-serial protocol as a memory card.
// original_source has no pad module of its own (only memcard.rs), so this
// is ported from the digital pad's well-documented real hardware protocol
// rather than from an in-pack source file: device byte 0x01, command 0x42,
// a fixed two-byte ID (0x41, 0x5a) ahead of the two button bytes.
type Pad struct {
	buttons uint16 // active-low bitmask: 1 = released, 0 = pressed

	state padState
	step  int
}

type padState int

const (
	padIdle padState = iota
	padCommand
	padActive
)

// Button bit positions within the active-low mask a digital pad answers
// with, in the order real hardware transmits them (low byte first).
const (
	ButtonSelect uint16 = 1 << iota
	ButtonL3
	ButtonR3
	ButtonStart
	ButtonUp
	ButtonRight
	ButtonDown
	ButtonLeft
	ButtonL2
	ButtonR2
	ButtonL1
	ButtonR1
	ButtonTriangle
	ButtonCircle
	ButtonCross
	ButtonSquare
)

// NewPad returns a pad with every button released.
func NewPad() *Pad {
	return &Pad{buttons: 0xffff}
}

// SetButtonState sets or clears the given buttons (OR'd together), flipping
// the bitmask's active-low sense so callers can think in terms of "pressed".
func (p *Pad) SetButtonState(mask uint16, pressed bool) {
	if pressed {
		p.buttons &^= mask
	} else {
		p.buttons |= mask
	}
}

// Transfer feeds one byte of the controller port's serial stream to the
// pad and returns its response byte together with whether the pad is
// claiming this transfer, mirroring memcard.Card.Transfer's ack contract so
// the I/O port can try each device on a slot the same way.
func (p *Pad) Transfer(val uint8) (out uint8, ack bool) {
	switch p.state {
	case padIdle:
		if val == 0x01 {
			p.state = padCommand
			return 0xff, true
		}
		return 0xff, false

	case padCommand:
		if val != 0x42 {
			p.state = padIdle
			return 0xff, false
		}
		p.state, p.step = padActive, 0
		return 0x41, true // digital pad ID low byte

	case padActive:
		p.step++
		switch p.step {
		case 1:
			return 0x5a, true // digital pad ID high byte
		case 2:
			return uint8(p.buttons), true // switches low byte
		case 3:
			p.state = padIdle
			return uint8(p.buttons >> 8), true // switches high byte, last
		default:
			p.state = padIdle
			return 0xff, false
		}

	default:
		return 0xff, false
	}
}

// ResetTransferState aborts any in-progress exchange, mirroring
// memcard.Card.ResetTransferState.
func (p *Pad) ResetTransferState() {
	p.state = padIdle
	p.step = 0
}
