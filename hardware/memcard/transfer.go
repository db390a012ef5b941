package memcard

import (
	"github.com/kallistipsx/gopsx/logger"
)

// Command is a memory-card device command byte, sent immediately after the
// 0x81 device-select byte that addresses a card over the controller port
// (§6).
type Command uint8

const (
	CmdRead  Command = 0x52
	CmdID    Command = 0x53
	CmdWrite Command = 0x57
)

// transferState is the top-level phase of a card's serial exchange:
// waiting to be addressed, waiting for its command byte, or running one of
// the three per-command sub-protocols. Grounded on memcard.rs's
// TransferState enum.
type transferState int

const (
	stateIdle transferState = iota
	stateCommand
	stateRead
	stateWrite
	stateID
)

// Transfer feeds one byte of the controller port's serial stream to the
// card and returns the card's response byte together with whether the
// card is claiming this transfer (ack). A card only acks starting from the
// byte it recognizes as its own select byte (0x81) through to the end of
// whichever command sub-protocol that unlocks; every other byte it
// declines, letting the I/O port try the next candidate device on the
// slot.
//
// The grounding source's Read sub-protocol decrements its data offset from
// an initial value of 0, which underflows on the very first data byte and
// (by the ordinary rules of its match) only ever emits two of the sector's
// 128 bytes. spec.md's literal response arrays call for a full
// `data[128]` in both directions, and the Write sub-protocol in the same
// source file counts upward without that defect, so the Read side here is
// ported as a matching ascending walk over the 128 sector bytes rather
// than reproducing the underflow.
func (c *Card) Transfer(val uint8) (out uint8, ack bool) {
	switch c.state {
	case stateIdle:
		if val == 0x81 {
			c.state = stateCommand
			out, ack = 0xff, true
		} else {
			out, ack = 0xff, false
		}

	case stateCommand:
		switch Command(val) {
		case CmdRead:
			c.state, c.step = stateRead, 0
		case CmdID:
			c.state, c.step = stateID, 0
		case CmdWrite:
			c.state, c.step = stateWrite, 0
		default:
			logger.Logf("memcard", "unknown card command %#02x", val)
			c.state = stateIdle
			c.lastByte = val
			return c.flags(), false
		}
		out, ack = c.flags(), true

	case stateRead:
		out = c.stepRead(val)
		ack = true
		if c.step >= readDone {
			c.state = stateIdle
		}
		c.step++

	case stateWrite:
		out = c.stepWrite(val)
		ack = true
		if c.step >= writeDone {
			c.state = stateIdle
		}
		c.step++

	case stateID:
		out = c.stepID()
		ack = true
		if c.step >= len(idResponse)-1 {
			c.state = stateIdle
		}
		c.step++

	default:
		out, ack = 0xff, false
	}

	c.lastByte = val
	return out, ack
}

// ResetTransferState aborts any in-progress exchange, the way the I/O
// port's control-register reset and deselect paths do.
func (c *Card) ResetTransferState() {
	c.state = stateIdle
	c.step = 0
	c.addrHi, c.addrLo = 0, 0
	c.lastByte = 0
}

// flags is the single status byte a card answers with on its Command
// step: bit 3 clears once the card has received the first data byte of a
// write command, whether or not that write then commits.
func (c *Card) flags() uint8 {
	if !c.hasWritten {
		return 1 << 3
	}
	return 0
}

// Read step layout (§6): two card-ID bytes, a one-byte-delayed echo of the
// address the BIOS just sent, the ack pair, an address confirm echo, the
// 128 sector data bytes, a checksum, and a final status byte.
const (
	readCardID1 = iota
	readCardID2
	readAddrHi
	readAddrLo
	readAck1
	readAck2
	readConfirmHi
	readConfirmLo
	readData // + 0..127
	readChecksum = readData + SectorSize
	readEnd      = readChecksum + 1
	readDone     = readEnd
)

func (c *Card) stepRead(val uint8) uint8 {
	switch {
	case c.step == readCardID1:
		return 0x5a
	case c.step == readCardID2:
		return 0x5d
	case c.step == readAddrHi:
		c.addrHi = val
		return 0x00
	case c.step == readAddrLo:
		c.addrLo = val
		addr := uint16(c.addrHi)<<8 | uint16(c.addrLo)
		c.sector = c.ReadSector(int(addr))
		return c.lastByte // echoes the just-received address hi byte
	case c.step == readAck1:
		return 0x5c
	case c.step == readAck2:
		return 0x5d
	case c.step == readConfirmHi:
		return c.addrHi
	case c.step == readConfirmLo:
		return c.addrLo
	case c.step >= readData && c.step < readChecksum:
		return c.sector[c.step-readData]
	case c.step == readChecksum:
		return checksum(c.sector[:]) ^ c.addrHi ^ c.addrLo
	case c.step == readEnd:
		return 'G'
	default:
		return 0xff
	}
}

// Write step layout mirrors the read side's framing but carries the
// incoming sector bytes instead of emitting them, and defers the
// commit-or-reject decision to the final status byte.
const (
	writeCardID1 = iota
	writeCardID2
	writeAddrHi
	writeAddrLo
	writeData // + 0..127
	writeChecksum = writeData + SectorSize
	writeAck1     = writeChecksum + 1
	writeAck2     = writeAck1 + 1
	writeEnd      = writeAck2 + 1
	writeDone     = writeEnd
)

func (c *Card) stepWrite(val uint8) uint8 {
	switch {
	case c.step == writeCardID1:
		return 0x5a
	case c.step == writeCardID2:
		return 0x5d
	case c.step == writeAddrHi:
		c.addrHi = val
		return 0x00
	case c.step == writeAddrLo:
		c.addrLo = val
		return c.lastByte // echoes the just-received address hi byte
	case c.step >= writeData && c.step < writeChecksum:
		c.sector[c.step-writeData] = val
		c.hasWritten = true
		return c.lastByte // one-byte-delayed echo of each data byte
	case c.step == writeChecksum:
		c.checksumByte = val
		return c.lastByte // echo of the final sector byte
	case c.step == writeAck1:
		return 0x5c
	case c.step == writeAck2:
		return 0x5d
	case c.step == writeEnd:
		addr := uint16(c.addrHi)<<8 | uint16(c.addrLo)
		want := checksum(c.sector[:]) ^ c.addrHi ^ c.addrLo
		if want != c.checksumByte {
			logger.Logf("memcard", "sector write checksum mismatch at sector %d: got %#02x want %#02x", addr, c.checksumByte, want)
			return 'N'
		}
		if err := c.WriteSector(int(addr), c.sector); err != nil {
			logger.Logf("memcard", "%v", err)
			return 'N'
		}
		return 'G'
	default:
		return 0xff
	}
}

// idResponse is the card's reply to the 0x53 "get ID" command, ported
// directly from memcard.rs's IdState chain (CardId1/CardId2/Ack1/Ack2
// followed by the fixed trailer 0x04, 0x00, 0x00, 0x80).
var idResponse = [...]uint8{0x5a, 0x5d, 0x5c, 0x5d, 0x04, 0x00, 0x00, 0x80}

func (c *Card) stepID() uint8 {
	if c.step >= len(idResponse) {
		return 0xff
	}
	return idResponse[c.step]
}
