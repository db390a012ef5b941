package memcard

import (
	"testing"

	"github.com/kallistipsx/gopsx/test"
)

func TestFormatProducesValidHeaderAndDirectory(t *testing.T) {
	c := New()
	c.Format()

	test.Equate(t, c.CheckFormat(), true)

	dir := c.ReadSector(3)
	test.Equate(t, dir[0], uint8(0xa0))
	test.Equate(t, dir[8], uint8(0xff))
	test.Equate(t, dir[9], uint8(0xff))
	test.Equate(t, dir[SectorSize-1], checksum(dir[:SectorSize-1]))

	broken := c.ReadSector(20)
	test.Equate(t, broken[0], uint8(0xff))
	test.Equate(t, broken[3], uint8(0xff))
	test.Equate(t, broken[SectorSize-1], checksum(broken[:SectorSize-1]))
}

func TestUnformattedCardFailsCheckFormat(t *testing.T) {
	c := New()
	test.Equate(t, c.CheckFormat(), false)
}

func TestLoadRejectsWrongSize(t *testing.T) {
	_, err := Load(make([]byte, 100))
	if err == nil {
		t.Fatal("expected error for wrong-sized image")
	}
}

func TestLoadAcceptsCorrectSize(t *testing.T) {
	img := make([]byte, FlashSize)
	c, err := Load(img)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	test.Equate(t, len(c.Bytes()), FlashSize)
}

func TestReadWriteSectorRoundTrip(t *testing.T) {
	c := New()
	var data [SectorSize]byte
	for i := range data {
		data[i] = uint8(i)
	}

	test.Equate(t, c.WriteSector(40, data), nil)
	test.Equate(t, c.ReadSector(40), data)
	test.Equate(t, c.Changed(), true)

	c.MarkSaved()
	test.Equate(t, c.Changed(), false)
}

func TestReadSectorOutOfRangeReturnsZero(t *testing.T) {
	c := New()
	var zero [SectorSize]byte
	test.Equate(t, c.ReadSector(-1), zero)
	test.Equate(t, c.ReadSector(SectorCount), zero)
}

func TestWriteSectorOutOfRangeIsError(t *testing.T) {
	c := New()
	var data [SectorSize]byte
	if err := c.WriteSector(SectorCount, data); err == nil {
		t.Fatal("expected error for out-of-range sector")
	}
}

// feedCommand drives a fresh card through its device-select and command
// bytes, the way the I/O port's transfer() would before handing off to
// whichever per-command step sequence follows.
func feedCommand(c *Card, cmd Command) {
	out, ack := c.Transfer(0x81)
	if !ack || out != 0xff {
		panic("device select byte should be acked with 0xff")
	}
	c.Transfer(uint8(cmd))
}

func TestTransferRejectsWrongSelectByte(t *testing.T) {
	c := New()
	out, ack := c.Transfer(0x01) // pad's select byte, not memcard's
	test.Equate(t, ack, false)
	test.Equate(t, out, uint8(0xff))
}

func TestTransferReadSectorYieldsProtocolByteSequence(t *testing.T) {
	c := New()
	var data [SectorSize]byte
	for i := range data {
		data[i] = uint8(i)
	}
	// addr 517 = 0x0205: hi=2, lo=5
	if err := c.WriteSector(517, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	feedCommand(c, CmdRead)

	feed := func(in uint8) uint8 {
		out, ack := c.Transfer(in)
		if !ack {
			t.Fatalf("expected ack to stay asserted mid-transfer")
		}
		return out
	}

	test.Equate(t, feed(0x00), uint8(0x5a)) // CardId1
	test.Equate(t, feed(0x00), uint8(0x5d)) // CardId2
	test.Equate(t, feed(0x02), uint8(0x00)) // addrHi in
	test.Equate(t, feed(0x05), uint8(0x02)) // addrLo in, echoes addrHi
	test.Equate(t, feed(0x00), uint8(0x5c)) // Ack1
	test.Equate(t, feed(0x00), uint8(0x5d)) // Ack2
	test.Equate(t, feed(0x00), uint8(0x02)) // confirm addrHi
	test.Equate(t, feed(0x00), uint8(0x05)) // confirm addrLo

	for i := 0; i < SectorSize; i++ {
		test.Equate(t, feed(0x00), data[i])
	}

	test.Equate(t, feed(0x00), checksum(data[:])^0x02^0x05)

	out, ack := c.Transfer(0x00)
	test.Equate(t, out, uint8('G'))
	test.Equate(t, ack, true)

	// the transfer has ended: the card is back to idle and declines a
	// stray byte that isn't its select byte.
	_, ack = c.Transfer(0x00)
	test.Equate(t, ack, false)
}

func TestTransferWriteSectorCommitsOnMatchingChecksum(t *testing.T) {
	c := New()
	feedCommand(c, CmdWrite)

	var data [SectorSize]byte
	for i := range data {
		data[i] = uint8(255 - i)
	}
	const addrHi, addrLo = 0x00, 0x0a

	c.Transfer(0x00) // CardId1
	c.Transfer(0x00) // CardId2
	c.Transfer(addrHi)
	c.Transfer(addrLo)
	for i := 0; i < SectorSize; i++ {
		c.Transfer(data[i])
	}
	want := checksum(data[:]) ^ addrHi ^ addrLo
	c.Transfer(want) // Checksum step
	c.Transfer(0x00) // Ack1
	out, ack := c.Transfer(0x00)
	test.Equate(t, out, uint8(0x5d)) // Ack2
	test.Equate(t, ack, true)

	out, ack = c.Transfer(0x00) // End
	test.Equate(t, out, uint8('G'))
	test.Equate(t, ack, true)

	test.Equate(t, c.ReadSector(10), data)
	test.Equate(t, c.Changed(), true)
}

func TestTransferWriteSectorRejectsOnBadChecksum(t *testing.T) {
	c := New()
	feedCommand(c, CmdWrite)

	var data [SectorSize]byte
	c.Transfer(0x00) // CardId1
	c.Transfer(0x00) // CardId2
	c.Transfer(0x00) // addrHi
	c.Transfer(0x0b) // addrLo
	for i := 0; i < SectorSize; i++ {
		c.Transfer(data[i])
	}
	c.Transfer(0xff) // deliberately wrong checksum
	c.Transfer(0x00) // Ack1
	c.Transfer(0x00) // Ack2

	out, ack := c.Transfer(0x00) // End
	test.Equate(t, out, uint8('N'))
	test.Equate(t, ack, true)
}

func TestTransferIDCommandYieldsIDResponse(t *testing.T) {
	c := New()
	feedCommand(c, CmdID)

	var last uint8
	for i := 0; i < len(idResponse); i++ {
		last, _ = c.Transfer(0x00)
	}
	test.Equate(t, last, idResponse[len(idResponse)-1])
}

func TestTransferRejectsUnknownCommandByte(t *testing.T) {
	c := New()
	c.Transfer(0x81)
	out, ack := c.Transfer(0x99)
	test.Equate(t, ack, false)
	test.Equate(t, out, c.flags())
}
