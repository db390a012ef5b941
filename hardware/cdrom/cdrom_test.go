package cdrom

import (
	"testing"

	"github.com/kallistipsx/gopsx/scheduler"
	"github.com/kallistipsx/gopsx/test"
)

type fakeDisc struct {
	loaded  bool
	sectors map[Msf][2352]byte
}

func (d *fakeDisc) IsLoaded() bool { return d.loaded }

func (d *fakeDisc) ReadSector(pos Msf) ([2352]byte, error) {
	s, ok := d.sectors[pos]
	if !ok {
		return [2352]byte{}, errNoDisc
	}
	return s, nil
}

func newTestDisc() *fakeDisc {
	sector := [2352]byte{}
	sector[0] = 0xaa
	return &fakeDisc{
		loaded: true,
		sectors: map[Msf][2352]byte{
			{Minute: 0, Second: 2, Frame: 0}: sector,
		},
	}
}

func TestStatusRegisterReportsIndexAndFifoEmptiness(t *testing.T) {
	c := New(scheduler.New())
	// argFifo empty(bit3) | argFifo not full(bit4) | data buffer not ready(bit6),
	// with response FIFO empty (bit5 clear) and no command pending (bit7 clear).
	test.Equate(t, c.LoadRegister(0), uint32(0x58))
}

func TestSetLocCommandLatchesPendingSeekFromBCD(t *testing.T) {
	c := New(scheduler.New())
	c.SetDisc(newTestDisc())

	c.StoreRegister(0, 0) // index 0
	c.StoreRegister(2, 0x00)
	c.StoreRegister(2, 0x02)
	c.StoreRegister(2, 0x00)
	c.StoreRegister(1, uint32(cmdSetLoc))

	test.Equate(t, c.hasSeek, true)
	test.Equate(t, c.pendingSeek, Msf{Minute: 0, Second: 2, Frame: 0})

	resp := c.responseFifo.pop()
	test.Equate(t, resp, c.driveStat())
	test.Equate(t, c.irqFlags, intAck)
}

func TestStatusCommandRespondsWithAckAndDriveStat(t *testing.T) {
	c := New(scheduler.New())
	c.SetDisc(newTestDisc())

	c.StoreRegister(1, uint32(cmdStatus))

	test.Equate(t, c.irqFlags, intAck)
	test.Equate(t, c.responseFifo.pop(), c.driveStat())
}

func TestCommandWhilePendingIsIgnored(t *testing.T) {
	c := New(scheduler.New())
	c.SetDisc(newTestDisc())

	c.StoreRegister(1, uint32(cmdStatus)) // irqFlags now intAck, still unacknowledged
	c.StoreRegister(1, uint32(cmdInit))   // should be dropped: irqFlags still set

	test.Equate(t, c.irqFlags, intAck)
}

func TestReadNAfterSetLocSeeksThenReads(t *testing.T) {
	sched := scheduler.New()
	c := New(sched)
	c.SetDisc(newTestDisc())

	c.StoreRegister(0, 0) // index 0: argument/command port
	c.StoreRegister(2, 0x00) // minute BCD
	c.StoreRegister(2, 0x02) // second BCD
	c.StoreRegister(2, 0x00) // frame BCD
	c.StoreRegister(1, uint32(cmdSetLoc))

	c.StoreRegister(0, 1)    // index 1: acknowledge set_loc's interrupt
	c.StoreRegister(3, 0x1f) // clear all 5 irq flag bits
	c.StoreRegister(0, 0)    // index 0: ready for the next command

	c.StoreRegister(1, uint32(cmdReadN))

	test.Equate(t, c.state.kind, driveSeeking)
	test.Equate(t, c.state.after, afterRead)
	test.Equate(t, sched.Pending(), true)

	sched.AdvanceTo(sched.NextDue())
	ev, ok := sched.PopDue()
	test.Equate(t, ok, true)
	test.Equate(t, ev.Kind, scheduler.EventCDROMSectorDone)

	c.SectorDone()
	test.Equate(t, c.state.kind, driveReading)
	test.Equate(t, c.position, Msf{Minute: 0, Second: 2, Frame: 0})
}

func TestSectorDoneOnReadingLoadsNextSectorAndSignalsDataReady(t *testing.T) {
	sched := scheduler.New()
	c := New(sched)
	c.SetDisc(newTestDisc())
	c.position = Msf{Minute: 0, Second: 1, Frame: 74} // next() rolls to 00:02:00
	c.state = driveState{kind: driveReading}

	c.SectorDone()

	test.Equate(t, c.position, Msf{Minute: 0, Second: 2, Frame: 0})
	test.Equate(t, c.sector[0], uint8(0xaa))
	test.Equate(t, c.irqFlags, intDataReady)
}

func TestDMALoadPacksFourBytesLittleEndian(t *testing.T) {
	c := New(scheduler.New())
	c.dataBuffer.data[0] = 0x11
	c.dataBuffer.data[1] = 0x22
	c.dataBuffer.data[2] = 0x33
	c.dataBuffer.data[3] = 0x44
	c.dataBuffer.length = 4
	c.dataBuffer.active = true

	word := c.DMALoad()
	test.Equate(t, word, uint32(0x44332211))
}

func TestGetIDWithNoDiscRespondsImmediatelyWithError(t *testing.T) {
	c := New(scheduler.New())

	c.StoreRegister(1, uint32(cmdGetID))

	test.Equate(t, c.irqFlags, intError)
	test.Equate(t, c.responseFifo.pop(), uint8(0x11))
	test.Equate(t, c.responseFifo.pop(), uint8(0x80))
}

func TestBCDRoundTrip(t *testing.T) {
	m := Msf{Minute: 12, Second: 34, Frame: 56}
	dec, ok := msfFromBCD(m.bcdMinute(), m.bcdSecond(), m.bcdFrame())
	test.Equate(t, ok, true)
	test.Equate(t, dec, m)
}
