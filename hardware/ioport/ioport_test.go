package ioport

import (
	"testing"

	"github.com/kallistipsx/gopsx/hardware/memcard"
	"github.com/kallistipsx/gopsx/scheduler"
	"github.com/kallistipsx/gopsx/test"
)

const (
	regData    = 0
	regStat    = 4
	regMode    = 8
	regCtrl    = 0xa
	regBaud    = 0xe
	ctrlSelect = 1 << 1
)

// feed stores a byte to JOY_DATA and reads it straight back from JOY_DATA.
// Every DATA/STAT load force-completes a pending ack (do_transfer_early),
// so the response is always visible on the very next load regardless of
// the device's scheduled ack delay.
func feed(p *IoPort, val uint8) uint8 {
	p.StoreRegister(regData, uint32(val))
	return uint8(p.LoadRegister(regData))
}

func TestPadTransferYieldsDigitalIDAndButtons(t *testing.T) {
	p := New(scheduler.New())
	p.StoreRegister(regCtrl, ctrlSelect) // select slot 0, /SEL asserted

	p.Pad(0).SetButtonState(ButtonCross, true)

	test.Equate(t, feed(p, 0x01), uint8(0xff)) // device select
	test.Equate(t, feed(p, 0x42), uint8(0x41)) // read-pad command, ID low
	test.Equate(t, feed(p, 0x00), uint8(0x5a)) // ID high
	test.Equate(t, feed(p, 0x00), uint8(0xff)) // switches low, nothing pressed there
	test.Equate(t, feed(p, 0x00), uint8(0xff&^(1<<(14-8)))) // switches high, cross pressed
}

func TestMemCardSlotSelectByteAcksAndPadDeclines(t *testing.T) {
	p := New(scheduler.New())
	p.InsertCard(0, memcard.New())
	p.StoreRegister(regCtrl, ctrlSelect)

	test.Equate(t, feed(p, 0x81), uint8(0xff)) // memcard select byte
	stat := p.LoadRegister(regStat)
	test.Equate(t, stat&(1<<1), uint32(1<<1)) // rx fifo holds the ack byte
}

func TestNeitherDeviceAckingStillCompletesTheExchange(t *testing.T) {
	p := New(scheduler.New())
	p.StoreRegister(regCtrl, ctrlSelect) // slot 0: its pad ignores 0x81 and there is no card

	test.Equate(t, feed(p, 0x81), uint8(0xff))
	stat := p.LoadRegister(regStat)
	test.Equate(t, stat&(1<<1), uint32(1<<1))
	test.Equate(t, stat&(1<<7), uint32(0)) // no device acked: no ack level latched
}

func TestControlResetClearsPortsAndIRQ(t *testing.T) {
	p := New(scheduler.New())
	p.InsertCard(0, memcard.New())
	p.StoreRegister(regCtrl, ctrlSelect|1<<12) // select + ack IRQ enabled

	feed(p, 0x81)
	test.Equate(t, p.TakePendingIRQ(), true)

	p.StoreRegister(regCtrl, 1<<6) // reset bit
	test.Equate(t, p.TakePendingIRQ(), false)
	test.Equate(t, p.control, controlReg(0))
}

func TestModeAndBaudRoundTrip(t *testing.T) {
	p := New(scheduler.New())

	p.StoreRegister(regMode, 0x0d)
	test.Equate(t, p.LoadRegister(regMode), uint32(0x0d))

	p.StoreRegister(regBaud, 0x0088)
	test.Equate(t, p.LoadRegister(regBaud), uint32(0x0088))
}

func TestAckIRQEnabledLatchesPendingIRQOnceUntilAcknowledged(t *testing.T) {
	p := New(scheduler.New())
	p.InsertCard(0, memcard.New())
	p.StoreRegister(regCtrl, ctrlSelect|1<<12)

	feed(p, 0x81)
	test.Equate(t, p.TakePendingIRQ(), true)
	test.Equate(t, p.TakePendingIRQ(), false)
}

func TestDeselectingResetsInProgressExchange(t *testing.T) {
	p := New(scheduler.New())
	p.StoreRegister(regCtrl, ctrlSelect)

	feed(p, 0x01) // mid digital-pad exchange, device latched as active
	p.StoreRegister(regCtrl, 0) // drop /SEL

	// a fresh select byte should be answered as if nothing had happened.
	test.Equate(t, feed(p, 0x01), uint8(0xff))
}

func TestMemCardReadCommandRoundTripsThroughIoPort(t *testing.T) {
	p := New(scheduler.New())
	card := memcard.New()
	var data [memcard.SectorSize]byte
	for i := range data {
		data[i] = uint8(i)
	}
	if err := card.WriteSector(3, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.InsertCard(0, card)
	p.StoreRegister(regCtrl, ctrlSelect)

	feed(p, 0x81)                      // select
	feed(p, uint8(memcard.CmdRead))    // command
	feed(p, 0x00)                      // CardId1
	feed(p, 0x00)                      // CardId2
	feed(p, 0x00)                      // addrHi
	test.Equate(t, feed(p, 0x03), uint8(0x00)) // addrLo, echoes addrHi

	feed(p, 0x00) // Ack1
	feed(p, 0x00) // Ack2
	feed(p, 0x00) // confirm addrHi
	feed(p, 0x00) // confirm addrLo

	for i := 0; i < memcard.SectorSize; i++ {
		test.Equate(t, feed(p, 0x00), data[i])
	}
}
