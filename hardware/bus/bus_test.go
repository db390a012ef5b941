package bus

import (
	"testing"

	"github.com/kallistipsx/gopsx/test"
)

type stubPeer struct {
	loaded  uint32
	stored  uint32
	storeOK bool
}

func (s *stubPeer) LoadRegister(offset uint32) uint32 { return s.loaded }
func (s *stubPeer) StoreRegister(offset uint32, value uint32) {
	s.stored = value
	s.storeOK = true
}

func newTestBus() (*Bus, *stubPeer) {
	gpu := &stubPeer{}
	b := New(Peers{
		RAM:        NewRAM(2 * 1024 * 1024),
		BIOS:       NewROM(nil, 512*1024),
		Scratchpad: NewRAM(1024),
		IOPort:     &stubPeer{},
		DMA:        &stubPeer{},
		Timers:     &stubPeer{},
		CDROM:      &stubPeer{},
		GPU:        gpu,
		SPU:        &stubPeer{},
		Interrupts: NewController(),
	})
	return b, gpu
}

func TestPhysicalMapsKSEG0AndKSEG1ToSamePhysicalAddress(t *testing.T) {
	test.Equate(t, Physical(0x80100000), Physical(0xa0100000))
	test.Equate(t, Physical(0x80100000), uint32(0x00100000))
}

func TestRAMRoundTrip(t *testing.T) {
	b, _ := newTestBus()
	test.NoFailure(t, b.Store32(0x00001000, 0x12345678))
	v, err := b.Load32(0x00001000)
	test.NoFailure(t, err)
	test.Equate(t, v, uint32(0x12345678))
}

func TestRAMMirrors(t *testing.T) {
	b, _ := newTestBus()
	test.NoFailure(t, b.Store32(0x00001000, 0xcafef00d))
	v, err := b.Load32(0x00201000) // +2MiB mirror
	test.NoFailure(t, err)
	test.Equate(t, v, uint32(0xcafef00d))
}

func TestUnalignedLoadIsError(t *testing.T) {
	b, _ := newTestBus()
	_, err := b.Load32(0x00001001)
	test.Failure(t, err)
}

func TestUnmappedAddressIsError(t *testing.T) {
	b, _ := newTestBus()
	_, err := b.Load32(0x1f300000)
	test.Failure(t, err)
}

func TestGPURegisterDispatch(t *testing.T) {
	b, gpu := newTestBus()
	test.NoFailure(t, b.Store32(0x1f801810, 0xabcd))
	test.Equate(t, gpu.stored, uint32(0xabcd))
}

func TestExpansion1ReadsAllOnes(t *testing.T) {
	b, _ := newTestBus()
	v, err := b.Load8(0x1f000010)
	test.NoFailure(t, err)
	test.Equate(t, v, uint8(0xff))
}

func TestInterruptControllerAckClearsOnlyZeroBits(t *testing.T) {
	c := NewController()
	c.Raise(IRQVBlank)
	c.Raise(IRQGPU)
	c.StoreRegister(0, ^uint32(1<<IRQVBlank)) // ack VBlank only
	test.Equate(t, c.LoadRegister(0), uint32(1<<IRQGPU))
}

func TestInterruptControllerPendingRespectsMask(t *testing.T) {
	c := NewController()
	c.Raise(IRQDMA)
	test.Equate(t, c.Pending(), false)
	c.StoreRegister(4, 1<<IRQDMA)
	test.Equate(t, c.Pending(), true)
}
