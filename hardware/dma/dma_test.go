package dma

import (
	"testing"

	"github.com/kallistipsx/gopsx/test"
)

type fakeRam struct {
	data [64]uint32
}

func (r *fakeRam) Load32(offset uint32) uint32  { return r.data[offset/4] }
func (r *fakeRam) Store32(offset uint32, v uint32) { r.data[offset/4] = v }

type fakePeer struct {
	ready bool
	queue []uint32
	stored []uint32
}

func (p *fakePeer) DMALoad() uint32 {
	v := p.queue[0]
	p.queue = p.queue[1:]
	return v
}
func (p *fakePeer) DMAStore(v uint32)       { p.stored = append(p.stored, v) }
func (p *fakePeer) DMAReady(d Direction) bool { return p.ready }

func TestManualModeToRamTransfersExactSize(t *testing.T) {
	e := New()
	ram := &fakeRam{}
	gpu := &fakePeer{ready: true, queue: []uint32{1, 2, 3, 4}}

	ch := &e.Channels[PortGPU]
	ch.Base = 0
	ch.Size = 4
	ch.Ctrl = ChannelCtrl{Direction: ToRam, StepSign: 4, Sync: SyncManual, Enable: true, Start: true}

	finished, moved, err := e.Run(PortGPU, Peers{GPU: gpu}, ram, 100)
	test.NoFailure(t, err)
	test.Equate(t, finished, true)
	test.Equate(t, moved, 4)
	test.Equate(t, ram.data[0], uint32(1))
	test.Equate(t, ram.data[3], uint32(4))
	test.Equate(t, ch.Ctrl.Enable, false)
}

func TestRequestModeDecrementsCountEachBurst(t *testing.T) {
	e := New()
	ram := &fakeRam{}
	spu := &fakePeer{ready: true, queue: []uint32{1, 2, 3, 4}}

	ch := &e.Channels[PortSPU]
	ch.Base = 0
	ch.Size = 2
	ch.Count = 2
	ch.Ctrl = ChannelCtrl{Direction: ToRam, StepSign: 4, Sync: SyncRequest, Enable: true}

	finished, moved, err := e.Run(PortSPU, Peers{SPU: spu}, ram, 100)
	test.NoFailure(t, err)
	test.Equate(t, finished, true)
	test.Equate(t, moved, 4)
	test.Equate(t, ch.Count, uint16(0))
}

func TestOrderingTableBuildsDescendingLinks(t *testing.T) {
	e := New()
	ram := &fakeRam{}
	ch := &e.Channels[PortOTC]
	ch.Base = 0x1c // 7 entries * 4
	ch.Size = 8
	ch.Ctrl = ChannelCtrl{Direction: ToRam, StepSign: -4, Sync: SyncManual, Enable: true, Start: true}

	finished, _, err := e.Run(PortOTC, Peers{}, ram, 100)
	test.NoFailure(t, err)
	test.Equate(t, finished, true)
	test.Equate(t, ram.data[0], uint32(0x00ffffff))
}

func TestChannelNotReadyDoesNotConsumeBudget(t *testing.T) {
	e := New()
	ram := &fakeRam{}
	gpu := &fakePeer{ready: false}
	ch := &e.Channels[PortGPU]
	ch.Ctrl = ChannelCtrl{Sync: SyncManual, Enable: true, Start: true}

	finished, moved, err := e.Run(PortGPU, Peers{GPU: gpu}, ram, 100)
	test.NoFailure(t, err)
	test.Equate(t, finished, false)
	test.Equate(t, moved, 0)
}

func TestDICRMasterFlagRisesOnChannelDone(t *testing.T) {
	e := New()
	ram := &fakeRam{}
	gpu := &fakePeer{ready: true, queue: []uint32{1}}
	e.StoreRegister(0x88, 1<<(16+int(PortGPU))|1<<23)

	ch := &e.Channels[PortGPU]
	ch.Size = 1
	ch.Ctrl = ChannelCtrl{Direction: ToRam, StepSign: 4, Sync: SyncManual, Enable: true, Start: true}

	_, _, err := e.Run(PortGPU, Peers{GPU: gpu}, ram, 10)
	test.NoFailure(t, err)
	test.Equate(t, e.MasterIRQ(), true)
}

func TestDICRMasterFlagStaysLowWhenMasterDisabled(t *testing.T) {
	e := New()
	ram := &fakeRam{}
	gpu := &fakePeer{ready: true, queue: []uint32{1}}
	// per-channel enable set, but bit 23 (master enable) left clear.
	e.StoreRegister(0x88, 1<<(16+int(PortGPU)))

	ch := &e.Channels[PortGPU]
	ch.Size = 1
	ch.Ctrl = ChannelCtrl{Direction: ToRam, StepSign: 4, Sync: SyncManual, Enable: true, Start: true}

	_, _, err := e.Run(PortGPU, Peers{GPU: gpu}, ram, 10)
	test.NoFailure(t, err)
	test.Equate(t, e.MasterIRQ(), false)
}
