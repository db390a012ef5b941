package system

import (
	"github.com/kallistipsx/gopsx/hardware/dma"
	"github.com/kallistipsx/gopsx/logger"
	"github.com/kallistipsx/gopsx/scheduler"
	"github.com/kallistipsx/gopsx/vtime"
)

// dmaRegisters adapts *dma.Engine to bus.Peer, adding the one thing the
// engine itself doesn't do: actually running a channel when a register
// store might have made it ready. dma.Engine.StoreRegister only updates
// state (§4.5); nothing inside the dma package calls Run, by the same
// narrow-interface discipline that keeps hardware/gpu and hardware/cdrom
// free of an upward System reference.
type dmaRegisters struct {
	sys *System
}

func (d *dmaRegisters) LoadRegister(offset uint32) uint32 {
	return d.sys.dma.LoadRegister(offset)
}

func (d *dmaRegisters) StoreRegister(offset uint32, value uint32) {
	d.sys.dma.StoreRegister(offset, value)

	if offset == 0x80 || offset == 0x88 {
		// DPCR/DICR touch priority and IRQ-enable bookkeeping, not a
		// specific channel's transfer state; no channel needs kicking.
		return
	}
	port := dma.Port(offset / 0x10)
	if port < dma.PortMDECIn || port > dma.PortOTC {
		return
	}
	d.sys.runDMAPort(port)
}

// unmodeledDMAPeer backs the MDEC-in/out and PIO ports, for which spec.md's
// Non-goals exclude any real peripheral behind the DMA port (link-cable/
// parallel expansion and MDEC decompression are both out of scope): a
// burst through one of these ports never finds its peer ready, so it
// simply never starts, the same way a PSX with nothing plugged into its
// parallel port would stall any software foolish enough to DMA through it.
type unmodeledDMAPeer struct{}

func (unmodeledDMAPeer) DMALoad() uint32                 { return 0xffffffff }
func (unmodeledDMAPeer) DMAStore(value uint32)           {}
func (unmodeledDMAPeer) DMAReady(dir dma.Direction) bool { return false }

// runDMAPort runs one DMA pass for port and, if the channel is still
// enabled but didn't finish (its peer stalled, or it's chopping and used
// up its word budget), reschedules another pass (§4.5 step 2c). A
// non-chopping channel that stalls on peer-not-ready retries on the very
// next cycle rather than waiting out a chop-CPU delay it was never given.
func (s *System) runDMAPort(port dma.Port) {
	ch := &s.dma.Channels[port]

	wordBudget := 1
	if ch.Ctrl.Chopping {
		wordBudget = 1 << ch.Ctrl.ChopDMA
	}

	finished, _, err := s.dma.Run(port, s.dmaPeers, s.ram, wordBudget)
	if err != nil {
		logger.Logf("system", "DMA port %d: %v", port, err)
		return
	}
	if finished {
		return
	}
	if !ch.Ctrl.Enable {
		return
	}

	delay := vtime.Duration(1)
	if ch.Ctrl.Chopping {
		delay = vtime.Duration(1 << ch.Ctrl.ChopCPU)
	}
	s.sched.Schedule(delay, scheduler.Event{Kind: scheduler.EventDMARun, Data: int(port)})
}
