package system

import (
	"testing"

	"github.com/kallistipsx/gopsx/assembler"
	"github.com/kallistipsx/gopsx/hardware/bus"
	"github.com/kallistipsx/gopsx/hardware/dma"
	"github.com/kallistipsx/gopsx/test"
)

// loadProgram assembles source at the BIOS reset vector and installs it as
// the system's BIOS image, so the CPU's power-on PC runs it directly.
func loadProgram(t *testing.T, s *System, source string) {
	t.Helper()
	code, _, err := assembler.Assemble(source, 0xbfc00000)
	test.NoFailure(t, err)
	test.NoFailure(t, s.LoadBIOS(code))
}

func runUntilBreak(t *testing.T, s *System, budget int) {
	t.Helper()
	for i := 0; i < budget; i++ {
		if s.cpu.Regs.PC == 0x80000080 || s.cpu.Regs.PC == 0xbfc00180 {
			return
		}
		test.NoFailure(t, s.Step())
	}
	t.Fatalf("program did not reach break within step budget")
}

func TestNewWiresGTEAsCOP2(t *testing.T) {
	s := New()
	test.Equate(t, s.cpu.COP2 == s.gte, true)
}

func TestLoadBIOSRejectsOversizedImage(t *testing.T) {
	s := New()
	test.Failure(t, s.LoadBIOS(make([]byte, BIOSSize+1)))
}

func TestStepExecutesBIOSResetProgram(t *testing.T) {
	s := New()
	loadProgram(t, s, `
main: li $t0, 5
      li $t1, 7
      addu $t2, $t0, $t1
      break 0
`)
	runUntilBreak(t, s, 200)
	test.Equate(t, s.cpu.Regs.Get(10), uint32(12))
}

// TestGPUInterruptRequestReachesInterruptController exercises the
// level-polling path System.Step's pollInterrupts drives every step:
// GP0(1Fh) latches GPUSTAT's IRQ1 flag, which System.pollInterrupts
// raises into the shared interrupt controller once that source is
// unmasked.
func TestGPUInterruptRequestReachesInterruptController(t *testing.T) {
	s := New()
	s.ic.StoreRegister(4, 1<<bus.IRQGPU) // unmask GPU source

	s.gpu.StoreRegister(0, 0x1f000000) // GP0(1Fh): request IRQ1
	s.pollInterrupts()
	test.Equate(t, s.ic.Pending(), true)
}

// TestDMAStoreThroughBusBuildsOrderingTable exercises the dmaRegisters
// adapter: a bus store to a channel's control register must itself run
// the transfer, since dma.Engine never does this on its own.
func TestDMAStoreThroughBusBuildsOrderingTable(t *testing.T) {
	s := New()
	const dmaBase = 0x1f801080
	const otcOffset = 0x60 // port 6 (OTC) sits at channel index 6 * 0x10

	test.NoFailure(t, s.bus.Store32(dmaBase+otcOffset+0x0, 0x1c))       // Base
	test.NoFailure(t, s.bus.Store32(dmaBase+otcOffset+0x4, 4))          // Size
	test.NoFailure(t, s.bus.Store32(dmaBase+otcOffset+0x8, 0x11000002)) // reverse step, enable, start

	test.Equate(t, s.dma.Channels[dma.PortOTC].Ctrl.Enable, false) // finished synchronously
	test.Equate(t, s.ram.Load32(0x1c), uint32(0x18))
	test.Equate(t, s.ram.Load32(0x18), uint32(0x14))
	test.Equate(t, s.ram.Load32(0x14), uint32(0x10))
	test.Equate(t, s.ram.Load32(0x10), uint32(0x00ffffff))
}

func TestSPUIRQLatchesOnTransferAddressMatch(t *testing.T) {
	s := New()
	const spuBase = 0x1f801c00

	test.NoFailure(t, s.bus.Store16(spuBase+0x1a4, 0x0010)) // IRQ address
	test.NoFailure(t, s.bus.Store16(spuBase+0x1aa, 1<<6))   // SPUCNT: IRQ enable
	test.Equate(t, s.spu.IRQLine(), false)

	test.NoFailure(t, s.bus.Store16(spuBase+0x1a6, 0x0010)) // transfer address matches
	test.Equate(t, s.spu.IRQLine(), true)
}
