package bus

import "github.com/kallistipsx/gopsx/bits"

// Interrupt source bits (§2, §4.4): 11 maskable sources.
const (
	IRQVBlank = iota
	IRQGPU
	IRQCDROM
	IRQDMA
	IRQTimer0
	IRQTimer1
	IRQTimer2
	IRQControllerMemCard
	IRQSIO
	IRQSPU
	IRQControllerLightgun
)

// Controller implements the interrupt status/mask register pair at
// 0x1f801070-0x1f801077 (§4.3): offset 0 is STAT (read clears nothing;
// writes AND-acknowledge), offset 4 is MASK.
type Controller struct {
	stat uint32
	mask uint32
}

// NewController returns an interrupt controller with no pending or masked
// sources.
func NewController() *Controller {
	return &Controller{}
}

// Raise sets the STAT bit for the given source.
func (c *Controller) Raise(source int) {
	c.stat = bits.SetBit(c.stat, source, true)
}

// Pending reports whether any unmasked source is currently asserted,
// i.e. (STAT & MASK) != 0, which is what the CPU's IRQ check (§4.4)
// consults as the "active_irq_lines" contribution to CAUSE bits [10:15].
func (c *Controller) Pending() bool {
	return c.stat&c.mask != 0
}

// LoadRegister implements the bus.Peer contract.
func (c *Controller) LoadRegister(offset uint32) uint32 {
	switch offset {
	case 0:
		return c.stat
	case 4:
		return c.mask
	default:
		return 0
	}
}

// StoreRegister implements the bus.Peer contract. Writing STAT acknowledges
// (ANDs in) only the bits that are zero in the written value, matching the
// real controller's "write 0 to clear" convention.
func (c *Controller) StoreRegister(offset uint32, value uint32) {
	switch offset {
	case 0:
		c.stat &= value
	case 4:
		c.mask = value & 0x7ff
	}
}
