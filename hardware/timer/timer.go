// Package timer implements the 3 programmable timers of spec.md §4's timer
// module: per-timer mode/counter/target registers, 4 clock sources,
// target/overflow IRQ conditions, and the one-shot/repeat and toggle/pulse
// IRQ shapes. Grounded on original_source's timer module, ported from its
// `&mut Schedule`-threaded free functions to the teacher's narrow
// bus.Peer-plus-polled-IRQ style already used by hardware/dma and
// hardware/cdrom.
package timer

import (
	"github.com/kallistipsx/gopsx/bits"
	"github.com/kallistipsx/gopsx/scheduler"
	"github.com/kallistipsx/gopsx/vtime"
)

// ID identifies one of the three timers (§4).
type ID int

const (
	Timer0 ID = iota
	Timer1
	Timer2
	numTimers
)

// SyncMode names the mode-selector field's meaning, which varies by timer
// (§4). Only Stop is actually enforced by predictNextIRQ below; the rest
// are decoded for display/introspection but their Hblank/Vblank
// pause-and-reset behaviour is not separately modelled, matching the
// source this is ported from (tentative: a more complete port would gate
// add_to_counter on the current blank state for the Pause/Reset/
// ResetAndRun variants).
type SyncMode int

const (
	SyncHblankPause SyncMode = iota
	SyncHblankReset
	SyncHblankResetAndRun
	SyncHblankWait
	SyncVblankPause
	SyncVblankReset
	SyncVblankResetAndRun
	SyncVblankWait
	SyncStop
	SyncFreeRun
)

// ClockSource selects what drives a timer's counter (§4).
type ClockSource int

const (
	ClockSystem ClockSource = iota
	ClockDot
	ClockHblank
	ClockSystemDiv8
)

// timeToTicks converts an elapsed CPU-cycle duration into the number of
// clock pulses this source would have produced over it.
func (c ClockSource) timeToTicks(elapsed vtime.Duration) uint64 {
	switch c {
	case ClockSystem:
		return uint64(elapsed)
	case ClockSystemDiv8:
		return uint64(elapsed) / 8
	case ClockDot:
		return uint64(vtime.GPUCycles(elapsed))
	default: // ClockHblank: driven by explicit Hblank(count) calls instead
		return 0
	}
}

// ticksToTime is timeToTicks's inverse, used to size the delay until a
// timer's next target/overflow so the scheduler can wake it up exactly
// then.
func (c ClockSource) ticksToTime(ticks uint64) vtime.Duration {
	switch c {
	case ClockSystem:
		return vtime.Duration(ticks)
	case ClockSystemDiv8:
		return vtime.Duration(ticks * 8)
	case ClockDot:
		return vtime.CPUCycles(vtime.Duration(ticks))
	default:
		return 0
	}
}

// mode is the packed 16-bit counter mode register (§4).
type mode uint16

func (m mode) syncEnabled() bool { return bits.Bit(uint32(m), 0) }

func (m mode) syncMode(id ID) SyncMode {
	field := bits.Range(uint32(m), 1, 2)
	switch id {
	case Timer0:
		return []SyncMode{SyncHblankPause, SyncHblankReset, SyncHblankResetAndRun, SyncHblankWait}[field]
	case Timer1:
		return []SyncMode{SyncVblankPause, SyncVblankReset, SyncVblankResetAndRun, SyncVblankWait}[field]
	default:
		if field == 0 || field == 3 {
			return SyncStop
		}
		return SyncFreeRun
	}
}

func (m mode) resetOnTarget() bool  { return bits.Bit(uint32(m), 3) }
func (m mode) irqOnTarget() bool    { return bits.Bit(uint32(m), 4) }
func (m mode) irqOnOverflow() bool  { return bits.Bit(uint32(m), 5) }
func (m mode) irqRepeat() bool      { return bits.Bit(uint32(m), 6) }
func (m mode) irqToggleMode() bool  { return bits.Bit(uint32(m), 7) }

func (m mode) clockSource(id ID) ClockSource {
	field := bits.Range(uint32(m), 8, 9)
	switch id {
	case Timer0:
		if field == 1 || field == 3 {
			return ClockDot
		}
		return ClockSystem
	case Timer1:
		if field == 1 || field == 3 {
			return ClockHblank
		}
		return ClockSystem
	default:
		if field == 2 || field == 3 {
			return ClockSystemDiv8
		}
		return ClockSystem
	}
}

func (m mode) masterIRQFlag() bool   { return bits.Bit(uint32(m), 10) }
func (m mode) targetReached() bool   { return bits.Bit(uint32(m), 11) }
func (m mode) overflowReached() bool { return bits.Bit(uint32(m), 12) }

func (m mode) withMasterIRQFlag(v bool) mode   { return mode(bits.SetBit(uint32(m), 10, v)) }
func (m mode) withTargetReached(v bool) mode   { return mode(bits.SetBit(uint32(m), 11, v)) }
func (m mode) withOverflowReached(v bool) mode { return mode(bits.SetBit(uint32(m), 12, v)) }

// store applies a host write to the mode register: bits 10-12 are
// read-only status bits the write cannot touch, and the master IRQ flag
// is always forced back on (toggle mode flips it again on the next
// trigger, one-shot mode leaves it high until the next trigger clears it).
func (m *mode) store(val uint16) {
	*m = mode(uint32(*m)&^0x3ff | uint32(val)&0x3ff)
	*m = m.withMasterIRQFlag(true)
}

// load returns the register's value and clears the two sticky flags, the
// same read-to-clear behaviour as GPUSTAT's interrupt-pending bits.
func (m *mode) load() uint32 {
	val := uint32(*m)
	*m = m.withTargetReached(false)
	*m = m.withOverflowReached(false)
	return val
}

// timer is one counter's full state.
type timer struct {
	id             ID
	mode           mode
	counter        uint16
	target         uint16
	hasTriggered   bool
	pendingIRQ     bool
	awaitingEnable bool // true for the 20 cycles between a non-toggle trigger and its master-flag reenable
}

func newTimer(id ID) timer {
	return timer{id: id}
}

func (t *timer) loadRegister(reg uint32) uint32 {
	switch reg {
	case 0x0:
		return uint32(t.counter)
	case 0x4:
		return t.mode.load()
	case 0x8:
		return uint32(t.target)
	default:
		return 0
	}
}

func (t *timer) storeRegister(reg uint32, value uint32) {
	switch reg {
	case 0x0:
		t.hasTriggered = false
		t.counter = uint16(value)
	case 0x4:
		t.counter = 0
		t.hasTriggered = false
		t.mode.store(uint16(value))
	case 0x8:
		t.target = uint16(value)
	}
}

// triggerIRQ fires the timer's interrupt condition (§4): a one-shot timer
// only ever does this once per mode-register write, a repeating one does
// it every time. In non-toggle mode the master flag drops for 20 cycles
// after firing, matching the register's documented "set all the time
// except a few cycles after an interrupt" behaviour; awaitingEnable flags
// that for rescheduleWakeup to pick up.
func (t *timer) triggerIRQ() {
	if !t.mode.irqRepeat() && t.hasTriggered {
		return
	}
	t.hasTriggered = true

	if t.mode.masterIRQFlag() {
		t.pendingIRQ = true
	}

	if t.mode.irqToggleMode() {
		t.mode = t.mode.withMasterIRQFlag(!t.mode.masterIRQFlag())
		return
	}
	t.mode = t.mode.withMasterIRQFlag(false)
	t.awaitingEnable = true
}

func (t *timer) targetReached() {
	t.mode = t.mode.withTargetReached(true)
	if t.mode.resetOnTarget() {
		t.counter = 0
	}
	if t.mode.irqOnTarget() {
		t.triggerIRQ()
	}
}

// addToCounter advances the counter by add ticks, handling the 16-bit
// wraparound the same way the reference's overflowing_add does: a target
// hit is detected on the way up, and a second check covers the case where
// the target lies between the pre- and post-overflow counter values.
func (t *timer) addToCounter(add uint16) {
	if add == 0 {
		return
	}
	prev := t.counter
	sum := uint32(prev) + uint32(add)
	if sum <= 0xffff {
		t.counter = uint16(sum)
		if t.counter >= t.target {
			t.targetReached()
		}
		return
	}

	t.counter = uint16(sum)
	if t.target > prev {
		t.targetReached()
	}
	if t.mode.irqOnOverflow() {
		t.triggerIRQ()
	}
	t.mode = t.mode.withOverflowReached(true)
}

// run advances the counter by ticks total clock pulses, splitting into
// 0xffff-sized chunks the same way the source's loop does so every
// intermediate overflow is observed rather than only the final sum.
func (t *timer) run(ticks uint64) {
	for ticks > 0xffff {
		t.addToCounter(0xffff)
		ticks -= 0xffff
	}
	t.addToCounter(uint16(ticks))
}

// predictNextIRQ estimates the delay until this timer's next target or
// overflow, for the scheduler to wake it up at exactly that cycle rather
// than being polled every cycle. Returns false when nothing would ever
// fire (no IRQ condition configured, a one-shot timer already fired, a
// Hblank-sourced timer driven by explicit tick calls instead, or Stop
// sync mode).
func (t *timer) predictNextIRQ() (vtime.Duration, bool) {
	if !t.mode.irqOnOverflow() && !t.mode.irqOnTarget() {
		return 0, false
	}
	if !t.mode.irqRepeat() && t.hasTriggered {
		return 0, false
	}
	src := t.mode.clockSource(t.id)
	if src == ClockHblank {
		return 0, false
	}
	if t.mode.syncEnabled() && t.mode.syncMode(t.id) == SyncStop {
		return 0, false
	}

	target := uint32(0xffff)
	if t.mode.irqOnTarget() {
		if t.counter >= t.target {
			target = 0xffff
		} else {
			target = uint32(t.target)
		}
	}
	ticksLeft := target - uint32(t.counter)
	return src.ticksToTime(uint64(ticksLeft)), true
}

// Timers owns the three counters and the scheduler hooks that keep them
// running without being stepped every CPU cycle: each counter is brought
// up to date lazily (on register access or a scheduled wakeup) the same
// way original_source's update_timer does.
type Timers struct {
	sched       *scheduler.Scheduler
	timers      [numTimers]timer
	lastUpdate  [numTimers]vtime.Instant
	scheduled   [numTimers]scheduler.ID
	hasSchedule [numTimers]bool
}

func New(sched *scheduler.Scheduler) *Timers {
	t := &Timers{sched: sched}
	for i := range t.timers {
		t.timers[i] = newTimer(ID(i))
	}
	return t
}

// updateTimer runs the timer's counter forward by however much CPU time
// has elapsed since it was last brought up to date.
func (t *Timers) updateTimer(id ID) {
	elapsed := t.sched.Now().Sub(t.lastUpdate[id])
	t.lastUpdate[id] = t.sched.Now()

	tm := &t.timers[id]
	src := tm.mode.clockSource(id)
	if src == ClockHblank {
		return
	}
	tm.run(src.timeToTicks(elapsed))
}

// rescheduleWakeup cancels any previously scheduled wakeup for id and
// schedules a fresh one for whichever comes first: the 20-cycle master-IRQ
// reenable a non-toggle trigger just requested, or the next predicted
// target/overflow.
func (t *Timers) rescheduleWakeup(id ID) {
	if t.hasSchedule[id] {
		t.sched.Cancel(t.scheduled[id])
		t.hasSchedule[id] = false
	}

	delay, ok := t.timers[id].predictNextIRQ()
	if t.timers[id].awaitingEnable {
		const reenableDelay = vtime.Duration(20)
		if !ok || reenableDelay < delay {
			delay, ok = reenableDelay, true
		}
	}
	if ok {
		t.scheduled[id] = t.sched.Schedule(delay, scheduler.Event{Kind: scheduler.EventTimerIRQ, Data: int(id)})
		t.hasSchedule[id] = true
	}
}

// LoadRegister/StoreRegister implement bus.Peer for the 48-byte
// 0x1f801100-0x1f80112f range: 3 timers x (counter, mode, target), each
// block 16 bytes apart.
func (t *Timers) LoadRegister(offset uint32) uint32 {
	id := ID(bits.Range(offset, 4, 5))
	t.updateTimer(id)

	val := t.timers[id].loadRegister(bits.Range(offset, 0, 3))
	t.rescheduleWakeup(id)
	return val
}

func (t *Timers) StoreRegister(offset uint32, value uint32) {
	id := ID(bits.Range(offset, 4, 5))
	t.updateTimer(id)

	t.timers[id].storeRegister(bits.Range(offset, 0, 3), value)
	t.rescheduleWakeup(id)
}

// OnScheduledEvent runs when a previously scheduled EventTimerIRQ fires for
// timer id. It may be due either because a non-toggle trigger's 20-cycle
// master-IRQ reenable has elapsed, or because the predicted next
// target/overflow has arrived (or both, if the reenable delay lost the
// race in rescheduleWakeup); either way it brings the counter up to date
// and reschedules the next wakeup.
func (t *Timers) OnScheduledEvent(id ID) {
	t.hasSchedule[id] = false
	tm := &t.timers[id]
	if tm.awaitingEnable {
		tm.mode = tm.mode.withMasterIRQFlag(true)
		tm.awaitingEnable = false
	}
	t.updateTimer(id)
	t.rescheduleWakeup(id)
}

// Hblank drives Timer1's counter when it is configured for the Hblank
// clock source, called by hardware/system with the number of Hblank
// entries crossed during the GPU's last Run.
func (t *Timers) Hblank(count uint64) {
	t.updateTimer(Timer1)
	if t.timers[Timer1].mode.clockSource(Timer1) == ClockHblank && count > 0 {
		t.timers[Timer1].run(count)
	}
	t.rescheduleWakeup(Timer1)
}

// TakePendingIRQ reports and clears whether timer id has a freshly
// triggered interrupt to raise, polled by hardware/system the same way it
// polls hardware/cdrom's IRQLine after each event dispatch and
// instruction (§4.4).
func (t *Timers) TakePendingIRQ(id ID) bool {
	pending := t.timers[id].pendingIRQ
	t.timers[id].pendingIRQ = false
	return pending
}
