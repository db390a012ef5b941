package timer

import (
	"testing"

	"github.com/kallistipsx/gopsx/scheduler"
	"github.com/kallistipsx/gopsx/test"
	"github.com/kallistipsx/gopsx/vtime"
)

func regOffset(id ID, reg uint32) uint32 {
	return uint32(id)<<4 | reg
}

func TestModeStoreForcesMasterIRQFlagAndMasksReadOnlyBits(t *testing.T) {
	var m mode
	// bit10 (master flag), bit11, bit12 are read-only status bits a store
	// must not be able to set directly; only bits 0-9 are writable, and the
	// store always raises the master flag regardless of what was written.
	m.store(0x1fff)
	test.Equate(t, m.masterIRQFlag(), true)
	test.Equate(t, m.targetReached(), false)
	test.Equate(t, m.overflowReached(), false)
	test.Equate(t, uint32(m)&0x3ff, uint32(0x3ff))
}

func TestModeLoadClearsStickyFlags(t *testing.T) {
	var m mode
	m = m.withTargetReached(true)
	m = m.withOverflowReached(true)
	val := m.load()
	test.Equate(t, val&(1<<11), uint32(1<<11))
	test.Equate(t, m.targetReached(), false)
	test.Equate(t, m.overflowReached(), false)
}

func TestClockSourceSelectionPerTimer(t *testing.T) {
	// field bits 8-9 == 0b01: Timer0 -> dot clock, Timer1 -> Hblank,
	// Timer2 -> system clock (0b01 isn't one of Timer2's div8 codes 2/3).
	m := mode(1 << 8)
	test.Equate(t, m.clockSource(Timer0), ClockDot)
	test.Equate(t, m.clockSource(Timer1), ClockHblank)
	test.Equate(t, m.clockSource(Timer2), ClockSystem)

	m2 := mode(3 << 8) // field == 3
	test.Equate(t, m2.clockSource(Timer2), ClockSystemDiv8)
}

func TestSyncModeDecodePerTimer(t *testing.T) {
	m := mode(2 << 1) // field == 2
	test.Equate(t, m.syncMode(Timer0), SyncHblankResetAndRun)
	test.Equate(t, m.syncMode(Timer1), SyncVblankResetAndRun)
	test.Equate(t, m.syncMode(Timer2), SyncFreeRun)

	m2 := mode(3 << 1) // field == 3
	test.Equate(t, m2.syncMode(Timer2), SyncStop)
}

func TestStoreRegisterOnCounterResetsHasTriggered(t *testing.T) {
	tm := newTimer(Timer0)
	tm.hasTriggered = true
	tm.storeRegister(0x0, 0x1234)
	test.Equate(t, tm.counter, uint16(0x1234))
	test.Equate(t, tm.hasTriggered, false)
}

func TestStoreRegisterOnModeResetsCounterAndHasTriggered(t *testing.T) {
	tm := newTimer(Timer0)
	tm.counter = 500
	tm.hasTriggered = true
	tm.storeRegister(0x4, 0x0010) // irqOnTarget (bit4) set
	test.Equate(t, tm.counter, uint16(0))
	test.Equate(t, tm.hasTriggered, false)
	test.Equate(t, tm.mode.irqOnTarget(), true)
	test.Equate(t, tm.mode.masterIRQFlag(), true)
}

func TestAddToCounterFiresTargetReachedAndResets(t *testing.T) {
	tm := newTimer(Timer0)
	tm.mode = tm.mode.withMasterIRQFlag(true)
	tm.target = 100
	tm.storeRegister(0x4, 1<<3|1<<4) // resetOnTarget | irqOnTarget
	tm.target = 100

	tm.addToCounter(100)

	test.Equate(t, tm.counter, uint16(0)) // reset on target
	test.Equate(t, tm.mode.targetReached(), true)
	test.Equate(t, tm.hasTriggered, true)
	test.Equate(t, tm.pendingIRQ, true)
	// non-toggle mode: master flag drops and awaits its 20-cycle reenable
	test.Equate(t, tm.mode.masterIRQFlag(), false)
	test.Equate(t, tm.awaitingEnable, true)
}

func TestAddToCounterOverflowFiresWhenConfigured(t *testing.T) {
	tm := newTimer(Timer0)
	tm.storeRegister(0x4, 1<<5) // irqOnOverflow
	tm.counter = 0xfffe
	tm.target = 0xffff // unreachable: overflow should still fire

	tm.addToCounter(4) // 0xfffe + 4 wraps past 0xffff

	test.Equate(t, tm.mode.overflowReached(), true)
	test.Equate(t, tm.hasTriggered, true)
	test.Equate(t, tm.pendingIRQ, true)
}

func TestOneShotTimerDoesNotRetriggerAfterFirstHit(t *testing.T) {
	tm := newTimer(Timer0)
	tm.storeRegister(0x4, 1<<4) // irqOnTarget, irqRepeat left clear (one-shot)
	tm.target = 10

	tm.addToCounter(10)
	test.Equate(t, tm.hasTriggered, true)
	firstPending := tm.pendingIRQ
	test.Equate(t, firstPending, true)

	tm.pendingIRQ = false
	tm.counter = 0
	tm.addToCounter(10) // would hit target again, but one-shot already fired
	test.Equate(t, tm.pendingIRQ, false)
}

func TestToggleModeFlipsMasterFlagWithoutAwaitingReenable(t *testing.T) {
	tm := newTimer(Timer0)
	tm.storeRegister(0x4, 1<<4|1<<6|1<<7) // irqOnTarget | irqRepeat | irqToggleMode
	tm.target = 10

	tm.addToCounter(10)
	test.Equate(t, tm.mode.masterIRQFlag(), false) // toggled off from its post-store true
	test.Equate(t, tm.awaitingEnable, false)
}

func TestPredictNextIRQToTarget(t *testing.T) {
	tm := newTimer(Timer0)
	tm.storeRegister(0x4, 1<<4|1<<6) // irqOnTarget | irqRepeat, system clock source
	tm.target = 1000
	tm.counter = 200

	delay, ok := tm.predictNextIRQ()
	test.Equate(t, ok, true)
	test.Equate(t, delay, vtime.Duration(800))
}

func TestPredictNextIRQNoneWhenHblankSourced(t *testing.T) {
	tm := newTimer(Timer1)
	tm.storeRegister(0x4, 1<<4|1<<6|1<<8) // irqOnTarget | irqRepeat | Hblank clock source
	tm.target = 1000

	_, ok := tm.predictNextIRQ()
	test.Equate(t, ok, false)
}

func TestPredictNextIRQNoneWhenSyncStopped(t *testing.T) {
	tm := newTimer(Timer2)
	tm.storeRegister(0x4, 1<<4|1<<6|1<<0) // irqOnTarget | irqRepeat | syncEnabled, field 0 -> Stop
	tm.target = 1000

	_, ok := tm.predictNextIRQ()
	test.Equate(t, ok, false)
}

func TestTimersRegisterRoundTrip(t *testing.T) {
	timers := New(scheduler.New())

	timers.StoreRegister(regOffset(Timer1, 0x8), 0x3000) // target
	test.Equate(t, timers.LoadRegister(regOffset(Timer1, 0x8)), uint32(0x3000))

	timers.StoreRegister(regOffset(Timer1, 0x0), 0x0042) // counter
	test.Equate(t, timers.LoadRegister(regOffset(Timer1, 0x0)), uint32(0x0042))
}

func TestTimersScheduleWakeupForSystemClockTarget(t *testing.T) {
	sched := scheduler.New()
	timers := New(sched)

	timers.StoreRegister(regOffset(Timer0, 0x8), 500) // target
	timers.StoreRegister(regOffset(Timer0, 0x4), 1<<4|1<<6)

	test.Equate(t, sched.Pending(), true)
	test.Equate(t, sched.NextDue(), vtime.Zero.Add(500))
}

func TestHblankDrivesTimer1WhenHblankSourced(t *testing.T) {
	sched := scheduler.New()
	timers := New(sched)

	timers.StoreRegister(regOffset(Timer1, 0x4), 1<<4|1<<6|1<<8) // irqOnTarget|irqRepeat|Hblank source
	timers.StoreRegister(regOffset(Timer1, 0x8), 5)

	timers.Hblank(5)

	test.Equate(t, timers.TakePendingIRQ(Timer1), true)
}

func TestHblankIgnoredWhenTimer1NotHblankSourced(t *testing.T) {
	sched := scheduler.New()
	timers := New(sched)

	timers.StoreRegister(regOffset(Timer1, 0x4), 1<<4|1<<6) // system clock source, not Hblank
	timers.StoreRegister(regOffset(Timer1, 0x8), 5)

	timers.Hblank(5)

	test.Equate(t, timers.TakePendingIRQ(Timer1), false)
}

func TestOnScheduledEventReenablesMasterFlagAndReschedules(t *testing.T) {
	sched := scheduler.New()
	timers := New(sched)

	timers.StoreRegister(regOffset(Timer0, 0x8), 100)
	timers.StoreRegister(regOffset(Timer0, 0x4), 1<<3|1<<4|1<<6) // resetOnTarget | irqOnTarget | irqRepeat

	// First wakeup: the predicted target is hit. This is where the trigger
	// itself happens, dropping the master flag and queuing its 20-cycle
	// reenable as a fresh wakeup.
	sched.AdvanceTo(vtime.Zero.Add(100))
	ev, ok := sched.PopDue()
	test.Equate(t, ok, true)
	test.Equate(t, ev.Kind, scheduler.EventTimerIRQ)
	test.Equate(t, ev.Data, int(Timer0))

	timers.OnScheduledEvent(Timer0)

	test.Equate(t, timers.TakePendingIRQ(Timer0), true)
	test.Equate(t, timers.timers[Timer0].mode.masterIRQFlag(), false)
	test.Equate(t, timers.timers[Timer0].awaitingEnable, true)
	test.Equate(t, sched.NextDue(), vtime.Zero.Add(120))

	// Second wakeup, 20 cycles later: the reenable itself.
	sched.AdvanceTo(vtime.Zero.Add(120))
	ev, ok = sched.PopDue()
	test.Equate(t, ok, true)
	test.Equate(t, ev.Kind, scheduler.EventTimerIRQ)

	timers.OnScheduledEvent(Timer0)

	test.Equate(t, timers.timers[Timer0].mode.masterIRQFlag(), true)
	test.Equate(t, timers.timers[Timer0].awaitingEnable, false)
}
