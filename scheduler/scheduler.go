// Package scheduler implements the core's single event queue: a min-heap
// of timed events ordered by the instant they become due (§4.2, §5). The
// CPU step loop is the sole consumer: on every step it either pops a due
// event and dispatches it to the owning subsystem, or executes one
// instruction. Ported from the original Rust Schedule (container/heap
// standing in for Rust's BinaryHeap), not translated line-for-line: Go's
// heap needs a Less defined for min-order directly, where the Rust version
// relies on a reversed Ord impl to get min-heap behaviour out of a
// max-heap-shaped BinaryHeap.
package scheduler

import (
	"container/heap"

	"github.com/kallistipsx/gopsx/vtime"
)

// Event is the payload carried by a scheduled entry. Kind identifies which
// subsystem owns the event (GPU command completion, DMA resumption, CD-ROM
// sector ready, timer IRQ, and so on); Data is a small, kind-specific
// payload (e.g. a DMA port number) left untyped so the scheduler itself
// never needs to know about peripheral types.
type Event struct {
	Kind EventKind
	Data int
}

// EventKind enumerates every event the core schedules (§5).
type EventKind int

const (
	EventGPUCommandDone EventKind = iota
	EventGPUHBlank
	EventGPUVBlank
	EventDMARun
	EventCDROMSectorDone
	EventCDROMResponse
	EventTimerIRQ
	EventIRQCheck
	EventIOPortAck
)

// ID uniquely identifies a scheduled event so that it can later be
// cancelled or (for repeating events) recognised when it fires again.
type ID uint64

// RepeatMode says whether an entry is removed from the queue once it
// fires, or reinserted with a fresh "ready" instant.
type RepeatMode int

const (
	Once RepeatMode = iota
	Repeating
)

type entry struct {
	ready  vtime.Instant
	event  Event
	mode   RepeatMode
	period vtime.Duration // only meaningful when mode == Repeating
	id     ID
	index  int // heap index, maintained by container/heap
}

// entryHeap implements container/heap.Interface as a min-heap ordered by
// `ready`, with ties broken by insertion order id (stable but otherwise
// arbitrary — §4.2 promises consumers must not depend on tie-breaking, a
// stable order is just convenient for deterministic tests).
type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].ready != h[j].ready {
		return h[i].ready < h[j].ready
	}
	return h[i].id < h[j].id
}
func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *entryHeap) Push(x interface{}) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Scheduler owns virtual time and the event queue.
type Scheduler struct {
	now      vtime.Instant
	nextID   ID
	heap     entryHeap
	byID     map[ID]*entry
	nextDue  vtime.Instant // cache of heap root's ready instant
}

// New creates an empty scheduler with time at Zero.
func New() *Scheduler {
	s := &Scheduler{
		byID:    make(map[ID]*entry),
		nextDue: vtime.Forever,
	}
	heap.Init(&s.heap)
	return s
}

// Now returns the current virtual time.
func (s *Scheduler) Now() vtime.Instant {
	return s.now
}

// Advance moves time forward by d. Time never moves backward.
func (s *Scheduler) Advance(d vtime.Duration) {
	s.now = s.now.Add(d)
}

// AdvanceTo moves time forward to at least t. If t is not later than the
// current time, this is a no-op (time never rewinds).
func (s *Scheduler) AdvanceTo(t vtime.Instant) {
	s.now = s.now.AtLeast(t)
}

func (s *Scheduler) allocID() ID {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Scheduler) pushLocked(e *entry) {
	heap.Push(&s.heap, e)
	s.byID[e.id] = e
	s.updateNextDue()
}

func (s *Scheduler) updateNextDue() {
	if len(s.heap) == 0 {
		s.nextDue = vtime.Forever
		return
	}
	s.nextDue = s.heap[0].ready
}

// Schedule arranges for event to become due `delay` cycles from now, once.
func (s *Scheduler) Schedule(delay vtime.Duration, event Event) ID {
	id := s.allocID()
	s.pushLocked(&entry{
		ready: s.now.Add(delay),
		event: event,
		mode:  Once,
		id:    id,
	})
	return id
}

// ScheduleRepeating arranges for event to become due every `interval`
// cycles, starting `interval` cycles from now, until cancelled.
func (s *Scheduler) ScheduleRepeating(interval vtime.Duration, event Event) ID {
	id := s.allocID()
	s.pushLocked(&entry{
		ready:  s.now.Add(interval),
		event:  event,
		mode:   Repeating,
		period: interval,
		id:     id,
	})
	return id
}

// Trigger schedules event to be due immediately (at or before `now`).
func (s *Scheduler) Trigger(event Event) ID {
	return s.Schedule(0, event)
}

// Cancel removes a previously scheduled event. Cancelling an unknown or
// already-fired-and-not-repeating ID is a no-op.
func (s *Scheduler) Cancel(id ID) {
	e, ok := s.byID[id]
	if !ok {
		return
	}
	delete(s.byID, id)
	if e.index >= 0 {
		heap.Remove(&s.heap, e.index)
	}
	s.updateNextDue()
}

// PopDue pops and returns the next event if it is due (ready <= now). If
// the popped event is repeating, it is immediately reinserted with
// ready = now + period. Returns ok == false if no event is due.
func (s *Scheduler) PopDue() (event Event, ok bool) {
	if s.nextDue.Before(s.now) || s.nextDue == s.now {
		e := heap.Pop(&s.heap).(*entry)
		delete(s.byID, e.id)
		event = e.event

		if e.mode == Repeating {
			ne := &entry{
				ready:  s.now.Add(e.period),
				event:  e.event,
				mode:   Repeating,
				period: e.period,
				id:     e.id,
			}
			s.pushLocked(ne)
		} else {
			s.updateNextDue()
		}

		return event, true
	}
	return Event{}, false
}

// Pending reports whether any event is currently scheduled.
func (s *Scheduler) Pending() bool {
	return len(s.heap) > 0
}

// NextDue returns the instant the earliest scheduled event becomes due, or
// vtime.Forever if nothing is scheduled.
func (s *Scheduler) NextDue() vtime.Instant {
	return s.nextDue
}
