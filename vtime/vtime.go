// Package vtime models the core's single monotonic virtual clock: a 64-bit
// count of CPU cycles since power-on (§3). Duration and Instant are
// distinct types so that a cycle count can never be accidentally compared
// or added to a raw uint64 without going through the conversions below,
// mirroring the teacher's treatment of its own TV coordinate/clock types as
// named values rather than bare integers.
package vtime

// gpuNumerator/gpuDenominator express the PSX's GPU-to-CPU clock ratio,
// 11/7, approximating the real 53.2/33.9 MHz ratio (§3).
const (
	gpuNumerator   = 11
	gpuDenominator = 7
)

// Duration is a span of CPU cycles.
type Duration uint64

// Instant is a point in virtual time: a count of CPU cycles since
// power-on.
type Instant uint64

// Zero is the instant at power-on.
const Zero Instant = 0

// Forever is later than any instant that will ever be scheduled; it is
// used as the scheduler's "no event pending" sentinel.
const Forever Instant = ^Instant(0)

// Add returns the instant `d` cycles after i.
func (i Instant) Add(d Duration) Instant {
	return i + Instant(d)
}

// Sub returns the duration between i and earlier, which must not be later
// than i.
func (i Instant) Sub(earlier Instant) Duration {
	return Duration(i - earlier)
}

// Before reports whether i is strictly earlier than other.
func (i Instant) Before(other Instant) bool {
	return i < other
}

// AtLeast returns the later of i and other — used to implement
// "advance_to", which only ever moves time forward.
func (i Instant) AtLeast(other Instant) Instant {
	if other > i {
		return other
	}
	return i
}

// CPUCycles converts a GPU-cycle duration to the equivalent (rounded down)
// number of CPU cycles.
func CPUCycles(gpuCycles Duration) Duration {
	return Duration(uint64(gpuCycles) * gpuDenominator / gpuNumerator)
}

// GPUCycles converts a CPU-cycle duration to the equivalent (rounded down)
// number of GPU cycles.
func GPUCycles(cpuCycles Duration) Duration {
	return Duration(uint64(cpuCycles) * gpuNumerator / gpuDenominator)
}
