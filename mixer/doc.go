// Package mixer contains the fixed-cadence mixing engine and its scheduler.
//
// Each cycle the Engine pulls one frame from every eligible peer, folds the
// frames into a wide-integer master accumulator, then composes a
// personalized output per peer: the master mix with that peer's own
// contribution subtracted (mix-minus), saturated into the int16 sample
// range. Composed frames are handed to the outbound Sender; a failed send
// is logged and counted but never aborts the cycle for the remaining peers.
//
// The Scheduler runs the engine against absolute deadlines computed from
// the start time and the cycle index, so an isolated overrun never shifts
// later deadlines and drift stays bounded by design.
package mixer
