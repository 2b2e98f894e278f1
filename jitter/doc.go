// Package jitter implements the per-peer playback gate that absorbs network
// timing variance.
//
// Each peer carries a Gate, a two-state machine {Buffering, Started}. A peer
// in Buffering contributes silence and its backlog is left untouched until
// enough audio has accumulated (one frame plus the jitter threshold) to ride
// out bursty or late packet arrival. Once Started, the peer is read every
// cycle until its backlog drops below one frame, at which point it has
// starved: the gate falls back to Buffering and the caller resets the ring.
//
// The threshold trades added latency for underrun resistance; the default
// configuration derives it from 20 ms of audio at the engine sample rate.
package jitter
