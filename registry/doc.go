// Package registry maintains the table of known peers and their per-peer
// mixing state.
//
// Each inbound frame is admitted against a peer identity (the source UDP
// address in string form). The registry creates an entry on first contact,
// reuses retired slots before growing the table, and enforces a fixed
// maximum population. Every entry owns a buffer.Ring, a jitter.Gate, a
// last-activity timestamp, and the bookkeeping the mixer needs to compose a
// mix-minus frame for that peer.
//
// Locking discipline: the registry's own mutex guards only the
// identity-to-entry mapping and is never held across ring I/O. Each Peer
// carries its own mutex protecting its ring and liveness fields, so a mix
// cycle contends with at most one peer's ingest path at a time.
package registry
