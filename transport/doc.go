// Package transport implements the UDP delivery collaborators around the
// mixing core.
//
// Inbound: a UDPTransport read loop parses each datagram as one raw PCM
// frame (little-endian int16 samples) and hands it, tagged with the source
// address as the peer identity, to the registered FrameHandler. Datagrams
// of the wrong size are dropped and logged. Delivery is at-most-once with
// no ordering guarantee, exactly what the engine's jitter gates absorb.
//
// Outbound: Send serializes a composed frame and writes it back to the
// peer's address in a single bounded WriteTo call. A short write surfaces
// as ErrShortWrite; the engine logs it and moves on.
//
// The package also carries the directory-service heartbeat, a periodic
// announcement the core does not own: it is modeled as a callback invoked
// on a fixed cadence for process lifetime.
package transport
