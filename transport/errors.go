package transport

import "errors"

// Sentinel errors for frame transport. Classified with errors.Is by callers.
var (
	// ErrShortWrite indicates an outbound datagram was only partially
	// written. Recorded by the engine, never fatal to a cycle.
	ErrShortWrite = errors.New("short write on outbound frame")

	// ErrBadDatagram indicates an inbound datagram whose size is not
	// exactly one frame of little-endian int16 samples.
	ErrBadDatagram = errors.New("datagram is not exactly one frame")

	// ErrTransportClosed indicates an operation on a closed transport.
	ErrTransportClosed = errors.New("transport is closed")
)
