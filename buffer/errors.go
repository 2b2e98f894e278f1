package buffer

import "errors"

// Sentinel errors for buffer construction and frame I/O.
// These errors enable reliable error classification using errors.Is().
var (
	// ErrInvalidCapacity indicates the ring capacity is not a positive
	// multiple of the frame length. This is a construction-time fault and
	// callers treat it as fatal.
	ErrInvalidCapacity = errors.New("ring capacity must be a positive multiple of the frame length")

	// ErrBadFrameLength indicates a frame slice whose length does not match
	// the frame length the ring was constructed with.
	ErrBadFrameLength = errors.New("frame length does not match ring frame length")
)
