package registry

import "errors"

// Sentinel errors for admission. Classified with errors.Is by callers.
var (
	// ErrPeerTableFull indicates the maximum peer population has been
	// reached and no retired slot was available for reuse. Recoverable: the
	// offending frame is dropped and the mixer is unaffected.
	ErrPeerTableFull = errors.New("peer table full")

	// ErrBadFrameLength indicates an admitted frame whose sample count does
	// not match the configured frame length.
	ErrBadFrameLength = errors.New("admitted frame length does not match configured frame length")

	// ErrInvalidMaxPeers indicates a non-positive maximum population bound.
	// Construction-time fault, fatal to startup.
	ErrInvalidMaxPeers = errors.New("maximum peer population must be positive")
)
