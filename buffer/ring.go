package buffer

// Ring is a fixed-capacity circular store of int16 PCM samples.
//
// The write cursor and read cursor advance independently in whole frames
// and wrap at the capacity. The unread backlog is (w - r + capacity) mod
// capacity, which always lies in [0, capacity). A full wrap of the writer
// past the reader silently overwrites the oldest samples; the registry
// detects that condition at admission time and resets the ring before it
// can be mixed as stale audio.
type Ring struct {
	data     []int16
	frameLen int
	w        int
	r        int
}

// NewRing creates a ring holding capacity samples read and written in
// frames of frameLen samples.
//
// Returns ErrInvalidCapacity if capacity is not a positive multiple of
// frameLen; that is a configuration fault and is fatal to engine startup.
func NewRing(capacity, frameLen int) (*Ring, error) {
	if frameLen <= 0 || capacity <= 0 || capacity%frameLen != 0 {
		return nil, ErrInvalidCapacity
	}
	return &Ring{
		data:     make([]int16, capacity),
		frameLen: frameLen,
	}, nil
}

// Capacity returns the total sample capacity of the ring.
func (rb *Ring) Capacity() int {
	return len(rb.data)
}

// FrameLength returns the frame size, in samples, the ring operates on.
func (rb *Ring) FrameLength() int {
	return rb.frameLen
}

// Backlog returns the number of unread samples between the read and write
// cursors. The result is always in [0, Capacity()).
func (rb *Ring) Backlog() int {
	return (rb.w - rb.r + len(rb.data)) % len(rb.data)
}

// Write copies one frame into the ring at the write cursor and advances the
// cursor with wraparound.
//
// Returns ErrBadFrameLength if the frame is not exactly one frame long.
func (rb *Ring) Write(frame []int16) error {
	if len(frame) != rb.frameLen {
		return ErrBadFrameLength
	}
	// Cursors only ever advance in whole frames and capacity is a multiple
	// of the frame length, so a frame never straddles the wrap point.
	copy(rb.data[rb.w:rb.w+rb.frameLen], frame)
	rb.w = (rb.w + rb.frameLen) % len(rb.data)
	return nil
}

// Read copies one frame out of the ring at the read cursor into dst and
// advances the cursor with wraparound.
//
// The caller must have verified Backlog() >= FrameLength() first; the
// jitter gate enforces that before the mixer ever calls Read. Reading past
// the write cursor is a precondition fault, not a recoverable error, so
// Read does not check for it.
//
// Returns ErrBadFrameLength if dst is not exactly one frame long.
func (rb *Ring) Read(dst []int16) error {
	if len(dst) != rb.frameLen {
		return ErrBadFrameLength
	}
	copy(dst, rb.data[rb.r:rb.r+rb.frameLen])
	rb.r = (rb.r + rb.frameLen) % len(rb.data)
	return nil
}

// Reset collapses both cursors to the same position, discarding any unread
// backlog. Used on starvation and when a slot is reused or re-admitted with
// stale audio.
func (rb *Ring) Reset() {
	rb.r = rb.w
}
