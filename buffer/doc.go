// Package buffer implements the per-peer elastic sample store used by the
// mixing engine.
//
// A Ring is a fixed-capacity circular buffer of int16 PCM samples with
// independent read and write cursors. Frames are written and read as whole
// units of the configured frame length, so cursor advancement always lands
// on a frame boundary and capacity is required to be a multiple of the
// frame length at construction time.
//
// The Ring performs no locking of its own. Exactly one writer (the ingest
// path) and one reader (the mixer) exist per peer; callers serialize access
// with the per-peer mutex held by the registry entry that owns the Ring.
package buffer
