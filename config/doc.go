// Package config holds the mixer's construction-time configuration.
//
// All values are fixed at startup: frame geometry, sample rate, ring
// capacity, jitter threshold, liveness policy, population bound, and the
// transport addresses. Validate rejects malformed combinations (most
// importantly a ring capacity that is not a multiple of the frame length)
// before any engine state is built, so misconfiguration is always fatal at
// startup rather than a runtime surprise.
//
// Configurations load from YAML files; zero-valued fields fall back to the
// defaults, which mirror the classic mixer deployment: 22050 Hz mono,
// 512-sample frames, a 20 ms jitter threshold, a ten-frame ring, a one
// second liveness window, and up to 1000 peers.
package config
