// Package audiomixer is a real-time many-to-many audio mixing engine.
//
// The mixer ingests fixed-size mono int16 PCM frames from any number of
// UDP peers, absorbs network jitter in a per-peer elastic ring buffer, and
// on a fixed cadence produces one master mix per cycle plus a personalized
// output per peer with that peer's own contribution subtracted (mix-minus),
// so nobody hears their own echo.
//
// # Architecture
//
// Core components, leaves first:
//
//   - [buffer.Ring]: per-peer circular sample store with independent read
//     and write cursors.
//   - [jitter.Gate]: per-peer playback gate; delays start until enough
//     backlog exists and forces re-buffering on starvation.
//   - [registry.Registry]: peer identity to slot mapping with bounded
//     population, slot reuse, and liveness sweeping.
//   - [mixer.Engine]: one master mix per cycle, mix-minus composition,
//     saturating clip, outbound hand-off.
//   - [mixer.Scheduler]: absolute-deadline cadence loop with overrun
//     reporting.
//   - [transport.UDPTransport]: raw PCM frame delivery in both directions,
//     plus the directory-service heartbeat.
//
// # Usage
//
//	cfg := config.Default()
//	cfg.ListenAddr = ":55443"
//
//	m, err := audiomixer.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := m.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Stop()
//
// Two flows run concurrently against shared per-peer state: the ingest path
// (transport read loop -> registry admission -> ring write) and the mix
// path (scheduler -> engine -> ring reads -> sends). Each peer carries its
// own lock, so a mix cycle never contends with more than one peer's ingest
// at a time and a slow peer cannot stall the deadline.
package audiomixer
