// Package ws provides WebSocket handling for real-time preview updates.
//
// This package relays between the preview UI and the engine: viewer
// scrolls and camera gestures flow in, engine state snapshots and
// mirrored scroll offsets flow out.
//
// Features:
//   - State snapshot broadcast after every engine commit
//   - Scroll mirroring for comparison mode
//   - Automatic connection upgrade from HTTP
//   - Bounded per-connection send queues
//
// Message Types (Client → Server):
//   - scroll: Report a surface scroll offset
//   - interact: Bracket a camera gesture (phase: begin or end)
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - system: Connection greeting
//   - state: Engine state snapshot
//   - sync_scroll: Mirrored scroll offset for a surface
//   - pong: Keep-alive reply
//   - error: Error occurred
//
// Example Usage:
//
//	relay := ws.NewRelay(eng, metrics, log)
//	router.GET("/stream", relay.HandleConnection)
package ws
