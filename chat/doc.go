// Package chat drives a single chat turn against the assistant backend.
//
// The package is organized into focused modules:
//   - controller.go: Controller struct orchestrating one streamed turn
//   - client.go: HTTP transport (streamed turns, permission side-channel,
//     session metadata, command palette)
//   - framer.go: chunk-to-frame decoding of the wire stream
//   - decoder.go: frame-to-event decoding
//   - events.go: protocol event and payload types
//   - turn.go: per-turn accumulated state and event folding
//   - gate.go: the permission request/decision state machine
//   - directives.go: locally-handled inputs that bypass the network
package chat
