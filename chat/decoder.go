package chat

import (
	"encoding/json"
	"log/slog"
)

// maxFrameLogBytes caps how much of a malformed frame makes it into a log
// line.
const maxFrameLogBytes = 200

// decodeFrame maps one frame payload to a typed event. Malformed frames are
// logged and dropped; the stream continues. The second return value is false
// when the frame produced no event.
func decodeFrame(frame string, log *slog.Logger) (Event, bool) {
	if frame == "" {
		return Event{}, false
	}

	var env struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(frame), &env); err != nil {
		log.Warn("dropping malformed frame", "error", err, "frame", truncateFrame(frame))
		return Event{}, false
	}
	if env.Type == "" {
		log.Warn("dropping frame without event type", "frame", truncateFrame(frame))
		return Event{}, false
	}

	return Event{Kind: EventKind(env.Type), Payload: payloadString(env.Data)}, true
}

// payloadString flattens the data field. A JSON string becomes its text
// value; anything else passes through as raw JSON for the accumulator to
// interpret.
func payloadString(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	return string(data)
}

func truncateFrame(frame string) string {
	if len(frame) <= maxFrameLogBytes {
		return frame
	}
	return frame[:maxFrameLogBytes] + "..."
}
