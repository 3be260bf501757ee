package chat

import "encoding/json"

// EventKind identifies the protocol event carried by a frame.
type EventKind string

const (
	EventText              EventKind = "text"
	EventToolUse           EventKind = "tool_use"
	EventToolResult        EventKind = "tool_result"
	EventToolOutput        EventKind = "tool_output"
	EventStatus            EventKind = "status"
	EventPermissionRequest EventKind = "permission_request"
	EventError             EventKind = "error"
	EventDone              EventKind = "done"
)

// Event is one decoded protocol event. Payload is the event's data field,
// left unparsed: depending on the kind it is raw text or further JSON, and
// interpreting it is the accumulator's job.
type Event struct {
	Kind    EventKind
	Payload string
}

// ToolInvocation records one tool call announced by the backend.
type ToolInvocation struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input,omitempty"`
}

// ToolResult records the completion of a tool invocation.
type ToolResult struct {
	InvocationID string          `json:"invocationId"`
	Content      json.RawMessage `json:"content,omitempty"`
}

// progressHeartbeat is the periodic liveness payload emitted on the
// tool_output channel while a long-running tool executes.
type progressHeartbeat struct {
	Progress bool    `json:"_progress"`
	ToolName string  `json:"tool_name"`
	Elapsed  float64 `json:"elapsed_time_seconds"`
}

// statusPayload is the structured form of a status event. Events that fail
// to parse into it are treated as literal status text.
type statusPayload struct {
	SessionID    string `json:"session_id"`
	Notification *struct {
		Title   string `json:"title"`
		Message string `json:"message"`
	} `json:"notification"`
}

// errorPayload is the structured form of an error event.
type errorPayload struct {
	Message string `json:"message"`
}

// donePayload optionally carries token accounting for the finished turn.
type donePayload struct {
	Usage json.RawMessage `json:"usage"`
}
