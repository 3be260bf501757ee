package chat

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	// MaxLiveOutput bounds the rolling tool output buffer, in characters.
	// Older output is discarded so the most recent MaxLiveOutput characters
	// are always retained.
	MaxLiveOutput = 5000

	// connectedStatusTTL is how long a bare connection acknowledgment stays
	// visible before clearing itself.
	connectedStatusTTL = 2 * time.Second

	connectedStatus = "connected"
)

// Turn accumulates the visible state of one in-flight assistant turn. All
// methods are safe for concurrent use.
type Turn struct {
	mu          sync.Mutex
	generation  int
	streaming   bool
	text        strings.Builder
	invocations []ToolInvocation
	seen        map[string]struct{}
	results     []ToolResult
	liveOutput  string
	status      string
	statusTimer *time.Timer
	usage       json.RawMessage
	log         *slog.Logger
}

// TurnSnapshot is a point-in-time copy of the accumulated turn state.
type TurnSnapshot struct {
	Streaming   bool
	Text        string
	Invocations []ToolInvocation
	Results     []ToolResult
	LiveOutput  string
	Status      string
	Usage       json.RawMessage
}

// FoldResult reports what folding one event changed, so callers can surface
// the change without re-reading the whole turn.
type FoldResult struct {
	Done          bool
	Text          string             // appended text, when non-empty
	Invocation    *ToolInvocation    // newly recorded invocation
	Result        *ToolResult        // newly recorded result
	Output        string             // appended live output
	Status        string             // new status text, valid when StatusChanged
	StatusChanged bool
	Permission    *PermissionRequest // decoded permission request, for the gate
}

// NewTurn returns an empty turn accumulator.
func NewTurn(log *slog.Logger) *Turn {
	return &Turn{
		seen: make(map[string]struct{}),
		log:  log,
	}
}

// Begin clears any previous state and marks the turn as streaming.
func (t *Turn) Begin() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
	t.streaming = true
}

// Reset returns the turn to its pristine non-streaming state. Any pending
// status timer is disarmed.
func (t *Turn) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
}

func (t *Turn) resetLocked() {
	t.generation++
	if t.statusTimer != nil {
		t.statusTimer.Stop()
		t.statusTimer = nil
	}
	t.streaming = false
	t.text.Reset()
	t.invocations = nil
	t.seen = make(map[string]struct{})
	t.results = nil
	t.liveOutput = ""
	t.status = ""
	t.usage = nil
}

// Streaming reports whether a turn is currently in flight.
func (t *Turn) Streaming() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.streaming
}

// Snapshot copies the current turn state.
func (t *Turn) Snapshot() TurnSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := TurnSnapshot{
		Streaming:  t.streaming,
		Text:       t.text.String(),
		LiveOutput: t.liveOutput,
		Status:     t.status,
		Usage:      t.usage,
	}
	snap.Invocations = append(snap.Invocations, t.invocations...)
	snap.Results = append(snap.Results, t.results...)
	return snap
}

// Fold applies one decoded event to the turn state and reports what changed.
// Payloads that fail to parse for their kind are logged and skipped; the
// turn is never corrupted by a bad payload.
func (t *Turn) Fold(ev Event) FoldResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch ev.Kind {
	case EventText:
		t.text.WriteString(ev.Payload)
		return FoldResult{Text: ev.Payload}

	case EventToolUse:
		return t.foldToolUse(ev.Payload)

	case EventToolResult:
		return t.foldToolResult(ev.Payload)

	case EventToolOutput:
		return t.foldToolOutput(ev.Payload)

	case EventStatus:
		return t.foldStatus(ev.Payload)

	case EventPermissionRequest:
		var req PermissionRequest
		if err := json.Unmarshal([]byte(ev.Payload), &req); err != nil || req.RequestID == "" {
			t.log.Warn("skipping unparseable permission request", "error", err)
			return FoldResult{}
		}
		return FoldResult{Permission: &req}

	case EventError:
		var ep errorPayload
		msg := ev.Payload
		if err := json.Unmarshal([]byte(ev.Payload), &ep); err == nil && ep.Message != "" {
			msg = ep.Message
		}
		annotation := fmt.Sprintf("\n\n[Error: %s]", msg)
		t.text.WriteString(annotation)
		return FoldResult{Text: annotation}

	case EventDone:
		var dp donePayload
		if err := json.Unmarshal([]byte(ev.Payload), &dp); err == nil && len(dp.Usage) > 0 {
			t.usage = dp.Usage
		}
		return FoldResult{Done: true}

	default:
		t.log.Debug("ignoring unknown event kind", "kind", ev.Kind)
		return FoldResult{}
	}
}

func (t *Turn) foldToolUse(payload string) FoldResult {
	var inv ToolInvocation
	if err := json.Unmarshal([]byte(payload), &inv); err != nil || inv.ID == "" {
		t.log.Warn("skipping unparseable tool invocation", "error", err)
		return FoldResult{}
	}
	if _, dup := t.seen[inv.ID]; dup {
		return FoldResult{}
	}
	t.seen[inv.ID] = struct{}{}
	t.invocations = append(t.invocations, inv)
	t.liveOutput = ""
	return FoldResult{Invocation: &inv}
}

func (t *Turn) foldToolResult(payload string) FoldResult {
	var res ToolResult
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		t.log.Warn("skipping unparseable tool result", "error", err)
		return FoldResult{}
	}
	t.results = append(t.results, res)
	t.liveOutput = ""
	return FoldResult{Result: &res}
}

func (t *Turn) foldToolOutput(payload string) FoldResult {
	var hb progressHeartbeat
	if err := json.Unmarshal([]byte(payload), &hb); err == nil && hb.Progress && hb.ToolName != "" {
		return t.setStatusLocked(fmt.Sprintf("running %s... (%ds)", hb.ToolName, int(hb.Elapsed)))
	}
	t.liveOutput += payload
	if len(t.liveOutput) > MaxLiveOutput {
		runes := []rune(t.liveOutput)
		if len(runes) > MaxLiveOutput {
			t.liveOutput = string(runes[len(runes)-MaxLiveOutput:])
		}
	}
	return FoldResult{Output: payload}
}

func (t *Turn) foldStatus(payload string) FoldResult {
	var sp statusPayload
	if err := json.Unmarshal([]byte(payload), &sp); err != nil {
		return t.setStatusLocked(payload)
	}
	switch {
	case sp.SessionID != "":
		return t.markConnectedLocked()
	case sp.Notification != nil && sp.Notification.Message != "":
		return t.setStatusLocked(sp.Notification.Message)
	case sp.Notification != nil:
		return t.setStatusLocked(sp.Notification.Title)
	default:
		return t.setStatusLocked(payload)
	}
}

func (t *Turn) setStatusLocked(status string) FoldResult {
	if t.statusTimer != nil {
		t.statusTimer.Stop()
		t.statusTimer = nil
	}
	t.status = status
	return FoldResult{Status: status, StatusChanged: true}
}

// markConnectedLocked sets a transient connection acknowledgment that clears
// itself after connectedStatusTTL unless replaced or the turn resets first.
func (t *Turn) markConnectedLocked() FoldResult {
	res := t.setStatusLocked(connectedStatus)
	gen := t.generation
	t.statusTimer = time.AfterFunc(connectedStatusTTL, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.generation == gen && t.status == connectedStatus {
			t.status = ""
		}
	})
	return res
}

// SetUsage records opaque token accounting for the turn.
func (t *Turn) SetUsage(usage json.RawMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usage = usage
}
