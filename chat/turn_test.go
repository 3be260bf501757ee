package chat

import (
	"strings"
	"testing"
	"time"
)

func newTestTurn(t *testing.T) *Turn {
	t.Helper()
	turn := NewTurn(testLog())
	turn.Begin()
	return turn
}

func TestTurn_TextAccumulates(t *testing.T) {
	turn := newTestTurn(t)

	res := turn.Fold(Event{Kind: EventText, Payload: "Hello "})
	if res.Text != "Hello " {
		t.Errorf("expected text delta 'Hello ', got %q", res.Text)
	}
	turn.Fold(Event{Kind: EventText, Payload: "world"})

	if got := turn.Snapshot().Text; got != "Hello world" {
		t.Errorf("expected 'Hello world', got %q", got)
	}
}

func TestTurn_ToolUseDeduped(t *testing.T) {
	turn := newTestTurn(t)

	res := turn.Fold(Event{Kind: EventToolUse, Payload: `{"id":"t1","name":"bash"}`})
	if res.Invocation == nil || res.Invocation.ID != "t1" {
		t.Fatalf("expected new invocation t1, got %+v", res.Invocation)
	}

	// Same id again is a no-op.
	res = turn.Fold(Event{Kind: EventToolUse, Payload: `{"id":"t1","name":"bash"}`})
	if res.Invocation != nil {
		t.Error("duplicate invocation should not be recorded again")
	}

	turn.Fold(Event{Kind: EventToolUse, Payload: `{"id":"t2","name":"read"}`})

	snap := turn.Snapshot()
	if len(snap.Invocations) != 2 {
		t.Fatalf("expected 2 invocations, got %d", len(snap.Invocations))
	}
	if snap.Invocations[0].ID != "t1" || snap.Invocations[1].ID != "t2" {
		t.Errorf("invocation order wrong: %+v", snap.Invocations)
	}
}

func TestTurn_ToolUseMalformedSkipped(t *testing.T) {
	turn := newTestTurn(t)

	if res := turn.Fold(Event{Kind: EventToolUse, Payload: `{"id":`}); res.Invocation != nil {
		t.Error("malformed tool payload should be skipped")
	}
	if res := turn.Fold(Event{Kind: EventToolUse, Payload: `{"name":"bash"}`}); res.Invocation != nil {
		t.Error("tool payload without an id should be skipped")
	}
	if n := len(turn.Snapshot().Invocations); n != 0 {
		t.Errorf("expected no invocations, got %d", n)
	}
}

func TestTurn_ToolEventsClearLiveOutput(t *testing.T) {
	turn := newTestTurn(t)

	turn.Fold(Event{Kind: EventToolOutput, Payload: "building..."})
	if turn.Snapshot().LiveOutput != "building..." {
		t.Fatal("expected live output to accumulate")
	}

	turn.Fold(Event{Kind: EventToolUse, Payload: `{"id":"t1","name":"bash"}`})
	if turn.Snapshot().LiveOutput != "" {
		t.Error("new invocation should clear live output")
	}

	turn.Fold(Event{Kind: EventToolOutput, Payload: "more output"})
	turn.Fold(Event{Kind: EventToolResult, Payload: `{"invocationId":"t1","content":"done"}`})

	snap := turn.Snapshot()
	if snap.LiveOutput != "" {
		t.Error("tool result should clear live output")
	}
	if len(snap.Results) != 1 || snap.Results[0].InvocationID != "t1" {
		t.Errorf("expected one result for t1, got %+v", snap.Results)
	}
}

func TestTurn_ResultWithUnknownInvocationStillRecorded(t *testing.T) {
	turn := newTestTurn(t)

	res := turn.Fold(Event{Kind: EventToolResult, Payload: `{"invocationId":"ghost"}`})
	if res.Result == nil {
		t.Fatal("results are appended even without a matching invocation")
	}
	if len(turn.Snapshot().Results) != 1 {
		t.Error("expected the orphan result to be recorded")
	}
}

func TestTurn_LiveOutputBounded(t *testing.T) {
	turn := newTestTurn(t)

	turn.Fold(Event{Kind: EventToolOutput, Payload: strings.Repeat("a", 3000)})
	turn.Fold(Event{Kind: EventToolOutput, Payload: strings.Repeat("b", 3000)})

	out := turn.Snapshot().LiveOutput
	if len(out) != MaxLiveOutput {
		t.Fatalf("expected %d chars, got %d", MaxLiveOutput, len(out))
	}
	want := strings.Repeat("a", 2000) + strings.Repeat("b", 3000)
	if out != want {
		t.Error("expected the most recent output to be retained")
	}
}

func TestTurn_HeartbeatBecomesStatus(t *testing.T) {
	turn := newTestTurn(t)

	turn.Fold(Event{Kind: EventToolOutput, Payload: "raw line\n"})
	res := turn.Fold(Event{Kind: EventToolOutput, Payload: `{"_progress":true,"tool_name":"bash","elapsed_time_seconds":7.3}`})

	if !res.StatusChanged || res.Status != "running bash... (7s)" {
		t.Errorf("expected heartbeat status, got %+v", res)
	}
	snap := turn.Snapshot()
	if snap.LiveOutput != "raw line\n" {
		t.Error("heartbeat should not touch the live output buffer")
	}
}

func TestTurn_StatusForms(t *testing.T) {
	turn := newTestTurn(t)

	res := turn.Fold(Event{Kind: EventStatus, Payload: "thinking"})
	if res.Status != "thinking" {
		t.Errorf("literal status expected, got %q", res.Status)
	}

	res = turn.Fold(Event{Kind: EventStatus, Payload: `{"notification":{"title":"Build","message":"compiling"}}`})
	if res.Status != "compiling" {
		t.Errorf("notification message expected, got %q", res.Status)
	}

	res = turn.Fold(Event{Kind: EventStatus, Payload: `{"notification":{"title":"Build"}}`})
	if res.Status != "Build" {
		t.Errorf("notification title expected, got %q", res.Status)
	}
}

func TestTurn_ConnectedStatusSelfClears(t *testing.T) {
	turn := newTestTurn(t)

	res := turn.Fold(Event{Kind: EventStatus, Payload: `{"session_id":"abc"}`})
	if res.Status != connectedStatus {
		t.Fatalf("expected connected status, got %q", res.Status)
	}

	time.Sleep(connectedStatusTTL + 300*time.Millisecond)

	if got := turn.Snapshot().Status; got != "" {
		t.Errorf("connected status should have cleared, got %q", got)
	}
}

func TestTurn_ReplacedStatusSurvivesTimer(t *testing.T) {
	turn := newTestTurn(t)

	turn.Fold(Event{Kind: EventStatus, Payload: `{"session_id":"abc"}`})
	turn.Fold(Event{Kind: EventStatus, Payload: "working"})

	time.Sleep(connectedStatusTTL + 300*time.Millisecond)

	if got := turn.Snapshot().Status; got != "working" {
		t.Errorf("replaced status should not be cleared by the stale timer, got %q", got)
	}
}

func TestTurn_ResetDisarmsStatusTimer(t *testing.T) {
	turn := newTestTurn(t)

	turn.Fold(Event{Kind: EventStatus, Payload: `{"session_id":"abc"}`})
	turn.Begin()
	turn.Fold(Event{Kind: EventStatus, Payload: "next turn"})

	time.Sleep(connectedStatusTTL + 300*time.Millisecond)

	if got := turn.Snapshot().Status; got != "next turn" {
		t.Errorf("timer from a previous turn must not clear the new turn's status, got %q", got)
	}
}

func TestTurn_ErrorAppendsAnnotation(t *testing.T) {
	turn := newTestTurn(t)

	turn.Fold(Event{Kind: EventText, Payload: "partial answer"})
	turn.Fold(Event{Kind: EventError, Payload: `{"message":"boom"}`})

	text := turn.Snapshot().Text
	if !strings.HasPrefix(text, "partial answer") {
		t.Errorf("accumulated text lost: %q", text)
	}
	if !strings.HasSuffix(text, "[Error: boom]") {
		t.Errorf("expected error annotation, got %q", text)
	}
}

func TestTurn_ErrorRawPayload(t *testing.T) {
	turn := newTestTurn(t)

	turn.Fold(Event{Kind: EventError, Payload: "connection reset"})

	if text := turn.Snapshot().Text; !strings.HasSuffix(text, "[Error: connection reset]") {
		t.Errorf("raw error payload should be used verbatim, got %q", text)
	}
}

func TestTurn_DoneCapturesUsage(t *testing.T) {
	turn := newTestTurn(t)

	res := turn.Fold(Event{Kind: EventDone, Payload: `{"usage":{"input_tokens":10,"output_tokens":25}}`})
	if !res.Done {
		t.Fatal("expected done")
	}
	if string(turn.Snapshot().Usage) != `{"input_tokens":10,"output_tokens":25}` {
		t.Errorf("usage not captured: %s", turn.Snapshot().Usage)
	}
}

func TestTurn_PermissionRequestLeavesStateUntouched(t *testing.T) {
	turn := newTestTurn(t)
	turn.Fold(Event{Kind: EventText, Payload: "so far"})

	res := turn.Fold(Event{Kind: EventPermissionRequest, Payload: `{"requestId":"p1","tool":"bash"}`})
	if res.Permission == nil || res.Permission.RequestID != "p1" {
		t.Fatalf("expected decoded permission request, got %+v", res.Permission)
	}
	if turn.Snapshot().Text != "so far" {
		t.Error("permission request must not mutate turn state")
	}
}

func TestTurn_BeginClearsEverything(t *testing.T) {
	turn := newTestTurn(t)
	turn.Fold(Event{Kind: EventText, Payload: "old"})
	turn.Fold(Event{Kind: EventToolUse, Payload: `{"id":"t1","name":"bash"}`})
	turn.Fold(Event{Kind: EventToolOutput, Payload: "noise"})

	turn.Begin()

	snap := turn.Snapshot()
	if snap.Text != "" || len(snap.Invocations) != 0 || snap.LiveOutput != "" || snap.Status != "" {
		t.Errorf("expected pristine turn, got %+v", snap)
	}
	if !snap.Streaming {
		t.Error("Begin should mark the turn streaming")
	}

	// The dedupe set must reset too.
	if res := turn.Fold(Event{Kind: EventToolUse, Payload: `{"id":"t1","name":"bash"}`}); res.Invocation == nil {
		t.Error("ids from a previous turn must not suppress new invocations")
	}
}
