package chat

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// PermissionDeniedMessage travels with every deny decision so the backend
// can surface why the tool call was refused.
const PermissionDeniedMessage = "The user denied this permission request."

// PermissionRequest is the backend asking for approval before running a
// tool. Suggestions is an opaque pre-approval payload echoed back verbatim
// when the user allows for the rest of the session.
type PermissionRequest struct {
	RequestID   string          `json:"requestId"`
	Tool        string          `json:"tool,omitempty"`
	Description string          `json:"description,omitempty"`
	Suggestions json.RawMessage `json:"suggestions,omitempty"`
}

// PermissionBehavior is the wire value of a permission decision.
type PermissionBehavior string

const (
	PermissionAllow PermissionBehavior = "allow"
	PermissionDeny  PermissionBehavior = "deny"
)

// PermissionDecision is the body of a decision sent back to the backend.
type PermissionDecision struct {
	Behavior           PermissionBehavior `json:"behavior"`
	UpdatedPermissions json.RawMessage    `json:"updatedPermissions,omitempty"`
	Message            string             `json:"message,omitempty"`
}

// PermissionChoice is how the user answered a pending request.
type PermissionChoice int

const (
	// ChoiceAllow approves this one invocation.
	ChoiceAllow PermissionChoice = iota
	// ChoiceAllowForSession approves the invocation and echoes the request's
	// suggested permission updates so the backend stops asking.
	ChoiceAllowForSession
	// ChoiceDeny refuses the invocation.
	ChoiceDeny
)

// decisionFor builds the wire decision for a choice against a request.
func decisionFor(choice PermissionChoice, req PermissionRequest) PermissionDecision {
	switch choice {
	case ChoiceAllowForSession:
		return PermissionDecision{Behavior: PermissionAllow, UpdatedPermissions: req.Suggestions}
	case ChoiceDeny:
		return PermissionDecision{Behavior: PermissionDeny, Message: PermissionDeniedMessage}
	default:
		return PermissionDecision{Behavior: PermissionAllow}
	}
}

// PermissionGate holds at most one pending permission request. Publishing a
// second request while one is pending rejects the newcomer, which the
// backend recovers from via its own decision timeout.
type PermissionGate struct {
	mu      sync.Mutex
	pending *PermissionRequest
	log     *slog.Logger
}

// NewPermissionGate returns a gate in the idle state.
func NewPermissionGate(log *slog.Logger) *PermissionGate {
	return &PermissionGate{log: log}
}

// Publish moves the gate from idle to pending. It reports false, without
// replacing the pending request, when one is already waiting.
func (g *PermissionGate) Publish(req PermissionRequest) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending != nil {
		g.log.Warn("dropping permission request while another is pending",
			"pending_id", g.pending.RequestID, "dropped_id", req.RequestID)
		return false
	}
	r := req
	g.pending = &r
	return true
}

// Pending returns a copy of the waiting request, if any.
func (g *PermissionGate) Pending() (PermissionRequest, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return PermissionRequest{}, false
	}
	return *g.pending, true
}

// Resolve takes the pending request and returns the gate to idle. The
// transition happens immediately so the stream is unblocked even if the
// decision later fails to reach the backend.
func (g *PermissionGate) Resolve() (PermissionRequest, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return PermissionRequest{}, false
	}
	req := *g.pending
	g.pending = nil
	return req, true
}

// Reset discards any pending request.
func (g *PermissionGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = nil
}
