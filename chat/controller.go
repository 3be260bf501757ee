package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/zhubert/relay-core/logger"
	"github.com/zhubert/relay-core/session"
)

const (
	// UpdateChannelBufferSize buffers turn updates so stream reading is not
	// blocked by a slow consumer.
	UpdateChannelBufferSize = 100

	// UpdateChannelFullTimeout is how long an update delivery may block
	// before it is dropped. Dropped updates only lose a live notification;
	// the state they describe is still in the turn snapshot.
	UpdateChannelFullTimeout = 10 * time.Second

	// streamReadBufferSize is the read chunk size for the turn stream.
	streamReadBufferSize = 4096

	// stoppedAnnotation is appended to the committed text when a turn is
	// canceled mid-stream.
	stoppedAnnotation = "(stopped)"
)

var (
	// ErrTurnActive is returned by Send while a previous turn is still
	// streaming.
	ErrTurnActive = errors.New("a turn is already streaming")

	// ErrNoPendingPermission is returned by ResolvePermission when the gate
	// is idle.
	ErrNoPendingPermission = errors.New("no permission request is pending")

	errChannelFull = errors.New("update channel full")
)

// UpdateType identifies what an Update carries.
type UpdateType string

const (
	UpdateText       UpdateType = "text"
	UpdateToolUse    UpdateType = "tool_use"
	UpdateToolResult UpdateType = "tool_result"
	UpdateOutput     UpdateType = "tool_output"
	UpdateStatus     UpdateType = "status"
	UpdatePermission UpdateType = "permission"
)

// Update is one live notification from an in-flight turn. The channel closes
// after the Done update, which carries the committed assistant message when
// the turn produced one.
type Update struct {
	Type       UpdateType
	Text       string             // text delta, status text, or output delta
	Invocation *ToolInvocation    // for tool_use updates
	Result     *ToolResult        // for tool_result updates
	Permission *PermissionRequest // for permission updates
	Message    *session.Message   // committed assistant message, on Done
	Done       bool
}

// Controller owns the chat state for one session: the committed message
// list, the in-flight turn, and the permission gate. All methods are safe
// for concurrent use.
type Controller struct {
	sessionID string
	client    *Client
	turn      *Turn
	gate      *PermissionGate
	log       *slog.Logger

	mu           sync.Mutex
	messages     []session.Message
	mode         string
	model        string
	historyLimit int
	streaming    bool
	cancel       context.CancelFunc
}

// NewController creates a controller for sessionID backed by client.
// Previously persisted history for the session is loaded if present.
func NewController(sessionID string, client *Client) *Controller {
	log := logger.WithSession(sessionID).With("component", "chat")

	messages, err := session.LoadHistory(sessionID)
	if err != nil {
		log.Warn("failed to load session history", "error", err)
	}

	return &Controller{
		sessionID:    sessionID,
		client:       client,
		turn:         NewTurn(log),
		gate:         NewPermissionGate(log),
		log:          log,
		messages:     messages,
		historyLimit: session.MaxHistoryLines,
	}
}

// SetHistoryLimit caps how many transcript lines are persisted per session.
func (c *Controller) SetHistoryLimit(lines int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if lines > 0 {
		c.historyLimit = lines
	}
}

// SessionID returns the session this controller drives.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// Messages returns a copy of the committed message list.
func (c *Controller) Messages() []session.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]session.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Turn returns a snapshot of the in-flight turn state.
func (c *Controller) Turn() TurnSnapshot {
	return c.turn.Snapshot()
}

// Streaming reports whether a turn is currently in flight.
func (c *Controller) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

// PendingPermission returns the permission request awaiting a decision, if
// any.
func (c *Controller) PendingPermission() (PermissionRequest, bool) {
	return c.gate.Pending()
}

// SetMode records the session mode and pushes it to the backend without
// waiting. A failed push only logs; the local value stands.
func (c *Controller) SetMode(mode string) {
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
	c.patchSession(SessionPatch{Mode: &mode})
}

// SetModel records the model and pushes it to the backend without waiting.
func (c *Controller) SetModel(model string) {
	c.mu.Lock()
	c.model = model
	c.mu.Unlock()
	c.patchSession(SessionPatch{Model: &model})
}

func (c *Controller) patchSession(patch SessionPatch) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.client.UpdateSession(ctx, c.sessionID, patch); err != nil {
			c.log.Warn("session patch not delivered", "error", err)
		}
	}()
}

// Commands fetches the backend's advertised command palette. The result is
// advisory: it never gates what Send will forward.
func (c *Controller) Commands(ctx context.Context) ([]CommandInfo, error) {
	return c.client.ListCommands(ctx)
}

// Send starts a new turn with the given content and streams updates on the
// returned channel. Local directives resolve immediately without touching
// the network. Send fails with ErrTurnActive while a turn is streaming.
func (c *Controller) Send(ctx context.Context, content string) (<-chan Update, error) {
	trimmed := strings.TrimSpace(content)

	switch parseDirective(trimmed) {
	case directiveClear:
		return c.runClear()
	case directiveHelp:
		return c.runHelp()
	}

	c.mu.Lock()
	if c.streaming {
		c.mu.Unlock()
		return nil, ErrTurnActive
	}
	turnCtx, cancel := context.WithCancel(ctx)
	c.streaming = true
	c.cancel = cancel
	c.messages = append(c.messages, session.NewMessage(c.sessionID, session.RoleUser, trimmed))
	mode, model := c.mode, c.model
	c.mu.Unlock()

	c.turn.Begin()

	ch := make(chan Update, UpdateChannelBufferSize)
	go c.runTurn(turnCtx, cancel, trimmed, mode, model, ch)
	return ch, nil
}

// Cancel aborts the in-flight turn, if any. The partial turn text is
// committed with a stopped annotation, and the controller is immediately
// ready for the next Send once the update channel closes.
func (c *Controller) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		c.log.Debug("canceling turn")
		cancel()
	}
}

// ResolvePermission answers the pending permission request. The gate goes
// idle before the decision is sent, on the optimistic assumption that
// delivery succeeds; if it does not, the backend's own decision timeout
// recovers the stream.
func (c *Controller) ResolvePermission(ctx context.Context, choice PermissionChoice) error {
	req, ok := c.gate.Resolve()
	if !ok {
		return ErrNoPendingPermission
	}

	decision := decisionFor(choice, req)
	c.log.Debug("resolving permission request", "request_id", req.RequestID, "behavior", decision.Behavior)
	if err := c.client.SendPermissionDecision(ctx, req.RequestID, decision); err != nil {
		c.log.Warn("permission decision not delivered, relying on backend timeout",
			"request_id", req.RequestID, "error", err)
	}
	return nil
}

// runTurn drives one streamed turn to completion. Every exit path runs the
// same cleanup: gate and turn reset, streaming cleared, channel closed.
func (c *Controller) runTurn(ctx context.Context, cancel context.CancelFunc, content, mode, model string, ch chan Update) {
	var final *session.Message

	defer func() {
		c.gate.Reset()
		c.turn.Reset()
		c.mu.Lock()
		c.streaming = false
		c.cancel = nil
		c.mu.Unlock()
		cancel()
		c.sendUpdate(ch, Update{Done: true, Message: final})
		close(ch)
	}()

	body, err := c.client.StreamTurn(ctx, TurnRequest{
		SessionID: c.sessionID,
		Content:   content,
		Mode:      mode,
		Model:     model,
	})
	if err != nil {
		if ctx.Err() != nil {
			final = c.commitStopped()
			return
		}
		c.log.Error("turn stream failed to open", "error", err)
		final = c.commitError(err)
		return
	}
	defer body.Close()

	// Raw frames go to the per-session stream log for protocol debugging.
	var stream io.Reader = body
	if path, err := logger.StreamLogPath(c.sessionID); err == nil {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			defer f.Close()
			stream = io.TeeReader(body, f)
		}
	}

	readErr := c.consume(ctx, stream, ch)
	switch {
	case ctx.Err() != nil:
		final = c.commitStopped()
	case readErr != nil:
		c.log.Error("turn stream broke mid-read", "error", readErr)
		final = c.commitError(readErr)
	default:
		final = c.commitFinal()
	}
}

// consume reads the stream until a done event, end of stream, or error.
func (c *Controller) consume(ctx context.Context, body io.Reader, ch chan Update) error {
	framer := &Framer{}
	buf := make([]byte, streamReadBufferSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			for _, frame := range framer.Push(buf[:n]) {
				if c.fold(frame, ch) {
					return nil
				}
			}
		}
		if err == io.EOF {
			if frame, ok := framer.Flush(); ok {
				c.fold(frame, ch)
			}
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}

// fold decodes one frame, applies it to the turn, routes permission requests
// to the gate, and mirrors the change onto the update channel. It reports
// whether the frame completed the turn.
func (c *Controller) fold(frame string, ch chan Update) bool {
	ev, ok := decodeFrame(frame, c.log)
	if !ok {
		return false
	}

	res := c.turn.Fold(ev)
	switch {
	case res.Done:
		return true
	case res.Permission != nil:
		if c.gate.Publish(*res.Permission) {
			c.sendUpdate(ch, Update{Type: UpdatePermission, Permission: res.Permission})
		}
	case res.Invocation != nil:
		c.sendUpdate(ch, Update{Type: UpdateToolUse, Invocation: res.Invocation})
	case res.Result != nil:
		c.sendUpdate(ch, Update{Type: UpdateToolResult, Result: res.Result})
	case res.Text != "":
		c.sendUpdate(ch, Update{Type: UpdateText, Text: res.Text})
	case res.Output != "":
		c.sendUpdate(ch, Update{Type: UpdateOutput, Text: res.Output})
	case res.StatusChanged:
		c.sendUpdate(ch, Update{Type: UpdateStatus, Text: res.Status})
	}
	return false
}

// commitFinal turns the accumulated text into the assistant message for a
// cleanly finished turn. Turns that produced no text commit nothing.
func (c *Controller) commitFinal() *session.Message {
	snap := c.turn.Snapshot()
	if snap.Text == "" {
		return nil
	}
	msg := session.NewMessage(c.sessionID, session.RoleAssistant, snap.Text)
	msg.TokenUsage = snap.Usage
	c.appendAndPersist(msg)
	return &msg
}

// commitStopped commits whatever text accumulated before cancellation,
// annotated so the transcript shows the turn was stopped early.
func (c *Controller) commitStopped() *session.Message {
	snap := c.turn.Snapshot()
	if snap.Text == "" {
		return nil
	}
	msg := session.NewMessage(c.sessionID, session.RoleAssistant, snap.Text+"\n\n"+stoppedAnnotation)
	msg.TokenUsage = snap.Usage
	c.appendAndPersist(msg)
	return &msg
}

// commitError surfaces a transport failure as an inline assistant message so
// the transcript records what happened.
func (c *Controller) commitError(err error) *session.Message {
	snap := c.turn.Snapshot()
	content := fmt.Sprintf("[Error: %v]", err)
	if snap.Text != "" {
		content = snap.Text + "\n\n" + content
	}
	msg := session.NewMessage(c.sessionID, session.RoleAssistant, content)
	c.appendAndPersist(msg)
	return &msg
}

func (c *Controller) appendAndPersist(msg session.Message) {
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	snapshot := make([]session.Message, len(c.messages))
	copy(snapshot, c.messages)
	limit := c.historyLimit
	c.mu.Unlock()

	if err := session.SaveHistory(c.sessionID, snapshot, limit); err != nil {
		c.log.Warn("failed to persist session history", "error", err)
	}
}

// runClear drops the local transcript. The backend session and its context
// window are untouched.
func (c *Controller) runClear() (<-chan Update, error) {
	c.mu.Lock()
	c.messages = nil
	c.mu.Unlock()

	if err := session.DeleteHistory(c.sessionID); err != nil {
		c.log.Warn("failed to delete session history", "error", err)
	}
	c.log.Debug("cleared local transcript")

	ch := make(chan Update, 1)
	ch <- Update{Done: true}
	close(ch)
	return ch, nil
}

// runHelp commits a static assistant message describing local commands.
func (c *Controller) runHelp() (<-chan Update, error) {
	msg := session.NewMessage(c.sessionID, session.RoleAssistant, helpText)
	c.appendAndPersist(msg)

	ch := make(chan Update, 2)
	ch <- Update{Type: UpdateText, Text: helpText}
	ch <- Update{Done: true, Message: &msg}
	close(ch)
	return ch, nil
}

func (c *Controller) sendUpdate(ch chan Update, update Update) error {
	select {
	case ch <- update:
		return nil
	case <-time.After(UpdateChannelFullTimeout):
		c.log.Error("update channel full, dropping update", "type", update.Type)
		return errChannelFull
	}
}
