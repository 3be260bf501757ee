package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBodyBytes caps how much of a failed response body is read for the
// error message.
const maxErrorBodyBytes = 1024

// Client talks to the assistant backend over HTTP. The zero value is not
// usable; construct with NewClient.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client for the backend at baseURL. No request timeout
// is set because turn streams stay open for as long as the model works;
// callers bound requests with their context instead.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// TurnRequest is the body of a streamed turn request.
type TurnRequest struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
	Mode      string `json:"mode,omitempty"`
	Model     string `json:"model,omitempty"`
}

// SessionPatch carries partial session metadata updates. Nil fields are
// omitted from the wire body.
type SessionPatch struct {
	Mode             *string `json:"mode,omitempty"`
	Model            *string `json:"model,omitempty"`
	WorkingDirectory *string `json:"working_directory,omitempty"`
}

// CommandInfo describes one backend-advertised command.
type CommandInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// StreamTurn opens a turn stream. The caller owns the returned body and must
// close it. Canceling ctx tears the stream down mid-read.
func (c *Client) StreamTurn(ctx context.Context, turn TurnRequest) (io.ReadCloser, error) {
	body, err := json.Marshal(turn)
	if err != nil {
		return nil, fmt.Errorf("failed to encode turn request: %w", err)
	}

	url := fmt.Sprintf("%s/sessions/%s/messages", c.baseURL, turn.SessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create turn request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open turn stream: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("turn request failed: %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}
	return resp.Body, nil
}

// SendPermissionDecision delivers the user's answer to a permission request.
func (c *Client) SendPermissionDecision(ctx context.Context, requestID string, decision PermissionDecision) error {
	payload := struct {
		PermissionRequestID string             `json:"permissionRequestId"`
		Decision            PermissionDecision `json:"decision"`
	}{requestID, decision}

	return c.post(ctx, c.baseURL+"/permissions/decision", payload)
}

// UpdateSession patches session metadata. The backend applies what it can;
// there is no payload to read back.
func (c *Client) UpdateSession(ctx context.Context, sessionID string, patch SessionPatch) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to encode session patch: %w", err)
	}

	url := fmt.Sprintf("%s/sessions/%s", c.baseURL, sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create session patch: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to patch session: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("session patch failed: %s", resp.Status)
	}
	return nil
}

// ListCommands fetches the backend's advertised command palette. The list is
// advisory only; unknown commands are still sent as ordinary content.
func (c *Client) ListCommands(ctx context.Context) ([]CommandInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/commands", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create commands request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list commands: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("commands request failed: %s", resp.Status)
	}

	var payload struct {
		Commands []CommandInfo `json:"commands"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode commands: %w", err)
	}
	return payload.Commands, nil
}

func (c *Client) post(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("request failed: %s", resp.Status)
	}
	return nil
}
