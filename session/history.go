package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/zhubert/relay-core/paths"
)

// MaxHistoryLines is the maximum number of lines to keep in a persisted
// session transcript.
const MaxHistoryLines = 10000

// SaveHistory saves the transcript for a session (keeps the last maxLines
// lines of content). Pass maxLines <= 0 to keep everything.
func SaveHistory(sessionID string, messages []Message, maxLines int) error {
	dir, err := paths.SessionsDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// Keep only the last maxLines worth of content
	if maxLines > 0 && len(messages) > 0 {
		var totalLines int
		startIdx := len(messages)
		for i := len(messages) - 1; i >= 0; i-- {
			lines := countLines(messages[i].Content)
			if totalLines+lines > maxLines && startIdx < len(messages) {
				break
			}
			totalLines += lines
			startIdx = i
		}
		messages = messages[startIdx:]
	}

	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(dir, sessionID+".json")
	return os.WriteFile(path, data, 0644)
}

// LoadHistory loads the transcript for a session. A missing file yields an
// empty transcript, not an error.
func LoadHistory(sessionID string) ([]Message, error) {
	dir, err := paths.SessionsDir()
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, sessionID+".json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []Message{}, nil
	}
	if err != nil {
		return nil, err
	}

	var messages []Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}

// DeleteHistory deletes the transcript file for a session.
func DeleteHistory(sessionID string) error {
	dir, err := paths.SessionsDir()
	if err != nil {
		return err
	}

	path := filepath.Join(dir, sessionID+".json")
	err = os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// ClearAllHistory deletes all persisted transcripts.
// Returns the number of files deleted.
func ClearAllHistory() (int, error) {
	dir, err := paths.SessionsDir()
	if err != nil {
		return 0, err
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err == nil {
			deleted++
		}
	}
	return deleted, nil
}

// countLines counts the number of lines in a string
func countLines(s string) int {
	if s == "" {
		return 0
	}
	count := 1
	for _, c := range s {
		if c == '\n' {
			count++
		}
	}
	return count
}
