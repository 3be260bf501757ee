package chat

import (
	"bytes"
	"strings"
)

// framePrefix marks lines that carry a protocol frame. Lines without it
// (blank keep-alives, comments) are discarded.
const framePrefix = "data:"

// Framer reassembles the raw byte stream into complete protocol frames.
// Network reads can split the stream at arbitrary byte boundaries, so a
// partial trailing line is held back until its terminating newline arrives.
// The zero value is ready to use. Framer is not safe for concurrent use.
type Framer struct {
	partial []byte
}

// Push appends a chunk of stream bytes and returns the payloads of every
// frame completed by this chunk, in order. A frame is never returned before
// its terminating line boundary has been observed.
func (f *Framer) Push(chunk []byte) []string {
	f.partial = append(f.partial, chunk...)

	var frames []string
	for {
		idx := bytes.IndexByte(f.partial, '\n')
		if idx < 0 {
			break
		}
		line := f.partial[:idx]
		f.partial = f.partial[idx+1:]
		if payload, ok := extractFrame(line); ok {
			frames = append(frames, payload)
		}
	}
	return frames
}

// Flush drains any held-back trailing line. Call it once at end of stream,
// where the end itself terminates the final line.
func (f *Framer) Flush() (string, bool) {
	if len(f.partial) == 0 {
		return "", false
	}
	line := f.partial
	f.partial = nil
	return extractFrame(line)
}

// extractFrame returns the payload of a single line, or false for blank
// lines, comments, and lines without the frame marker.
func extractFrame(line []byte) (string, bool) {
	s := strings.TrimRight(string(line), "\r")
	if s == "" || strings.HasPrefix(s, ":") {
		return "", false
	}
	if !strings.HasPrefix(s, framePrefix) {
		return "", false
	}
	payload := strings.TrimPrefix(s, framePrefix)
	payload = strings.TrimPrefix(payload, " ")
	return payload, true
}
