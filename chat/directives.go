package chat

import "strings"

// directive identifies inputs handled locally without contacting the
// backend.
type directive int

const (
	directiveNone directive = iota
	directiveClear
	directiveHelp
)

const helpText = `Local commands:
  /clear  Forget the conversation history shown here. The backend session
          and its context are unaffected.
  /help   Show this message.

Anything else is sent to the assistant. Slash commands the backend
advertises are forwarded as-is.`

// parseDirective recognizes local commands. Matching is exact after
// trimming surrounding whitespace, so "/clear the table" goes to the
// backend like any other message.
func parseDirective(content string) directive {
	switch strings.TrimSpace(content) {
	case "/clear":
		return directiveClear
	case "/help":
		return directiveHelp
	default:
		return directiveNone
	}
}
