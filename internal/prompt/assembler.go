// Package prompt builds the textual context sent to the local runtime.
package prompt

import (
	"strings"

	"chatd/pkg/types"
)

// DefaultWindow is the number of prior messages included in a prompt.
const DefaultWindow = 10

// Window returns the last n messages of history, oldest first. The result
// shares no backing array with history.
func Window(history []types.Message, n int) []types.Message {
	if n <= 0 || len(history) == 0 {
		return []types.Message{}
	}
	if len(history) > n {
		history = history[len(history)-n:]
	}
	out := make([]types.Message, len(history))
	copy(out, history)
	return out
}

// Assemble renders preamble, the last DefaultWindow messages of history and
// the new user message into a single prompt ending with an open assistant
// turn. It is pure: the same inputs always give the same output.
func Assemble(preamble string, history []types.Message, message string) string {
	var b strings.Builder
	b.WriteString("System: ")
	b.WriteString(preamble)
	b.WriteString("\n\n")
	for _, m := range Window(history, DefaultWindow) {
		b.WriteString(label(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	b.WriteString("User: ")
	b.WriteString(message)
	b.WriteString("\nAssistant: ")
	return b.String()
}

func label(r types.Role) string {
	if r == types.RoleUser {
		return "User"
	}
	return "Assistant"
}
