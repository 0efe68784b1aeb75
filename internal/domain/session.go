package domain

import (
	"fmt"
	"strings"
)

// Session is the ordered conversation history for one connection.
// Insertion order is significant: it is the model's context.
//
// The unsafe flag is sticky. Once set it is never cleared, and every
// later classification for the session must come back Unsafe.
type Session struct {
	Turns  []Turn
	unsafe bool
}

// NewSession creates a session from an ordered list of turns. If any
// assistant turn carries the fixed refusal message, the session starts
// out unsafe: a client resending edited history cannot launder a
// conversation that was already refused.
func NewSession(turns []Turn) *Session {
	s := &Session{Turns: turns}
	for _, t := range turns {
		if t.Role == RoleAssistant && strings.TrimSpace(t.Text) == RefusalMessage {
			s.unsafe = true
			break
		}
	}
	return s
}

// Append adds a turn to the end of the session.
func (s *Session) Append(t Turn) {
	s.Turns = append(s.Turns, t)
}

// Latest returns the most recent turn, or false when the session is empty.
func (s *Session) Latest() (Turn, bool) {
	if len(s.Turns) == 0 {
		return Turn{}, false
	}
	return s.Turns[len(s.Turns)-1], true
}

// Unsafe reports whether the session has been marked unsafe.
func (s *Session) Unsafe() bool {
	return s.unsafe
}

// MarkUnsafe sets the sticky unsafe flag. There is no way to clear it.
func (s *Session) MarkUnsafe() {
	s.unsafe = true
}

// Combine merges a fresh classification with the session's sticky flag
// and returns the effective category. The combination is a monotonic OR:
// an unsafe session forces Unsafe no matter what the classifier said,
// and an Unsafe classification marks the session for all future turns.
func (s *Session) Combine(c Classification) Category {
	if c.Category == CategoryUnsafe {
		s.unsafe = true
	}
	if s.unsafe {
		return CategoryUnsafe
	}
	return c.Category
}

// History renders the conversation as "role: text" lines for model
// prompts.
func (s *Session) History() string {
	var b strings.Builder
	for _, t := range s.Turns {
		fmt.Fprintf(&b, "%s: %s\n\n", t.Role, t.Text)
	}
	return b.String()
}
