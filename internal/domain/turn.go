// Package domain contains core domain types for the NLQ chat pipeline.
package domain

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleUser marks a turn written by the end user.
	RoleUser Role = "user"
	// RoleAssistant marks a turn written by the chatbot.
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation. Turns are immutable once
// appended to a session.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}
