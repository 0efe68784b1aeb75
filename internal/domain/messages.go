package domain

// Fixed client-facing messages. These are delivered as non-streamed
// responses and their exact wording is load-bearing: the refusal text
// doubles as the marker that makes a session permanently unsafe when it
// appears in resubmitted history.
const (
	// RefusalMessage is sent when a turn or session is judged unsafe.
	RefusalMessage = "I'm sorry, I cannot answer that question. Please make a new chat."
	// ApologyMessage is sent when any pipeline stage fails.
	ApologyMessage = "An unexpected error occurred. Please try again later."
)

// BreakToken is the reserved delimiter the synthesizer uses to separate
// logical sections of an answer. It is never forwarded to the client as
// text; the stream reassembler turns it into a section boundary event.
const BreakToken = "BREAK_TOKEN"
