package domain

// SubQuestion is a fully specified restatement of part of the user's
// question, expressed in the schema's own vocabulary. A decomposition
// yields a non-empty ordered sequence of these; the order fixes how
// retrieval outcomes are matched up later.
type SubQuestion struct {
	Text string
}

// Outcome is the result of answering one sub-question against the data
// backend. Exactly one outcome exists per sub-question: a backend
// failure is captured in Err rather than dropping the entry.
type Outcome struct {
	Question SubQuestion
	// Payload is the rendered retrieval result when Err is nil.
	Payload string
	// Query is the structured query that produced the payload, kept for
	// logging only.
	Query string
	Err   error
}

// Failed reports whether retrieval for this sub-question errored.
func (o Outcome) Failed() bool {
	return o.Err != nil
}
