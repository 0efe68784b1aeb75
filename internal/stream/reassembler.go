// Package stream reassembles a model-generation fragment stream into
// client events, converting the reserved section delimiter into a
// discrete boundary event. The delimiter's literal characters never
// reach the client, even when a fragment boundary splits the delimiter.
package stream

import (
	"fmt"
	"iter"
	"strings"
)

// EventType tags a client event.
type EventType string

const (
	// MessageStart opens a streamed response.
	MessageStart EventType = "messageStart"
	// ContentDelta carries a chunk of answer text.
	ContentDelta EventType = "contentBlockDelta"
	// SectionBoundary tells the client to start a new visual section.
	// It replaces one occurrence of the delimiter in the generated text.
	SectionBoundary EventType = "breakTokenType"
	// MessageStop closes a streamed response.
	MessageStop EventType = "messageStop"
)

// Event is one item of the reassembled output stream. Text is set only
// for ContentDelta events.
type Event struct {
	Type EventType
	Text string
}

// Reassembler is an online, single-pass transducer from text fragments
// to events. Fragments arrive at arbitrary generation-chosen boundaries,
// so the delimiter may straddle any number of fragments; the pending
// buffer holds at most len(delimiter)-1 characters, the longest suffix
// of input seen so far that could still grow into a full delimiter.
type Reassembler struct {
	delim    string
	pending  string
	finished bool
}

// NewReassembler creates a reassembler for the given delimiter.
func NewReassembler(delimiter string) (*Reassembler, error) {
	if delimiter == "" {
		return nil, fmt.Errorf("delimiter must not be empty")
	}
	return &Reassembler{delim: delimiter}, nil
}

// Push consumes one fragment and returns the events it completes.
// A fragment may yield zero events (everything buffered), or several
// (a fragment can contain more than one delimiter).
func (r *Reassembler) Push(fragment string) []Event {
	if r.finished || fragment == "" {
		return nil
	}

	candidate := r.pending + fragment
	r.pending = ""

	var events []Event
	for {
		i := strings.Index(candidate, r.delim)
		if i < 0 {
			break
		}
		if i > 0 {
			events = append(events, Event{Type: ContentDelta, Text: candidate[:i]})
		}
		events = append(events, Event{Type: SectionBoundary})
		candidate = candidate[i+len(r.delim):]
	}

	keep := r.partialSuffix(candidate)
	if head := candidate[:len(candidate)-keep]; head != "" {
		events = append(events, Event{Type: ContentDelta, Text: head})
	}
	r.pending = candidate[len(candidate)-keep:]
	return events
}

// Finish flushes any buffered text and terminates the stream. A pending
// partial delimiter at end of stream was a false alarm and is emitted as
// ordinary content before MessageStop. The reassembler must not be used
// after Finish.
func (r *Reassembler) Finish() []Event {
	if r.finished {
		return nil
	}
	r.finished = true

	var events []Event
	if r.pending != "" {
		events = append(events, Event{Type: ContentDelta, Text: r.pending})
		r.pending = ""
	}
	return append(events, Event{Type: MessageStop})
}

// partialSuffix returns the length of the longest proper, non-empty
// suffix of s that is a prefix of the delimiter. Linear scan per suffix
// length is fine for short delimiters like ours; a precomputed prefix
// function would only matter for long ones.
func (r *Reassembler) partialSuffix(s string) int {
	maxLen := len(r.delim) - 1
	if len(s) < maxLen {
		maxLen = len(s)
	}
	for l := maxLen; l > 0; l-- {
		if strings.HasPrefix(r.delim, s[len(s)-l:]) {
			return l
		}
	}
	return 0
}

// Transduce adapts a fragment stream into the full event stream:
// MessageStart, the reassembled deltas and boundaries, then MessageStop.
// MessageStart is emitted lazily, just before the first downstream
// event, so a generation that fails before producing any output yields
// only the error and the caller can still answer with a clean
// non-streamed message. An error from the fragment stream is yielded
// as-is and ends the sequence without a MessageStop.
func Transduce(delimiter string, fragments iter.Seq2[string, error]) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		r, err := NewReassembler(delimiter)
		if err != nil {
			yield(Event{}, err)
			return
		}

		started := false
		start := func() bool {
			if started {
				return true
			}
			started = true
			return yield(Event{Type: MessageStart}, nil)
		}

		for fragment, err := range fragments {
			if err != nil {
				yield(Event{}, err)
				return
			}
			for _, ev := range r.Push(fragment) {
				if !start() || !yield(ev, nil) {
					return
				}
			}
		}
		if !start() {
			return
		}
		for _, ev := range r.Finish() {
			if !yield(ev, nil) {
				return
			}
		}
	}
}
