package transport

import (
	"encoding/json"
	"fmt"

	"github.com/nlqbot/nlq-server/internal/stream"
)

// Wire shapes for the chat protocol. Streamed responses arrive as typed
// event envelopes; refusals and apologies arrive as a single
// {"message": ...} document, which clients render without streaming.

type eventEnvelope struct {
	Type string     `json:"type"`
	Data *eventData `json:"data,omitempty"`
}

type eventData struct {
	Delta *eventDelta `json:"delta,omitempty"`
}

type eventDelta struct {
	Text string `json:"text"`
}

type plainMessage struct {
	Message string `json:"message"`
}

// encodeEvent marshals one stream event into its wire form. Start and
// stop carry an empty data object; the boundary event is type-only.
func encodeEvent(ev stream.Event) ([]byte, error) {
	var env eventEnvelope
	switch ev.Type {
	case stream.MessageStart, stream.MessageStop:
		env = eventEnvelope{Type: string(ev.Type), Data: &eventData{}}
	case stream.ContentDelta:
		env = eventEnvelope{Type: string(ev.Type), Data: &eventData{Delta: &eventDelta{Text: ev.Text}}}
	case stream.SectionBoundary:
		env = eventEnvelope{Type: string(ev.Type)}
	default:
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
	return json.Marshal(env)
}

func encodeMessage(text string) ([]byte, error) {
	return json.Marshal(plainMessage{Message: text})
}
