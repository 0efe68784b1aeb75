// Package pipeline orchestrates the resolution of a conversation turn:
// classify, decompose, retrieve, synthesize, and deliver the result to
// the originating connection as a stream of events or a single message.
//
// The orchestrator depends only on capability interfaces, so every
// stage can be swapped or faked independently of the model and
// retrieval implementations.
package pipeline

import (
	"context"
	"iter"
	"log/slog"

	"github.com/nlqbot/nlq-server/internal/domain"
	"github.com/nlqbot/nlq-server/internal/schema"
	"github.com/nlqbot/nlq-server/internal/stream"
)

// Classifier buckets the latest turn given the whole session.
type Classifier interface {
	Classify(ctx context.Context, turn domain.Turn, session *domain.Session, sch *schema.Schema) (domain.Classification, error)
}

// Decomposer rewrites the turn into fully specified sub-questions.
type Decomposer interface {
	Decompose(ctx context.Context, turn domain.Turn, session *domain.Session, sch *schema.Schema, reasoning string) ([]domain.SubQuestion, error)
}

// Retriever answers sub-questions against the data source. It returns
// one outcome per question, in order, and never fails as a whole.
type Retriever interface {
	RetrieveAll(ctx context.Context, questions []domain.SubQuestion) []domain.Outcome
}

// Synthesizer generates the final answer as a raw fragment stream.
// With no questions it answers conversationally from the history alone.
type Synthesizer interface {
	Synthesize(ctx context.Context, turn domain.Turn, session *domain.Session, sch *schema.Schema, questions []domain.SubQuestion, outcomes []domain.Outcome) iter.Seq2[string, error]
}

// Sender pushes output to one client connection. Delivery is
// best-effort: a failed send is logged and never retried, and must not
// abort the pipeline.
type Sender interface {
	SendEvent(ctx context.Context, connectionID string, ev stream.Event) error
	SendMessage(ctx context.Context, connectionID string, text string) error
}

// Orchestrator resolves one turn end to end.
type Orchestrator struct {
	classifier  Classifier
	decomposer  Decomposer
	retriever   Retriever
	synthesizer Synthesizer
	sender      Sender
	sch         *schema.Schema
	log         *slog.Logger
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(classifier Classifier, decomposer Decomposer, retriever Retriever, synthesizer Synthesizer, sender Sender, sch *schema.Schema, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		classifier:  classifier,
		decomposer:  decomposer,
		retriever:   retriever,
		synthesizer: synthesizer,
		sender:      sender,
		sch:         sch,
		log:         log,
	}
}

// Resolve runs the pipeline for the session's latest turn and delivers
// the result to the connection. Any stage failure degrades to a single
// apology message; the client never sees a partial answer stream for a
// failure that happened before generation produced output.
func (o *Orchestrator) Resolve(ctx context.Context, connectionID string, session *domain.Session) {
	turn, ok := session.Latest()
	if !ok || turn.Role != domain.RoleUser {
		o.log.Warn("turn resolution without a latest user turn", "connection_id", connectionID)
		o.sendMessage(ctx, connectionID, domain.ApologyMessage)
		return
	}

	log := o.log.With("connection_id", connectionID)
	log.Info("resolving turn", "history_len", len(session.Turns))

	// A conversation that has gone unsafe stays unsafe; no model call
	// can talk it back into service.
	if session.Unsafe() {
		log.Info("refusing turn in unsafe conversation")
		o.sendMessage(ctx, connectionID, domain.RefusalMessage)
		return
	}

	cls, err := o.classifier.Classify(ctx, turn, session, o.sch)
	if err != nil {
		log.Error("classification failed", "error", err)
		o.sendMessage(ctx, connectionID, domain.ApologyMessage)
		return
	}
	log.Info("turn classified", "category", cls.Category, "reasoning", cls.Reasoning)

	switch session.Combine(cls) {
	case domain.CategoryUnsafe:
		o.sendMessage(ctx, connectionID, domain.RefusalMessage)

	case domain.CategoryNonRetrievable:
		o.streamAnswer(ctx, connectionID, log, turn, session, nil, nil)

	case domain.CategoryRetrievable:
		questions, err := o.decomposer.Decompose(ctx, turn, session, o.sch, cls.Reasoning)
		if err != nil {
			log.Error("decomposition failed", "error", err)
			o.sendMessage(ctx, connectionID, domain.ApologyMessage)
			return
		}
		log.Info("turn decomposed", "questions", len(questions))

		outcomes := o.retriever.RetrieveAll(ctx, questions)
		if allFailed(outcomes) {
			log.Error("retrieval failed for every sub-question")
			o.sendMessage(ctx, connectionID, domain.ApologyMessage)
			return
		}
		o.streamAnswer(ctx, connectionID, log, turn, session, questions, outcomes)
	}
}

// streamAnswer runs generation and forwards the reassembled events.
// A failure before the first event degrades to a plain apology with
// nothing on the wire. A failure mid-stream closes the message so the
// client can finalize what it has, then delivers the same apology as a
// non-streamed payload.
func (o *Orchestrator) streamAnswer(ctx context.Context, connectionID string, log *slog.Logger, turn domain.Turn, session *domain.Session, questions []domain.SubQuestion, outcomes []domain.Outcome) {
	fragments := o.synthesizer.Synthesize(ctx, turn, session, o.sch, questions, outcomes)

	started := false
	for ev, err := range stream.Transduce(domain.BreakToken, fragments) {
		if err != nil {
			if !started {
				log.Error("generation failed before producing output", "error", err)
				o.sendMessage(ctx, connectionID, domain.ApologyMessage)
				return
			}
			log.Error("generation failed mid-stream", "error", err)
			o.sendEvent(ctx, connectionID, stream.Event{Type: stream.MessageStop})
			o.sendMessage(ctx, connectionID, domain.ApologyMessage)
			return
		}
		started = true
		o.sendEvent(ctx, connectionID, ev)
	}
	log.Info("turn resolved", "streamed", true)
}

func (o *Orchestrator) sendEvent(ctx context.Context, connectionID string, ev stream.Event) {
	if err := o.sender.SendEvent(ctx, connectionID, ev); err != nil {
		o.log.Warn("event delivery failed", "connection_id", connectionID, "event", ev.Type, "error", err)
	}
}

func (o *Orchestrator) sendMessage(ctx context.Context, connectionID string, text string) {
	if err := o.sender.SendMessage(ctx, connectionID, text); err != nil {
		o.log.Warn("message delivery failed", "connection_id", connectionID, "error", err)
	}
}

func allFailed(outcomes []domain.Outcome) bool {
	for _, o := range outcomes {
		if !o.Failed() {
			return false
		}
	}
	return true
}
