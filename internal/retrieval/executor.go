// Package retrieval answers schema-grounded sub-questions against a
// pluggable, strictly read-only data backend.
package retrieval

import (
	"context"
	"log/slog"

	"github.com/nlqbot/nlq-server/internal/domain"
)

// Backend answers one natural-language sub-question. It must never
// mutate the underlying data store. The returned query is the structured
// query that produced the payload, kept for logging.
type Backend interface {
	Answer(ctx context.Context, question string) (payload, query string, err error)
}

// Executor runs one backend call per sub-question and collects the
// outcomes. Failure policy: isolate-per-outcome. A backend error is
// captured on that outcome only, so sibling sub-questions still get
// answered; no outcome is ever dropped and the result count always
// equals the sub-question count, in the same order.
type Executor struct {
	backend Backend
	log     *slog.Logger
}

// NewExecutor creates an executor over the given backend.
func NewExecutor(backend Backend, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{backend: backend, log: log}
}

// RetrieveAll answers every sub-question sequentially, in order.
// Sub-questions are retrieved one at a time because later questions may
// have been shaped by context from earlier ones; sequencing also makes
// the outcome ordering invariant structural.
func (e *Executor) RetrieveAll(ctx context.Context, questions []domain.SubQuestion) []domain.Outcome {
	outcomes := make([]domain.Outcome, 0, len(questions))
	for _, q := range questions {
		payload, query, err := e.backend.Answer(ctx, q.Text)
		if err != nil {
			e.log.Warn("retrieval failed for sub-question",
				"question", q.Text,
				"error", err,
			)
			outcomes = append(outcomes, domain.Outcome{Question: q, Err: err})
			continue
		}
		e.log.Info("retrieval succeeded",
			"question", q.Text,
			"query", query,
		)
		outcomes = append(outcomes, domain.Outcome{Question: q, Payload: payload, Query: query})
	}
	return outcomes
}
