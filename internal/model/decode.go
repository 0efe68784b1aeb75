package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nlqbot/nlq-server/internal/domain"
)

// The prompts demand bare JSON, but models occasionally wrap output in
// a markdown code fence anyway. Stripping the fence is shape-preserving;
// everything after it is still parse-or-fail.
func stripFence(data []byte) []byte {
	s := strings.TrimSpace(string(data))
	if !strings.HasPrefix(s, "```") {
		return []byte(s)
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return []byte(strings.TrimSpace(s))
}

type classificationDoc struct {
	Classification string `json:"classification"`
	Reasoning      string `json:"reasoning"`
}

// DecodeClassification parses the classifier's response document.
// Anything that does not decode into the expected shape, or names an
// unknown category, is a hard error.
func DecodeClassification(data []byte) (domain.Classification, error) {
	var doc classificationDoc
	if err := json.Unmarshal(stripFence(data), &doc); err != nil {
		return domain.Classification{}, fmt.Errorf("malformed classification response: %w", err)
	}

	c := domain.Classification{
		Category:  domain.Category(doc.Classification),
		Reasoning: doc.Reasoning,
	}
	if err := c.Validate(); err != nil {
		return domain.Classification{}, fmt.Errorf("malformed classification response: %w", err)
	}
	return c, nil
}

type decompositionDoc struct {
	Questions []string `json:"questions"`
}

// DecodeDecomposition parses the decomposer's response document into an
// ordered sequence of sub-questions. An empty decomposition is a
// contract violation, not a valid "no data" answer.
func DecodeDecomposition(data []byte) ([]domain.SubQuestion, error) {
	var doc decompositionDoc
	if err := json.Unmarshal(stripFence(data), &doc); err != nil {
		return nil, fmt.Errorf("malformed decomposition response: %w", err)
	}

	questions := make([]domain.SubQuestion, 0, len(doc.Questions))
	for _, q := range doc.Questions {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		questions = append(questions, domain.SubQuestion{Text: q})
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("decomposition produced no sub-questions")
	}
	return questions, nil
}

type queryDoc struct {
	Query string `json:"query"`
}

// DecodeQuery parses the query generator's response document.
func DecodeQuery(data []byte) (string, error) {
	var doc queryDoc
	if err := json.Unmarshal(stripFence(data), &doc); err != nil {
		return "", fmt.Errorf("malformed query response: %w", err)
	}
	if strings.TrimSpace(doc.Query) == "" {
		return "", fmt.Errorf("query response contains no query")
	}
	return strings.TrimSpace(doc.Query), nil
}

// renderQuestions formats the decomposed questions for the synthesis
// prompt.
func renderQuestions(questions []domain.SubQuestion) string {
	var b strings.Builder
	for i, q := range questions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q.Text)
	}
	return b.String()
}

// renderOutcomes formats retrieval outcomes for the synthesis prompt.
// Failed outcomes are labeled so the narrative can acknowledge the gap
// instead of inventing data.
func renderOutcomes(outcomes []domain.Outcome) string {
	var b strings.Builder
	for i, o := range outcomes {
		fmt.Fprintf(&b, "Question %d: %s\n", i+1, o.Question.Text)
		if o.Failed() {
			b.WriteString("Result: unavailable (retrieval failed)\n\n")
			continue
		}
		fmt.Fprintf(&b, "Result:\n%s\n\n", o.Payload)
	}
	return b.String()
}
