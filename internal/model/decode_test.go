package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/nlqbot/nlq-server/internal/domain"
)

func TestDecodeClassification(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    domain.Category
		wantErr bool
	}{
		{"retrievable", `{"classification": "Retrievable", "reasoning": "two attributes"}`, domain.CategoryRetrievable, false},
		{"non-retrievable", `{"classification": "NonRetrievable", "reasoning": "off topic"}`, domain.CategoryNonRetrievable, false},
		{"unsafe", `{"classification": "Unsafe", "reasoning": "harmful"}`, domain.CategoryUnsafe, false},
		{"fenced", "```json\n{\"classification\": \"Unsafe\", \"reasoning\": \"r\"}\n```", domain.CategoryUnsafe, false},
		{"unknown category", `{"classification": "Maybe", "reasoning": "r"}`, "", true},
		{"not json", `the question is retrievable`, "", true},
		{"empty", ``, "", true},
		{"wrong shape", `["Retrievable"]`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeClassification([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got.Category != tt.want {
				t.Errorf("category = %v, want %v", got.Category, tt.want)
			}
		})
	}
}

func TestDecodeDecomposition(t *testing.T) {
	qs, err := DecodeDecomposition([]byte(`{"questions": ["How many records have category X in period Y?", "second"]}`))
	if err != nil {
		t.Fatalf("DecodeDecomposition: %v", err)
	}
	if len(qs) != 2 || qs[0].Text != "How many records have category X in period Y?" {
		t.Errorf("questions = %+v", qs)
	}
}

func TestDecodeDecompositionFailsLoudlyWhenEmpty(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty list", `{"questions": []}`},
		{"missing field", `{}`},
		{"blank entries only", `{"questions": ["  ", ""]}`},
		{"not json", `no questions here`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeDecomposition([]byte(tt.input)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDecodeQuery(t *testing.T) {
	q, err := DecodeQuery([]byte(`{"query": " SELECT count(*) FROM facts "}`))
	if err != nil {
		t.Fatalf("DecodeQuery: %v", err)
	}
	if q != "SELECT count(*) FROM facts" {
		t.Errorf("query = %q", q)
	}

	if _, err := DecodeQuery([]byte(`{"query": ""}`)); err == nil {
		t.Error("expected error for empty query")
	}
	if _, err := DecodeQuery([]byte(`SELECT 1`)); err == nil {
		t.Error("expected error for bare SQL (not the JSON contract)")
	}
}

func TestRenderOutcomesLabelsFailures(t *testing.T) {
	out := renderOutcomes([]domain.Outcome{
		{Question: domain.SubQuestion{Text: "q1"}, Payload: "category\ttotal\nX\t200\n"},
		{Question: domain.SubQuestion{Text: "q2"}, Err: errors.New("backend down")},
	})

	if !strings.Contains(out, "X\t200") {
		t.Errorf("missing payload: %q", out)
	}
	if !strings.Contains(out, "unavailable") {
		t.Errorf("failed outcome not labeled: %q", out)
	}
	if strings.Contains(out, "backend down") {
		t.Errorf("raw error text must not leak into the prompt: %q", out)
	}
}

func TestPromptsCarryTheBreakToken(t *testing.T) {
	if !strings.Contains(finalResponsePrompt("{}", "", ""), domain.BreakToken) {
		t.Error("final response prompt must instruct the delimiter")
	}
	if !strings.Contains(directResponsePrompt("", "{}"), domain.BreakToken) {
		t.Error("direct response prompt must instruct the delimiter")
	}
}
