// Package model implements the pipeline's external AI capabilities —
// classification, question decomposition, query generation, and
// response synthesis — on top of the OpenAI chat-completions API.
//
// Capability responses are loosely shaped model output; everything is
// decoded strictly at this boundary and a document that does not parse
// into the expected shape is a hard error, never a retry trigger.
package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nlqbot/nlq-server/internal/domain"
	"github.com/nlqbot/nlq-server/internal/schema"
)

// Default models per capability. Classification and decomposition are
// small structured tasks; synthesis carries the conversation.
const (
	DefaultClassifyModel   = "gpt-4o-mini"
	DefaultDecomposeModel  = "gpt-4o-mini"
	DefaultQueryModel      = "gpt-4o-mini"
	DefaultSynthesizeModel = "gpt-4o"
)

// Config holds model client configuration.
type Config struct {
	APIKey          string
	BaseURL         string // optional, for OpenAI-compatible endpoints
	ClassifyModel   string
	DecomposeModel  string
	QueryModel      string
	SynthesizeModel string
}

// Client drives the model capabilities.
type Client struct {
	api *openai.Client
	cfg Config
	log *slog.Logger
}

// NewClient creates a model client.
func NewClient(cfg Config, log *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("model API key is required")
	}
	if cfg.ClassifyModel == "" {
		cfg.ClassifyModel = DefaultClassifyModel
	}
	if cfg.DecomposeModel == "" {
		cfg.DecomposeModel = DefaultDecomposeModel
	}
	if cfg.QueryModel == "" {
		cfg.QueryModel = DefaultQueryModel
	}
	if cfg.SynthesizeModel == "" {
		cfg.SynthesizeModel = DefaultSynthesizeModel
	}
	if log == nil {
		log = slog.Default()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		api: openai.NewClientWithConfig(clientCfg),
		cfg: cfg,
		log: log,
	}, nil
}

// complete issues a non-streamed chat completion and returns the raw
// content of the first choice.
func (c *Client) complete(ctx context.Context, model, system, user string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Classify buckets the latest turn given the full session and schema.
func (c *Client) Classify(ctx context.Context, turn domain.Turn, session *domain.Session, sch *schema.Schema) (domain.Classification, error) {
	system := classifyPrompt(turn.Text, session.History(), sch.Render())
	content, err := c.complete(ctx, c.cfg.ClassifyModel, system, turn.Text)
	if err != nil {
		return domain.Classification{}, err
	}
	return DecodeClassification([]byte(content))
}

// Decompose rewrites the turn into one or more fully specified
// sub-questions in the schema's vocabulary. An empty decomposition is a
// contract violation and fails loudly.
func (c *Client) Decompose(ctx context.Context, turn domain.Turn, session *domain.Session, sch *schema.Schema, reasoning string) ([]domain.SubQuestion, error) {
	system := decomposePrompt(turn.Text, session.History(), sch.Render(), reasoning)
	content, err := c.complete(ctx, c.cfg.DecomposeModel, system, turn.Text)
	if err != nil {
		return nil, err
	}
	return DecodeDecomposition([]byte(content))
}

// GenerateQuery produces a single read-only SQL statement answering the
// sub-question over the schema. Validation and execution belong to the
// retrieval backend; this only generates.
func (c *Client) GenerateQuery(ctx context.Context, question string, sch *schema.Schema) (string, error) {
	system := queryPrompt(question, sch.Render())
	content, err := c.complete(ctx, c.cfg.QueryModel, system, question)
	if err != nil {
		return "", err
	}
	return DecodeQuery([]byte(content))
}

// Synthesize drives a streamed generation of the final answer. The
// returned sequence yields raw text fragments at whatever chunk
// boundaries the API chooses; fragments may split words and may split
// the section delimiter.
func (c *Client) Synthesize(ctx context.Context, turn domain.Turn, session *domain.Session, sch *schema.Schema, questions []domain.SubQuestion, outcomes []domain.Outcome) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var system string
		if len(questions) == 0 {
			system = directResponsePrompt(session.History(), sch.Render())
		} else {
			system = finalResponsePrompt(sch.Render(), renderQuestions(questions), renderOutcomes(outcomes))
		}

		messages := make([]openai.ChatCompletionMessage, 0, len(session.Turns)+1)
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: system,
		})
		for _, t := range session.Turns {
			role := openai.ChatMessageRoleUser
			if t.Role == domain.RoleAssistant {
				role = openai.ChatMessageRoleAssistant
			}
			messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: t.Text})
		}

		stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model:    c.cfg.SynthesizeModel,
			Messages: messages,
			Stream:   true,
		})
		if err != nil {
			yield("", fmt.Errorf("start generation stream: %w", err))
			return
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", fmt.Errorf("generation stream: %w", err))
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			if delta := resp.Choices[0].Delta.Content; delta != "" {
				if !yield(delta, nil) {
					return
				}
			}
		}
	}
}
