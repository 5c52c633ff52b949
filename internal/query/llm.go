package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ErrNoInterpreter is returned when an LLM interpreter cannot be built
// because no API key is configured.
var ErrNoInterpreter = errors.New("query: no LLM API key configured")

const interpretPrompt = `You turn supplier search requests for a manufacturing consultancy into JSON.
Respond with a single JSON object with the keys:
  "keywords": the products or processes being searched for, without filler words such as "find" or "suppliers",
  "location": the place mentioned (state, city or region) or "" if none,
  "category": one of %s, or "" if none applies.
Do not add any other keys.`

// LLMConfig configures an LLMInterpreter.
type LLMConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Logger  *slog.Logger
}

// LLMInterpreter interprets queries with an OpenAI-compatible chat model and
// falls back to the pattern Parser whenever the model cannot be used.
type LLMInterpreter struct {
	client   *openai.Client
	model    string
	fallback *Parser
	logger   *slog.Logger
}

// NewLLMInterpreter builds an interpreter backed by cfg. fallback must not be nil.
func NewLLMInterpreter(cfg LLMConfig, fallback *Parser) (*LLMInterpreter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNoInterpreter
	}
	if fallback == nil {
		return nil, errors.New("query: fallback parser is required")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &LLMInterpreter{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		fallback: fallback,
		logger:   cfg.Logger,
	}, nil
}

type llmReply struct {
	Keywords string `json:"keywords"`
	Location string `json:"location"`
	Category string `json:"category"`
}

// Interpret implements Interpreter. Model failures are logged and answered by
// the pattern parser, so the returned error is always nil.
func (l *LLMInterpreter) Interpret(ctx context.Context, text string) (Interpretation, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return l.fallback.Parse(text), nil
	}

	interp, err := l.ask(ctx, text)
	if err != nil {
		l.logger.Warn("llm interpretation failed, using pattern parser", "err", err)
		return l.fallback.Parse(text), nil
	}
	return interp, nil
}

func (l *LLMInterpreter) ask(ctx context.Context, text string) (Interpretation, error) {
	names, _ := json.Marshal(Categories())
	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: l.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(interpretPrompt, string(names))},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	})
	if err != nil {
		return Interpretation{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Interpretation{}, errors.New("chat completion: no choices")
	}

	var reply llmReply
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &reply); err != nil {
		return Interpretation{}, fmt.Errorf("decode reply: %w", err)
	}

	out := Interpretation{
		Query:    text,
		Keywords: strings.TrimSpace(reply.Keywords),
		Location: strings.TrimSpace(reply.Location),
		Method:   "llm",
	}
	// Only accept categories we know; otherwise derive one from the text.
	out.Category = MatchCategory(reply.Category)
	if out.Category == "" {
		out.Category = MatchCategory(text)
	}
	if out.Keywords == "" {
		out.Keywords = l.fallback.DefaultKeywords
	}
	out.StateCode = StateCode(out.Location)
	return out, nil
}
