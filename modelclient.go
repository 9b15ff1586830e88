package soruengine

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// GenerateOptions are the sampling parameters for one model call.
type GenerateOptions struct {
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// Sampling defaults for the three call sites. Repairs and judging run cooler
// than drafting.
var (
	DraftOptions  = GenerateOptions{Temperature: 0.4, TopP: 0.9, MaxTokens: 800}
	RepairOptions = GenerateOptions{Temperature: 0.2, TopP: 0.9, MaxTokens: 700}
	JudgeOptions  = GenerateOptions{Temperature: 0.2, TopP: 0.9, MaxTokens: 250}
)

// ModelClient is the text-generation service the pipeline consumes. A
// transport or timeout error counts as attempt failure and never escapes
// GenerateBest.
type ModelClient interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// ModelConfig configures one OpenAI-compatible endpoint. BaseURL may point
// at any compatible inference server (vLLM, llama.cpp, a tunnel to a Colab
// notebook); empty means api.openai.com.
type ModelConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAIModel calls a chat-completion endpoint and returns the raw text of
// the first choice.
type OpenAIModel struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIModel creates a model client for one endpoint.
func NewOpenAIModel(cfg ModelConfig) *OpenAIModel {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIModel{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		timeout: timeout,
	}
}

// Generate performs one completion call with a per-call timeout.
func (m *OpenAIModel) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	resp, err := m.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: m.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: opts.Temperature,
			TopP:        opts.TopP,
			MaxTokens:   opts.MaxTokens,
		},
	)
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in model response")
	}
	return resp.Choices[0].Message.Content, nil
}
