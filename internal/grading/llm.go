package grading

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type LLM interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ChatModel calls a chat-completions style grading API. The endpoint is
// OpenAI-shaped, so the same client works for Perplexity or any compatible
// backend by pointing the base URL at it.
type ChatModel struct {
	client    openai.Client
	model     string
	maxTokens int64
	temp      float64
	timeout   time.Duration
}

func NewChatModel(baseURL, apiKey, model string) *ChatModel {
	return &ChatModel{
		client:    openai.NewClient(option.WithBaseURL(baseURL), option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: 2000,
		temp:      0.3,
		timeout:   120 * time.Second,
	}
}

func (m *ChatModel) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)

	if len(systemPrompt) > 0 {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(prompt))

	chatOpts := openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       m.model,
		MaxTokens:   openai.Int(m.maxTokens),
		Temperature: openai.Float(m.temp),
	}

	res, err := m.client.Chat.Completions.New(ctx, chatOpts)
	if err != nil {
		slog.Error("grading model error: chat completions failed", "error", err)
		return "", fmt.Errorf("grading model call failed: %w", err)
	}

	if len(res.Choices) == 0 {
		return "", fmt.Errorf("grading model returned no choices")
	}

	return res.Choices[0].Message.Content, nil
}
