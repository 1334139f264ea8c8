package ai

import (
	"context"

	"github.com/sashabaranov/go-openai"

	aierrors "github.com/hrygo/quillnote/internal/errors"
	"github.com/hrygo/quillnote/internal/observability"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// ChatOptions tunes a single completion.
type ChatOptions struct {
	MaxTokens   int
	Temperature float32
}

// ChatCompleter is the chat completion port.
type ChatCompleter interface {
	// CompleteChat returns the text of the first choice verbatim.
	CompleteChat(ctx context.Context, messages []Message, opts ChatOptions) (string, error)
}

type chatCompleter struct {
	client   *openai.Client
	provider string
	model    string
}

// NewChatCompleter creates a ChatCompleter for an OpenAI-compatible provider.
func NewChatCompleter(cfg *LLMConfig) (ChatCompleter, error) {
	client, err := newClient(cfg.Provider, cfg.APIKey, cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	return &chatCompleter{
		client:   client,
		provider: cfg.Provider,
		model:    cfg.Model,
	}, nil
}

func (s *chatCompleter) CompleteChat(ctx context.Context, messages []Message, opts ChatOptions) (result string, err error) {
	ctx, span := observability.StartProviderSpan(ctx, "chat", s.provider, s.model)
	defer func() { observability.EndSpan(span, err) }()

	req := openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    convertMessages(messages),
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyError(ctx, err, "chat completion failed")
	}

	if len(resp.Choices) == 0 {
		return "", aierrors.MalformedResponse("empty chat response")
	}

	return resp.Choices[0].Message.Content, nil
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	llmMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case "system":
			role = openai.ChatMessageRoleSystem
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		}

		llmMessages[i] = openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		}
	}
	return llmMessages
}

// Helper for creating system prompts
func SystemPrompt(content string) Message {
	return Message{Role: "system", Content: content}
}

// Helper for creating user messages
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}
