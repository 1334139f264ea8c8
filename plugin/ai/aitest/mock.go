// Package aitest provides testify mocks of the provider ports.
package aitest

import (
	"context"
	"strings"

	"github.com/stretchr/testify/mock"

	"github.com/hrygo/quillnote/plugin/ai"
)

// MockChatCompleter is a mock for ai.ChatCompleter.
type MockChatCompleter struct {
	mock.Mock
}

func (m *MockChatCompleter) CompleteChat(ctx context.Context, messages []ai.Message, opts ai.ChatOptions) (string, error) {
	args := m.Called(ctx, messages, opts)
	return args.String(0), args.Error(1)
}

// MockEmbedder is a mock for ai.Embedder.
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// SystemPromptIs matches a message list whose system prompt equals prompt.
func SystemPromptIs(prompt string) any {
	return mock.MatchedBy(func(messages []ai.Message) bool {
		return len(messages) > 0 && messages[0].Role == "system" && messages[0].Content == prompt
	})
}

// UserMessageContains matches a message list whose user message contains text.
func UserMessageContains(text string) any {
	return mock.MatchedBy(func(messages []ai.Message) bool {
		for _, m := range messages {
			if m.Role == "user" && strings.Contains(m.Content, text) {
				return true
			}
		}
		return false
	})
}
