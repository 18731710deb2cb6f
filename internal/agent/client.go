package agent

import (
	"context"
	"errors"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// Completer is the minimal contract the dialogue engine needs from the
// language model: one prompt in, free-form text out. Callers must treat
// every error (and every unparseable response) as a recoverable delegation
// failure and fall back to a local default.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// OpenAIClient calls the OpenAI chat completion API. Credentials and the
// model name are loaded from the environment.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient constructs a client from OPENAI_API_KEY and OPENAI_MODEL.
func NewOpenAIClient() *OpenAIClient {
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{
		client: openai.NewClient(os.Getenv("OPENAI_API_KEY")),
		model:  model,
	}
}

// NewOpenAIClientWith constructs a client with an explicit key and model.
func NewOpenAIClientWith(apiKey, model string) *OpenAIClient {
	return &OpenAIClient{client: openai.NewClient(apiKey), model: model}
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.client == nil {
		return "", errors.New("openai client not initialized")
	}
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
