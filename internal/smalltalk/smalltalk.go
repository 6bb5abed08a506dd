package smalltalk

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"gopkg.in/yaml.v3"
)

// PromptSpec is the YAML description of the small-talk prompt.
type PromptSpec struct {
	System string `yaml:"system"`
	Style  struct {
		Temperature float32 `yaml:"temperature"`
		Language    string  `yaml:"language"`
		MaxTokens   int     `yaml:"max_tokens"`
	} `yaml:"style"`
}

// Responder generates a conversational reply for intents the response
// catalog could not answer. It is an optional last resort: callers fall
// back to a static message when it errors.
type Responder struct {
	spec   PromptSpec
	client *openai.Client
	model  string
}

// Load reads the prompt spec and builds a responder around the client.
func Load(path string, client *openai.Client, model string) (*Responder, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var spec PromptSpec
	if err := yaml.Unmarshal(b, &spec); err != nil {
		return nil, err
	}
	return &Responder{spec: spec, client: client, model: model}, nil
}

// Reply asks the model for a short reply appropriate to the unmatched
// intent.
func (r *Responder) Reply(ctx context.Context, intent string) (string, error) {
	temperature := r.spec.Style.Temperature
	if temperature <= 0 {
		temperature = 0.7
	}
	maxTokens := r.spec.Style.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 120
	}
	language := r.spec.Style.Language
	if language == "" {
		language = "es"
	}

	var b strings.Builder
	b.WriteString(r.spec.System)
	b.WriteString("\n\nIdioma de respuesta: ")
	b.WriteString(language)
	b.WriteString("\nIntención detectada sin respuesta configurada: ")
	b.WriteString(intent)
	b.WriteString("\nResponde con un único mensaje breve para el usuario.")

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: b.String()},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
