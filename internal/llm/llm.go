package llm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ollama/ollama/api"
)

// LLM generates free-form text answers.
type LLM interface {
	GenerateResponse(ctx context.Context, prompt string) (string, error)
}

type OllamaClient struct {
	client  *api.Client
	model   string
	timeout time.Duration
}

// NewOllamaClient reads the server address from OLLAMA_HOST.
func NewOllamaClient(model string, timeout time.Duration) (*OllamaClient, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return &OllamaClient{client: client, model: model, timeout: timeout}, nil
}

func (c *OllamaClient) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": 0.7,
			"top_p":       0.9,
		},
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var response string
	err := c.client.Generate(ctx, req, func(g api.GenerateResponse) error {
		response += g.Response
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generation failed: %w", err)
	}
	return response, nil
}

// IsModelAvailable checks that the configured model is pulled on the server.
func (c *OllamaClient) IsModelAvailable(ctx context.Context) error {
	models, err := c.client.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	names := make([]string, 0, len(models.Models))
	for _, m := range models.Models {
		if m.Name == c.model {
			return nil
		}
		names = append(names, m.Name)
	}
	log.Printf("LLM: model %s not found, available: %v", c.model, names)
	return fmt.Errorf("model %s not found", c.model)
}
