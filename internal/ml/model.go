package ml

import (
	"context"
	"fmt"
)

// Model represents a multimodal model that answers a prompt about an image
type Model interface {
	// Name identifies the backend in logs
	Name() string
	// Load initializes the model with its configuration
	Load(ctx context.Context) error
	// Generate returns the trimmed answer text for the image and prompt
	Generate(ctx context.Context, image []byte, mimeType, prompt string) (string, error)
}

// NewModel creates a new model instance based on the model type.
// An empty type selects the Gemini REST backend.
func NewModel(modelType, configPath string, debug bool) (Model, error) {
	switch modelType {
	case "", "gemini":
		config := GeminiConfig{
			BaseConfig: BaseConfig{
				ConfigPath: configPath,
			},
		}
		if err := config.Load(); err != nil {
			return nil, fmt.Errorf("failed to load Gemini config: %w", err)
		}
		return NewGeminiModel(config, debug), nil
	case "vertex":
		config := VertexConfig{
			BaseConfig: BaseConfig{
				ConfigPath: configPath,
			},
		}
		if err := config.Load(); err != nil {
			return nil, fmt.Errorf("failed to load Vertex config: %w", err)
		}
		return NewVertexModel(config), nil
	default:
		return nil, fmt.Errorf("%w: unsupported model type: %s", ErrConfiguration, modelType)
	}
}
