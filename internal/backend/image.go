package backend

import (
	"fmt"
	"strings"

	"github.com/castvid/castvid-go/internal/config"
)

// NewImageBackend selects the image adapter named by cfg.ImageModel.
func NewImageBackend(cfg config.Config) (ImageBackend, error) {
	switch {
	case cfg.ImageModel == "gpt-image-1" || cfg.ImageModel == "dall-e-3":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		return newOpenAIImage(cfg), nil

	case strings.HasPrefix(cfg.ImageModel, "gemini"):
		if cfg.GoogleAPIKey == "" {
			return nil, fmt.Errorf("Google API key required")
		}
		return newGeminiImage(cfg), nil

	default:
		return nil, fmt.Errorf("%w: image model %q", ErrUnknownBackend, cfg.ImageModel)
	}
}
