package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/castvid/castvid-go/internal/config"
)

const geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"

// geminiImage talks to the Gemini image generation API directly. Gemini
// takes an aspect-ratio enum instead of fixed pixel sizes, and reference
// images ride along as inline parts of the same request, so Generate and
// Edit share one code path.
type geminiImage struct {
	apiKey      string
	model       string
	aspectRatio string
	client      *http.Client
}

var _ ImageBackend = (*geminiImage)(nil)

func newGeminiImage(cfg config.Config) *geminiImage {
	return &geminiImage{
		apiKey:      cfg.GoogleAPIKey,
		model:       cfg.ImageModel,
		aspectRatio: cfg.AspectRatio,
		client:      &http.Client{Timeout: 5 * time.Minute},
	}
}

func (b *geminiImage) Name() string { return b.model }

func (b *geminiImage) Capabilities() ImageCapabilities {
	return ImageCapabilities{Edit: true, AspectRatio: true}
}

func (b *geminiImage) Generate(ctx context.Context, prompt string) ([]byte, error) {
	return b.generate(ctx, prompt, nil)
}

func (b *geminiImage) Edit(ctx context.Context, prompt string, references [][]byte) ([]byte, error) {
	return b.generate(ctx, prompt, references)
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiRequest struct {
	Contents []struct {
		Parts []geminiPart `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		ResponseModalities []string `json:"responseModalities"`
		ImageConfig        struct {
			AspectRatio string `json:"aspectRatio"`
		} `json:"imageConfig"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				InlineData *struct {
					Data string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (b *geminiImage) generate(ctx context.Context, prompt string, references [][]byte) ([]byte, error) {
	parts := []geminiPart{{Text: prompt}}
	for _, ref := range references {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: "image/png",
			Data:     base64.StdEncoding.EncodeToString(ref),
		}})
	}

	var req geminiRequest
	req.Contents = make([]struct {
		Parts []geminiPart `json:"parts"`
	}, 1)
	req.Contents[0].Parts = parts
	req.GenerationConfig.ResponseModalities = []string{"IMAGE"}
	req.GenerationConfig.ImageConfig.AspectRatio = b.aspectRatio

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", geminiEndpoint, b.model, b.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, WrapFatal(fmt.Errorf("gemini HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(errBody)))
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}
	for _, cand := range out.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					return nil, fmt.Errorf("decode gemini image payload: %w", err)
				}
				return data, nil
			}
		}
	}
	return nil, fmt.Errorf("gemini returned no image part")
}
