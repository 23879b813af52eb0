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

// veo runs Google's Veo image-to-video models. The API is an asynchronous
// long-running operation: one request starts generation and returns an
// operation name, which is then polled until done.
type veo struct {
	apiKey       string
	model        string
	pollInterval time.Duration
	pollBudget   time.Duration
	client       *http.Client
}

var _ VideoBackend = (*veo)(nil)

func newVeo(cfg config.Config) *veo {
	return &veo{
		apiKey:       cfg.GoogleAPIKey,
		model:        cfg.VideoModel,
		pollInterval: cfg.PollInterval,
		pollBudget:   cfg.PollBudget,
		client:       &http.Client{Timeout: 2 * time.Minute},
	}
}

func (b *veo) Name() string { return b.model }

type veoStartRequest struct {
	Instances []struct {
		Prompt string `json:"prompt"`
		Image  struct {
			BytesBase64Encoded string `json:"bytesBase64Encoded"`
			MimeType           string `json:"mimeType"`
		} `json:"image"`
	} `json:"instances"`
}

type veoOperation struct {
	Name  string `json:"name"`
	Done  bool   `json:"done"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
	Response struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI                string `json:"uri"`
					BytesBase64Encoded string `json:"bytesBase64Encoded"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response"`
}

func (b *veo) Animate(ctx context.Context, image []byte, prompt string) ([]byte, error) {
	opName, err := b.start(ctx, image, prompt)
	if err != nil {
		return nil, err
	}

	return poll(ctx, b.pollInterval, b.pollBudget, func(ctx context.Context) (bool, []byte, error) {
		op, err := b.operation(ctx, opName)
		if err != nil {
			return false, nil, err
		}
		if !op.Done {
			return false, nil, nil
		}
		if op.Error != nil {
			return false, nil, fmt.Errorf("veo generation failed: %s", op.Error.Message)
		}

		samples := op.Response.GenerateVideoResponse.GeneratedSamples
		if len(samples) == 0 {
			return false, nil, fmt.Errorf("veo returned no video sample")
		}
		video := samples[0].Video
		if video.BytesBase64Encoded != "" {
			data, err := base64.StdEncoding.DecodeString(video.BytesBase64Encoded)
			if err != nil {
				return false, nil, fmt.Errorf("decode veo payload: %w", err)
			}
			return true, data, nil
		}
		if video.URI != "" {
			data, err := download(ctx, video.URI+"&key="+b.apiKey)
			if err != nil {
				return false, nil, err
			}
			return true, data, nil
		}
		return false, nil, fmt.Errorf("veo returned neither payload nor URI")
	})
}

func (b *veo) start(ctx context.Context, image []byte, prompt string) (string, error) {
	var req veoStartRequest
	req.Instances = make([]struct {
		Prompt string `json:"prompt"`
		Image  struct {
			BytesBase64Encoded string `json:"bytesBase64Encoded"`
			MimeType           string `json:"mimeType"`
		} `json:"image"`
	}, 1)
	req.Instances[0].Prompt = prompt
	req.Instances[0].Image.BytesBase64Encoded = base64.StdEncoding.EncodeToString(image)
	req.Instances[0].Image.MimeType = "image/png"

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal veo request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:predictLongRunning?key=%s", geminiEndpoint, b.model, b.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build veo request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("veo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return "", WrapFatal(fmt.Errorf("veo HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(errBody)))
	}

	var op veoOperation
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return "", fmt.Errorf("decode veo operation: %w", err)
	}
	if op.Name == "" {
		return "", fmt.Errorf("veo returned no operation name")
	}
	return op.Name, nil
}

func (b *veo) operation(ctx context.Context, name string) (*veoOperation, error) {
	url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/%s?key=%s", name, b.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build veo poll request: %w", err)
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("veo poll: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("veo poll HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(errBody))
	}

	var op veoOperation
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return nil, fmt.Errorf("decode veo poll response: %w", err)
	}
	return &op, nil
}
