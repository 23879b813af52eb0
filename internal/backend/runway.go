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

const (
	runwayEndpoint   = "https://api.dev.runwayml.com/v1"
	runwayAPIVersion = "2024-11-06"
	runwayModel      = "gen4_turbo"
)

// runway runs Runway's image-to-video API: a task is created synchronously
// and then polled until it reaches a terminal status.
type runway struct {
	apiKey       string
	pollInterval time.Duration
	pollBudget   time.Duration
	client       *http.Client
}

var _ VideoBackend = (*runway)(nil)

func newRunway(cfg config.Config) *runway {
	return &runway{
		apiKey:       cfg.RunwayAPIKey,
		pollInterval: cfg.PollInterval,
		pollBudget:   cfg.PollBudget,
		client:       &http.Client{Timeout: 2 * time.Minute},
	}
}

func (b *runway) Name() string { return "runway" }

type runwayTask struct {
	ID      string   `json:"id"`
	Status  string   `json:"status"`
	Failure string   `json:"failure"`
	Output  []string `json:"output"`
}

func (b *runway) Animate(ctx context.Context, image []byte, prompt string) ([]byte, error) {
	taskID, err := b.createTask(ctx, image, prompt)
	if err != nil {
		return nil, err
	}

	return poll(ctx, b.pollInterval, b.pollBudget, func(ctx context.Context) (bool, []byte, error) {
		task, err := b.task(ctx, taskID)
		if err != nil {
			return false, nil, err
		}
		switch task.Status {
		case "SUCCEEDED":
			if len(task.Output) == 0 {
				return false, nil, fmt.Errorf("runway task succeeded with no output")
			}
			data, err := download(ctx, task.Output[0])
			if err != nil {
				return false, nil, err
			}
			return true, data, nil
		case "FAILED", "CANCELLED":
			return false, nil, fmt.Errorf("runway task %s: %s", task.Status, task.Failure)
		default:
			return false, nil, nil
		}
	})
}

func (b *runway) createTask(ctx context.Context, image []byte, prompt string) (string, error) {
	payload := map[string]any{
		"model":       runwayModel,
		"promptImage": "data:image/png;base64," + base64.StdEncoding.EncodeToString(image),
		"promptText":  prompt,
		"ratio":       "1280:720",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal runway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, runwayEndpoint+"/image_to_video", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build runway request: %w", err)
	}
	b.setHeaders(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("runway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		errBody, _ := io.ReadAll(resp.Body)
		return "", WrapFatal(fmt.Errorf("runway HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(errBody)))
	}

	var task runwayTask
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		return "", fmt.Errorf("decode runway task: %w", err)
	}
	if task.ID == "" {
		return "", fmt.Errorf("runway returned no task id")
	}
	return task.ID, nil
}

func (b *runway) task(ctx context.Context, id string) (*runwayTask, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, runwayEndpoint+"/tasks/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("build runway poll request: %w", err)
	}
	b.setHeaders(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("runway poll: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("runway poll HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(errBody))
	}

	var task runwayTask
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		return nil, fmt.Errorf("decode runway poll response: %w", err)
	}
	return &task, nil
}

func (b *runway) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("X-Runway-Version", runwayAPIVersion)
	req.Header.Set("Content-Type", "application/json")
}
