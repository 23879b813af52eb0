package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/castvid/castvid-go/internal/config"
)

// NewVideoBackend selects the video adapter named by cfg.VideoModel.
func NewVideoBackend(cfg config.Config) (VideoBackend, error) {
	switch {
	case strings.HasPrefix(cfg.VideoModel, "veo"):
		if cfg.GoogleAPIKey == "" {
			return nil, fmt.Errorf("Google API key required")
		}
		return newVeo(cfg), nil

	case cfg.VideoModel == "runway":
		if cfg.RunwayAPIKey == "" {
			return nil, fmt.Errorf("Runway API key required")
		}
		return newRunway(cfg), nil

	default:
		return nil, fmt.Errorf("%w: video model %q", ErrUnknownBackend, cfg.VideoModel)
	}
}

// pollFn checks an in-flight operation once. done is true at any terminal
// status; result carries the video bytes on success.
type pollFn func(ctx context.Context) (done bool, result []byte, err error)

// poll drives fn at a fixed interval until it reports a terminal status or
// the wait budget runs out. The budget exists because providers put no upper
// bound on generation time; exceeding it yields ErrPollTimeout, which callers
// can distinguish from a provider-reported failure.
func poll(ctx context.Context, interval, budget time.Duration, fn pollFn) ([]byte, error) {
	deadline := time.Now().Add(budget)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, result, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if done {
			return result, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w after %s", ErrPollTimeout, budget)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
