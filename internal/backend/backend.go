// Package backend abstracts the external generative AI providers behind one
// capability interface per role: text completion, image generation/editing,
// and image-to-video animation. The pipeline depends only on these
// interfaces; concrete adapters are selected by explicit configuration.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownBackend is returned when configuration names a backend no
// adapter exists for. This is misconfiguration, not a transient failure.
var ErrUnknownBackend = errors.New("unknown backend")

// ErrPollTimeout is returned when an asynchronous generation operation does
// not reach a terminal status within the configured wait budget. It is
// distinct from a provider-reported failure.
var ErrPollTimeout = errors.New("poll budget exhausted")

// ErrFatalAPI marks provider errors that will not succeed on retry
// (authentication, billing, quota). Batch stages abort on these instead of
// burning through the remaining items.
var ErrFatalAPI = errors.New("fatal API error")

// CompleteOptions tunes a single text completion.
type CompleteOptions struct {
	Temperature float64
	MaxTokens   int
}

// TextBackend generates text from prompts, with a vision variant for
// image-conditioned analysis.
type TextBackend interface {
	Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string, opts CompleteOptions) (string, error)
	CompleteWithImage(ctx context.Context, image []byte, contextText string) (string, error)
}

// ImageCapabilities describes what an image backend supports so callers can
// pick the right invocation mode and parameter set.
type ImageCapabilities struct {
	// Edit reports whether image-conditioned generation is available.
	Edit bool
	// AspectRatio reports whether the backend takes an aspect-ratio enum
	// instead of fixed pixel sizes.
	AspectRatio bool
}

// ImageBackend produces images from text, optionally conditioned on
// reference images.
type ImageBackend interface {
	Name() string
	Capabilities() ImageCapabilities
	Generate(ctx context.Context, prompt string) ([]byte, error)
	Edit(ctx context.Context, prompt string, references [][]byte) ([]byte, error)
}

// VideoBackend animates a still image into a short clip. Adapters hide the
// provider's polling protocol and return either raw video bytes or an error.
type VideoBackend interface {
	Name() string
	Animate(ctx context.Context, image []byte, prompt string) ([]byte, error)
}

var fatalPatterns = []string{
	"credit balance",
	"rate limit",
	"quota",
	"billing",
	"invalid api key",
	"api key not valid",
	"authentication",
	"unauthorized",
	"401",
	"403",
}

func isFatalAPIError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range fatalPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// WrapFatal tags err with ErrFatalAPI when it looks non-retryable, so batch
// loops can test with errors.Is and bail out early.
func WrapFatal(err error) error {
	if err == nil || errors.Is(err, ErrFatalAPI) {
		return err
	}
	if isFatalAPIError(err) {
		return fmt.Errorf("%w: %w", ErrFatalAPI, err)
	}
	return err
}
