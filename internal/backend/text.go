package backend

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/castvid/castvid-go/internal/config"
)

// TextModel wraps a langchaingo LLM behind the TextBackend interface.
type TextModel struct {
	llm       llms.Model
	modelName string
}

var _ TextBackend = (*TextModel)(nil)

// NewTextModel creates a text backend based on configuration.
func NewTextModel(ctx context.Context, cfg config.Config) (*TextModel, error) {
	var model llms.Model
	var err error

	switch cfg.TextProvider {
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.TextModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.TextModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.TextModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderGoogle:
		if cfg.GoogleAPIKey == "" {
			return nil, fmt.Errorf("Google API key required")
		}
		model, err = googleai.New(ctx,
			googleai.WithAPIKey(cfg.GoogleAPIKey),
			googleai.WithDefaultModel(cfg.TextModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create googleai model: %w", err)
		}

	case config.ProviderBedrock:
		awsCfg, awsErr := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if awsErr != nil {
			return nil, fmt.Errorf("load AWS config: %w", awsErr)
		}
		model, err = bedrock.New(
			bedrock.WithClient(bedrockruntime.NewFromConfig(awsCfg)),
			bedrock.WithModel(cfg.TextModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create bedrock model: %w", err)
		}

	default:
		return nil, fmt.Errorf("%w: text provider %q", ErrUnknownBackend, cfg.TextProvider)
	}

	return &TextModel{
		llm:       model,
		modelName: cfg.TextModel,
	}, nil
}

// Complete generates text from a single user prompt.
func (m *TextModel) Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error) {
	response, err := llms.GenerateFromSinglePrompt(ctx, m.llm, prompt, callOptions(opts)...)
	if err != nil {
		return "", WrapFatal(fmt.Errorf("complete: %w", err))
	}
	return response, nil
}

// CompleteWithSystem generates text with a system prompt.
func (m *TextModel) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string, opts CompleteOptions) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	response, err := m.llm.GenerateContent(ctx, messages, callOptions(opts)...)
	if err != nil {
		return "", WrapFatal(fmt.Errorf("complete with system: %w", err))
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return response.Choices[0].Content, nil
}

// CompleteWithImage analyzes an image together with context text. Used by
// the multimodal editor to derive a description from an uploaded picture.
func (m *TextModel) CompleteWithImage(ctx context.Context, image []byte, contextText string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem,
			"You are an expert computer vision assistant. Analyze the given image and return a concise, factual description."),
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.BinaryPart("image/png", image),
				llms.TextPart(contextText),
			},
		},
	}

	response, err := m.llm.GenerateContent(ctx, messages, llms.WithTemperature(0.2))
	if err != nil {
		return "", WrapFatal(fmt.Errorf("complete with image: %w", err))
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return response.Choices[0].Content, nil
}

// Model returns the configured model name.
func (m *TextModel) Model() string {
	return m.modelName
}

func callOptions(opts CompleteOptions) []llms.CallOption {
	var out []llms.CallOption
	if opts.Temperature > 0 {
		out = append(out, llms.WithTemperature(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		out = append(out, llms.WithMaxTokens(opts.MaxTokens))
	}
	return out
}
