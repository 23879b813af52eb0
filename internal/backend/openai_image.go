package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/castvid/castvid-go/internal/config"
)

// openaiImage serves gpt-image-1 and dall-e-3. gpt-image-1 supports
// image-conditioned editing and returns base64 payloads; dall-e-3 is
// text-to-image only and returns URLs that must be downloaded.
type openaiImage struct {
	client  openai.Client
	model   string
	size    string
	quality string
}

var _ ImageBackend = (*openaiImage)(nil)

func newOpenAIImage(cfg config.Config) *openaiImage {
	return &openaiImage{
		client:  openai.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey)),
		model:   cfg.ImageModel,
		size:    cfg.ImageSize,
		quality: cfg.ImageQuality,
	}
}

func (b *openaiImage) Name() string { return b.model }

func (b *openaiImage) Capabilities() ImageCapabilities {
	return ImageCapabilities{
		Edit:        b.model == "gpt-image-1",
		AspectRatio: false,
	}
}

func (b *openaiImage) Generate(ctx context.Context, prompt string) ([]byte, error) {
	params := openai.ImageGenerateParams{
		Model:  openai.ImageModel(b.model),
		Prompt: prompt,
		Size:   openai.ImageGenerateParamsSize(b.size),
	}
	if b.model == "gpt-image-1" {
		params.Quality = openai.ImageGenerateParamsQuality(b.quality)
	}

	res, err := b.client.Images.Generate(ctx, params)
	if err != nil {
		return nil, WrapFatal(fmt.Errorf("openai image generate: %w", err))
	}
	return b.decode(ctx, res)
}

func (b *openaiImage) Edit(ctx context.Context, prompt string, references [][]byte) ([]byte, error) {
	if !b.Capabilities().Edit {
		return nil, fmt.Errorf("%s does not support image editing", b.model)
	}

	files := make([]io.Reader, 0, len(references))
	for i, ref := range references {
		files = append(files, openai.File(bytes.NewReader(ref), fmt.Sprintf("reference-%d.png", i), "image/png"))
	}

	res, err := b.client.Images.Edit(ctx, openai.ImageEditParams{
		Model:   openai.ImageModel(b.model),
		Image:   openai.ImageEditParamsImageUnion{OfFileArray: files},
		Prompt:  prompt,
		Size:    openai.ImageEditParamsSize(b.size),
		Quality: openai.ImageEditParamsQuality(b.quality),
	})
	if err != nil {
		return nil, WrapFatal(fmt.Errorf("openai image edit: %w", err))
	}
	return b.decode(ctx, res)
}

func (b *openaiImage) decode(ctx context.Context, res *openai.ImagesResponse) ([]byte, error) {
	if len(res.Data) == 0 {
		return nil, fmt.Errorf("openai returned no image data")
	}
	img := res.Data[0]

	if img.B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(img.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("decode image payload: %w", err)
		}
		return data, nil
	}
	if img.URL != "" {
		return download(ctx, img.URL)
	}
	return nil, fmt.Errorf("openai returned neither payload nor URL")
}

func download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download generated asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download generated asset: HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
