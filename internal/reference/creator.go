package reference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/castvid/castvid-go/internal/analyze"
	"github.com/castvid/castvid-go/internal/backend"
	"github.com/castvid/castvid-go/internal/entity"
)

// Per-kind framing instructions. Characters face the camera alone so the
// image works as an identity anchor, locations are empty establishing
// shots, objects sit isolated on a neutral background.
var kindPrompts = map[entity.Kind]string{
	entity.KindCharacter: "A full-body front view of a single character standing alone on a plain neutral background. No other people, no text, no watermark.",
	entity.KindLocation:  "A wide establishing shot of a location with no people or characters present. No text, no watermark.",
	entity.KindObject:    "A single object isolated on a plain neutral background, shown clearly and completely. No people, no text, no watermark.",
}

var unsafeFilename = regexp.MustCompile(`[^a-z0-9._-]+`)

// sanitizeName turns an entity name into a filesystem-safe stem.
func sanitizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = unsafeFilename.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		s = "entity"
	}
	return s
}

// Creator generates reference images for entity drafts and assembles the
// resulting entity records.
type Creator struct {
	image     backend.ImageBackend
	imagesDir string
	style     string
}

func NewCreator(image backend.ImageBackend, imagesDir, style string) *Creator {
	return &Creator{image: image, imagesDir: imagesDir, style: style}
}

// BuildPrompt assembles the image prompt for one entity from its kind
// framing, the configured style and the entity's attribute description.
func (c *Creator) BuildPrompt(kind entity.Kind, name, description string) string {
	framing, ok := kindPrompts[kind]
	if !ok {
		framing = kindPrompts[entity.KindObject]
	}
	return fmt.Sprintf("%s\nStyle: %s.\nThe %s is named %q and has these attributes: %s",
		framing, StyleDescription(c.style), kind, name, description)
}

// CreateImage generates one reference image and saves it under the images
// directory, returning the saved filename. Records carry the bare filename
// so the registry file stays portable; use Path to resolve it. When
// reference bytes are supplied and the backend can edit, generation is
// conditioned on them so the new image stays visually consistent with the
// old one.
func (c *Creator) CreateImage(ctx context.Context, kind entity.Kind, name, description string, refs [][]byte) (string, error) {
	prompt := c.BuildPrompt(kind, name, description)

	var data []byte
	var err error
	if len(refs) > 0 && c.image.Capabilities().Edit {
		data, err = c.image.Edit(ctx, prompt, refs)
	} else {
		data, err = c.image.Generate(ctx, prompt)
	}
	if err != nil {
		return "", backend.WrapFatal(err)
	}

	if err := os.MkdirAll(c.imagesDir, 0755); err != nil {
		return "", fmt.Errorf("create images dir: %w", err)
	}
	filename := c.imageFile(kind, name)
	if err := os.WriteFile(filepath.Join(c.imagesDir, filename), data, 0644); err != nil {
		return "", fmt.Errorf("save reference image: %w", err)
	}
	return filename, nil
}

// Path resolves a registry image filename against the images directory.
func (c *Creator) Path(filename string) string {
	return filepath.Join(c.imagesDir, filename)
}

// imageFile picks a non-colliding filename for the entity. Same-named
// entities of different kinds stay distinct via the kind tag; true
// collisions get a numeric suffix.
func (c *Creator) imageFile(kind entity.Kind, name string) string {
	stem := fmt.Sprintf("%s_%s", sanitizeName(name), kind)
	filename := stem + ".png"
	for n := 2; ; n++ {
		if _, err := os.Stat(filepath.Join(c.imagesDir, filename)); os.IsNotExist(err) {
			return filename
		}
		filename = fmt.Sprintf("%s_%d.png", stem, n)
	}
}

// CreateAll turns drafts into entity records, generating a reference image
// for each named entity. Catch-all sentinel entries are carried through
// without an image. A failed generation is logged and yields a record with
// an empty image path so one flaky call doesn't sink the batch; fatal API
// errors abort immediately with the records produced so far.
func (c *Creator) CreateAll(ctx context.Context, drafts []analyze.Draft) ([]entity.Record, error) {
	records := make([]entity.Record, 0, len(drafts))
	for _, draft := range drafts {
		rec := entity.Record{Kind: draft.Kind, Name: draft.Name, Description: draft.Description}

		if draft.IsSentinel() {
			records = append(records, rec)
			continue
		}

		filename, err := c.CreateImage(ctx, draft.Kind, draft.Name, draft.Description, nil)
		if err != nil {
			if errors.Is(err, backend.ErrFatalAPI) {
				return records, fmt.Errorf("reference image for %s %q: %w", draft.Kind, draft.Name, err)
			}
			slog.Error("reference image generation failed", "kind", draft.Kind, "name", draft.Name, "error", err)
			records = append(records, rec)
			continue
		}

		slog.Info("created reference image", "kind", draft.Kind, "name", draft.Name, "path", c.Path(filename))
		rec.Image = filename
		records = append(records, rec)
	}
	return records, nil
}
