package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/castvid/castvid-go/internal/backend"
	"github.com/castvid/castvid-go/internal/entity"
	"github.com/castvid/castvid-go/internal/reference"
	"github.com/castvid/castvid-go/internal/story"
)

// promptSeparator splits the shot description from the entity context in a
// cut image prompt.
const promptSeparator = " ///// "

const cutImageInstruction = "Render the shot described before the separator. The entries after the separator define the exact appearance of each character, location and object; the attached reference images are authoritative for how they look. Keep every entity visually identical to its reference."

// Imager renders one still image per cut, conditioned on the reference
// images of the entities the cut names. Registry records carry bare image
// filenames, resolved against entityImageDir.
type Imager struct {
	image          backend.ImageBackend
	registry       []entity.Record
	entityImageDir string
	outDir         string
	style          string
	skipExisting   bool
}

// NewImager builds a cut imager writing into outDir. With skipExisting set,
// cuts whose image is already on disk are not regenerated, so an aborted
// batch can be resumed without paying for finished work again.
func NewImager(image backend.ImageBackend, registry []entity.Record, entityImageDir, outDir, style string, skipExisting bool) *Imager {
	return &Imager{
		image:          image,
		registry:       registry,
		entityImageDir: entityImageDir,
		outDir:         outDir,
		style:          style,
		skipExisting:   skipExisting,
	}
}

// selectEntities resolves the cut's entity name lists against the registry
// by exact name. Names with no registry entry and catch-all sentinels are
// skipped with a warning; selection never invents a fuzzy match.
func selectEntities(cut story.Cut, registry []entity.Record) []entity.Record {
	var selected []entity.Record
	pick := func(kind entity.Kind, names []string) {
		for _, name := range names {
			if name == entity.OtherName {
				continue
			}
			idx := entity.IndexOf(registry, kind, name)
			if idx < 0 {
				slog.Warn("cut names unknown entity", "kind", kind, "name", name)
				continue
			}
			selected = append(selected, registry[idx])
		}
	}
	pick(entity.KindCharacter, cut.Character)
	pick(entity.KindLocation, cut.Location)
	pick(entity.KindObject, cut.Object)
	return selected
}

// buildPrompt assembles the image prompt: shot description, separator, one
// (kind, name, description) line per selected entity, the consistency
// instruction and the style.
func (g *Imager) buildPrompt(cut story.Cut, selected []entity.Record) string {
	var b strings.Builder
	b.WriteString(cut.Description)
	b.WriteString(promptSeparator)
	for _, r := range selected {
		fmt.Fprintf(&b, "(%s, %s, %s)\n", r.Kind, r.Name, r.Description)
	}
	b.WriteString(cutImageInstruction)
	fmt.Fprintf(&b, "\nStyle: %s.", reference.StyleDescription(g.style))
	return b.String()
}

// loadReferences reads the reference images of the selected entities.
// Entities without an image, and images missing from disk, are skipped with
// a warning rather than failing the cut.
func (g *Imager) loadReferences(selected []entity.Record) [][]byte {
	var refs [][]byte
	for _, r := range selected {
		if !r.HasImage() {
			continue
		}
		path := filepath.Join(g.entityImageDir, r.Image)
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("reference image unreadable", "name", r.Name, "path", path, "error", err)
			continue
		}
		refs = append(refs, data)
	}
	return refs
}

// ImagePath returns where the still for the given scene and cut position
// lives.
func (g *Imager) ImagePath(scene, cut int) string {
	return filepath.Join(g.outDir, FormatKey(scene, cut)+".png")
}

// GenerateOne renders the image for one cut and returns its path. Cut
// position, not the cut's own id field, determines the address.
func (g *Imager) GenerateOne(ctx context.Context, sceneNo, cutNo int, cut story.Cut) (string, error) {
	path := g.ImagePath(sceneNo, cutNo)
	if g.skipExisting {
		if _, err := os.Stat(path); err == nil {
			slog.Info("cut image exists, skipping", "key", FormatKey(sceneNo, cutNo))
			return path, nil
		}
	}

	selected := selectEntities(cut, g.registry)
	prompt := g.buildPrompt(cut, selected)
	refs := g.loadReferences(selected)

	var data []byte
	var err error
	if len(refs) > 0 && g.image.Capabilities().Edit {
		data, err = g.image.Edit(ctx, prompt, refs)
	} else {
		data, err = g.image.Generate(ctx, prompt)
	}
	if err != nil {
		return "", backend.WrapFatal(err)
	}

	if err := os.MkdirAll(g.outDir, 0755); err != nil {
		return "", fmt.Errorf("create cut image dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("save cut image: %w", err)
	}
	return path, nil
}

// GenerateAll renders every cut of every scene. A failed cut is logged and
// the batch continues; fatal API errors abort. The returned error joins the
// per-cut failures so the caller sees everything that went wrong.
func (g *Imager) GenerateAll(ctx context.Context, cuts [][]story.Cut) error {
	var failures []error
	for s, sceneCuts := range cuts {
		for c, cut := range sceneCuts {
			sceneNo, cutNo := s+1, c+1
			path, err := g.GenerateOne(ctx, sceneNo, cutNo, cut)
			if err != nil {
				if errors.Is(err, backend.ErrFatalAPI) {
					failures = append(failures, fmt.Errorf("cut %s: %w", FormatKey(sceneNo, cutNo), err))
					return errors.Join(failures...)
				}
				slog.Error("cut image failed", "key", FormatKey(sceneNo, cutNo), "error", err)
				failures = append(failures, fmt.Errorf("cut %s: %w", FormatKey(sceneNo, cutNo), err))
				continue
			}
			slog.Info("cut image done", "key", FormatKey(sceneNo, cutNo), "path", path)
		}
	}
	return errors.Join(failures...)
}
