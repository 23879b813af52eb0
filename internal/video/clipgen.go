package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/castvid/castvid-go/internal/backend"
	"github.com/castvid/castvid-go/internal/story"
)

const clipSuffix = "_video.mp4"

const clipInstruction = " Make a video that fits this situation."

// ClipGenerator animates cut stills into short clips.
type ClipGenerator struct {
	video        backend.VideoBackend
	imageDir     string
	clipDir      string
	skipExisting bool
}

func NewClipGenerator(video backend.VideoBackend, imageDir, clipDir string, skipExisting bool) *ClipGenerator {
	return &ClipGenerator{video: video, imageDir: imageDir, clipDir: clipDir, skipExisting: skipExisting}
}

// ClipPath returns where the clip for the given scene and cut position
// lives.
func (g *ClipGenerator) ClipPath(scene, cut int) string {
	return filepath.Join(g.clipDir, FormatKey(scene, cut)+clipSuffix)
}

// cutImages lists the .png stills in the image directory in address order.
func (g *ClipGenerator) cutImages() ([]string, error) {
	entries, err := os.ReadDir(g.imageDir)
	if err != nil {
		return nil, fmt.Errorf("read cut image dir: %w", err)
	}
	var images []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".png") {
			continue
		}
		images = append(images, e.Name())
	}
	sort.Strings(images)
	return images, nil
}

// GenerateAll animates every still in the image directory. The scene and
// cut the still belongs to are recovered from its filename; a file that
// does not parse as an address, or that addresses a cut outside the
// storyboard, is an error for that item, never a silent skip. Per-item
// failures are joined; fatal API errors abort the batch.
func (g *ClipGenerator) GenerateAll(ctx context.Context, cuts [][]story.Cut) error {
	images, err := g.cutImages()
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return fmt.Errorf("no cut images in %s", g.imageDir)
	}
	if err := os.MkdirAll(g.clipDir, 0755); err != nil {
		return fmt.Errorf("create clip dir: %w", err)
	}

	var failures []error
	for _, name := range images {
		key := strings.TrimSuffix(name, ".png")
		sceneNo, cutNo, err := ParseKey(key)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		if sceneNo > len(cuts) || cutNo > len(cuts[sceneNo-1]) {
			failures = append(failures, fmt.Errorf("image %s addresses a cut outside the storyboard", name))
			continue
		}
		cut := cuts[sceneNo-1][cutNo-1]

		clipPath := g.ClipPath(sceneNo, cutNo)
		if g.skipExisting {
			if _, err := os.Stat(clipPath); err == nil {
				slog.Info("clip exists, skipping", "key", key)
				continue
			}
		}

		image, err := os.ReadFile(filepath.Join(g.imageDir, name))
		if err != nil {
			failures = append(failures, fmt.Errorf("clip %s: %w", key, err))
			continue
		}

		data, err := g.video.Animate(ctx, image, cut.Description+clipInstruction)
		if err != nil {
			err = backend.WrapFatal(err)
			failures = append(failures, fmt.Errorf("clip %s: %w", key, err))
			if errors.Is(err, backend.ErrFatalAPI) {
				return errors.Join(failures...)
			}
			slog.Error("clip generation failed", "key", key, "error", err)
			continue
		}

		if err := os.WriteFile(clipPath, data, 0644); err != nil {
			failures = append(failures, fmt.Errorf("clip %s: %w", key, err))
			continue
		}
		slog.Info("clip done", "key", key, "path", clipPath)
	}
	return errors.Join(failures...)
}
