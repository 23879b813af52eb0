package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/castvid/castvid-go/internal/analyze"
	"github.com/castvid/castvid-go/internal/backend"
	"github.com/castvid/castvid-go/internal/entity"
	"github.com/castvid/castvid-go/internal/reference"
)

var createEntitiesCmd = &cobra.Command{
	Use:   "create-entities",
	Short: "Generate reference images and build the entity registry",
	Long: `Turn the entity drafts produced by 'castvid analyze' into the entity
registry: one reference image is generated per named entity and the
registry is written to the project's entity list.

Entities whose image generation fails are kept in the registry without an
image; re-running this command only regenerates what is missing when
--skip-existing is set.`,
	RunE: runCreateEntities,
}

var createSkipExisting bool

func init() {
	createEntitiesCmd.Flags().BoolVar(&createSkipExisting, "skip-existing", false, "keep registry entries that already have an image")
}

func runCreateEntities(cmd *cobra.Command, args []string) error {
	drafts, err := analyze.LoadDrafts(filepath.Join(layout.AnalyzerDir, analyze.DraftJSONFile))
	if err != nil {
		return fmt.Errorf("load drafts (run 'castvid analyze' first?): %w", err)
	}

	image, err := getImage()
	if err != nil {
		return err
	}
	creator := reference.NewCreator(image, layout.ImagesDir, cfg.ImageStyle)

	if createSkipExisting {
		return resumeCreate(creator, drafts)
	}

	records, err := creator.CreateAll(context.Background(), drafts)
	if saveErr := saveRegistry(records); saveErr != nil {
		return errors.Join(err, saveErr)
	}
	if err != nil {
		return err
	}
	printSuccess("Registry written with %d entities", len(records))
	return nil
}

// resumeCreate regenerates only the registry entries that have no image,
// preserving everything an earlier run already produced.
func resumeCreate(creator *reference.Creator, drafts []analyze.Draft) error {
	records, err := entity.Load(layout.EntityListPath)
	if err != nil {
		// No registry yet: resume degenerates to a full run.
		records, err = creator.CreateAll(context.Background(), drafts)
		if saveErr := saveRegistry(records); saveErr != nil {
			return errors.Join(err, saveErr)
		}
		return err
	}

	regenerated := 0
	for i, rec := range records {
		if rec.IsSentinel() || rec.HasImage() {
			continue
		}
		filename, err := creator.CreateImage(context.Background(), rec.Kind, rec.Name, rec.Description, nil)
		if err != nil {
			if errors.Is(err, backend.ErrFatalAPI) {
				if saveErr := saveRegistry(records); saveErr != nil {
					return errors.Join(err, saveErr)
				}
				return err
			}
			fmt.Printf("  failed: %s %q: %v\n", rec.Kind, rec.Name, err)
			continue
		}
		records[i].Image = filename
		regenerated++
	}

	if err := saveRegistry(records); err != nil {
		return err
	}
	printSuccess("Regenerated %d missing reference images", regenerated)
	return nil
}

func saveRegistry(records []entity.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := entity.Save(layout.EntityListPath, records); err != nil {
		return fmt.Errorf("save entity registry: %w", err)
	}
	printHint("Registry: %s", layout.EntityListPath)
	return nil
}
