package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/castvid/castvid-go/internal/entity"
	"github.com/castvid/castvid-go/internal/multimodal"
	"github.com/castvid/castvid-go/internal/reference"
)

var entityCmd = &cobra.Command{
	Use:   "entity",
	Short: "Inspect and edit the entity registry",
}

var (
	entityInstruction string
	entityNewName     string
	entityImages      []string
)

var entityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the entity registry",
	RunE:  runEntityList,
}

var entityEditCmd = &cobra.Command{
	Use:   "edit <index>",
	Short: "Edit a registry entry with text and optional images",
	Long: `Edit the registry entry at the given index (as shown by 'castvid entity
list'). The instruction and any uploaded images are distilled into an
updated description, and the entry's reference image is regenerated so it
stays consistent with its previous look.

Examples:
  castvid entity edit 0 -i "dye her hair red"
  castvid entity edit 0 -i "she goes by a new alias now" --name "Scarlet"
  castvid entity edit 2 -i "make it look like this" --image photo.png`,
	Args: cobra.ExactArgs(1),
	RunE: runEntityEdit,
}

var entityAddCmd = &cobra.Command{
	Use:   "add <kind> <name>",
	Short: "Add a new entity to the registry",
	Long: `Add a new character, location or object to the registry, described by
the instruction and any uploaded images. The entry is only registered once
its reference image has been generated.

Example:
  castvid entity add location "lighthouse" -i "a lighthouse on a stormy cliff"`,
	Args: cobra.ExactArgs(2),
	RunE: runEntityAdd,
}

func init() {
	for _, cmd := range []*cobra.Command{entityEditCmd, entityAddCmd} {
		cmd.Flags().StringVarP(&entityInstruction, "instruction", "i", "", "free-text change request")
		cmd.Flags().StringSliceVar(&entityImages, "image", nil, "image file to condition the edit on (repeatable)")
	}
	entityEditCmd.Flags().StringVar(&entityNewName, "name", "", "rename the entity")
	entityCmd.AddCommand(entityListCmd)
	entityCmd.AddCommand(entityEditCmd)
	entityCmd.AddCommand(entityAddCmd)
}

func runEntityList(cmd *cobra.Command, args []string) error {
	records, err := loadRegistry()
	if err != nil {
		return err
	}
	for i, r := range records {
		image := "-"
		if r.HasImage() {
			image = filepath.Join(layout.ImagesDir, r.Image)
		}
		fmt.Printf("%3d  %-10s %-24s %s\n", i, r.Kind, r.Name, image)
		if verbose {
			fmt.Printf("     %s\n", r.Description)
		}
	}
	printHint("%d entities", len(records))
	return nil
}

// newEditor wires the multimodal editor against the configured backends.
func newEditor(ctx context.Context) (*multimodal.Editor, error) {
	text, err := getText(ctx)
	if err != nil {
		return nil, err
	}
	image, err := getImage()
	if err != nil {
		return nil, err
	}
	creator := reference.NewCreator(image, layout.ImagesDir, cfg.ImageStyle)
	return multimodal.NewEditor(text, creator), nil
}

// loadUploads reads the --image files and archives a copy of each under the
// project's image directory, so an edit can be traced back to what the user
// actually uploaded.
func loadUploads() ([][]byte, error) {
	var uploads [][]byte
	for _, path := range entityImages {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read upload %s: %w", path, err)
		}
		uploads = append(uploads, data)

		if err := os.MkdirAll(layout.ImagesDir, 0755); err != nil {
			return nil, fmt.Errorf("create images dir: %w", err)
		}
		archived := filepath.Join(layout.ImagesDir, "upload_"+uuid.NewString()+filepath.Ext(path))
		if err := os.WriteFile(archived, data, 0644); err != nil {
			return nil, fmt.Errorf("archive upload: %w", err)
		}
	}
	return uploads, nil
}

func runEntityEdit(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("entity index must be a number, got %q", args[0])
	}

	records, err := loadRegistry()
	if err != nil {
		return err
	}
	uploads, err := loadUploads()
	if err != nil {
		return err
	}

	ctx := context.Background()
	editor, err := newEditor(ctx)
	if err != nil {
		return err
	}

	updated, err := editor.Edit(ctx, records, index, multimodal.Options{
		Instruction: entityInstruction,
		Name:        entityNewName,
		Images:      uploads,
	})
	if err != nil {
		return err
	}

	records[index] = updated
	if err := entity.Save(layout.EntityListPath, records); err != nil {
		return fmt.Errorf("save entity registry: %w", err)
	}
	printSuccess("Updated %s %q", updated.Kind, updated.Name)
	printHint("New reference image: %s", filepath.Join(layout.ImagesDir, updated.Image))
	return nil
}

func runEntityAdd(cmd *cobra.Command, args []string) error {
	kind, name := entity.Kind(args[0]), args[1]

	records, err := loadRegistry()
	if err != nil {
		return err
	}
	if entity.IndexOf(records, kind, name) >= 0 {
		return fmt.Errorf("%s %q already exists in the registry", kind, name)
	}

	uploads, err := loadUploads()
	if err != nil {
		return err
	}

	ctx := context.Background()
	editor, err := newEditor(ctx)
	if err != nil {
		return err
	}

	added, err := editor.Add(ctx, kind, name, multimodal.Options{
		Instruction: entityInstruction,
		Images:      uploads,
	})
	if err != nil {
		return err
	}

	records = append(records, added)
	if err := entity.Save(layout.EntityListPath, records); err != nil {
		return fmt.Errorf("save entity registry: %w", err)
	}
	printSuccess("Added %s %q", added.Kind, added.Name)
	return nil
}
