package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/castvid/castvid-go/internal/analyze"
	"github.com/castvid/castvid-go/internal/reference"
	"github.com/castvid/castvid-go/internal/story"
	"github.com/castvid/castvid-go/internal/video"
)

var runSkipExisting bool

var runCmd = &cobra.Command{
	Use:   "run <synopsis-file>",
	Short: "Run the whole pipeline end to end",
	Long: `Run every stage in order: analyze, create-entities, scenes, cuts,
cut-images, cut-videos and concat. Each stage persists its artifacts, so a
failed run can be resumed stage by stage with the individual commands.`,
	Args: cobra.ExactArgs(1),
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().BoolVar(&runSkipExisting, "skip-existing", false, "skip cut images and clips that already exist")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	synopsis, err := readSynopsis(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	text, err := getText(ctx)
	if err != nil {
		return err
	}
	image, err := getImage()
	if err != nil {
		return err
	}
	vb, err := getVideo()
	if err != nil {
		return err
	}

	printStatus("[1/7] analyzing synopsis")
	drafts, err := analyze.NewAnalyzer(text, layout.AnalyzerDir).Analyze(ctx, synopsis)
	if err != nil {
		return err
	}
	if len(drafts) == 0 {
		return fmt.Errorf("no entities extracted from the synopsis")
	}

	printStatus("[2/7] creating reference images for %d entities", len(drafts))
	creator := reference.NewCreator(image, layout.ImagesDir, cfg.ImageStyle)
	registry, err := creator.CreateAll(ctx, drafts)
	if saveErr := saveRegistry(registry); saveErr != nil {
		return saveErr
	}
	if err != nil {
		return err
	}

	printStatus("[3/7] splitting into scenes")
	generator := story.NewGenerator(text, cfg.Temperature)
	scenes, err := generator.GenerateScenes(ctx, synopsis)
	if err != nil {
		return err
	}
	if err := story.SaveScenes(layout.ScenePath, scenes); err != nil {
		return err
	}

	printStatus("[4/7] breaking %d scenes into cuts", len(scenes))
	cuts := make([][]story.Cut, 0, len(scenes))
	for _, scene := range scenes {
		sceneCuts, err := generator.GenerateCuts(ctx, synopsis, scene, registry)
		if err != nil {
			return err
		}
		cuts = append(cuts, sceneCuts)
	}
	if err := story.SaveCuts(layout.CutPath, cuts); err != nil {
		return err
	}

	printStatus("[5/7] rendering cut images")
	imager := video.NewImager(image, registry, layout.ImagesDir, layout.CutImageDir, cfg.ImageStyle, runSkipExisting)
	if err := imager.GenerateAll(ctx, cuts); err != nil {
		return err
	}

	printStatus("[6/7] animating clips")
	clips := video.NewClipGenerator(vb, layout.CutImageDir, layout.ClipDir, runSkipExisting)
	if err := clips.GenerateAll(ctx, cuts); err != nil {
		return err
	}

	printStatus("[7/7] concatenating")
	if err := video.Concat(ctx, layout.ClipDir, layout.ClipListPath, layout.FinalPath); err != nil {
		return err
	}

	printSuccess("Final video: %s", layout.FinalPath)
	return nil
}
