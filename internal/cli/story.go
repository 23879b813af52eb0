package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/castvid/castvid-go/internal/story"
)

var scenesCmd = &cobra.Command{
	Use:   "scenes <synopsis-file>",
	Short: "Split the synopsis into scenes",
	Long: `Split the synopsis into ordered scenes and write them to the project's
scene file, one JSON object per line.`,
	Args: cobra.ExactArgs(1),
	RunE: runScenes,
}

var cutsCmd = &cobra.Command{
	Use:   "cuts <synopsis-file>",
	Short: "Break each scene into cuts",
	Long: `Break every scene into 3-5 cuts referencing registry entities by exact
name, and write them to the project's cut file: one JSON array per line,
line N holding the cuts of scene N.

Requires 'castvid scenes' and 'castvid create-entities' to have run.`,
	Args: cobra.ExactArgs(1),
	RunE: runCuts,
}

func runScenes(cmd *cobra.Command, args []string) error {
	synopsis, err := readSynopsis(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	text, err := getText(ctx)
	if err != nil {
		return err
	}

	scenes, err := story.NewGenerator(text, cfg.Temperature).GenerateScenes(ctx, synopsis)
	if err != nil {
		return err
	}
	if err := story.SaveScenes(layout.ScenePath, scenes); err != nil {
		return err
	}

	for _, s := range scenes {
		fmt.Printf("  scene %d: %s\n", s.SceneID, s.Title)
	}
	printSuccess("Wrote %d scenes to %s", len(scenes), layout.ScenePath)
	return nil
}

func runCuts(cmd *cobra.Command, args []string) error {
	synopsis, err := readSynopsis(args[0])
	if err != nil {
		return err
	}
	scenes, err := story.LoadScenes(layout.ScenePath)
	if err != nil {
		return fmt.Errorf("load scenes (run 'castvid scenes' first?): %w", err)
	}
	registry, err := loadRegistry()
	if err != nil {
		return err
	}

	ctx := context.Background()
	text, err := getText(ctx)
	if err != nil {
		return err
	}
	generator := story.NewGenerator(text, cfg.Temperature)

	cuts := make([][]story.Cut, 0, len(scenes))
	total := 0
	for _, scene := range scenes {
		sceneCuts, err := generator.GenerateCuts(ctx, synopsis, scene, registry)
		if err != nil {
			return err
		}
		cuts = append(cuts, sceneCuts)
		total += len(sceneCuts)
		printStatus("scene %d: %d cuts", scene.SceneID, len(sceneCuts))
	}

	if err := story.SaveCuts(layout.CutPath, cuts); err != nil {
		return err
	}
	printSuccess("Wrote %d cuts across %d scenes to %s", total, len(scenes), layout.CutPath)
	return nil
}
