package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/castvid/castvid-go/internal/story"
	"github.com/castvid/castvid-go/internal/video"
)

var (
	cutImagesSkipExisting bool
	cutVideosSkipExisting bool
)

var cutImagesCmd = &cobra.Command{
	Use:   "cut-images",
	Short: "Render a still image for every cut",
	Long: `Render one still image per cut, conditioned on the reference images of
the entities each cut names. Images are written as S####-C####.png under
the project's video directory.

With --skip-existing, cuts whose image is already on disk are left alone,
so an interrupted batch can resume without regenerating finished work.`,
	RunE: runCutImages,
}

var cutVideosCmd = &cobra.Command{
	Use:   "cut-videos",
	Short: "Animate every cut image into a clip",
	Long: `Animate each S####-C####.png still into a short clip via the configured
video backend. Clips are written as S####-C####_video.mp4.`,
	RunE: runCutVideos,
}

var concatCmd = &cobra.Command{
	Use:   "concat",
	Short: "Concatenate all clips into the final video",
	Long: `Concatenate the generated clips in address order into the final video
using ffmpeg's concat demuxer. ffmpeg must be installed.`,
	RunE: runConcat,
}

func init() {
	cutImagesCmd.Flags().BoolVar(&cutImagesSkipExisting, "skip-existing", false, "skip cuts whose image already exists")
	cutVideosCmd.Flags().BoolVar(&cutVideosSkipExisting, "skip-existing", false, "skip cuts whose clip already exists")
}

func loadCuts() ([][]story.Cut, error) {
	cuts, err := story.LoadCuts(layout.CutPath)
	if err != nil {
		return nil, fmt.Errorf("load cuts (run 'castvid cuts' first?): %w", err)
	}
	return cuts, nil
}

func runCutImages(cmd *cobra.Command, args []string) error {
	cuts, err := loadCuts()
	if err != nil {
		return err
	}
	registry, err := loadRegistry()
	if err != nil {
		return err
	}
	image, err := getImage()
	if err != nil {
		return err
	}

	imager := video.NewImager(image, registry, layout.ImagesDir, layout.CutImageDir, cfg.ImageStyle, cutImagesSkipExisting)
	if err := imager.GenerateAll(context.Background(), cuts); err != nil {
		return err
	}
	printSuccess("Cut images written to %s", layout.CutImageDir)
	return nil
}

func runCutVideos(cmd *cobra.Command, args []string) error {
	cuts, err := loadCuts()
	if err != nil {
		return err
	}
	vb, err := getVideo()
	if err != nil {
		return err
	}

	gen := video.NewClipGenerator(vb, layout.CutImageDir, layout.ClipDir, cutVideosSkipExisting)
	if err := gen.GenerateAll(context.Background(), cuts); err != nil {
		return err
	}
	printSuccess("Clips written to %s", layout.ClipDir)
	return nil
}

func runConcat(cmd *cobra.Command, args []string) error {
	if err := video.Concat(context.Background(), layout.ClipDir, layout.ClipListPath, layout.FinalPath); err != nil {
		return err
	}
	printSuccess("Final video: %s", layout.FinalPath)
	return nil
}
