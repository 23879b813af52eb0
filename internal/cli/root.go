// Package cli provides the command-line interface for castvid.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/castvid/castvid-go/internal/backend"
	"github.com/castvid/castvid-go/internal/config"
	"github.com/castvid/castvid-go/internal/entity"
	"github.com/castvid/castvid-go/internal/project"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	workDir     string
	projectName string
	verbose     bool

	// Global config and derived layout
	cfg    config.Config
	layout project.Layout

	logCleanup func() error

	// Lazy-initialized backends
	textBackend  *backend.TextModel
	imageBackend backend.ImageBackend
	videoBackend backend.VideoBackend
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "castvid",
	Short: "Synopsis-to-video pipeline with a consistent cast",
	Long: `Castvid turns a story synopsis into a finished video in stages:
entity extraction, reference images, scenes, cuts, cut images, clips and
final concatenation.

Every stage persists its output under the work directory, so stages can be
re-run independently and a registry of characters, locations and objects
keeps the cast visually consistent across every cut.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "styles" {
			return nil
		}

		cfg = config.Load()

		var err error
		cfg, err = cfg.ApplyOverrides(workDir)
		if err != nil {
			return fmt.Errorf("load overrides: %w", err)
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		slog.SetDefault(logger)
		logCleanup = cleanup

		layout = project.NewLayout(workDir, projectName)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCleanup != nil {
			if err := logCleanup(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// getText initializes the text backend on first use. Commands that only
// touch local artifacts never pay for provider setup.
func getText(ctx context.Context) (*backend.TextModel, error) {
	if textBackend == nil {
		var err error
		textBackend, err = backend.NewTextModel(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("init text backend: %w", err)
		}
	}
	return textBackend, nil
}

func getImage() (backend.ImageBackend, error) {
	if imageBackend == nil {
		var err error
		imageBackend, err = backend.NewImageBackend(cfg)
		if err != nil {
			return nil, fmt.Errorf("init image backend: %w", err)
		}
	}
	return imageBackend, nil
}

func getVideo() (backend.VideoBackend, error) {
	if videoBackend == nil {
		var err error
		videoBackend, err = backend.NewVideoBackend(cfg)
		if err != nil {
			return nil, fmt.Errorf("init video backend: %w", err)
		}
	}
	return videoBackend, nil
}

// loadRegistry reads the entity registry of the current project.
func loadRegistry() ([]entity.Record, error) {
	records, err := entity.Load(layout.EntityListPath)
	if err != nil {
		return nil, fmt.Errorf("load entity registry (run 'castvid create-entities' first?): %w", err)
	}
	return records, nil
}

// readSynopsis reads the synopsis text given as a file argument.
func readSynopsis(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read synopsis: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("synopsis file %s is empty", path)
	}
	return string(data), nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&workDir, "work-dir", "w", ".", "work directory holding project artifacts")
	rootCmd.PersistentFlags().StringVarP(&projectName, "project", "p", "", "project name (subdirectory of the work dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(createEntitiesCmd)
	rootCmd.AddCommand(entityCmd)
	rootCmd.AddCommand(scenesCmd)
	rootCmd.AddCommand(cutsCmd)
	rootCmd.AddCommand(cutImagesCmd)
	rootCmd.AddCommand(cutVideosCmd)
	rootCmd.AddCommand(concatCmd)
	rootCmd.AddCommand(stylesCmd)
	rootCmd.AddCommand(runCmd)
}
