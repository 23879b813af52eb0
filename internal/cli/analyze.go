package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/castvid/castvid-go/internal/analyze"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <synopsis-file>",
	Short: "Extract entity drafts from a synopsis",
	Long: `Analyze a synopsis and extract its characters, locations and objects
into draft entries.

The raw analysis and the parsed drafts are saved under the project's
analyzer directory. Run 'castvid create-entities' afterwards to turn the
drafts into the entity registry with reference images.

Example:
  castvid analyze story.txt --work-dir out --project noir`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	synopsis, err := readSynopsis(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	text, err := getText(ctx)
	if err != nil {
		return err
	}

	analyzer := analyze.NewAnalyzer(text, layout.AnalyzerDir)
	drafts, err := analyzer.Analyze(ctx, synopsis)
	if err != nil {
		return err
	}
	if len(drafts) == 0 {
		printHint("No entities extracted; try again or adjust the synopsis.")
		return nil
	}

	for _, d := range drafts {
		fmt.Printf("  %-10s %s\n", d.Kind, d.Name)
	}
	printSuccess("Extracted %d entity drafts", len(drafts))
	printHint("Drafts saved to %s", filepath.Join(layout.AnalyzerDir, analyze.DraftJSONFile))
	return nil
}
