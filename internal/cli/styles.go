package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/castvid/castvid-go/internal/reference"
)

var stylesCmd = &cobra.Command{
	Use:   "styles",
	Short: "List the available image style presets",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range reference.StyleNames() {
			fmt.Printf("  %-14s %s\n", name, reference.StyleDescription(name))
		}
		printHint("Set CASTVID_IMAGE_STYLE or image_style in castvid.yaml")
	},
}
