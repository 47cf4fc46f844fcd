package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/qarve/qarve/pkg/project"
)

// newStyleCmd creates the style command, which exports one style
// payload verbatim for use as a standalone style file.
func newStyleCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "style <project.qgs|project.qgz> <layer-id> [style-name]",
		Short: "Export one style payload verbatim",
		Long: `Export the serialized payload of one layer style, exactly as stored
in the project. With no style name the layer's current style is used.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := project.LoadFile(args[0])
			if err != nil {
				return err
			}
			styleName := ""
			if len(args) == 3 {
				styleName = args[2]
			}
			data, err := g.StylePayload(args[1], styleName)
			if err != nil {
				return err
			}
			return writePayload(data, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	return cmd
}

// writePayload writes data to path, or stdout when path is empty.
func writePayload(data []byte, path string) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	printSuccess("wrote payload")
	printFile(path)
	return nil
}
