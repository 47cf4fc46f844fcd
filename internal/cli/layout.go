package cli

import (
	"github.com/spf13/cobra"

	"github.com/qarve/qarve/pkg/project"
)

// newLayoutCmd creates the layout command, which exports one print
// layout's composition payload verbatim. Rendering it is left to
// dedicated tooling.
func newLayoutCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "layout <project.qgs|project.qgz> <layout-name>",
		Short: "Export one print layout payload verbatim",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := project.LoadFile(args[0])
			if err != nil {
				return err
			}
			data, err := g.LayoutPayload(args[1])
			if err != nil {
				return err
			}
			return writePayload(data, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	return cmd
}
