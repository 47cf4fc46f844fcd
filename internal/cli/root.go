package cli

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/qarve/qarve/pkg/buildinfo"
)

// Execute runs the qarve CLI and returns an error if any command fails.
//
// The function sets up the root command with all subcommands (inspect,
// filter, style, layout, serve), configures logging based on the
// --verbose flag, and executes the command tree.
//
// Logging:
//   - Default: info level (logs to stderr)
//   - With --verbose (-v): debug level
//
// The logger is attached to the context and accessible to all commands
// via loggerFromContext.
func Execute(ctx context.Context) error {
	var verbose bool

	root := &cobra.Command{
		Use:          "qarve",
		Short:        "Qarve filters QGIS projects down to a selection",
		Long:         `Qarve loads a QGIS project (.qgs or .qgz), builds its entity graph and exports either a summary or a pruned, structurally valid copy containing only the layers, styles, themes, layouts and relations you select.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newInspectCmd())
	root.AddCommand(newFilterCmd())
	root.AddCommand(newStyleCmd())
	root.AddCommand(newLayoutCmd())
	root.AddCommand(newServeCmd())

	return root.ExecuteContext(ctx)
}
