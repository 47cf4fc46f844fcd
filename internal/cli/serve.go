package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/qarve/qarve/pkg/project"
	"github.com/qarve/qarve/pkg/report"
)

const defaultAddr = ":8632"

// newServeCmd creates the serve command, which exposes the loaded
// project over the report API until interrupted.
func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve <project.qgs|project.qgz>",
		Short: "Serve the summary and filter API over HTTP",
		Long: `Serve a read-only API over one loaded project:

  GET  /api/summary                 project snapshot
  GET  /api/layers                  layer inventory
  GET  /api/styles/{layer}/{style}  verbatim style payload
  GET  /api/layouts/{name}          verbatim layout payload
  POST /api/filter                  selection in, filtered archive out

The listen address comes from --addr or the QARVE_ADDR environment
variable.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			g, err := project.LoadFile(args[0])
			if err != nil {
				return err
			}

			if addr == "" {
				addr = os.Getenv("QARVE_ADDR")
			}
			if addr == "" {
				addr = defaultAddr
			}

			srv := report.NewServer(report.Config{Graph: g, Addr: addr, Logger: logger})
			return srv.Serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: QARVE_ADDR or "+defaultAddr+")")
	return cmd
}
