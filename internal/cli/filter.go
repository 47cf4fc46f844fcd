package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qarve/qarve/pkg/errors"
	"github.com/qarve/qarve/pkg/filter"
	"github.com/qarve/qarve/pkg/project"
	"github.com/qarve/qarve/pkg/selection"
)

// filterOpts holds the command-line flags for the filter command. Flag
// selections merge on top of the TOML selection file, so a manifest can
// carry the stable part and flags the per-run tweaks.
type filterOpts struct {
	selectionFile string
	output        string

	all       bool
	groups    []string
	layers    []string
	themes    []string
	layouts   []string
	relations []string

	dropLayers    []string
	dropStyles    []string
	dropRelations []string

	disconnect bool
}

// newFilterCmd creates the filter command, which exports a pruned copy
// of a project containing only the selected entities.
func newFilterCmd() *cobra.Command {
	opts := filterOpts{}

	cmd := &cobra.Command{
		Use:   "filter <project.qgs|project.qgz>",
		Short: "Export a pruned copy of a project from a selection",
		Long: `Export a pruned copy of a project containing only the selected
layers, groups, themes, layouts and relations.

Selections come from repeatable flags, a TOML selection file, or both
(flags merge on top of the file). Group selection cascades down; a theme
selection retains its referenced layers; relations whose endpoints are
both retained are selected automatically.

Examples:
  qarve filter city.qgz --group "/Base" -o base.qgz
  qarve filter city.qgz --theme Night --drop-style "roads|draft"
  qarve filter city.qgz --selection release.toml --disconnect-sources`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilter(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.selectionFile, "selection", "s", "", "TOML selection file")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: <input>.filtered.qgz)")

	cmd.Flags().BoolVar(&opts.all, "all", false, "select every entity")
	cmd.Flags().StringArrayVar(&opts.groups, "group", nil, "select a group by path id (repeatable, cascades down)")
	cmd.Flags().StringArrayVarP(&opts.layers, "layer", "l", nil, "select a layer by id (repeatable)")
	cmd.Flags().StringArrayVar(&opts.themes, "theme", nil, "select a theme by name (repeatable)")
	cmd.Flags().StringArrayVar(&opts.layouts, "layout", nil, "select a layout by name (repeatable)")
	cmd.Flags().StringArrayVar(&opts.relations, "relation", nil, "select a relation by name (repeatable)")

	cmd.Flags().StringArrayVar(&opts.dropLayers, "drop-layer", nil, "deselect a layer (repeatable)")
	cmd.Flags().StringArrayVar(&opts.dropStyles, "drop-style", nil, `drop a style, "layer_id|style" (repeatable)`)
	cmd.Flags().StringArrayVar(&opts.dropRelations, "drop-relation", nil, "deselect a relation (repeatable)")

	cmd.Flags().BoolVar(&opts.disconnect, "disconnect-sources", false, "rewrite data-source locators to the disconnect sentinel")

	return cmd
}

func runFilter(cmd *cobra.Command, path string, opts filterOpts) error {
	logger := loggerFromContext(cmd.Context())
	prog := newProgress(logger)

	g, err := project.LoadFile(path)
	if err != nil {
		return err
	}
	for _, d := range g.Diagnostics() {
		logger.Warn(d.Message, "code", d.Code)
	}

	state := selection.New(g)
	if opts.selectionFile != "" {
		m, err := selection.LoadManifest(opts.selectionFile)
		if err != nil {
			return err
		}
		if err := m.Apply(state); err != nil {
			return err
		}
		if m.DisconnectSources {
			opts.disconnect = true
		}
	}
	flagManifest := selection.Manifest{
		All:           opts.all,
		Groups:        opts.groups,
		Layers:        opts.layers,
		Themes:        opts.themes,
		Layouts:       opts.layouts,
		Relations:     opts.relations,
		DropLayers:    opts.dropLayers,
		DropStyles:    opts.dropStyles,
		DropRelations: opts.dropRelations,
	}
	if err := flagManifest.Apply(state); err != nil {
		return err
	}

	changes := selection.ResolveRelations(state)
	for _, c := range changes {
		logger.Debug("relation auto-selected", "relation", c.ID)
	}

	retained := state.RetainedLayers()
	if len(retained) == 0 {
		printWarning("nothing selected (%s): exporting a schema-valid empty project", errors.ErrCodeEmptySelection)
	}

	out, err := filter.Run(state, filter.Options{DisconnectSources: opts.disconnect})
	if err != nil {
		return err
	}

	target := opts.output
	if target == "" {
		target = defaultFilterOutput(path)
	}
	if err := out.ExportFile(target); err != nil {
		return err
	}

	prog.done(fmt.Sprintf("Filtered %d of %d layers", len(retained), len(g.Layers())))
	printSuccess("wrote filtered project")
	printFile(target)
	return nil
}

// defaultFilterOutput derives the output path from the input, always in
// the archive form.
func defaultFilterOutput(path string) string {
	base := path
	for _, ext := range []string{".qgs", ".qgz", ".QGS", ".QGZ"} {
		if strings.HasSuffix(base, ext) {
			base = base[:len(base)-len(ext)]
			break
		}
	}
	return base + ".filtered.qgz"
}
