package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/qarve/qarve/pkg/project"
)

// newInspectCmd creates the inspect command, which prints a project
// summary without modifying anything.
func newInspectCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect <project.qgs|project.qgz>",
		Short: "Summarize a project's layers, themes, layouts and relations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			prog := newProgress(logger)

			g, err := project.LoadFile(args[0])
			if err != nil {
				return err
			}
			s := g.Summarize()
			prog.done(fmt.Sprintf("Loaded %d layers", s.Counts.Layers))

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}
			printSummary(g, s)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the summary as JSON")
	return cmd
}

func printSummary(g *project.Graph, s project.Summary) {
	fmt.Println(StyleTitle.Render("Project"))
	if s.CRS != "" {
		printKeyValue("crs", s.CRS)
	}
	if s.Extent != nil {
		printKeyValue("extent", fmt.Sprintf("%s %s %s %s",
			s.Extent.XMin, s.Extent.YMin, s.Extent.XMax, s.Extent.YMax))
	}
	printKeyValue("layers", strconv.Itoa(s.Counts.Layers))
	printKeyValue("groups", strconv.Itoa(s.Counts.Groups))
	printKeyValue("styles", strconv.Itoa(s.Counts.Styles))
	printKeyValue("themes", strconv.Itoa(s.Counts.Themes))
	printKeyValue("layouts", strconv.Itoa(s.Counts.Layouts))
	printKeyValue("relations", strconv.Itoa(s.Counts.Relations))
	fmt.Println()

	printLayerTable(g)

	if len(s.Themes) > 0 {
		fmt.Println(StyleTitle.Render("Themes"))
		for _, t := range s.Themes {
			var layers []string
			for _, e := range t.Entries {
				name := e.LayerName
				if e.Style != "" {
					name += " (" + e.Style + ")"
				}
				layers = append(layers, name)
			}
			fmt.Printf("  %s %s\n", t.Name, StyleDim.Render(strings.Join(layers, ", ")))
		}
		fmt.Println()
	}

	if len(s.Layouts) > 0 {
		fmt.Println(StyleTitle.Render("Layouts"))
		for _, name := range s.Layouts {
			fmt.Println("  " + name)
		}
		fmt.Println()
	}

	if len(s.Relations) > 0 {
		fmt.Println(StyleTitle.Render("Relations"))
		for _, r := range s.Relations {
			line := fmt.Sprintf("  %s %s %s %s", r.Name, r.ParentName, iconArrow, r.ChildName)
			if !r.Resolved {
				line += " " + StyleWarning.Render("(unresolved)")
			}
			fmt.Println(line)
		}
		fmt.Println()
	}

	for _, w := range s.Warnings {
		printWarning("%s", w)
	}
}

func printLayerTable(g *project.Graph) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Name", "Provider", "Group", "Styles"})
	for _, l := range g.Layers() {
		t.AppendRow(table.Row{l.ID, l.Name, l.Provider, l.GroupID, strings.Join(l.Styles, ", ")})
	}
	t.Render()
	fmt.Println()
}
