// Package filter turns a resolved selection into a pruned project
// graph. It computes pure retention policy; the graph itself owns the
// markup surgery.
package filter

import (
	"github.com/qarve/qarve/pkg/project"
	"github.com/qarve/qarve/pkg/selection"
)

// Options configure one filter run.
type Options struct {
	// DisconnectSources rewrites every retained layer's data-source
	// locator to project.DisconnectedSource in the output.
	DisconnectSources bool
}

// Run produces a new graph containing only the entities retained by s,
// with cross-references narrowed so nothing in the output dangles. The
// input graph is never mutated, so the caller can adjust the selection
// and run again without reloading.
//
// An empty selection is not an error: the result is a schema-complete
// empty project. Advising the user about it is the caller's concern.
func Run(s *selection.State, opts Options) (*project.Graph, error) {
	g := s.Graph()

	r := project.Retention{
		Layers:            map[string]bool{},
		Groups:            map[string]bool{},
		Themes:            map[string]bool{},
		Layouts:           map[string]bool{},
		Relations:         map[string]bool{},
		AllowedStyles:     s.AllowedStyles(),
		DisconnectSources: opts.DisconnectSources,
	}
	for _, id := range s.RetainedLayers() {
		r.Layers[id] = true
	}
	for _, id := range s.SelectedIDs(project.KindGroup) {
		r.Groups[id] = true
	}
	for _, name := range s.SelectedIDs(project.KindTheme) {
		r.Themes[name] = true
	}
	for _, name := range s.SelectedIDs(project.KindLayout) {
		r.Layouts[name] = true
	}

	// A selected relation survives only if both endpoints do: a
	// dangling relation is structurally invalid regardless of intent.
	for _, name := range s.SelectedIDs(project.KindRelation) {
		rel, ok := g.Relation(name)
		if !ok {
			continue
		}
		if r.Layers[rel.ParentLayerID] && r.Layers[rel.ChildLayerID] {
			r.Relations[name] = true
		}
	}

	return g.Prune(r)
}
