// Package selection records which project entities a user marked for
// retention and applies the propagation rules that connect them: group
// selection cascades down, theme selection implies its referenced
// layers, and relation selection follows endpoint selection.
package selection

import (
	"github.com/qarve/qarve/pkg/project"
)

// Key addresses one selection flag.
type Key struct {
	Kind project.Kind
	ID   string
}

// Change is one entity whose effective selection flipped during a Set
// call. Callers driving a presentation layer apply changes verbatim
// without recomputing propagation themselves.
type Change struct {
	Kind     project.Kind
	ID       string
	Selected bool
}

// State holds the selection flags for one loaded project. It stores
// only identifiers, never entity content, so the graph must outlive
// every state built against it. Everything defaults to unselected;
// styles are the exception and stay retained until explicitly dropped.
// One writer at a time.
type State struct {
	graph *project.Graph

	// flags holds explicit marks for layers, groups, themes, layouts
	// and relations. Layer retention is computed on top of this: a
	// layer is effectively selected when its direct flag is set or any
	// selected theme references it.
	flags map[Key]bool

	// styleDropped holds explicitly deselected styles by composite
	// style id. Absence means retained.
	styleDropped map[string]bool
}

// New creates an empty selection for g.
func New(g *project.Graph) *State {
	return &State{
		graph:        g,
		flags:        map[Key]bool{},
		styleDropped: map[string]bool{},
	}
}

// Graph returns the graph this state selects over.
func (s *State) Graph() *project.Graph { return s.graph }

// =============================================================================
// Mutation
// =============================================================================

// Set records a selection flag and applies propagation synchronously:
// groups cascade down to every descendant group and layer, selecting a
// theme re-marks its pinned styles as retained, and style flags toggle
// the explicit-drop mark. The returned changes list every entity whose
// effective selection actually flipped, which can be more than the
// entity passed in (cascade) or less (a layer still covered by a
// selected theme does not flip).
func (s *State) Set(kind project.Kind, id string, selected bool) []Change {
	if kind == project.KindStyle {
		return s.setStyle(id, selected)
	}

	before := s.effectiveLayers()
	var changes []Change

	switch kind {
	case project.KindGroup:
		s.setGroupTree(id, selected, &changes)
	case project.KindTheme:
		s.setFlag(kind, id, selected, &changes)
		if selected {
			s.retainThemeStyles(id, &changes)
		}
	case project.KindLayer:
		s.flags[Key{kind, id}] = selected
	default:
		s.setFlag(kind, id, selected, &changes)
	}

	after := s.effectiveLayers()
	for _, l := range s.graph.Layers() {
		if before[l.ID] != after[l.ID] {
			changes = append(changes, Change{project.KindLayer, l.ID, after[l.ID]})
		}
	}
	return changes
}

// SelectAll marks every group, layer, theme, layout and relation.
func (s *State) SelectAll() []Change {
	var changes []Change
	for _, gr := range s.graph.Groups() {
		s.setFlag(project.KindGroup, gr.ID, true, &changes)
	}
	for _, t := range s.graph.Themes() {
		s.setFlag(project.KindTheme, t.Name, true, &changes)
	}
	for _, l := range s.graph.Layouts() {
		s.setFlag(project.KindLayout, l.Name, true, &changes)
	}
	for _, r := range s.graph.Relations() {
		s.setFlag(project.KindRelation, r.Name, true, &changes)
	}
	before := s.effectiveLayers()
	for _, l := range s.graph.Layers() {
		s.flags[Key{project.KindLayer, l.ID}] = true
		if !before[l.ID] {
			changes = append(changes, Change{project.KindLayer, l.ID, true})
		}
	}
	return changes
}

func (s *State) setFlag(kind project.Kind, id string, selected bool, changes *[]Change) {
	k := Key{kind, id}
	if s.flags[k] == selected {
		return
	}
	s.flags[k] = selected
	*changes = append(*changes, Change{kind, id, selected})
}

// setGroupTree cascades a group flag down. Descendant layers get their
// direct flag set; their effective changes are reported by the caller's
// before/after diff.
func (s *State) setGroupTree(id string, selected bool, changes *[]Change) {
	s.setFlag(project.KindGroup, id, selected, changes)
	gr, ok := s.graph.Group(id)
	if !ok {
		return
	}
	for _, child := range gr.Children {
		switch child.Kind {
		case project.KindGroup:
			s.setGroupTree(child.ID, selected, changes)
		case project.KindLayer:
			s.flags[Key{project.KindLayer, child.ID}] = selected
		}
	}
}

// setStyle toggles the explicit-drop mark for one composite style id.
// Style flags never touch layer flags.
func (s *State) setStyle(id string, selected bool) []Change {
	was := s.styleRetained(id)
	if selected {
		delete(s.styleDropped, id)
	} else {
		s.styleDropped[id] = true
	}
	if now := s.styleRetained(id); now != was {
		return []Change{{project.KindStyle, id, now}}
	}
	return nil
}

// retainThemeStyles clears the drop mark on every style a theme pins,
// so selecting a theme is enough to carry its exact presentation.
func (s *State) retainThemeStyles(name string, changes *[]Change) {
	t, ok := s.graph.Theme(name)
	if !ok {
		return
	}
	for _, rec := range t.Records {
		if rec.Style == "" {
			continue
		}
		sid := project.StyleID(rec.LayerID, rec.Style)
		if s.styleDropped[sid] {
			delete(s.styleDropped, sid)
			*changes = append(*changes, Change{project.KindStyle, sid, true})
		}
	}
}

// =============================================================================
// Queries
// =============================================================================

// IsSelected reports the effective flag. For layers this is the union
// of the direct flag and selected-theme references; for styles it is
// "owning layer retained and not explicitly dropped"; for everything
// else it is the direct flag.
func (s *State) IsSelected(kind project.Kind, id string) bool {
	switch kind {
	case project.KindLayer:
		return s.layerSelected(id)
	case project.KindStyle:
		return s.styleRetained(id)
	default:
		return s.flags[Key{kind, id}]
	}
}

// SelectedIDs returns the effectively selected identifiers of one kind
// in graph order.
func (s *State) SelectedIDs(kind project.Kind) []string {
	var out []string
	switch kind {
	case project.KindLayer:
		for _, l := range s.graph.Layers() {
			if s.layerSelected(l.ID) {
				out = append(out, l.ID)
			}
		}
	case project.KindGroup:
		for _, gr := range s.graph.Groups() {
			if s.flags[Key{kind, gr.ID}] {
				out = append(out, gr.ID)
			}
		}
	case project.KindTheme:
		for _, t := range s.graph.Themes() {
			if s.flags[Key{kind, t.Name}] {
				out = append(out, t.Name)
			}
		}
	case project.KindLayout:
		for _, l := range s.graph.Layouts() {
			if s.flags[Key{kind, l.Name}] {
				out = append(out, l.Name)
			}
		}
	case project.KindRelation:
		for _, r := range s.graph.Relations() {
			if s.flags[Key{kind, r.Name}] {
				out = append(out, r.Name)
			}
		}
	}
	return out
}

// RetainedLayers is SelectedIDs(KindLayer): the union of direct layer
// selection and selected-theme references.
func (s *State) RetainedLayers() []string {
	return s.SelectedIDs(project.KindLayer)
}

// AllowedStyles returns the style narrowing per layer. Only layers with
// at least one explicitly dropped style get an entry; the filter keeps
// every style of the other layers untouched.
func (s *State) AllowedStyles() map[string]map[string]bool {
	out := map[string]map[string]bool{}
	for _, l := range s.graph.Layers() {
		narrowed := false
		allowed := map[string]bool{}
		for _, name := range l.Styles {
			if s.styleDropped[project.StyleID(l.ID, name)] {
				narrowed = true
				continue
			}
			allowed[name] = true
		}
		if narrowed {
			out[l.ID] = allowed
		}
	}
	return out
}

func (s *State) layerSelected(id string) bool {
	if s.flags[Key{project.KindLayer, id}] {
		return true
	}
	for _, t := range s.graph.Themes() {
		if !s.flags[Key{project.KindTheme, t.Name}] {
			continue
		}
		for _, rec := range t.Records {
			if rec.LayerID == id {
				return true
			}
		}
	}
	return false
}

func (s *State) styleRetained(id string) bool {
	if s.styleDropped[id] {
		return false
	}
	layerID, _ := project.SplitStyleID(id)
	return s.layerSelected(layerID)
}

func (s *State) effectiveLayers() map[string]bool {
	out := map[string]bool{}
	for _, l := range s.graph.Layers() {
		out[l.ID] = s.layerSelected(l.ID)
	}
	return out
}
