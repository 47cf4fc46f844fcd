package selection

import (
	"github.com/qarve/qarve/pkg/project"
)

// ResolveRelations runs the relation auto-selection pass. It is meant
// to run once, after all direct user edits and before filtering.
//
// A relation whose endpoints both resolve and are both effectively
// selected has its flag forced true, overriding an explicit
// deselection. Every other relation keeps whatever flag the user last
// set: inert relations are never auto-selected, and an explicit
// selection of a relation with unselected endpoints is preserved as an
// override. Returns the relations whose flag flipped.
func ResolveRelations(s *State) []Change {
	var changes []Change
	for _, r := range s.graph.Relations() {
		if !r.Resolved {
			continue
		}
		if !s.layerSelected(r.ParentLayerID) || !s.layerSelected(r.ChildLayerID) {
			continue
		}
		k := Key{project.KindRelation, r.Name}
		if s.flags[k] {
			continue
		}
		s.flags[k] = true
		changes = append(changes, Change{project.KindRelation, r.Name, true})
	}
	return changes
}
