package project

import (
	"strings"

	"github.com/beevik/etree"
)

// Retention describes which entities survive a prune. It is pure policy
// output: the filter engine computes it from the resolved selection
// state, and Prune applies it to the markup. All maps are keyed by
// entity identifier; a nil or missing entry means "not retained".
type Retention struct {
	// Layers holds every effectively retained layer id (direct selection
	// unioned with theme-path selection and group cascade).
	Layers map[string]bool

	// Groups holds directly selected group ids. Groups that merely
	// contain a retained descendant are kept by the tree prune itself.
	Groups map[string]bool

	// AllowedStyles narrows a layer's style manager. A missing entry
	// keeps every style of that layer (styles are retained unless
	// explicitly deselected).
	AllowedStyles map[string]map[string]bool

	// Themes holds directly selected theme names.
	Themes map[string]bool

	// Layouts holds directly selected layout names.
	Layouts map[string]bool

	// Relations holds the relations to keep. The engine has already
	// checked both endpoint survival and the post-resolution flag.
	Relations map[string]bool

	// DisconnectSources rewrites every retained layer's data-source
	// locator to DisconnectedSource.
	DisconnectSources bool
}

// Prune produces a new, separate graph containing only the retained
// entities and their narrowed cross-references. The receiver is never
// mutated; pruning works on a deep copy of the document and rebuilds the
// typed graph from it, so both graphs share one build path. An empty
// retention is valid and yields a schema-complete empty project.
func (g *Graph) Prune(r Retention) (*Graph, error) {
	doc := g.CopyDocument()
	root := doc.Root()

	pruneMapLayers(root, r)
	pruneLayerTree(root, r)
	narrowStyleManagers(root, r)
	pruneThemes(root, r)
	pruneLayouts(root, r)
	pruneRelations(root, r)
	if r.DisconnectSources {
		disconnectSources(root)
	}

	out, err := FromDocument(doc)
	if err != nil {
		return nil, err
	}
	out.qgsName = g.qgsName
	out.resources = g.Resources()
	return out, nil
}

// remove detaches el from its parent; no-op for detached elements.
func remove(el *etree.Element) {
	if p := el.Parent(); p != nil {
		p.RemoveChild(el)
	}
}

// pruneMapLayers deletes every maplayer definition whose id is not
// retained, and cleans projectlayers children for schemas that hold
// additional <layer> definitions there.
func pruneMapLayers(root *etree.Element, r Retention) {
	for _, ml := range findAll(root, "maplayer") {
		id := strings.TrimSpace(childText(ml, "id"))
		if id != "" && !r.Layers[id] {
			remove(ml)
		}
	}
	if pl := findFirst(root, "projectlayers"); pl != nil {
		for _, child := range pl.ChildElements() {
			if !matchTag(child, "layer") {
				continue
			}
			id := strings.TrimSpace(childText(child, "id"))
			if id != "" && !r.Layers[id] {
				remove(child)
			}
		}
	}
}

// pruneLayerTree trims the layer-tree-group forest: a layer node
// survives iff its layer is retained, a group survives iff it is
// directly selected or still contains a retained descendant, keeping
// the tree navigable when only a leaf below it is kept. Group ids are
// re-derived with the loader's assignment over the same traversal
// order, so selection ids and tree nodes line up.
func pruneLayerTree(root *etree.Element, r Retention) {
	tree := findFirst(root, "layer-tree-group")
	if tree == nil {
		return
	}
	seen := map[string]bool{}
	pruneTreeChildren(tree, "", seen, r)
	narrowCustomOrder(tree, r)
}

func pruneTreeChildren(el *etree.Element, groupID string, seen map[string]bool, r Retention) bool {
	keep := r.Groups[groupID]
	for _, child := range el.ChildElements() {
		switch {
		case matchTag(child, "layer-tree-layer"):
			if r.Layers[child.SelectAttrValue("id", "")] {
				keep = true
			} else {
				remove(child)
			}
		case matchTag(child, "layer-tree-group"):
			childID := assignGroupID(seen, groupID, child.SelectAttrValue("name", ""))
			if pruneTreeChildren(child, childID, seen, r) {
				keep = true
			} else {
				remove(child)
			}
		}
	}
	return keep
}

// narrowCustomOrder drops stale layer ids from the tree's custom
// drawing order so the output carries no dangling references.
func narrowCustomOrder(tree *etree.Element, r Retention) {
	for _, co := range findAll(tree, "custom-order") {
		for _, item := range co.ChildElements() {
			if !matchTag(item, "item") {
				continue
			}
			if !r.Layers[strings.TrimSpace(item.Text())] {
				remove(item)
			}
		}
	}
}

// narrowStyleManagers removes explicitly deselected styles from each
// retained layer's style manager and repoints the manager's current
// style if its target was dropped. Layers without an AllowedStyles
// entry keep their manager untouched.
func narrowStyleManagers(root *etree.Element, r Retention) {
	for _, ml := range findAll(root, "maplayer") {
		id := strings.TrimSpace(childText(ml, "id"))
		allowed, narrow := r.AllowedStyles[id]
		if !narrow || !r.Layers[id] {
			continue
		}

		for _, sm := range styleManagers(ml) {
			for _, st := range append(findAll(sm, "map-layer-style"), findAll(sm, "style")...) {
				name := strings.TrimSpace(st.SelectAttrValue("name", ""))
				if name == "" {
					name = DefaultStyleName
				}
				if !allowed[name] {
					remove(st)
				}
			}

			current := strings.TrimSpace(sm.SelectAttrValue("current", ""))
			if current != "" && !allowed[current] {
				if repl := firstStyleName(sm); repl != "" {
					sm.CreateAttr("current", repl)
				} else {
					sm.RemoveAttr("current")
				}
			}
		}
	}
}

func styleManagers(ml *etree.Element) []*etree.Element {
	var managers []*etree.Element
	for _, tag := range []string{"map-layer-style-manager", "style-manager"} {
		if m := selectChild(ml, tag); m != nil {
			managers = append(managers, m)
		}
	}
	if len(managers) == 0 {
		managers = append(findAll(ml, "map-layer-style-manager"), findAll(ml, "style-manager")...)
	}
	return managers
}

func firstStyleName(sm *etree.Element) string {
	for _, st := range append(findAll(sm, "map-layer-style"), findAll(sm, "style")...) {
		name := strings.TrimSpace(st.SelectAttrValue("name", ""))
		if name == "" {
			name = DefaultStyleName
		}
		return name
	}
	return ""
}

// pruneThemes keeps only directly selected visibility presets, narrows
// each to retained layers and allowed styles, and drops presets (or the
// whole section) that end up empty.
func pruneThemes(root *etree.Element, r Retention) {
	presets := findFirst(root, "visibility-presets")
	if presets == nil {
		return
	}
	if len(r.Themes) == 0 {
		remove(presets)
		return
	}

	for _, preset := range findAll(presets, "visibility-preset") {
		if !r.Themes[preset.SelectAttrValue("name", "")] {
			remove(preset)
			continue
		}

		kept := 0
		for _, lyr := range findAll(preset, "layer") {
			id := lyr.SelectAttrValue("id", "")
			if !r.Layers[id] {
				remove(lyr)
				continue
			}
			style := lyr.SelectAttrValue("style", "")
			if allowed, narrow := r.AllowedStyles[id]; narrow && style != "" && !allowed[style] {
				remove(lyr)
				continue
			}
			kept++
		}

		// A theme referencing zero retained layers is structurally dead.
		if kept == 0 {
			remove(preset)
		}
	}

	if len(findAll(presets, "visibility-preset")) == 0 {
		remove(presets)
	}
}

// pruneLayouts removes every layout whose name is not selected,
// wherever the schema placed it. Non-layout preference nodes inside a
// layouts container are left intact.
func pruneLayouts(root *etree.Element, r Retention) {
	for _, el := range findAll(root, "layout") {
		name := strings.TrimSpace(el.SelectAttrValue("name", ""))
		if name == "" {
			continue
		}
		if !r.Layouts[name] {
			remove(el)
		}
	}
}

// pruneRelations keeps only selected relations; an empty result removes
// the section entirely.
func pruneRelations(root *etree.Element, r Retention) {
	section := findFirst(root, "relations")
	if section == nil {
		return
	}
	if len(r.Relations) == 0 {
		remove(section)
		return
	}
	for _, rel := range findAll(section, "relation") {
		if !r.Relations[rel.SelectAttrValue("name", "")] {
			remove(rel)
		}
	}
	if len(findAll(section, "relation")) == 0 {
		remove(section)
	}
}

// disconnectSources rewrites the data-source locator of every remaining
// layer to the fixed sentinel so the exported project reports its
// sources as missing on next open.
func disconnectSources(root *etree.Element) {
	for _, ml := range findAll(root, "maplayer") {
		if ds := selectChild(ml, "datasource"); ds != nil {
			ds.SetText(DisconnectedSource)
		}
	}
}
