package project

import (
	"os"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/qarve/qarve/pkg/errors"
)

// LoadFile reads a project description from path and builds its entity
// graph. Both container variants are accepted: the plain markup form
// (.qgs) and the compressed archive form (.qgz).
func LoadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read project %s", path)
	}
	return Load(data)
}

// Load builds the entity graph from raw project bytes. The container
// variant is detected from the content, so equivalent .qgs and .qgz
// inputs produce an identical graph. Construction is all-or-nothing: on
// failure no partial graph is returned.
func Load(data []byte) (*Graph, error) {
	qgsName := defaultProjectEntry
	var resources map[string][]byte

	if isArchive(data) {
		var err error
		qgsName, data, resources, err = readArchive(data)
		if err != nil {
			return nil, err
		}
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeLoadFailed, err, "parse project markup")
	}

	g, err := FromDocument(doc)
	if err != nil {
		return nil, err
	}
	g.qgsName = qgsName
	g.resources = resources
	return g, nil
}

// FromDocument builds a typed entity graph over an already-parsed
// document. The graph takes ownership of doc. Groups, layers and styles
// are constructed first; theme and relation cross-references are then
// resolved against the built layer set, and unresolved references are
// recorded as diagnostics rather than discarded.
func FromDocument(doc *etree.Document) (*Graph, error) {
	root := doc.Root()
	if root == nil {
		return nil, errors.New(errors.ErrCodeLoadFailed, "empty document: no root element")
	}

	g := &Graph{
		doc:       doc,
		layers:    map[string]*Layer{},
		groups:    map[string]*Group{},
		themes:    map[string]*Theme{},
		layouts:   map[string]*Layout{},
		relations: map[string]*Relation{},
	}

	g.buildLayers(root)
	g.buildLayerTree(root)
	g.buildThemes(root)
	g.buildLayouts(root)
	g.buildRelations(root)
	g.buildCanvas(root)

	return g, nil
}

// =============================================================================
// Builders
// =============================================================================

// buildLayers collects every maplayer definition. The style list merges
// explicit style-manager children with the manager's "current" attribute
// and falls back to a single default entry, mirroring the tolerance of
// the source format across versions.
func (g *Graph) buildLayers(root *etree.Element) {
	for _, ml := range findAll(root, "maplayer") {
		id := strings.TrimSpace(childText(ml, "id"))
		if id == "" {
			continue
		}
		if _, dup := g.layers[id]; dup {
			continue
		}

		name := childText(ml, "layername")
		if name == "" {
			name = id
		}

		l := &Layer{
			ID:       id,
			Name:     name,
			Provider: childText(ml, "provider"),
			Source:   childText(ml, "datasource"),
		}
		l.Styles, l.CurrentStyle = collectStyles(ml)

		g.layers[id] = l
		g.layerOrder = append(g.layerOrder, id)
	}
}

// collectStyles reads the layer's style manager, supporting both the
// map-layer-style-manager and style-manager spellings and both child
// element names. Returns the ordered style names and the current style.
func collectStyles(ml *etree.Element) ([]string, string) {
	var managers []*etree.Element
	for _, tag := range []string{"map-layer-style-manager", "style-manager"} {
		if m := selectChild(ml, tag); m != nil {
			managers = append(managers, m)
		}
	}
	if len(managers) == 0 {
		managers = append(findAll(ml, "map-layer-style-manager"), findAll(ml, "style-manager")...)
	}

	var styles []string
	seen := map[string]bool{}
	current := ""

	for _, sm := range managers {
		for _, st := range append(findAll(sm, "map-layer-style"), findAll(sm, "style")...) {
			name := strings.TrimSpace(st.SelectAttrValue("name", ""))
			if name == "" {
				name = DefaultStyleName
			}
			if !seen[name] {
				seen[name] = true
				styles = append(styles, name)
			}
		}
		if c := strings.TrimSpace(sm.SelectAttrValue("current", "")); c != "" {
			if current == "" {
				current = c
			}
			if !seen[c] {
				seen[c] = true
				styles = append(styles, c)
			}
		}
	}

	if len(styles) == 0 {
		styles = []string{DefaultStyleName}
	}
	if current == "" {
		current = styles[0]
	}
	return styles, current
}

// buildLayerTree walks the outermost layer-tree-group, constructing the
// group forest and recording each layer's parent group. Groups carry no
// identifiers in the source format; they get path-style ids that are
// unique within this load.
func (g *Graph) buildLayerTree(root *etree.Element) {
	tree := findFirst(root, "layer-tree-group")
	if tree == nil {
		return
	}
	seen := map[string]bool{}
	g.rootChildren = g.walkTreeChildren(tree, "", seen)
}

// walkTreeChildren builds the children of one tree node, creating Group
// entities for nested groups and resolving layer membership.
func (g *Graph) walkTreeChildren(el *etree.Element, parentID string, seen map[string]bool) []ChildRef {
	var children []ChildRef
	for _, child := range el.ChildElements() {
		switch {
		case matchTag(child, "layer-tree-layer"):
			id := child.SelectAttrValue("id", "")
			if id == "" {
				continue
			}
			if l, ok := g.layers[id]; ok {
				l.GroupID = parentID
			}
			children = append(children, ChildRef{Kind: KindLayer, ID: id})

		case matchTag(child, "layer-tree-group"):
			name := child.SelectAttrValue("name", "")
			id := assignGroupID(seen, parentID, name)
			gr := &Group{ID: id, Name: name, ParentID: parentID}
			g.groups[id] = gr
			g.groupOrder = append(g.groupOrder, id)
			gr.Children = g.walkTreeChildren(child, id, seen)
			children = append(children, ChildRef{Kind: KindGroup, ID: id})
		}
	}
	return children
}

// assignGroupID derives a path-style group id and disambiguates
// same-named siblings with a positional suffix. The pruning pass uses
// the same assignment over the same traversal order, so ids line up.
func assignGroupID(seen map[string]bool, parentID, name string) string {
	id := parentID + "/" + name
	if seen[id] {
		base := id
		for n := 2; ; n++ {
			id = base + "#" + strconv.Itoa(n)
			if !seen[id] {
				break
			}
		}
	}
	seen[id] = true
	return id
}

// buildThemes collects visibility presets. Layer references that do not
// resolve are preserved and reported as diagnostics, never invented.
func (g *Graph) buildThemes(root *etree.Element) {
	presets := findFirst(root, "visibility-presets")
	if presets == nil {
		return
	}
	for _, preset := range findAll(presets, "visibility-preset") {
		name := preset.SelectAttrValue("name", "")
		if name == "" {
			continue
		}
		if _, dup := g.themes[name]; dup {
			continue
		}
		t := &Theme{Name: name}
		for _, lyr := range findAll(preset, "layer") {
			id := lyr.SelectAttrValue("id", "")
			if id == "" {
				continue
			}
			_, ok := g.layers[id]
			if !ok {
				g.diagnostics = append(g.diagnostics, Diagnostic{
					Code:    errors.ErrCodeUnresolvedReference,
					Kind:    KindTheme,
					ID:      name,
					Message: "theme " + name + " references missing layer " + id,
				})
			}
			t.Records = append(t.Records, ThemeRecord{
				LayerID:  id,
				Style:    lyr.SelectAttrValue("style", ""),
				Resolved: ok,
			})
		}
		g.themes[name] = t
		g.themeOrder = append(g.themeOrder, name)
	}
}

// buildLayouts detects print layouts regardless of casing, namespaces or
// whether they sit in a container or directly under the document root.
// Duplicate names are collapsed, first occurrence wins.
func (g *Graph) buildLayouts(root *etree.Element) {
	walk(root, func(el *etree.Element) {
		if !matchTag(el, "layout") {
			return
		}
		name := strings.TrimSpace(el.SelectAttrValue("name", ""))
		if name == "" {
			return
		}
		if _, dup := g.layouts[name]; dup {
			return
		}
		g.layouts[name] = &Layout{Name: name}
		g.layoutOrder = append(g.layoutOrder, name)
	})
}

// buildRelations collects the relations section. A relation with an
// endpoint that does not resolve is kept but marked unresolved (inert),
// with a diagnostic per missing endpoint.
func (g *Graph) buildRelations(root *etree.Element) {
	section := findFirst(root, "relations")
	if section == nil {
		return
	}
	for _, rel := range findAll(section, "relation") {
		name := rel.SelectAttrValue("name", "")
		if name == "" {
			continue
		}
		if _, dup := g.relations[name]; dup {
			continue
		}

		r := &Relation{
			Name:          name,
			ParentLayerID: rel.SelectAttrValue("referencedLayer", ""),
			ChildLayerID:  rel.SelectAttrValue("referencingLayer", ""),
		}
		for _, fr := range rel.SelectElements("fieldRef") {
			r.Fields = append(r.Fields, FieldPair{
				Parent: fr.SelectAttrValue("referencedField", ""),
				Child:  fr.SelectAttrValue("referencingField", ""),
			})
		}

		r.Resolved = true
		for _, end := range []string{r.ParentLayerID, r.ChildLayerID} {
			if _, ok := g.layers[end]; !ok {
				r.Resolved = false
				g.diagnostics = append(g.diagnostics, Diagnostic{
					Code:    errors.ErrCodeUnresolvedReference,
					Kind:    KindRelation,
					ID:      name,
					Message: "relation " + name + " references missing layer " + end,
				})
			}
		}

		g.relations[name] = r
		g.relationOrder = append(g.relationOrder, name)
	}
}

// buildCanvas records the project extent and reference system for the
// summary interface.
func (g *Graph) buildCanvas(root *etree.Element) {
	if canvas := findFirst(root, "mapcanvas"); canvas != nil {
		if ext := findFirst(canvas, "extent"); ext != nil {
			g.extent = &Extent{
				XMin: childText(ext, "xmin"),
				YMin: childText(ext, "ymin"),
				XMax: childText(ext, "xmax"),
				YMax: childText(ext, "ymax"),
			}
		}
	}

	// Prefer the explicit project CRS; older files only carry it on the
	// canvas destination srs, so fall back to the first spatialrefsys.
	if pc := findFirst(root, "projectCrs"); pc != nil {
		if srs := findFirst(pc, "spatialrefsys"); srs != nil {
			g.crs = childText(srs, "authid")
		}
	}
	if g.crs == "" {
		if srs := findFirst(root, "spatialrefsys"); srs != nil {
			g.crs = childText(srs, "authid")
		}
	}
}

// =============================================================================
// XML helpers (namespace- and case-tolerant)
// =============================================================================

// matchTag compares an element's local tag name case-insensitively.
// Namespace prefixes are held in el.Space by the parser, so Tag is
// always the local name.
func matchTag(el *etree.Element, name string) bool {
	return strings.EqualFold(el.Tag, name)
}

// walk visits el and every descendant element depth-first.
func walk(el *etree.Element, visit func(*etree.Element)) {
	visit(el)
	for _, c := range el.ChildElements() {
		walk(c, visit)
	}
}

// findAll returns every descendant of root (excluding root) whose local
// tag matches name.
func findAll(root *etree.Element, name string) []*etree.Element {
	var out []*etree.Element
	for _, c := range root.ChildElements() {
		walk(c, func(el *etree.Element) {
			if matchTag(el, name) {
				out = append(out, el)
			}
		})
	}
	return out
}

// findFirst returns the first descendant of root (excluding root, in
// document order) whose local tag matches name, or nil.
func findFirst(root *etree.Element, name string) *etree.Element {
	for _, c := range root.ChildElements() {
		if matchTag(c, name) {
			return c
		}
		if found := findFirst(c, name); found != nil {
			return found
		}
	}
	return nil
}

// selectChild returns the first direct child with a matching local tag.
func selectChild(el *etree.Element, name string) *etree.Element {
	for _, c := range el.ChildElements() {
		if matchTag(c, name) {
			return c
		}
	}
	return nil
}

// childText returns the trimmed text of the first direct child with a
// matching local tag, or empty.
func childText(el *etree.Element, name string) string {
	if c := selectChild(el, name); c != nil {
		return strings.TrimSpace(c.Text())
	}
	return ""
}
