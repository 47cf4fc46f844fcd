package project

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/qarve/qarve/pkg/errors"
)

// =============================================================================
// Constants - Single Source of Truth
// =============================================================================

// Kind identifies an entity kind within the graph. Identifiers are unique
// per kind, not globally.
type Kind string

// Entity kinds.
const (
	KindLayer    Kind = "layer"
	KindGroup    Kind = "group"
	KindStyle    Kind = "style"
	KindTheme    Kind = "theme"
	KindLayout   Kind = "layout"
	KindRelation Kind = "relation"
)

// DefaultStyleName is the style name used when a layer's style manager
// carries no explicit name, matching what the source format does.
const DefaultStyleName = "default"

// DisconnectedSource is the sentinel written into every retained layer's
// datasource locator when an export runs with disconnected sources. The
// exported project reports its data as missing on next open, prompting
// the user to re-point each layer.
const DisconnectedSource = "./__disconnected__"

// StyleID builds the composite identifier of a style, which is owned by
// exactly one layer. The separator matches the source format's token
// contract ("layer_id|style").
func StyleID(layerID, style string) string {
	return layerID + "|" + style
}

// SplitStyleID splits a composite style identifier into its layer id and
// style name. The style name may itself contain the separator.
func SplitStyleID(id string) (layerID, style string) {
	i := strings.Index(id, "|")
	if i < 0 {
		return id, ""
	}
	return id[:i], id[i+1:]
}

// =============================================================================
// Entities
// =============================================================================

// Layer is a map layer definition. Styles are owned by the layer and
// ordered as they appear in the style manager.
type Layer struct {
	ID           string
	Name         string
	Provider     string
	Source       string // data-source locator, may be empty or broken
	GroupID      string // parent group id, empty for root-level layers
	Styles       []string
	CurrentStyle string
}

// HasStyle reports whether the layer owns a style with the given name.
func (l *Layer) HasStyle(name string) bool {
	for _, s := range l.Styles {
		if s == name {
			return true
		}
	}
	return false
}

// ChildRef is an ordered reference from a group to a child entity.
// Kind is KindGroup or KindLayer.
type ChildRef struct {
	Kind Kind
	ID   string
}

// Group is a node of the layer tree. Groups have no identifiers in the
// source format, so the loader assigns path-style ids ("/Base/Topo")
// that are unique and stable within one load.
type Group struct {
	ID       string
	Name     string
	ParentID string // empty for top-level groups
	Children []ChildRef
}

// ThemeRecord is one (layer, style) pair of a visibility preset. An
// empty Style means the preset uses the layer's default style. Resolved
// is false when the referenced layer does not exist in the project; such
// records are preserved as-is and surfaced as diagnostics.
type ThemeRecord struct {
	LayerID  string
	Style    string
	Resolved bool
}

// Theme is a named visibility preset: a snapshot of which layers are
// visible and which style variant each uses. Not an ownership relation.
type Theme struct {
	Name    string
	Records []ThemeRecord
}

// Layout is a named print layout. Its composition payload is opaque to
// the engine and retrievable verbatim via Graph.LayoutPayload.
type Layout struct {
	Name string
}

// FieldPair is one parent/child field mapping of a relation.
type FieldPair struct {
	Parent string
	Child  string
}

// Relation is a declared parent/child link between two layers. Resolved
// is false when either endpoint does not exist; an unresolved relation
// is inert (never auto-selected) but is kept in the graph.
type Relation struct {
	Name          string
	ParentLayerID string
	ChildLayerID  string
	Fields        []FieldPair
	Resolved      bool
}

// Extent is the project's spatial extent as recorded in the source,
// kept as text to survive round trips unchanged.
type Extent struct {
	XMin string `json:"xmin"`
	YMin string `json:"ymin"`
	XMax string `json:"xmax"`
	YMax string `json:"ymax"`
}

// Diagnostic records a non-fatal anomaly found while building the graph,
// typically an unresolved cross-reference. Diagnostics never abort a
// load; later stages decide whether the offending entity is pruned.
type Diagnostic struct {
	Code    errors.Code
	Kind    Kind
	ID      string
	Message string
}

// =============================================================================
// Graph
// =============================================================================

// Graph is the in-memory entity graph of one loaded project. It owns
// every entity record plus the parsed XML document; selection state
// holds only identifier references into it, so the graph must outlive
// any selection built against it. A Graph is immutable after load:
// pruning produces a new, separate Graph.
type Graph struct {
	doc       *etree.Document
	qgsName   string            // archive entry name of the project file
	resources map[string][]byte // auxiliary archive entries, nil for .qgs input

	layers     map[string]*Layer
	layerOrder []string

	groups       map[string]*Group
	groupOrder   []string
	rootChildren []ChildRef

	themes     map[string]*Theme
	themeOrder []string

	layouts     map[string]*Layout
	layoutOrder []string

	relations     map[string]*Relation
	relationOrder []string

	extent *Extent
	crs    string

	diagnostics []Diagnostic
}

// Layers returns all layers in document order.
func (g *Graph) Layers() []*Layer {
	out := make([]*Layer, 0, len(g.layerOrder))
	for _, id := range g.layerOrder {
		out = append(out, g.layers[id])
	}
	return out
}

// Layer returns the layer with the given id.
func (g *Graph) Layer(id string) (*Layer, bool) {
	l, ok := g.layers[id]
	return l, ok
}

// Groups returns all groups in tree order (depth-first).
func (g *Graph) Groups() []*Group {
	out := make([]*Group, 0, len(g.groupOrder))
	for _, id := range g.groupOrder {
		out = append(out, g.groups[id])
	}
	return out
}

// Group returns the group with the given id.
func (g *Graph) Group(id string) (*Group, bool) {
	gr, ok := g.groups[id]
	return gr, ok
}

// RootChildren returns the ordered children of the (anonymous) layer
// tree root.
func (g *Graph) RootChildren() []ChildRef {
	return append([]ChildRef(nil), g.rootChildren...)
}

// Themes returns all visibility presets in document order.
func (g *Graph) Themes() []*Theme {
	out := make([]*Theme, 0, len(g.themeOrder))
	for _, name := range g.themeOrder {
		out = append(out, g.themes[name])
	}
	return out
}

// Theme returns the theme with the given name.
func (g *Graph) Theme(name string) (*Theme, bool) {
	t, ok := g.themes[name]
	return t, ok
}

// Layouts returns all print layouts in discovery order.
func (g *Graph) Layouts() []*Layout {
	out := make([]*Layout, 0, len(g.layoutOrder))
	for _, name := range g.layoutOrder {
		out = append(out, g.layouts[name])
	}
	return out
}

// Layout returns the layout with the given name.
func (g *Graph) Layout(name string) (*Layout, bool) {
	l, ok := g.layouts[name]
	return l, ok
}

// Relations returns all relations in document order.
func (g *Graph) Relations() []*Relation {
	out := make([]*Relation, 0, len(g.relationOrder))
	for _, name := range g.relationOrder {
		out = append(out, g.relations[name])
	}
	return out
}

// Relation returns the relation with the given name.
func (g *Graph) Relation(name string) (*Relation, bool) {
	r, ok := g.relations[name]
	return r, ok
}

// Extent returns the project's spatial extent, or nil if the source
// does not define one.
func (g *Graph) Extent() *Extent {
	return g.extent
}

// CRS returns the project's coordinate reference system authority id
// (e.g., "EPSG:2154"), or empty if undefined.
func (g *Graph) CRS() string {
	return g.crs
}

// Diagnostics returns the anomalies recorded while building the graph.
func (g *Graph) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), g.diagnostics...)
}

// Has reports whether an entity of the given kind and identifier exists.
// Style identifiers use the composite "layer_id|style" form.
func (g *Graph) Has(kind Kind, id string) bool {
	switch kind {
	case KindLayer:
		_, ok := g.layers[id]
		return ok
	case KindGroup:
		_, ok := g.groups[id]
		return ok
	case KindStyle:
		layerID, style := SplitStyleID(id)
		l, ok := g.layers[layerID]
		return ok && l.HasStyle(style)
	case KindTheme:
		_, ok := g.themes[id]
		return ok
	case KindLayout:
		_, ok := g.layouts[id]
		return ok
	case KindRelation:
		_, ok := g.relations[id]
		return ok
	}
	return false
}

// CopyDocument returns a deep copy of the underlying XML document.
// Pruning always works on a copy so the loaded graph stays intact and
// the caller can change selection and re-export without reloading.
func (g *Graph) CopyDocument() *etree.Document {
	return g.doc.Copy()
}

// Resources returns a copy of the auxiliary archive entries bundled with
// the project (empty for plain .qgs input).
func (g *Graph) Resources() map[string][]byte {
	out := make(map[string][]byte, len(g.resources))
	for k, v := range g.resources {
		out[k] = v
	}
	return out
}
