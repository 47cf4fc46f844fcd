package project

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/qarve/qarve/pkg/errors"
)

// =============================================================================
// Summary - Read-Only Snapshot for the Report Collaborator
// =============================================================================

// Counts holds per-kind entity totals.
type Counts struct {
	Layers    int `json:"layers"`
	Groups    int `json:"groups"`
	Styles    int `json:"styles"`
	Themes    int `json:"themes"`
	Layouts   int `json:"layouts"`
	Relations int `json:"relations"`
}

// LayerNode is one layer of the summary tree with its owned styles.
type LayerNode struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Provider string   `json:"provider,omitempty"`
	Source   string   `json:"source,omitempty"`
	Styles   []string `json:"styles"`
}

// GroupNode is one group of the summary tree, children in tree order.
type GroupNode struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Groups []GroupNode `json:"groups,omitempty"`
	Layers []LayerNode `json:"layers,omitempty"`
}

// ThemeEntry is one (layer, style) record of a theme, with the layer
// name resolved for display.
type ThemeEntry struct {
	LayerID   string `json:"layer_id"`
	LayerName string `json:"layer_name"`
	Style     string `json:"style,omitempty"`
	Resolved  bool   `json:"resolved"`
}

// ThemeNode is one visibility preset of the summary.
type ThemeNode struct {
	Name    string       `json:"name"`
	Entries []ThemeEntry `json:"entries"`
}

// RelationNode is one relation of the summary with both endpoints named.
type RelationNode struct {
	Name       string      `json:"name"`
	ParentID   string      `json:"parent_id"`
	ParentName string      `json:"parent_name"`
	ChildID    string      `json:"child_id"`
	ChildName  string      `json:"child_name"`
	Fields     []FieldPair `json:"fields,omitempty"`
	Resolved   bool        `json:"resolved"`
}

// Summary is the read-only project snapshot consumed by the external
// report collaborator, which owns all rendering. The snapshot carries a
// fresh identifier so consumers can correlate reports across requests.
type Summary struct {
	ID        string         `json:"id"`
	CRS       string         `json:"crs,omitempty"`
	Extent    *Extent        `json:"extent,omitempty"`
	Counts    Counts         `json:"counts"`
	Roots     []GroupNode    `json:"roots,omitempty"`
	Loose     []LayerNode    `json:"loose_layers,omitempty"`
	Themes    []ThemeNode    `json:"themes,omitempty"`
	Layouts   []string       `json:"layouts,omitempty"`
	Relations []RelationNode `json:"relations,omitempty"`
	Warnings  []string       `json:"warnings,omitempty"`
}

// Summarize builds the snapshot for the current graph. It copies entity
// data, so the snapshot stays valid independently of later prunes.
func (g *Graph) Summarize() Summary {
	s := Summary{
		ID:     uuid.NewString(),
		CRS:    g.crs,
		Extent: g.extent,
		Counts: Counts{
			Layers:    len(g.layerOrder),
			Groups:    len(g.groupOrder),
			Themes:    len(g.themeOrder),
			Layouts:   len(g.layoutOrder),
			Relations: len(g.relationOrder),
		},
		Layouts: append([]string(nil), g.layoutOrder...),
	}

	for _, l := range g.Layers() {
		s.Counts.Styles += len(l.Styles)
	}

	for _, ref := range g.rootChildren {
		switch ref.Kind {
		case KindGroup:
			s.Roots = append(s.Roots, g.groupNode(ref.ID))
		case KindLayer:
			if l, ok := g.layers[ref.ID]; ok {
				s.Loose = append(s.Loose, layerNode(l))
			}
		}
	}
	// Layers never placed in the tree still belong to the inventory.
	for _, l := range g.Layers() {
		if l.GroupID == "" && !g.inRoot(l.ID) {
			s.Loose = append(s.Loose, layerNode(l))
		}
	}

	for _, t := range g.Themes() {
		tn := ThemeNode{Name: t.Name}
		for _, rec := range t.Records {
			name := rec.LayerID
			if l, ok := g.layers[rec.LayerID]; ok {
				name = l.Name
			}
			tn.Entries = append(tn.Entries, ThemeEntry{
				LayerID:   rec.LayerID,
				LayerName: name,
				Style:     rec.Style,
				Resolved:  rec.Resolved,
			})
		}
		s.Themes = append(s.Themes, tn)
	}

	for _, r := range g.Relations() {
		rn := RelationNode{
			Name:     r.Name,
			ParentID: r.ParentLayerID,
			ChildID:  r.ChildLayerID,
			Fields:   append([]FieldPair(nil), r.Fields...),
			Resolved: r.Resolved,
		}
		rn.ParentName = g.layerDisplayName(r.ParentLayerID)
		rn.ChildName = g.layerDisplayName(r.ChildLayerID)
		s.Relations = append(s.Relations, rn)
	}

	for _, d := range g.diagnostics {
		s.Warnings = append(s.Warnings, d.Message)
	}
	return s
}

func (g *Graph) groupNode(id string) GroupNode {
	gr := g.groups[id]
	node := GroupNode{ID: gr.ID, Name: gr.Name}
	for _, ref := range gr.Children {
		switch ref.Kind {
		case KindGroup:
			node.Groups = append(node.Groups, g.groupNode(ref.ID))
		case KindLayer:
			if l, ok := g.layers[ref.ID]; ok {
				node.Layers = append(node.Layers, layerNode(l))
			}
		}
	}
	return node
}

func (g *Graph) inRoot(layerID string) bool {
	for _, ref := range g.rootChildren {
		if ref.Kind == KindLayer && ref.ID == layerID {
			return true
		}
	}
	return false
}

func (g *Graph) layerDisplayName(id string) string {
	if l, ok := g.layers[id]; ok {
		return l.Name
	}
	return id
}

func layerNode(l *Layer) LayerNode {
	return LayerNode{
		ID:       l.ID,
		Name:     l.Name,
		Provider: l.Provider,
		Source:   l.Source,
		Styles:   append([]string(nil), l.Styles...),
	}
}

// =============================================================================
// Payload Export - Style and Layout Collaborator Interfaces
// =============================================================================

// StylePayload returns the serialized payload of one style, verbatim,
// for the context-menu collaborator to write to a standalone style file
// or a copy buffer.
func (g *Graph) StylePayload(layerID, styleName string) ([]byte, error) {
	l, ok := g.layers[layerID]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFoundLayer, "no layer with id %q", layerID)
	}
	if styleName == "" {
		styleName = l.CurrentStyle
	}

	ml := g.findMapLayer(layerID)
	if ml == nil {
		return nil, errors.New(errors.ErrCodeNotFoundLayer, "no definition for layer %q", layerID)
	}
	for _, sm := range styleManagers(ml) {
		for _, st := range append(findAll(sm, "map-layer-style"), findAll(sm, "style")...) {
			name := strings.TrimSpace(st.SelectAttrValue("name", ""))
			if name == "" {
				name = DefaultStyleName
			}
			if name == styleName {
				return serializeElement(st)
			}
		}
	}
	return nil, errors.New(errors.ErrCodeNotFoundStyle, "layer %q has no style %q", layerID, styleName)
}

// LayoutPayload returns the opaque composition payload of one print
// layout, verbatim; rasterization is entirely the rendering
// collaborator's responsibility.
func (g *Graph) LayoutPayload(name string) ([]byte, error) {
	if _, ok := g.layouts[name]; !ok {
		return nil, errors.New(errors.ErrCodeNotFoundLayout, "no layout named %q", name)
	}
	var found *etree.Element
	walk(g.doc.Root(), func(el *etree.Element) {
		if found == nil && matchTag(el, "layout") && strings.TrimSpace(el.SelectAttrValue("name", "")) == name {
			found = el
		}
	})
	if found == nil {
		return nil, errors.New(errors.ErrCodeNotFoundLayout, "no layout named %q", name)
	}
	return serializeElement(found)
}

func (g *Graph) findMapLayer(id string) *etree.Element {
	for _, ml := range findAll(g.doc.Root(), "maplayer") {
		if strings.TrimSpace(childText(ml, "id")) == id {
			return ml
		}
	}
	return nil
}

// serializeElement emits one element subtree as a standalone document.
func serializeElement(el *etree.Element) ([]byte, error) {
	doc := etree.NewDocument()
	doc.SetRoot(el.Copy())
	data, err := doc.WriteToBytes()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSerializeFailed, err, "serialize element %s", el.Tag)
	}
	return data, nil
}
