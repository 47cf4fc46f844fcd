package selection

import (
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/qarve/qarve/pkg/errors"
	"github.com/qarve/qarve/pkg/project"
)

// Manifest is the declarative selection file. Select lists mark
// entities for retention; drop lists record explicit deselections,
// which matter for styles (retained by default) and for overriding a
// broad selection like all=true or a group cascade.
//
//	all = false
//	groups = ["/Base"]
//	layers = ["L2"]
//	themes = ["Day"]
//	layouts = ["A4 Map"]
//	relations = ["R1"]
//	drop_layers = ["L4"]
//	drop_styles = ["L1|night"]
//	drop_relations = []
//	disconnect_sources = true
type Manifest struct {
	All       bool     `toml:"all" json:"all"`
	Groups    []string `toml:"groups" json:"groups,omitempty"`
	Layers    []string `toml:"layers" json:"layers,omitempty"`
	Themes    []string `toml:"themes" json:"themes,omitempty"`
	Layouts   []string `toml:"layouts" json:"layouts,omitempty"`
	Relations []string `toml:"relations" json:"relations,omitempty"`

	DropLayers    []string `toml:"drop_layers" json:"drop_layers,omitempty"`
	DropStyles    []string `toml:"drop_styles" json:"drop_styles,omitempty"`
	DropRelations []string `toml:"drop_relations" json:"drop_relations,omitempty"`

	DisconnectSources bool `toml:"disconnect_sources" json:"disconnect_sources,omitempty"`
}

// LoadManifest decodes a TOML selection file. Unknown keys are
// rejected so a typoed drop list cannot silently select everything.
func LoadManifest(path string) (*Manifest, error) {
	var m Manifest
	meta, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSelection, err, "decode selection file %s", path)
	}
	if undec := meta.Undecoded(); len(undec) > 0 {
		keys := make([]string, len(undec))
		for i, k := range undec {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidSelection,
			"unknown keys in selection file %s: %s", path, strings.Join(keys, ", "))
	}
	return &m, nil
}

// Apply records the manifest on s. Every identifier is validated
// against the graph first, so a stale manifest fails before any flag
// is touched. Selections are applied before drops; a drop therefore
// wins over all=true and over a group cascade from the same manifest.
func (m *Manifest) Apply(s *State) error {
	if err := m.validate(s.Graph()); err != nil {
		return err
	}

	if m.All {
		s.SelectAll()
	}
	for _, id := range m.Groups {
		s.Set(project.KindGroup, id, true)
	}
	for _, id := range m.Layers {
		s.Set(project.KindLayer, id, true)
	}
	for _, id := range m.Themes {
		s.Set(project.KindTheme, id, true)
	}
	for _, id := range m.Layouts {
		s.Set(project.KindLayout, id, true)
	}
	for _, id := range m.Relations {
		s.Set(project.KindRelation, id, true)
	}

	for _, id := range m.DropLayers {
		s.Set(project.KindLayer, id, false)
	}
	for _, id := range m.DropStyles {
		s.Set(project.KindStyle, id, false)
	}
	for _, id := range m.DropRelations {
		s.Set(project.KindRelation, id, false)
	}
	return nil
}

func (m *Manifest) validate(g *project.Graph) error {
	for _, id := range m.Groups {
		if !g.Has(project.KindGroup, id) {
			return errors.New(errors.ErrCodeNotFound, "no group with id %q", id)
		}
	}
	for _, id := range append(append([]string{}, m.Layers...), m.DropLayers...) {
		if !g.Has(project.KindLayer, id) {
			return errors.New(errors.ErrCodeNotFoundLayer, "no layer with id %q", id)
		}
	}
	for _, id := range m.Themes {
		if !g.Has(project.KindTheme, id) {
			return errors.New(errors.ErrCodeNotFound, "no theme named %q", id)
		}
	}
	for _, id := range m.Layouts {
		if !g.Has(project.KindLayout, id) {
			return errors.New(errors.ErrCodeNotFoundLayout, "no layout named %q", id)
		}
	}
	for _, id := range append(append([]string{}, m.Relations...), m.DropRelations...) {
		if !g.Has(project.KindRelation, id) {
			return errors.New(errors.ErrCodeNotFound, "no relation named %q", id)
		}
	}
	for _, id := range m.DropStyles {
		layerID, style := project.SplitStyleID(id)
		l, ok := g.Layer(layerID)
		if !ok {
			return errors.New(errors.ErrCodeNotFoundLayer, "no layer with id %q in style %q", layerID, id)
		}
		if !l.HasStyle(style) {
			return errors.New(errors.ErrCodeNotFoundStyle, "layer %q has no style %q", layerID, style)
		}
	}
	return nil
}
