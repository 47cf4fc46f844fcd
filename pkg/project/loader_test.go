package project

import (
	"testing"

	"github.com/qarve/qarve/pkg/errors"
)

// fixtureQGS is a small but complete project exercising every section
// the loader reads: layer definitions with and without style managers, a
// nested group tree with a loose root layer, visibility presets (one
// with a dangling reference), print layouts in a container, relations
// and canvas metadata.
const fixtureQGS = `<?xml version="1.0" encoding="utf-8"?>
<qgis version="3.34.1" projectname="demo">
  <projectCrs>
    <spatialrefsys>
      <authid>EPSG:25832</authid>
    </spatialrefsys>
  </projectCrs>
  <layer-tree-group>
    <layer-tree-group name="Base" checked="Qt::Checked">
      <layer-tree-layer id="L1" name="Streets"/>
    </layer-tree-group>
    <layer-tree-group name="Topo">
      <layer-tree-layer id="L2" name="Contours"/>
      <layer-tree-group name="Raster">
        <layer-tree-layer id="L3" name="Hillshade"/>
      </layer-tree-group>
    </layer-tree-group>
    <layer-tree-layer id="L4" name="Notes"/>
    <custom-order enabled="0">
      <item>L1</item>
      <item>L2</item>
      <item>L3</item>
      <item>L4</item>
    </custom-order>
  </layer-tree-group>
  <mapcanvas name="theMapCanvas">
    <extent>
      <xmin>10.0</xmin>
      <ymin>50.0</ymin>
      <xmax>11.0</xmax>
      <ymax>51.0</ymax>
    </extent>
  </mapcanvas>
  <projectlayers>
    <maplayer type="vector">
      <id>L1</id>
      <layername>Streets</layername>
      <datasource>./data/streets.gpkg|layername=streets</datasource>
      <provider>ogr</provider>
      <map-layer-style-manager current="night">
        <map-layer-style name="default"/>
        <map-layer-style name="night"/>
      </map-layer-style-manager>
    </maplayer>
    <maplayer type="vector">
      <id>L2</id>
      <layername>Contours</layername>
      <datasource>./data/contours.shp</datasource>
      <provider>ogr</provider>
    </maplayer>
    <maplayer type="raster">
      <id>L3</id>
      <layername>Hillshade</layername>
      <datasource>./data/hillshade.tif</datasource>
      <provider>gdal</provider>
    </maplayer>
    <maplayer type="vector">
      <id>L4</id>
      <layername>Notes</layername>
      <datasource>memory</datasource>
      <provider>memory</provider>
    </maplayer>
  </projectlayers>
  <visibility-presets>
    <visibility-preset name="Day">
      <layer id="L1" style="default" visible="1"/>
      <layer id="L2" visible="1"/>
    </visibility-preset>
    <visibility-preset name="Ghost">
      <layer id="LX" visible="1"/>
    </visibility-preset>
  </visibility-presets>
  <Layouts>
    <Layout name="A4 Map" units="mm">
      <PageCollection/>
    </Layout>
    <Layout name="Atlas" units="mm"/>
  </Layouts>
  <relations>
    <relation name="R1" referencedLayer="L1" referencingLayer="L2" strength="Association">
      <fieldRef referencedField="fid" referencingField="street_id"/>
    </relation>
    <relation name="RGhost" referencedLayer="L1" referencingLayer="LX"/>
  </relations>
</qgis>
`

func loadFixture(t *testing.T) *Graph {
	t.Helper()
	g, err := Load([]byte(fixtureQGS))
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	return g
}

func TestLoadLayers(t *testing.T) {
	g := loadFixture(t)

	layers := g.Layers()
	if len(layers) != 4 {
		t.Fatalf("Layers() = %d layers, want 4", len(layers))
	}

	tests := []struct {
		id       string
		name     string
		provider string
		groupID  string
		styles   []string
		current  string
		hasNight bool
	}{
		{"L1", "Streets", "ogr", "/Base", []string{"default", "night"}, "night", true},
		{"L2", "Contours", "ogr", "/Topo", []string{"default"}, "default", false},
		{"L3", "Hillshade", "gdal", "/Topo/Raster", []string{"default"}, "default", false},
		{"L4", "Notes", "memory", "", []string{"default"}, "default", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			l, ok := g.Layer(tt.id)
			if !ok {
				t.Fatalf("Layer(%q) not found", tt.id)
			}
			if l.Name != tt.name {
				t.Errorf("Name = %q, want %q", l.Name, tt.name)
			}
			if l.Provider != tt.provider {
				t.Errorf("Provider = %q, want %q", l.Provider, tt.provider)
			}
			if l.GroupID != tt.groupID {
				t.Errorf("GroupID = %q, want %q", l.GroupID, tt.groupID)
			}
			if len(l.Styles) != len(tt.styles) {
				t.Fatalf("Styles = %v, want %v", l.Styles, tt.styles)
			}
			for i, s := range tt.styles {
				if l.Styles[i] != s {
					t.Errorf("Styles[%d] = %q, want %q", i, l.Styles[i], s)
				}
			}
			if l.CurrentStyle != tt.current {
				t.Errorf("CurrentStyle = %q, want %q", l.CurrentStyle, tt.current)
			}
			if l.HasStyle("night") != tt.hasNight {
				t.Errorf("HasStyle(night) = %v, want %v", l.HasStyle("night"), tt.hasNight)
			}
		})
	}
}

func TestLoadGroupTree(t *testing.T) {
	g := loadFixture(t)

	groups := g.Groups()
	if len(groups) != 3 {
		t.Fatalf("Groups() = %d groups, want 3", len(groups))
	}

	base, ok := g.Group("/Base")
	if !ok {
		t.Fatal("Group(/Base) not found")
	}
	if base.ParentID != "" {
		t.Errorf("Base.ParentID = %q, want root", base.ParentID)
	}
	if len(base.Children) != 1 || base.Children[0].ID != "L1" {
		t.Errorf("Base.Children = %v, want [L1]", base.Children)
	}

	raster, ok := g.Group("/Topo/Raster")
	if !ok {
		t.Fatal("Group(/Topo/Raster) not found")
	}
	if raster.ParentID != "/Topo" {
		t.Errorf("Raster.ParentID = %q, want /Topo", raster.ParentID)
	}

	roots := g.RootChildren()
	if len(roots) != 3 {
		t.Fatalf("RootChildren() = %d entries, want 3", len(roots))
	}
	if roots[2].Kind != KindLayer || roots[2].ID != "L4" {
		t.Errorf("RootChildren()[2] = %+v, want loose layer L4", roots[2])
	}
}

func TestLoadThemes(t *testing.T) {
	g := loadFixture(t)

	day, ok := g.Theme("Day")
	if !ok {
		t.Fatal("Theme(Day) not found")
	}
	if len(day.Records) != 2 {
		t.Fatalf("Day.Records = %d, want 2", len(day.Records))
	}
	if day.Records[0].LayerID != "L1" || day.Records[0].Style != "default" {
		t.Errorf("Day.Records[0] = %+v, want L1/default", day.Records[0])
	}
	if !day.Records[0].Resolved || !day.Records[1].Resolved {
		t.Error("Day records should resolve against the layer set")
	}

	ghost, ok := g.Theme("Ghost")
	if !ok {
		t.Fatal("Theme(Ghost) not found")
	}
	if len(ghost.Records) != 1 || ghost.Records[0].Resolved {
		t.Errorf("Ghost.Records = %+v, want one unresolved record", ghost.Records)
	}
}

func TestLoadLayoutsAndRelations(t *testing.T) {
	g := loadFixture(t)

	layouts := g.Layouts()
	if len(layouts) != 2 {
		t.Fatalf("Layouts() = %d, want 2", len(layouts))
	}
	if layouts[0].Name != "A4 Map" || layouts[1].Name != "Atlas" {
		t.Errorf("Layouts() = [%s, %s], want [A4 Map, Atlas]", layouts[0].Name, layouts[1].Name)
	}

	r1, ok := g.Relation("R1")
	if !ok {
		t.Fatal("Relation(R1) not found")
	}
	if r1.ParentLayerID != "L1" || r1.ChildLayerID != "L2" {
		t.Errorf("R1 endpoints = %s -> %s, want L1 -> L2", r1.ParentLayerID, r1.ChildLayerID)
	}
	if !r1.Resolved {
		t.Error("R1 should be resolved")
	}
	if len(r1.Fields) != 1 || r1.Fields[0].Parent != "fid" || r1.Fields[0].Child != "street_id" {
		t.Errorf("R1.Fields = %+v, want [{fid street_id}]", r1.Fields)
	}

	ghost, ok := g.Relation("RGhost")
	if !ok {
		t.Fatal("Relation(RGhost) not found")
	}
	if ghost.Resolved {
		t.Error("RGhost should be unresolved (missing endpoint)")
	}
}

func TestLoadCanvasAndDiagnostics(t *testing.T) {
	g := loadFixture(t)

	if g.CRS() != "EPSG:25832" {
		t.Errorf("CRS() = %q, want EPSG:25832", g.CRS())
	}
	ext := g.Extent()
	if ext == nil {
		t.Fatal("Extent() = nil")
	}
	if ext.XMin != "10.0" || ext.YMax != "51.0" {
		t.Errorf("Extent() = %+v, want xmin 10.0 ymax 51.0", ext)
	}

	// One dangling theme reference plus one dangling relation endpoint.
	diags := g.Diagnostics()
	if len(diags) != 2 {
		t.Fatalf("Diagnostics() = %d entries, want 2: %+v", len(diags), diags)
	}
	for _, d := range diags {
		if d.Code != errors.ErrCodeUnresolvedReference {
			t.Errorf("Diagnostic code = %s, want %s", d.Code, errors.ErrCodeUnresolvedReference)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		code errors.Code
	}{
		{"not markup", "this is not a project", errors.ErrCodeLoadFailed},
		{"empty document", "<?xml version=\"1.0\"?>", errors.ErrCodeLoadFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.data))
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("Load() error code = %s, want %s", errors.GetCode(err), tt.code)
			}
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("/nonexistent/project.qgs")
	if err == nil {
		t.Fatal("LoadFile() expected error, got nil")
	}
	if !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("LoadFile() error code = %s, want %s", errors.GetCode(err), errors.ErrCodeInvalidPath)
	}
}

func TestAssignGroupID(t *testing.T) {
	seen := map[string]bool{}
	if got := assignGroupID(seen, "", "Base"); got != "/Base" {
		t.Errorf("first = %q, want /Base", got)
	}
	if got := assignGroupID(seen, "", "Base"); got != "/Base#2" {
		t.Errorf("duplicate = %q, want /Base#2", got)
	}
	if got := assignGroupID(seen, "", "Base"); got != "/Base#3" {
		t.Errorf("triplicate = %q, want /Base#3", got)
	}
	if got := assignGroupID(seen, "/Base", "Base"); got != "/Base/Base" {
		t.Errorf("nested = %q, want /Base/Base", got)
	}
}

func TestLoadTagCaseInsensitive(t *testing.T) {
	const data = `<qgis>
	  <projectlayers>
	    <MapLayer>
	      <Id>L1</Id>
	      <LayerName>Streets</LayerName>
	    </MapLayer>
	  </projectlayers>
	</qgis>`

	g, err := Load([]byte(data))
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	l, ok := g.Layer("L1")
	if !ok {
		t.Fatal("Layer(L1) not found with mixed-case tags")
	}
	if l.Name != "Streets" {
		t.Errorf("Name = %q, want Streets", l.Name)
	}
}
