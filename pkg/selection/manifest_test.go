package selection

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/qarve/qarve/pkg/errors"
	"github.com/qarve/qarve/pkg/project"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "selection.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, `
all = false
groups = ["/Base"]
layers = ["L3"]
themes = ["Night"]
drop_styles = ["L1|night"]
disconnect_sources = true
`)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest() unexpected error: %v", err)
	}
	if len(m.Groups) != 1 || m.Groups[0] != "/Base" {
		t.Errorf("Groups = %v, want [/Base]", m.Groups)
	}
	if !m.DisconnectSources {
		t.Error("DisconnectSources = false, want true")
	}
	if len(m.DropStyles) != 1 || m.DropStyles[0] != "L1|night" {
		t.Errorf("DropStyles = %v, want [L1|night]", m.DropStyles)
	}
}

func TestLoadManifestRejectsUnknownKeys(t *testing.T) {
	path := writeManifest(t, `
layer = ["L1"]
`)

	_, err := LoadManifest(path)
	if err == nil {
		t.Fatal("LoadManifest() expected error for unknown key")
	}
	if !errors.Is(err, errors.ErrCodeInvalidSelection) {
		t.Errorf("error code = %s, want %s", errors.GetCode(err), errors.ErrCodeInvalidSelection)
	}
}

func TestManifestApply(t *testing.T) {
	s := newFixtureState(t)

	m := &Manifest{
		Groups:     []string{"/Base"},
		Themes:     []string{"Night"},
		DropLayers: []string{"L2"},
		DropStyles: []string{project.StyleID("L1", "night")},
	}
	if err := m.Apply(s); err != nil {
		t.Fatalf("Apply() unexpected error: %v", err)
	}

	// The group cascade selected L1 and L2; the drop list wins for L2.
	if !s.IsSelected(project.KindLayer, "L1") {
		t.Error("L1 should be selected via group cascade")
	}
	if s.IsSelected(project.KindLayer, "L2") {
		t.Error("L2 drop should win over the group cascade")
	}
	// L3 comes in through the theme path only.
	if !s.IsSelected(project.KindLayer, "L3") {
		t.Error("L3 should be selected via the theme")
	}
	if s.IsSelected(project.KindStyle, project.StyleID("L1", "night")) {
		t.Error("dropped style should not be retained")
	}
}

func TestManifestApplyDropStyleWinsOverTheme(t *testing.T) {
	s := newFixtureState(t)

	// The Night theme pins L1|night; applying the drop after the
	// selection phase makes the explicit drop authoritative.
	m := &Manifest{
		Themes:     []string{"Night"},
		DropStyles: []string{project.StyleID("L1", "night")},
	}
	if err := m.Apply(s); err != nil {
		t.Fatalf("Apply() unexpected error: %v", err)
	}
	if s.IsSelected(project.KindStyle, project.StyleID("L1", "night")) {
		t.Error("explicit style drop should win over the theme's pin")
	}
}

func TestManifestApplyValidation(t *testing.T) {
	tests := []struct {
		name     string
		manifest Manifest
		code     errors.Code
	}{
		{"unknown group", Manifest{Groups: []string{"/Nope"}}, errors.ErrCodeNotFound},
		{"unknown layer", Manifest{Layers: []string{"LZ"}}, errors.ErrCodeNotFoundLayer},
		{"unknown drop layer", Manifest{DropLayers: []string{"LZ"}}, errors.ErrCodeNotFoundLayer},
		{"unknown theme", Manifest{Themes: []string{"Dawn"}}, errors.ErrCodeNotFound},
		{"unknown layout", Manifest{Layouts: []string{"A0"}}, errors.ErrCodeNotFoundLayout},
		{"unknown relation", Manifest{Relations: []string{"R9"}}, errors.ErrCodeNotFound},
		{"unknown style layer", Manifest{DropStyles: []string{"LZ|default"}}, errors.ErrCodeNotFoundLayer},
		{"unknown style", Manifest{DropStyles: []string{"L1|winter"}}, errors.ErrCodeNotFoundStyle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFixtureState(t)
			err := tt.manifest.Apply(s)
			if err == nil {
				t.Fatal("Apply() expected error, got nil")
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("error code = %s, want %s", errors.GetCode(err), tt.code)
			}
			// Validation failures must not leave partial flags behind.
			if len(s.RetainedLayers()) != 0 {
				t.Errorf("RetainedLayers() = %v after failed Apply, want none", s.RetainedLayers())
			}
		})
	}
}
