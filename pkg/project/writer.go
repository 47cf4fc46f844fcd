package project

import (
	"archive/zip"
	"io"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/qarve/qarve/pkg/errors"
)

// WriteQGS serializes the project markup. Retained regions are emitted
// as they were parsed; only pruned subtrees and rewritten attributes
// differ from the input.
func (g *Graph) WriteQGS() ([]byte, error) {
	data, err := g.doc.WriteToBytes()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSerializeFailed, err, "serialize project markup")
	}
	return data, nil
}

// WriteQGZ writes the archive container variant to w: the project entry
// plus only the auxiliary resources still referenced by a retained
// layer's data source.
func (g *Graph) WriteQGZ(w io.Writer) error {
	data, err := g.WriteQGS()
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	entry, err := zw.Create(g.projectEntryName())
	if err != nil {
		return errors.Wrap(errors.ErrCodeSerializeFailed, err, "create project entry")
	}
	if _, err := entry.Write(data); err != nil {
		return errors.Wrap(errors.ErrCodeSerializeFailed, err, "write project entry")
	}

	for _, name := range g.referencedResources() {
		entry, err := zw.Create(name)
		if err != nil {
			return errors.Wrap(errors.ErrCodeSerializeFailed, err, "create archive entry %s", name)
		}
		if _, err := entry.Write(g.resources[name]); err != nil {
			return errors.Wrap(errors.ErrCodeSerializeFailed, err, "write archive entry %s", name)
		}
	}

	if err := zw.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeSerializeFailed, err, "finalize project archive")
	}
	return nil
}

// ExportFile writes the project to path, picking the container variant
// from the extension: .qgs gets plain markup, everything else gets the
// archive form. A failed export leaves no partial file behind the
// caller's back beyond the truncated target itself; the in-memory
// project is untouched either way.
func (g *Graph) ExportFile(outPath string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSerializeFailed, err, "create %s", outPath)
	}
	defer f.Close()

	if strings.EqualFold(path.Ext(outPath), ".qgs") {
		data, err := g.WriteQGS()
		if err != nil {
			return err
		}
		if _, err := f.Write(data); err != nil {
			return errors.Wrap(errors.ErrCodeSerializeFailed, err, "write %s", outPath)
		}
		return nil
	}
	return g.WriteQGZ(f)
}

// projectEntryName preserves the original archive entry name when the
// project came from an archive.
func (g *Graph) projectEntryName() string {
	if g.qgsName != "" {
		return g.qgsName
	}
	return defaultProjectEntry
}

// referencedResources returns the auxiliary entries whose base name
// still occurs in a retained layer's data-source locator, in stable
// order.
func (g *Graph) referencedResources() []string {
	var out []string
	for name := range g.resources {
		base := path.Base(name)
		for _, id := range g.layerOrder {
			if strings.Contains(g.layers[id].Source, base) {
				out = append(out, name)
				break
			}
		}
	}
	slices.Sort(out)
	return out
}
