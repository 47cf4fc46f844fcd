package project

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"

	"github.com/qarve/qarve/pkg/errors"
)

// defaultProjectEntry is the archive entry name used for the project
// markup when the input did not come from an archive.
const defaultProjectEntry = "project.qgs"

// archiveMagic is the ZIP local file header signature.
var archiveMagic = []byte{'P', 'K', 0x03, 0x04}

// isArchive reports whether data looks like the compressed archive
// container variant rather than plain markup.
func isArchive(data []byte) bool {
	return len(data) >= len(archiveMagic) && bytes.Equal(data[:len(archiveMagic)], archiveMagic)
}

// readArchive extracts the project markup and every auxiliary resource
// from a .qgz archive. The first entry with a .qgs suffix is the
// project; an archive without one is a load failure.
func readArchive(data []byte) (qgsName string, qgs []byte, resources map[string][]byte, err error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, nil, errors.Wrap(errors.ErrCodeLoadFailed, err, "open project archive")
	}

	resources = map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return "", nil, nil, errors.Wrap(errors.ErrCodeLoadFailed, err, "read archive entry %s", f.Name)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", nil, nil, errors.Wrap(errors.ErrCodeLoadFailed, err, "read archive entry %s", f.Name)
		}

		if qgsName == "" && strings.HasSuffix(strings.ToLower(f.Name), ".qgs") {
			qgsName = f.Name
			qgs = content
			continue
		}
		resources[f.Name] = content
	}

	if qgsName == "" {
		return "", nil, nil, errors.New(errors.ErrCodeLoadFailed, "no .qgs entry in project archive")
	}
	return qgsName, qgs, resources, nil
}
