// Package project implements the QGIS project model: loading a .qgs or
// .qgz project description into a typed entity graph, pruning that graph
// down to a retained subset, and serializing the result back out in the
// original markup format.
//
// # Architecture
//
// The package owns both sides of the format boundary:
//
//  1. Load: bytes → *Graph (typed entities + the parsed XML document)
//  2. Prune: *Graph × Retention → new *Graph over a pruned copy of the
//     document; the original graph is never mutated
//  3. Write: *Graph → .qgs bytes or a .qgz archive containing only the
//     auxiliary resources still referenced by retained layers
//
// The XML document is kept alongside the typed entities so that output
// is "the original tree minus pruned subtrees, with targeted attribute
// rewrites" rather than a from-scratch re-render. Everything the loader
// does not understand survives serialization untouched.
//
// Selection policy (which entities to retain, cascade and union rules,
// relation auto-selection) lives in the selection and filter packages;
// this package only knows how to build, cut and emit the format.
//
// # Usage
//
//	g, err := project.LoadFile("atlas.qgz")
//	if err != nil {
//	    return err
//	}
//	for _, l := range g.Layers() {
//	    fmt.Println(l.ID, l.Name, l.Styles)
//	}
package project
