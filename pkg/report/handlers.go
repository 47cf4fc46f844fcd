package report

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/qarve/qarve/pkg/errors"
	"github.com/qarve/qarve/pkg/filter"
	"github.com/qarve/qarve/pkg/project"
	"github.com/qarve/qarve/pkg/selection"
)

type handlers struct {
	graph  *project.Graph
	logger *log.Logger
}

func newHandlers(g *project.Graph, logger *log.Logger) *handlers {
	return &handlers{graph: g, logger: logger}
}

// errorBody is the JSON error envelope: machine code plus message.
type errorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func (h *handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", "error", err)
	}
}

func (h *handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.ErrCodeNotFound, errors.ErrCodeNotFoundLayer,
		errors.ErrCodeNotFoundStyle, errors.ErrCodeNotFoundLayout:
		status = http.StatusNotFound
	case errors.ErrCodeInvalidSelection, errors.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	}
	h.writeJSON(w, status, errorBody{Code: errors.GetCode(err), Message: errors.UserMessage(err)})
}

// Summary returns the full snapshot: counts, extent, CRS, trees.
func (h *handlers) Summary(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.graph.Summarize())
}

// Layers returns the flat layer inventory.
func (h *handlers) Layers(w http.ResponseWriter, r *http.Request) {
	s := h.graph.Summarize()
	type layerRow struct {
		ID       string   `json:"id"`
		Name     string   `json:"name"`
		Provider string   `json:"provider,omitempty"`
		Group    string   `json:"group,omitempty"`
		Styles   []string `json:"styles"`
	}
	rows := make([]layerRow, 0, s.Counts.Layers)
	for _, l := range h.graph.Layers() {
		rows = append(rows, layerRow{
			ID:       l.ID,
			Name:     l.Name,
			Provider: l.Provider,
			Group:    l.GroupID,
			Styles:   l.Styles,
		})
	}
	h.writeJSON(w, http.StatusOK, rows)
}

// StylePayload streams one style element verbatim.
func (h *handlers) StylePayload(w http.ResponseWriter, r *http.Request) {
	data, err := h.graph.StylePayload(chi.URLParam(r, "layer"), chi.URLParam(r, "style"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write(data)
}

// LayoutPayload streams one layout element verbatim.
func (h *handlers) LayoutPayload(w http.ResponseWriter, r *http.Request) {
	data, err := h.graph.LayoutPayload(chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write(data)
}

// Filter accepts a selection manifest as JSON, runs the filter and
// streams the pruned project back as an archive.
func (h *handlers) Filter(w http.ResponseWriter, r *http.Request) {
	var m selection.Manifest
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		h.writeError(w, errors.Wrap(errors.ErrCodeInvalidSelection, err, "decode selection"))
		return
	}

	state := selection.New(h.graph)
	if err := m.Apply(state); err != nil {
		h.writeError(w, err)
		return
	}
	selection.ResolveRelations(state)

	if len(state.RetainedLayers()) == 0 {
		h.logger.Warn("empty selection, exporting a schema-valid empty project",
			"code", errors.ErrCodeEmptySelection)
	}

	out, err := filter.Run(state, filter.Options{DisconnectSources: m.DisconnectSources})
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="filtered.qgz"`)
	if err := out.WriteQGZ(w); err != nil {
		h.logger.Error("write archive", "error", err)
	}
}
