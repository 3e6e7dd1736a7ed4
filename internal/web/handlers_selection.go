package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/serviapp/serviapp/internal/core"
	"github.com/serviapp/serviapp/internal/logging"
	"github.com/serviapp/serviapp/internal/metrics"
)

// Selections are kept server-side per session, so they need an
// authenticated caller.

func (s *Server) handleSelectionToggle(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireIdentity(w, r); !ok {
		return
	}

	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		badRequest(w, "id do registro é obrigatório")
		return
	}
	if _, found := s.service.Listing().Get(req.ID); !found {
		s.respondError(w, r, core.ErrNotFound)
		return
	}

	sel := s.selection(tokenFrom(r.Context()))
	selected := sel.Toggle(req.ID)

	writeJSON(w, http.StatusOK, map[string]any{
		"id":          req.ID,
		"selecionado": selected,
		"total":       sel.Len(),
	})
}

// handleSelectionAll selects every record visible under the given busca and
// categoria filters, replacing the previous selection. Filtering happens
// server-side with the same rules as the listing, so hidden records are
// never selected.
func (s *Server) handleSelectionAll(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireIdentity(w, r); !ok {
		return
	}

	var req struct {
		Busca     string `json:"busca"`
		Categoria string `json:"categoria"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "corpo da requisição inválido")
			return
		}
	}

	visible := core.Filter(s.service.Listing().Records(), req.Busca, req.Categoria)
	sel := s.selection(tokenFrom(r.Context()))
	sel.SelectAll(listingIDs(visible))

	writeJSON(w, http.StatusOK, map[string]any{"total": sel.Len()})
}

func (s *Server) handleSelectionClear(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireIdentity(w, r); !ok {
		return
	}

	s.selection(tokenFrom(r.Context())).Clear()
	writeJSON(w, http.StatusOK, map[string]any{"total": 0})
}

func (s *Server) handleSelectionGet(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireIdentity(w, r); !ok {
		return
	}

	sel := s.selection(tokenFrom(r.Context()))
	snapshot := sel.Snapshot()
	ids := make([]string, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ids":   ids,
		"total": len(ids),
	})
}

// handleExport streams the selected contacts as an xlsx attachment. Rows
// follow listing order regardless of selection order.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireIdentity(w, r); !ok {
		return
	}

	sel := s.selection(tokenFrom(r.Context()))
	data, err := core.ExportXLSX(sel.Snapshot(), s.service.Listing().Records())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	metrics.ExportsTotal.Inc()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", core.ExportFileName))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logging.FromContext(r.Context()).Error("export write failed", "error", err)
	}
}
