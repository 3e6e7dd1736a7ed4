package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/serviapp/serviapp/internal/core"
	"github.com/serviapp/serviapp/internal/refdata"
)

// recordView is a ServiceRecord decorated for clients: the logo URL always
// resolves to something renderable and ownership is pre-computed for the
// caller's session.
type recordView struct {
	core.ServiceRecord
	DisplayLogoURL string `json:"displayLogoUrl"`
	Editable       bool   `json:"editable"`
	Selected       bool   `json:"selecionado"`
}

func (s *Server) viewOf(r *http.Request, rec core.ServiceRecord) recordView {
	sess := sessionFrom(r.Context())
	view := recordView{
		ServiceRecord:  rec,
		DisplayLogoURL: rec.DisplayLogoURL(),
		Editable:       sess.CanMutate(&rec),
	}
	if token := tokenFrom(r.Context()); token != "" {
		view.Selected = s.selection(token).Contains(rec.ID)
	}
	return view
}

func (s *Server) viewsOf(r *http.Request, recs []core.ServiceRecord) []recordView {
	views := make([]recordView, len(recs))
	for i, rec := range recs {
		views[i] = s.viewOf(r, rec)
	}
	return views
}

// handleListServices serves the public directory listing. Query parameters:
// busca (substring match on name or service), categoria (exact match), and
// agrupar (categoria, estado or cidade) for a grouped response.
func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	busca := q.Get("busca")
	categoria := q.Get("categoria")
	agrupar := q.Get("agrupar")

	if agrupar != "" && !core.ValidGroupKey(agrupar) {
		badRequest(w, "agrupar deve ser categoria, estado ou cidade")
		return
	}

	visible := core.Filter(s.service.Listing().Records(), busca, categoria)

	if agrupar == "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"servicos": s.viewsOf(r, visible),
			"total":    len(visible),
		})
		return
	}

	grouped := core.Group(visible, agrupar)
	type grupo struct {
		Label    string       `json:"label"`
		Servicos []recordView `json:"servicos"`
	}
	grupos := make([]grupo, 0, len(grouped.Labels))
	for _, label := range grouped.Labels {
		grupos = append(grupos, grupo{
			Label:    label,
			Servicos: s.viewsOf(r, grouped.Buckets[label]),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"grupos": grupos,
		"total":  len(visible),
	})
}

// handleGetService serves a single record. With ?edit=1 the caller must be
// allowed to mutate the record, so the edit form never opens on someone
// else's registration.
func (s *Server) handleGetService(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := s.service.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if r.URL.Query().Get("edit") == "1" {
		sess := sessionFrom(r.Context())
		if sess.Identity == nil {
			s.respondError(w, r, core.ErrUnauthorized)
			return
		}
		if !sess.CanMutate(&rec) {
			s.respondError(w, r, core.ErrForbidden)
			return
		}
	}

	writeJSON(w, http.StatusOK, s.viewOf(r, rec))
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categorias": refdata.Categories()})
}

func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	type estado struct {
		Sigla string `json:"sigla"`
		Nome  string `json:"nome"`
	}
	all := refdata.States()
	out := make([]estado, len(all))
	for i, e := range all {
		out[i] = estado{Sigla: e.Sigla, Nome: e.Nome}
	}
	writeJSON(w, http.StatusOK, map[string]any{"estados": out})
}

func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	uf := chi.URLParam(r, "uf")
	cidades := refdata.Cities(uf)
	if cidades == nil {
		s.respondError(w, r, core.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cidades": cidades})
}
