package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/serviapp/serviapp/internal/core"
	"github.com/serviapp/serviapp/internal/metrics"
)

// multipartMemory bounds how much of a parsed form is held in memory
// before spilling to temp files.
const multipartMemory = 1 << 20

var (
	errBadBody      = errors.New("corpo da requisição inválido")
	errBodyTooLarge = errors.New("arquivo excede o tamanho máximo permitido")
	errLogoNotImage = errors.New("o logo deve ser um arquivo de imagem")
)

// handleCreateService registers a new provider. The body is either JSON or
// a multipart form with the record fields plus an optional "logo" file part.
func (s *Server) handleCreateService(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	in, logo, err := s.decodeCreate(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	rec, err := s.service.Create(r.Context(), sess, in, logo)
	metrics.RecordMutation("create", err)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, s.viewOf(r, rec))
}

// handleUpdateService applies a partial update. Only the owner or an
// administrator may edit a record.
func (s *Server) handleUpdateService(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	patch, logo, err := s.decodePatch(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	rec, err := s.service.Update(r.Context(), sess, id, patch, logo)
	metrics.RecordMutation("update", err)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, s.viewOf(r, rec))
}

func (s *Server) handleDeleteService(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	err := s.service.Delete(r.Context(), sess, id)
	metrics.RecordMutation("delete", err)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	// The record is gone from the listing; drop it from this session's
	// selection too.
	if token := tokenFrom(r.Context()); token != "" {
		s.selection(token).Prune(listingIDs(s.service.Listing().Records()))
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// decodeCreate reads a RecordInput and optional logo from the request body.
func (s *Server) decodeCreate(r *http.Request) (core.RecordInput, *core.LogoUpload, error) {
	var in core.RecordInput

	if !isMultipart(r) {
		r.Body = http.MaxBytesReader(nil, r.Body, s.cfg.Server.MaxUploadBytes)
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			return in, nil, errBadBody
		}
		return in, nil, nil
	}

	form, logo, err := s.parseMultipart(r)
	if err != nil {
		return in, nil, err
	}
	in = core.RecordInput{
		Nome:          form("nome"),
		Categoria:     form("categoria"),
		Servico:       form("servico"),
		Telefone:      form("telefone"),
		Email:         form("email"),
		Estado:        form("estado"),
		Cidade:        form("cidade"),
		TermsAccepted: form("termsAccepted") == "true",
	}
	return in, logo, nil
}

// decodePatch reads a RecordPatch and optional logo from the request body.
// For multipart forms, only fields present in the form are patched, so a
// blank-but-present field clears the value while an absent field keeps it.
func (s *Server) decodePatch(r *http.Request) (core.RecordPatch, *core.LogoUpload, error) {
	var patch core.RecordPatch

	if !isMultipart(r) {
		r.Body = http.MaxBytesReader(nil, r.Body, s.cfg.Server.MaxUploadBytes)
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			return patch, nil, errBadBody
		}
		return patch, nil, nil
	}

	_, logo, err := s.parseMultipart(r)
	if err != nil {
		return patch, nil, err
	}

	set := func(field string) *string {
		if vs, ok := r.MultipartForm.Value[field]; ok && len(vs) > 0 {
			return &vs[0]
		}
		return nil
	}
	patch = core.RecordPatch{
		Nome:      set("nome"),
		Categoria: set("categoria"),
		Servico:   set("servico"),
		Telefone:  set("telefone"),
		Email:     set("email"),
		Estado:    set("estado"),
		Cidade:    set("cidade"),
	}
	return patch, logo, nil
}

// parseMultipart parses the form under the upload size cap and extracts the
// optional logo file part. The returned accessor reads trimmed field values.
func (s *Server) parseMultipart(r *http.Request) (func(string) string, *core.LogoUpload, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, s.cfg.Server.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, nil, errBodyTooLarge
	}

	form := func(field string) string {
		return strings.TrimSpace(r.FormValue(field))
	}

	file, header, err := r.FormFile("logo")
	if err == http.ErrMissingFile {
		return form, nil, nil
	}
	if err != nil {
		return nil, nil, errBadBody
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, errBadBody
	}

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, nil, errLogoNotImage
	}

	return form, &core.LogoUpload{
		FileName:    header.Filename,
		ContentType: contentType,
		Content:     bytes.NewReader(content),
	}, nil
}

func isMultipart(r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && ct == "multipart/form-data"
}

func listingIDs(records []core.ServiceRecord) []string {
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	return ids
}
