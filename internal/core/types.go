package core

import (
	"strings"
	"time"

	"github.com/serviapp/serviapp/internal/refdata"
)

// ServiceRecord is one provider's published listing. Field wire names match
// the "servicos" collection documents.
type ServiceRecord struct {
	// ID is assigned by the store on creation and never changes.
	ID string `json:"id"`

	// Nome is the provider or business name.
	Nome string `json:"nome"`

	// Categoria is one of the fixed category enumeration values.
	Categoria string `json:"categoria"`

	// Servico is the specific service description ("Eletricista Residencial").
	Servico string `json:"servico"`

	Telefone string `json:"telefone"`
	Email    string `json:"email,omitempty"`

	// Estado is the two-letter state code; Cidade must belong to that
	// state's city list in the geography reference.
	Estado string `json:"estado"`
	Cidade string `json:"cidade"`

	// LogoURL points at the uploaded logo blob, if any.
	LogoURL string `json:"logoUrl,omitempty"`

	// DataCadastro is the creation timestamp; listings are served newest
	// first by this field.
	DataCadastro time.Time `json:"dataCadastro"`

	// UserID is the owning identity. Set at creation, never changed by
	// non-administrators.
	UserID string `json:"userId"`
}

// RecordInput carries the user-supplied fields for creating a record.
type RecordInput struct {
	Nome      string `json:"nome"`
	Categoria string `json:"categoria"`
	Servico   string `json:"servico"`
	Telefone  string `json:"telefone"`
	Email     string `json:"email"`
	Estado    string `json:"estado"`
	Cidade    string `json:"cidade"`

	// TermsAccepted must be true; registration without accepting the terms
	// of use is rejected.
	TermsAccepted bool `json:"termsAccepted"`
}

// RecordPatch carries a partial field replacement for an update. Nil fields
// are left unchanged.
type RecordPatch struct {
	Nome      *string `json:"nome,omitempty"`
	Categoria *string `json:"categoria,omitempty"`
	Servico   *string `json:"servico,omitempty"`
	Telefone  *string `json:"telefone,omitempty"`
	Email     *string `json:"email,omitempty"`
	Estado    *string `json:"estado,omitempty"`
	Cidade    *string `json:"cidade,omitempty"`
}

// NewServiceRecord validates input and builds an unsaved record for owner.
// The ID and DataCadastro are filled in by the store on insert.
func NewServiceRecord(in RecordInput, ownerID string) (ServiceRecord, error) {
	if !in.TermsAccepted {
		return ServiceRecord{}, NewValidationError("termsAccepted", "os termos de uso precisam ser aceitos")
	}

	rec := ServiceRecord{
		Nome:      strings.TrimSpace(in.Nome),
		Categoria: strings.TrimSpace(in.Categoria),
		Servico:   strings.TrimSpace(in.Servico),
		Telefone:  strings.TrimSpace(in.Telefone),
		Email:     strings.TrimSpace(in.Email),
		Estado:    strings.TrimSpace(in.Estado),
		Cidade:    strings.TrimSpace(in.Cidade),
		UserID:    ownerID,
	}
	if err := rec.validate(); err != nil {
		return ServiceRecord{}, err
	}
	return rec, nil
}

// validate checks required fields, the category enumeration, and the
// state/city consistency invariant.
func (r *ServiceRecord) validate() error {
	switch {
	case r.Nome == "":
		return NewValidationError("nome", "campo obrigatório")
	case r.Servico == "":
		return NewValidationError("servico", "campo obrigatório")
	case r.Telefone == "":
		return NewValidationError("telefone", "campo obrigatório")
	case r.Categoria == "":
		return NewValidationError("categoria", "campo obrigatório")
	case r.Estado == "":
		return NewValidationError("estado", "campo obrigatório")
	case r.Cidade == "":
		return NewValidationError("cidade", "campo obrigatório")
	}
	if !refdata.ValidCategory(r.Categoria) {
		return NewValidationError("categoria", "categoria desconhecida: "+r.Categoria)
	}
	if refdata.StateName(r.Estado) == "" {
		return NewValidationError("estado", "estado desconhecido: "+r.Estado)
	}
	if !refdata.ValidLocation(r.Estado, r.Cidade) {
		return NewValidationError("cidade", r.Cidade+" não pertence ao estado "+r.Estado)
	}
	return nil
}

// Apply returns a copy of r with the patch's non-nil fields replaced and the
// result re-validated. The receiver is not modified.
func (r ServiceRecord) Apply(p RecordPatch) (ServiceRecord, error) {
	out := r
	if p.Nome != nil {
		out.Nome = strings.TrimSpace(*p.Nome)
	}
	if p.Categoria != nil {
		out.Categoria = strings.TrimSpace(*p.Categoria)
	}
	if p.Servico != nil {
		out.Servico = strings.TrimSpace(*p.Servico)
	}
	if p.Telefone != nil {
		out.Telefone = strings.TrimSpace(*p.Telefone)
	}
	if p.Email != nil {
		out.Email = strings.TrimSpace(*p.Email)
	}
	if p.Estado != nil {
		out.Estado = strings.TrimSpace(*p.Estado)
	}
	if p.Cidade != nil {
		out.Cidade = strings.TrimSpace(*p.Cidade)
	}
	if err := out.validate(); err != nil {
		return ServiceRecord{}, err
	}
	return out, nil
}

// DisplayLogoURL returns the record's logo or the shared placeholder.
func (r *ServiceRecord) DisplayLogoURL() string {
	if r.LogoURL != "" {
		return r.LogoURL
	}
	return refdata.DefaultLogoURL
}
