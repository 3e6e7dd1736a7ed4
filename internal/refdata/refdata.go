// Package refdata holds the static reference data the directory is built on:
// the fixed service category list and the state/city geography mapping.
// Both are loaded once at startup and are read-only afterwards.
package refdata

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed estados-cidades.json
var estadosCidadesJSON []byte

// DefaultLogoURL is shown for records without an uploaded logo.
const DefaultLogoURL = "https://i.imgur.com/8lC3A4z.png"

// categorias is the fixed, ordered category enumeration. Records must use one
// of these values verbatim.
var categorias = []string{
	"Alimentação",
	"Beleza e Estética",
	"Construção e Reformas",
	"Educação",
	"Eventos",
	"Reparos",
	"Saúde e Bem-estar",
	"Serviços Automotivos",
	"Serviços Domésticos",
	"Tecnologia",
	"Transportes",
	"Outros",
}

// Estado is one entry of the geography reference: a state code, its display
// name, and the ordered list of its cities.
type Estado struct {
	Sigla   string   `json:"sigla"`
	Nome    string   `json:"nome"`
	Cidades []string `json:"cidades"`
}

type geografia struct {
	Estados []Estado `json:"estados"`
}

var (
	estados   []Estado
	porSigla  map[string]*Estado
	cidadeSet map[string]map[string]bool
)

func init() {
	var g geografia
	if err := json.Unmarshal(estadosCidadesJSON, &g); err != nil {
		panic(fmt.Sprintf("refdata: corrupt estados-cidades.json: %v", err))
	}
	estados = g.Estados
	porSigla = make(map[string]*Estado, len(estados))
	cidadeSet = make(map[string]map[string]bool, len(estados))
	for i := range estados {
		e := &estados[i]
		porSigla[e.Sigla] = e
		set := make(map[string]bool, len(e.Cidades))
		for _, c := range e.Cidades {
			set[c] = true
		}
		cidadeSet[e.Sigla] = set
	}
}

// Categories returns the fixed category list in display order.
// Callers must not mutate the returned slice.
func Categories() []string { return categorias }

// ValidCategory reports whether c belongs to the category enumeration.
func ValidCategory(c string) bool {
	for _, cat := range categorias {
		if cat == c {
			return true
		}
	}
	return false
}

// States returns all states in reference order.
func States() []Estado { return estados }

// StateName returns the display name for a state code, or "" if unknown.
func StateName(sigla string) string {
	if e, ok := porSigla[sigla]; ok {
		return e.Nome
	}
	return ""
}

// Cities returns the ordered city list for a state code, or nil if unknown.
func Cities(sigla string) []string {
	if e, ok := porSigla[sigla]; ok {
		return e.Cidades
	}
	return nil
}

// ValidLocation reports whether cidade belongs to the listed cities of estado.
func ValidLocation(estado, cidade string) bool {
	set, ok := cidadeSet[estado]
	return ok && set[cidade]
}
