package core

import (
	"sort"
	"strings"
)

// GroupUnspecified is the bucket label for records missing the grouping
// attribute.
const GroupUnspecified = "Não especificado"

// Group keys accepted by Group.
const (
	GroupByCategoria = "categoria"
	GroupByEstado    = "estado"
	GroupByCidade    = "cidade"
)

// Filter returns the records matching search and categoria.
//
// A record matches when (search is empty OR it appears case-insensitively in
// Nome or Servico) AND (categoria is empty OR Categoria equals it exactly).
// Empty arguments mean "no constraint". The input is never mutated; the
// result is a fresh slice sharing the input's elements.
func Filter(records []ServiceRecord, search, categoria string) []ServiceRecord {
	busca := strings.ToLower(strings.TrimSpace(search))

	out := make([]ServiceRecord, 0, len(records))
	for _, r := range records {
		atendeBusca := busca == "" ||
			strings.Contains(strings.ToLower(r.Nome), busca) ||
			strings.Contains(strings.ToLower(r.Servico), busca)
		atendeCategoria := categoria == "" || r.Categoria == categoria
		if atendeBusca && atendeCategoria {
			out = append(out, r)
		}
	}
	return out
}

// GroupedView is a grouping of records by one attribute's values, with bucket
// labels in ascending lexicographic order.
type GroupedView struct {
	Labels  []string
	Buckets map[string][]ServiceRecord
}

// Group partitions records by key (categoria, estado, or cidade). Records
// missing the attribute fall into the GroupUnspecified bucket. A nil view is
// returned for an empty key ("no grouping"). The input is never mutated.
func Group(records []ServiceRecord, key string) *GroupedView {
	if key == "" {
		return nil
	}

	buckets := make(map[string][]ServiceRecord)
	for _, r := range records {
		label := groupValue(&r, key)
		if label == "" {
			label = GroupUnspecified
		}
		buckets[label] = append(buckets[label], r)
	}

	labels := make([]string, 0, len(buckets))
	for label := range buckets {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	return &GroupedView{Labels: labels, Buckets: buckets}
}

// groupValue extracts the grouping attribute. Unknown keys group everything
// under the unspecified bucket rather than failing.
func groupValue(r *ServiceRecord, key string) string {
	switch key {
	case GroupByCategoria:
		return r.Categoria
	case GroupByEstado:
		return r.Estado
	case GroupByCidade:
		return r.Cidade
	default:
		return ""
	}
}

// ValidGroupKey reports whether key is one of the supported grouping keys.
func ValidGroupKey(key string) bool {
	switch key {
	case GroupByCategoria, GroupByEstado, GroupByCidade:
		return true
	}
	return false
}
