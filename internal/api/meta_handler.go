package api

import (
	"net/http"
	"strings"

	"crm-api/internal/domain"
)

// metaHandler serves the static filter vocabulary: the field catalogs and
// the per-type operator tables. The filter editor UI is built entirely from
// these two endpoints.
type metaHandler struct{}

func (h *metaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	switch {
	case strings.HasSuffix(r.URL.Path, "/fields"):
		h.handleFields(w, r)
	case strings.HasSuffix(r.URL.Path, "/operators"):
		h.handleOperators(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *metaHandler) handleFields(w http.ResponseWriter, r *http.Request) {
	viewType := domain.ViewType(r.URL.Query().Get("view_type"))
	if viewType != domain.ViewTypeClient && viewType != domain.ViewTypeTask {
		writeBadRequest(w, "view_type must be client or task")
		return
	}
	catalog := domain.CatalogFor(viewType)
	writeJSON(w, http.StatusOK, catalog.Fields)
}

type operatorEntry struct {
	Label         string `json:"label"`
	Value         string `json:"value"`
	ValueOverride any    `json:"valueOverride,omitempty"`
	Shape         string `json:"shape"`
}

func (h *metaHandler) handleOperators(w http.ResponseWriter, r *http.Request) {
	fieldTypes := []domain.FieldType{
		domain.FieldTypeString,
		domain.FieldTypeNumber,
		domain.FieldTypeDate,
		domain.FieldTypeSelect,
		domain.FieldTypeUser,
		domain.FieldTypeBoolean,
	}
	table := make(map[domain.FieldType][]operatorEntry, len(fieldTypes))
	for _, fieldType := range fieldTypes {
		ops := domain.OperatorsFor(fieldType)
		entries := make([]operatorEntry, len(ops))
		for i, op := range ops {
			entries[i] = operatorEntry{
				Label:         op.Label,
				Value:         op.Value,
				ValueOverride: op.ValueOverride,
				Shape:         string(op.Shape),
			}
		}
		table[fieldType] = entries
	}
	writeJSON(w, http.StatusOK, table)
}
