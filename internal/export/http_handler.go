package export

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"crm-api/internal/auth"
	"crm-api/internal/domain"
	"crm-api/internal/query"
	"crm-api/internal/repository"
)

type Handler struct {
	service *Service
	views   repository.SavedViewRepository
	now     func() time.Time
	loc     *time.Location
}

// NewHTTPHandler serves listing exports. Mounted at GET /api/export.
func NewHTTPHandler(service *Service, views repository.SavedViewRepository, now func() time.Time, loc *time.Location) http.Handler {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Handler{service: service, views: views, now: now, loc: loc}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	params := r.URL.Query()
	viewType := domain.ViewType(strings.TrimSpace(params.Get("view_type")))
	if viewType != domain.ViewTypeClient && viewType != domain.ViewTypeTask {
		http.Error(w, "view_type must be client or task", http.StatusBadRequest)
		return
	}

	req := Request{
		ViewType: viewType,
		Format:   ParseFormat(params.Get("format")),
	}
	name := string(viewType) + "s"

	// A view reference and inline filters are mutually exclusive; the
	// view wins and brings its column order along.
	if rawViewID := strings.TrimSpace(params.Get("view_id")); rawViewID != "" {
		viewID, err := uuid.Parse(rawViewID)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid view_id: %v", err), http.StatusBadRequest)
			return
		}
		view, err := h.views.GetByID(r.Context(), viewID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.Error(w, "view not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		tree, hasFilters, err := view.FilterTree()
		if err != nil {
			http.Error(w, fmt.Sprintf("stored filters are invalid: %v", err), http.StatusInternalServerError)
			return
		}
		req.Filters = tree
		req.HasFilters = hasFilters
		req.ColumnOrder = view.ColumnOrder
		name = sanitizeFilename(view.Name)
	} else if rawFilters := strings.TrimSpace(params.Get("filters")); rawFilters != "" {
		tree, hasFilters, err := domain.ParseFilterTree([]byte(rawFilters))
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid filters: %v", err), http.StatusBadRequest)
			return
		}
		req.Filters = tree
		req.HasFilters = hasFilters
	}

	if rawColumns := strings.TrimSpace(params.Get("columns")); rawColumns != "" {
		req.ColumnOrder = strings.Split(rawColumns, ",")
	}

	qctx := query.Context{Now: h.now, Location: h.loc}
	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		qctx.ActingUserID = userID.String()
	}

	filename := fmt.Sprintf("%s-%s.%s", name, h.now().Format("2006-01-02"), req.Format.Extension())
	w.Header().Set("Content-Type", req.Format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	rows, err := h.service.Export(r.Context(), req, qctx, w)
	if err != nil {
		// Headers are gone already; all we can do is log.
		log.Printf("[export] render %s: %v", filename, err)
		return
	}
	log.Printf("[export] wrote %s (%d rows)", filename, rows)
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "export"
	}
	replacer := strings.NewReplacer("/", "-", "\\", "-", "\"", "", " ", "_")
	return replacer.Replace(name)
}
