package educator

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/deleyapp/lawcopilot/internal/model/educator"
	"github.com/deleyapp/lawcopilot/internal/model/module"
	"github.com/deleyapp/lawcopilot/pkg/httpx"
)

// Handler serves the educator roster.
type Handler struct {
	educators educator.Store
}

// New creates an educator handler.
func New(educators educator.Store) *Handler {
	return &Handler{educators: educators}
}

// RegisterRoutes registers the educator routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/educators", h.handleList)
}

// handleList returns every educator, optionally filtered by module kind.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("module")
	if raw == "" {
		httpx.RespondJSON(w, http.StatusOK, h.educators.List())
		return
	}

	kind, err := module.Parse(raw)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	httpx.RespondJSON(w, http.StatusOK, h.educators.ListByModule(kind))
}
