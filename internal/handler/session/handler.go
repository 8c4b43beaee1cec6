package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/deleyapp/lawcopilot/internal/model/chat"
	"github.com/deleyapp/lawcopilot/internal/model/module"
	"github.com/deleyapp/lawcopilot/internal/service/voice"
	"github.com/deleyapp/lawcopilot/internal/store"
	"github.com/deleyapp/lawcopilot/pkg/httpx"
)

// Handler exposes the persisted conversation sessions over HTTP.
type Handler struct {
	sessions store.Store
	voiceSvc *voice.Service
}

// New creates a session handler.
func New(sessions store.Store, voiceSvc *voice.Service) *Handler {
	return &Handler{sessions: sessions, voiceSvc: voiceSvc}
}

// RegisterRoutes registers the session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions", func(sr chi.Router) {
		sr.Post("/", h.handleCreate)
		sr.Get("/{module}", h.handleList)
		sr.Get("/{module}/{sessionID}", h.handleGet)
		sr.Delete("/{module}/{sessionID}", h.handleDelete)
	})
}

// handleCreate provisions an empty session bound to an educator and
// persists it so clients can resume it later.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ModuleType string `json:"moduleType"`
		EducatorID string `json:"educatorId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind, err := module.Parse(payload.ModuleType)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.voiceSvc.StartSession(kind, payload.EducatorID)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.sessions.Save(r.Context(), sess); err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, "failed to persist session")
		return
	}

	httpx.RespondJSON(w, http.StatusCreated, sess)
}

// handleList returns the module kind's sessions, newest first.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	kind, err := module.Parse(chi.URLParam(r, "module"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sessions, err := h.sessions.LoadAll(r.Context(), kind)
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, "failed to load sessions")
		return
	}
	if sessions == nil {
		sessions = []chat.Session{} // render [] instead of null
	}
	httpx.RespondJSON(w, http.StatusOK, sessions)
}

// handleGet returns one session or 404.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	kind, err := module.Parse(chi.URLParam(r, "module"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.sessions.LoadOne(r.Context(), kind, chi.URLParam(r, "sessionID"))
	if errors.Is(err, store.ErrNotFound) {
		httpx.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, sess)
}

// handleDelete removes one session; deleting an unknown id is a 404.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	kind, err := module.Parse(chi.URLParam(r, "module"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.sessions.Delete(r.Context(), kind, chi.URLParam(r, "sessionID"))
	if errors.Is(err, store.ErrNotFound) {
		httpx.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
